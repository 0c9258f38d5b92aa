package services

import (
	"context"

	"forumshop/internal/apperr"
	"forumshop/internal/models"
	"forumshop/internal/mutation"
	"forumshop/internal/store"
	"forumshop/internal/websocket"

	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound        = apperr.ErrNotFound.WithMessage("User not found")
	ErrCategoryNotFound    = apperr.ErrNotFound.WithMessage("Category not found")
	ErrItemNotFound        = apperr.ErrNotFound.WithMessage("Item not found")
	ErrInsufficientCredits = apperr.New(apperr.KindConflict, "insufficient_credits", "Insufficient credits")
	ErrItemUnavailable     = apperr.New(apperr.KindNotFound, "item_unavailable", "Item unavailable")
	ErrPriceMismatch       = apperr.New(apperr.KindValidation, "price_mismatch", "Price does not match the current item price")
	ErrDuplicateItem       = apperr.New(apperr.KindValidation, "duplicate_item", "Duplicate item")
	ErrBagExceedsTotal     = apperr.New(apperr.KindConflict, "bag_exceeds_total", "Bag quantity exceeds total quantity")
	ErrNothingToUpdate     = apperr.New(apperr.KindValidation, "missing_field", "Nothing to update")
)

type CategoryStore interface {
	Insert(ctx context.Context, tx store.Getter, input store.CategoryInput, actorID int64) (int64, error)
	Update(ctx context.Context, tx store.Execer, id int64, patch store.CategoryPatch, actorID int64) error
	Get(ctx context.Context, id int64) (models.Category, error)
	List(ctx context.Context, limit, offset int) ([]models.Category, error)
	Count(ctx context.Context) (int, error)
	ItemsFor(ctx context.Context, categoryID int64) ([]models.Item, error)
	ExistingIDs(ctx context.Context, q store.Selecter, ids []int64) ([]int64, error)
	SoleCategoryItems(ctx context.Context, tx store.Selecter, categoryID int64) ([]int64, error)
	DeleteLinks(ctx context.Context, tx store.Execer, categoryID int64) (int64, error)
}

type ItemStore interface {
	Insert(ctx context.Context, tx store.Getter, input store.ItemInput, actorID int64) (int64, error)
	Update(ctx context.Context, tx store.Execer, id int64, patch store.ItemPatch, actorID int64) error
	Link(ctx context.Context, tx store.Execer, itemID int64, categoryIDs []int64) error
	Unlink(ctx context.Context, tx store.Execer, itemID int64) error
	Get(ctx context.Context, id int64) (models.Item, error)
	List(ctx context.Context, filter store.ItemFilter, limit, offset int) ([]models.Item, error)
	Count(ctx context.Context, filter store.ItemFilter) (int, error)
	CategoriesForItems(ctx context.Context, itemIDs []int64) ([]models.ItemCategory, error)
	Availability(ctx context.Context, q store.Selecter, ids []int64, lock bool) ([]models.Item, error)
}

type UserStore interface {
	Register(ctx context.Context, tx store.Getter, externalID int64, credits decimal.Decimal) (int64, bool, error)
	GetByExternalID(ctx context.Context, q store.Getter, externalID int64) (models.User, error)
	GetForUpdate(ctx context.Context, tx store.Getter, externalID int64) (models.User, error)
	UpdateCredits(ctx context.Context, tx store.Execer, id int64, credits decimal.Decimal) error
	ListByExternalIDs(ctx context.Context, q store.Selecter, externalIDs []int64) ([]models.User, error)
}

type InventoryStore interface {
	ListByUsers(ctx context.Context, q store.Selecter, userIDs []int64) ([]models.InventoryEntry, error)
	Snapshot(ctx context.Context, tx store.Selecter, userID int64) ([]models.InventoryRow, error)
	DeleteForUser(ctx context.Context, tx store.Execer, userID int64) error
	InsertRows(ctx context.Context, tx store.Execer, rows []models.InventoryRow) error
	AddQuantity(ctx context.Context, tx store.Execer, userID, itemID, quantity int64) error
}

type PurchaseStore interface {
	CreateTransaction(ctx context.Context, tx store.Getter, input store.PurchaseInput) (int64, error)
	InsertLines(ctx context.Context, tx store.Execer, transactionID int64, lines []models.PurchaseLine) error
}

type AuditStore interface {
	Record(ctx context.Context, tx store.Execer, entry store.AuditEntry) error
}

type InventoryHub interface {
	BroadcastInventory(update websocket.InventoryUpdate)
}

var (
	categorySpec = mutation.Spec[models.Category]{
		Entity:     "category",
		Table:      "categories",
		Columns:    store.CategoryColumns,
		Audit:      store.CategoryAudit,
		SoftDelete: true,
	}
	itemSpec = mutation.Spec[models.Item]{
		Entity:     "item",
		Table:      "items",
		Columns:    store.ItemColumns,
		Audit:      store.ItemAudit,
		SoftDelete: true,
	}
	userSpec = mutation.Spec[models.User]{
		Entity:  "user",
		Table:   "users",
		Columns: store.UserColumns,
		Audit:   store.UserAudit,
	}
)

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func NewPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// isRejection reports whether err is a client-facing refusal rather than a
// server fault.
func isRejection(err error) bool {
	return apperr.KindOf(err) != apperr.KindInternal
}

// missingIDs returns the ids of want that are absent from have, in order.
func missingIDs(want, have []int64) []int64 {
	found := make(map[int64]struct{}, len(have))
	for _, id := range have {
		found[id] = struct{}{}
	}
	var missing []int64
	for _, id := range want {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
