package services

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"forumshop/internal/db"
	"forumshop/internal/loaders"
	"forumshop/internal/metrics"
	"forumshop/internal/models"
	"forumshop/internal/mutation"
	"forumshop/internal/store"
	"forumshop/internal/validator"

	"github.com/shopspring/decimal"
)

type ItemService struct {
	txRunner   db.TxRunner
	items      ItemStore
	categories CategoryStore
	engine     *mutation.Engine[models.Item]
}

func NewItemService(txRunner db.TxRunner, items ItemStore, categories CategoryStore, audit AuditStore) *ItemService {
	return &ItemService{
		txRunner:   txRunner,
		items:      items,
		categories: categories,
		engine:     mutation.New(itemSpec, audit),
	}
}

type AddItemRequest struct {
	ActorID     int64           `json:"user_id" validate:"gt=0"`
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"required,max=500"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image" validate:"required"`
	IsActive    bool            `json:"is_active"`
	CategoryIDs []int64         `json:"categories" validate:"min=1,dive,gt=0"`
}

// UpdateItemRequest leaves nil fields untouched. A non-nil CategoryIDs
// replaces every link of the item.
type UpdateItemRequest struct {
	ID          int64            `json:"id" validate:"gt=0"`
	ActorID     int64            `json:"user_id" validate:"gt=0"`
	Name        *string          `json:"name" validate:"omitempty,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image"`
	IsActive    *bool            `json:"is_active"`
	CategoryIDs []int64          `json:"categories" validate:"omitempty,min=1,dive,gt=0"`
}

func (r UpdateItemRequest) empty() bool {
	return r.Name == nil && r.Description == nil && r.Price == nil &&
		r.Image == nil && r.IsActive == nil && r.CategoryIDs == nil
}

type ItemDetail struct {
	models.Item
	Categories []models.Category `json:"categories"`
}

type ItemQuery struct {
	CategoryID *int64
	Page       int
	Limit      int
}

func (s *ItemService) AddItem(ctx context.Context, req AddItemRequest) (ItemDetail, error) {
	if err := validator.Struct(req); err != nil {
		return ItemDetail{}, err
	}
	if req.Price.IsNegative() {
		return ItemDetail{}, validator.InvalidRange("price", "must not be negative")
	}
	categoryIDs := uniqueIDs(req.CategoryIDs)
	var created models.Item
	err := s.txRunner.WithTx(ctx, func(tx store.Tx) error {
		if err := s.requireCategories(ctx, tx, categoryIDs); err != nil {
			return err
		}
		var err error
		created, err = s.engine.Create(ctx, tx, req.ActorID, func(tx store.Tx) (int64, error) {
			id, err := s.items.Insert(ctx, tx, store.ItemInput{
				Name:        req.Name,
				Description: req.Description,
				Price:       req.Price,
				Image:       req.Image,
				IsActive:    req.IsActive,
			}, req.ActorID)
			if err != nil {
				return 0, err
			}
			return id, s.items.Link(ctx, tx, id, categoryIDs)
		})
		return err
	})
	if err != nil {
		return ItemDetail{}, err
	}
	metrics.MutationsTotal.WithLabelValues(itemSpec.Entity).Inc()
	return s.withCategories(ctx, created)
}

func (s *ItemService) UpdateItem(ctx context.Context, req UpdateItemRequest) (ItemDetail, error) {
	if err := validator.Struct(req); err != nil {
		return ItemDetail{}, err
	}
	if req.empty() {
		return ItemDetail{}, ErrNothingToUpdate.WithMessage("Nothing to update")
	}
	if req.Price != nil && req.Price.IsNegative() {
		return ItemDetail{}, validator.InvalidRange("price", "must not be negative")
	}
	var updated models.Item
	err := s.txRunner.WithTx(ctx, func(tx store.Tx) error {
		var err error
		_, updated, err = s.engine.Update(ctx, tx, req.ID, req.ActorID, func(tx store.Tx, _ models.Item) error {
			if req.CategoryIDs != nil {
				categoryIDs := uniqueIDs(req.CategoryIDs)
				if err := s.requireCategories(ctx, tx, categoryIDs); err != nil {
					return err
				}
				if err := s.items.Unlink(ctx, tx, req.ID); err != nil {
					return err
				}
				if err := s.items.Link(ctx, tx, req.ID, categoryIDs); err != nil {
					return err
				}
			}
			return s.items.Update(ctx, tx, req.ID, store.ItemPatch{
				Name:        req.Name,
				Description: req.Description,
				Price:       req.Price,
				Image:       req.Image,
				IsActive:    req.IsActive,
			}, req.ActorID)
		})
		return err
	})
	if err != nil {
		return ItemDetail{}, err
	}
	metrics.MutationsTotal.WithLabelValues(itemSpec.Entity).Inc()
	return s.withCategories(ctx, updated)
}

func (s *ItemService) DeleteItem(ctx context.Context, id, actorID int64) (models.Item, error) {
	if actorID <= 0 {
		return models.Item{}, validator.InvalidRange("user_id", "must be a positive integer")
	}
	var deleted models.Item
	err := s.txRunner.WithTx(ctx, func(tx store.Tx) error {
		var err error
		_, deleted, err = s.engine.Delete(ctx, tx, id, actorID, nil)
		return err
	})
	if err != nil {
		return models.Item{}, err
	}
	metrics.MutationsTotal.WithLabelValues(itemSpec.Entity).Inc()
	return deleted, nil
}

func (s *ItemService) GetItem(ctx context.Context, id int64) (ItemDetail, error) {
	item, err := s.items.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ItemDetail{}, ErrItemNotFound.WithMessage("Item %d not found", id)
	}
	if err != nil {
		return ItemDetail{}, err
	}
	return s.withCategories(ctx, item)
}

// ListItems pages through live items. Categories for the whole page are
// fetched with a single batched query.
func (s *ItemService) ListItems(ctx context.Context, q ItemQuery) (Page[ItemDetail], error) {
	filter := store.ItemFilter{CategoryID: q.CategoryID}
	total, err := s.items.Count(ctx, filter)
	if err != nil {
		return Page[ItemDetail]{}, err
	}
	pagination := NewPagination(total, q.Page, q.Limit)
	rows, err := s.items.List(ctx, filter, q.Limit, pagination.Offset())
	if err != nil {
		return Page[ItemDetail]{}, err
	}
	details := make([]ItemDetail, len(rows))
	if len(rows) > 0 {
		ids := make([]int64, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}
		categories, err := loaders.NewCategoriesByItem(s.items).LoadMany(ctx, ids)
		if err != nil {
			return Page[ItemDetail]{}, err
		}
		for i, row := range rows {
			details[i] = ItemDetail{Item: row, Categories: categories[i]}
		}
	}
	return Page[ItemDetail]{Items: details, Pagination: pagination}, nil
}

func (s *ItemService) withCategories(ctx context.Context, item models.Item) (ItemDetail, error) {
	categories, err := loaders.NewCategoriesByItem(s.items).Load(ctx, item.ID)
	if err != nil {
		return ItemDetail{}, err
	}
	return ItemDetail{Item: item, Categories: categories}, nil
}

func (s *ItemService) requireCategories(ctx context.Context, tx store.Tx, ids []int64) error {
	found, err := s.categories.ExistingIDs(ctx, tx, ids)
	if err != nil {
		return err
	}
	missing := missingIDs(ids, found)
	if len(missing) == 0 {
		return nil
	}
	return ErrCategoryNotFound.WithField("categories").WithMessage("Categories not found: %s", joinIDs(missing))
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
