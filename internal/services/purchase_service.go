package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"forumshop/internal/db"
	"forumshop/internal/logger"
	"forumshop/internal/metrics"
	"forumshop/internal/models"
	"forumshop/internal/money"
	"forumshop/internal/mutation"
	"forumshop/internal/store"
	"forumshop/internal/validator"
	"forumshop/internal/websocket"

	"github.com/shopspring/decimal"
)

type PurchaseService struct {
	txRunner     db.TxRunner
	reader       store.Querier
	users        UserStore
	items        ItemStore
	inventory    InventoryStore
	purchases    PurchaseStore
	audit        AuditStore
	userEngine   *mutation.Engine[models.User]
	hub          InventoryHub
	strictPrices bool
}

func NewPurchaseService(txRunner db.TxRunner, reader store.Querier, users UserStore, items ItemStore, inventory InventoryStore, purchases PurchaseStore, audit AuditStore, hub InventoryHub, strictPrices bool) *PurchaseService {
	return &PurchaseService{
		txRunner:     txRunner,
		reader:       reader,
		users:        users,
		items:        items,
		inventory:    inventory,
		purchases:    purchases,
		audit:        audit,
		userEngine:   mutation.New(userSpec, audit),
		hub:          hub,
		strictPrices: strictPrices,
	}
}

type PurchaseLineRequest struct {
	ItemID   int64           `json:"item_id" validate:"gt=0"`
	Quantity int64           `json:"quantity" validate:"gt=0,lte=1000000"`
	Price    decimal.Decimal `json:"price"`
}

// MaxLineQuantity bounds one cart line, after repeated lines are merged.
const MaxLineQuantity = 1000000

type PurchaseRequest struct {
	UserID int64                 `json:"user_id" validate:"gt=0"`
	Items  []PurchaseLineRequest `json:"items" validate:"min=1,dive"`
}

type PurchaseResult struct {
	TransactionID    int64
	CreditsSpent     decimal.Decimal
	CreditsRemaining decimal.Decimal
	ItemsPurchased   []models.PurchaseLine
}

// purchaseSnapshot is the new_values payload of a purchase audit row.
type purchaseSnapshot struct {
	TransactionID int64                 `json:"transaction_id"`
	UserID        int64                 `json:"user_id"`
	CreditsBefore string                `json:"credits_before"`
	CreditsAfter  string                `json:"credits_after"`
	TotalSpent    string                `json:"total_credits_spent"`
	Items         []models.PurchaseLine `json:"items"`
}

// Purchase debits the user's credits and adds the items to their inventory
// atomically. Balance and availability are checked before the transaction
// for a fast rejection and again under row locks inside it.
func (s *PurchaseService) Purchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error) {
	result, err := s.purchase(ctx, req)
	metrics.PurchasesTotal.WithLabelValues(metrics.Outcome(err, isRejection)).Inc()
	if err != nil {
		return PurchaseResult{}, err
	}
	metrics.CreditsSpentTotal.Add(result.CreditsSpent.InexactFloat64())
	logger.FromContext(ctx).Info("purchase committed",
		slog.Int64("user_id", req.UserID),
		slog.Int64("transaction_id", result.TransactionID),
		slog.String("credits_spent", money.Format(result.CreditsSpent)))
	s.hub.BroadcastInventory(websocket.InventoryUpdate{
		UserID:        req.UserID,
		Event:         websocket.EventPurchase,
		Credits:       money.Format(result.CreditsRemaining),
		TransactionID: &result.TransactionID,
	})
	return result, nil
}

func (s *PurchaseService) purchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error) {
	lines, err := normalizeCart(req)
	if err != nil {
		return PurchaseResult{}, err
	}
	total := money.Total(lines,
		func(l models.PurchaseLine) decimal.Decimal { return l.Price },
		func(l models.PurchaseLine) int64 { return l.Quantity })
	if !total.IsPositive() {
		return PurchaseResult{}, validator.InvalidRange("items", "total must be greater than 0")
	}
	itemIDs := make([]int64, len(lines))
	for i, line := range lines {
		itemIDs[i] = line.ItemID
	}

	user, err := s.users.GetByExternalID(ctx, s.reader, req.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return PurchaseResult{}, ErrUserNotFound.WithMessage("User %d not found", req.UserID)
	}
	if err != nil {
		return PurchaseResult{}, err
	}
	if user.Credits.LessThan(total) {
		return PurchaseResult{}, ErrInsufficientCredits
	}
	if _, err := s.checkItems(ctx, s.reader, itemIDs, false); err != nil {
		return PurchaseResult{}, err
	}

	var result PurchaseResult
	err = s.txRunner.WithTx(ctx, func(tx store.Tx) error {
		locked, err := s.users.GetForUpdate(ctx, tx, req.UserID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound.WithMessage("User %d not found", req.UserID)
		}
		if err != nil {
			return err
		}
		if locked.Credits.LessThan(total) {
			return ErrInsufficientCredits
		}
		current, err := s.checkItems(ctx, tx, itemIDs, true)
		if err != nil {
			return err
		}
		if s.strictPrices {
			if err := verifyPrices(lines, current); err != nil {
				return err
			}
		}

		creditsAfter := locked.Credits.Sub(total)
		transactionID, err := s.purchases.CreateTransaction(ctx, tx, store.PurchaseInput{
			UserID:        locked.ID,
			CreditsBefore: locked.Credits,
			CreditsAfter:  creditsAfter,
			TotalSpent:    total,
		})
		if err != nil {
			return fmt.Errorf("create purchase transaction: %w", err)
		}
		if err := s.purchases.InsertLines(ctx, tx, transactionID, lines); err != nil {
			return fmt.Errorf("insert purchase lines: %w", err)
		}
		for _, line := range lines {
			if err := s.inventory.AddQuantity(ctx, tx, locked.ID, line.ItemID, line.Quantity); err != nil {
				return fmt.Errorf("add item %d to inventory: %w", line.ItemID, err)
			}
		}
		if _, _, err := s.userEngine.Update(ctx, tx, locked.ID, req.UserID, func(tx store.Tx, _ models.User) error {
			return s.users.UpdateCredits(ctx, tx, locked.ID, creditsAfter)
		}); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, store.AuditEntry{
			Target:   store.PurchaseAudit,
			EntityID: transactionID,
			ActorID:  req.UserID,
			Action:   models.AuditInsert,
			New: purchaseSnapshot{
				TransactionID: transactionID,
				UserID:        req.UserID,
				CreditsBefore: money.Format(locked.Credits),
				CreditsAfter:  money.Format(creditsAfter),
				TotalSpent:    money.Format(total),
				Items:         lines,
			},
		}); err != nil {
			return err
		}
		result = PurchaseResult{
			TransactionID:    transactionID,
			CreditsSpent:     total,
			CreditsRemaining: creditsAfter,
			ItemsPurchased:   lines,
		}
		return nil
	})
	if err != nil {
		return PurchaseResult{}, err
	}
	return result, nil
}

// normalizeCart validates the cart and merges repeated items. Repeats must
// carry the same price.
func normalizeCart(req PurchaseRequest) ([]models.PurchaseLine, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	lines := make([]models.PurchaseLine, 0, len(req.Items))
	index := make(map[int64]int, len(req.Items))
	for i, item := range req.Items {
		if !item.Price.IsPositive() {
			return nil, validator.InvalidRange(validator.Index("items", i, "price"), "must be greater than 0")
		}
		if pos, seen := index[item.ItemID]; seen {
			if !lines[pos].Price.Equal(item.Price) {
				return nil, ErrDuplicateItem.WithField(validator.Index("items", i, "item_id")).
					WithMessage("Item %d appears with different prices", item.ItemID)
			}
			if lines[pos].Quantity > MaxLineQuantity-item.Quantity {
				return nil, validator.InvalidRange(validator.Index("items", i, "quantity"), "merged quantity must be at most %d", MaxLineQuantity)
			}
			lines[pos].Quantity += item.Quantity
			continue
		}
		index[item.ItemID] = len(lines)
		lines = append(lines, models.PurchaseLine{ItemID: item.ItemID, Quantity: item.Quantity, Price: item.Price})
	}
	return lines, nil
}

// checkItems fails with ErrItemUnavailable naming every id that is missing,
// inactive or deleted.
func (s *PurchaseService) checkItems(ctx context.Context, q store.Selecter, ids []int64, lock bool) (map[int64]models.Item, error) {
	rows, err := s.items.Availability(ctx, q, ids, lock)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Item, len(rows))
	for _, row := range rows {
		if row.Available() {
			byID[row.ID] = row
		}
	}
	var unavailable []int64
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			unavailable = append(unavailable, id)
		}
	}
	if len(unavailable) > 0 {
		return nil, ErrItemUnavailable.WithMessage("Items not available: %s", joinIDs(unavailable))
	}
	return byID, nil
}

func verifyPrices(lines []models.PurchaseLine, current map[int64]models.Item) error {
	for _, line := range lines {
		if item := current[line.ItemID]; !item.Price.Equal(line.Price) {
			return ErrPriceMismatch.WithMessage("Price of item %d is %s, not %s",
				line.ItemID, money.Format(item.Price), money.Format(line.Price))
		}
	}
	return nil
}
