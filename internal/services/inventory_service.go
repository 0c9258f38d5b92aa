package services

import (
	"context"
	"fmt"
	"log/slog"

	"forumshop/internal/db"
	"forumshop/internal/logger"
	"forumshop/internal/metrics"
	"forumshop/internal/models"
	"forumshop/internal/store"
	"forumshop/internal/validator"
	"forumshop/internal/websocket"
)

// Registrar provisions users on first reference.
type Registrar interface {
	EnsureUser(ctx context.Context, tx store.Tx, externalID int64) (models.User, bool, error)
}

type InventoryService struct {
	txRunner  db.TxRunner
	users     Registrar
	inventory InventoryStore
	audit     AuditStore
	hub       InventoryHub
}

func NewInventoryService(txRunner db.TxRunner, users Registrar, inventory InventoryStore, audit AuditStore, hub InventoryHub) *InventoryService {
	return &InventoryService{
		txRunner:  txRunner,
		users:     users,
		inventory: inventory,
		audit:     audit,
		hub:       hub,
	}
}

type StockLine struct {
	ItemID   int64 `json:"item_id" validate:"gt=0"`
	Quantity int64 `json:"quantity" validate:"gte=0"`
}

// ReconcileRequest is the complete desired state of a user's inventory.
type ReconcileRequest struct {
	UserID    int64       `json:"user_id" validate:"gt=0"`
	Inventory []StockLine `json:"inventory" validate:"required,dive"`
	Bag       []StockLine `json:"bag" validate:"required,dive"`
}

type ReconcileResult struct {
	UserID int64 `json:"user_id"`
	Items  int   `json:"items"`
}

type inventorySnapshot struct {
	Inventory []models.InventoryRow `json:"inventory"`
}

// Reconcile replaces every inventory row of the user with the submitted
// state. Either all rows are replaced or none are.
func (s *InventoryService) Reconcile(ctx context.Context, req ReconcileRequest) (ReconcileResult, error) {
	rows, err := s.reconcile(ctx, req)
	metrics.ReconciliationsTotal.WithLabelValues(metrics.Outcome(err, isRejection)).Inc()
	if err != nil {
		return ReconcileResult{}, err
	}
	logger.FromContext(ctx).Info("inventory reconciled",
		slog.Int64("user_id", req.UserID),
		slog.Int("rows", len(rows)))
	s.hub.BroadcastInventory(websocket.InventoryUpdate{
		UserID: req.UserID,
		Event:  websocket.EventInventory,
	})
	return ReconcileResult{UserID: req.UserID, Items: len(rows)}, nil
}

func (s *InventoryService) reconcile(ctx context.Context, req ReconcileRequest) ([]models.InventoryRow, error) {
	desired, err := plannedRows(req)
	if err != nil {
		return nil, err
	}
	var written []models.InventoryRow
	err = s.txRunner.WithTx(ctx, func(tx store.Tx) error {
		user, _, err := s.users.EnsureUser(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		previous, err := s.inventory.Snapshot(ctx, tx, user.ID)
		if err != nil {
			return fmt.Errorf("snapshot inventory: %w", err)
		}
		if err := s.inventory.DeleteForUser(ctx, tx, user.ID); err != nil {
			return fmt.Errorf("clear inventory: %w", err)
		}
		rows := make([]models.InventoryRow, 0, len(desired))
		for _, row := range desired {
			row.UserID = user.ID
			rows = append(rows, row)
		}
		if err := s.inventory.InsertRows(ctx, tx, rows); err != nil {
			return fmt.Errorf("insert inventory: %w", err)
		}
		if previous == nil {
			previous = []models.InventoryRow{}
		}
		if err := s.audit.Record(ctx, tx, store.AuditEntry{
			Target:   store.UserAudit,
			EntityID: user.ID,
			ActorID:  req.UserID,
			Action:   models.AuditUpdate,
			Old:      inventorySnapshot{Inventory: previous},
			New:      inventorySnapshot{Inventory: rows},
		}); err != nil {
			return err
		}
		written = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}

// plannedRows validates the payload and pairs every inventory line with its
// bag quantity. Rows holding nothing are dropped.
func plannedRows(req ReconcileRequest) ([]models.InventoryRow, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	totals, err := indexLines("inventory", req.Inventory)
	if err != nil {
		return nil, err
	}
	bag, err := indexLines("bag", req.Bag)
	if err != nil {
		return nil, err
	}
	for i, line := range req.Bag {
		total, ok := totals[line.ItemID]
		if !ok && line.Quantity > 0 {
			return nil, ErrBagExceedsTotal.WithField(validator.Index("bag", i, "quantity")).
				WithMessage("Item %d is in the bag but not in the inventory", line.ItemID)
		}
		if line.Quantity > total {
			return nil, ErrBagExceedsTotal.WithField(validator.Index("bag", i, "quantity")).
				WithMessage("Bag quantity %d of item %d exceeds total quantity %d", line.Quantity, line.ItemID, total)
		}
	}
	rows := make([]models.InventoryRow, 0, len(req.Inventory))
	for _, line := range req.Inventory {
		inBag := bag[line.ItemID]
		if line.Quantity == 0 && inBag == 0 {
			continue
		}
		rows = append(rows, models.InventoryRow{
			ItemID:        line.ItemID,
			TotalQuantity: line.Quantity,
			QuantityInBag: inBag,
		})
	}
	return rows, nil
}

func indexLines(field string, lines []StockLine) (map[int64]int64, error) {
	index := make(map[int64]int64, len(lines))
	for i, line := range lines {
		if _, seen := index[line.ItemID]; seen {
			return nil, ErrDuplicateItem.WithField(validator.Index(field, i, "item_id")).
				WithMessage("Item %d is listed twice in %s", line.ItemID, field)
		}
		index[line.ItemID] = line.Quantity
	}
	return index, nil
}
