package store

import (
	"context"

	"forumshop/internal/models"

	"github.com/lib/pq"
)

type InventoryStore struct {
	db DB
}

func NewInventoryStore(db DB) *InventoryStore {
	return &InventoryStore{db: db}
}

const inventoryEntrySelect = `
	SELECT inv.user_id AS owner_id, inv.item_id, i.name, i.description, i.image, i.price,
	       inv.total_quantity, inv.quantity_in_bag, inv.last_updated
	FROM inventory inv
	JOIN items i ON i.id = inv.item_id
`

// ListByUsers reads the inventory of several internal user ids, skipping
// deleted items.
func (s *InventoryStore) ListByUsers(ctx context.Context, q Selecter, userIDs []int64) ([]models.InventoryEntry, error) {
	rows := []models.InventoryEntry{}
	err := q.SelectContext(ctx, &rows, inventoryEntrySelect+`
		WHERE inv.user_id = ANY($1) AND i.is_deleted = FALSE
		ORDER BY inv.user_id, inv.item_id
	`, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Snapshot returns the raw rows of one user, locking them.
func (s *InventoryStore) Snapshot(ctx context.Context, tx Selecter, userID int64) ([]models.InventoryRow, error) {
	rows := []models.InventoryRow{}
	err := tx.SelectContext(ctx, &rows, `
		SELECT user_id, item_id, total_quantity, quantity_in_bag, last_updated
		FROM inventory
		WHERE user_id = $1
		ORDER BY item_id
		FOR UPDATE
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *InventoryStore) DeleteForUser(ctx context.Context, tx Execer, userID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM inventory WHERE user_id = $1`, userID)
	return err
}

func (s *InventoryStore) InsertRows(ctx context.Context, tx Execer, rows []models.InventoryRow) error {
	if len(rows) == 0 {
		return nil
	}
	insert := psql.Insert("inventory").Columns("user_id", "item_id", "total_quantity", "quantity_in_bag")
	for _, row := range rows {
		insert = insert.Values(row.UserID, row.ItemID, row.TotalQuantity, row.QuantityInBag)
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// AddQuantity upserts a purchased quantity. New rows start with nothing in
// the bag.
func (s *InventoryStore) AddQuantity(ctx context.Context, tx Execer, userID, itemID, quantity int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory (user_id, item_id, total_quantity, quantity_in_bag)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (user_id, item_id)
		DO UPDATE SET total_quantity = inventory.total_quantity + EXCLUDED.total_quantity,
		              last_updated = NOW()
	`, userID, itemID, quantity)
	return err
}
