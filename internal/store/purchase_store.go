package store

import (
	"context"

	"forumshop/internal/models"

	"github.com/shopspring/decimal"
)

type PurchaseStore struct {
	db DB
}

func NewPurchaseStore(db DB) *PurchaseStore {
	return &PurchaseStore{db: db}
}

type PurchaseInput struct {
	UserID        int64
	CreditsBefore decimal.Decimal
	CreditsAfter  decimal.Decimal
	TotalSpent    decimal.Decimal
}

func (s *PurchaseStore) CreateTransaction(ctx context.Context, tx Getter, input PurchaseInput) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, `
		INSERT INTO purchase_transactions (user_id, credits_before, credits_after, total_credits_spent)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, input.UserID, input.CreditsBefore, input.CreditsAfter, input.TotalSpent)
	return id, err
}

func (s *PurchaseStore) InsertLines(ctx context.Context, tx Execer, transactionID int64, lines []models.PurchaseLine) error {
	if len(lines) == 0 {
		return nil
	}
	insert := psql.Insert("purchase_items").Columns("transaction_id", "item_id", "quantity", "price")
	for _, line := range lines {
		insert = insert.Values(transactionID, line.ItemID, line.Quantity, line.Price)
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}
