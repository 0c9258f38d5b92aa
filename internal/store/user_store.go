package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"forumshop/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

var UserColumns = []string{"id", "user_id", "credits", "created_at", "updated_at"}

var userColumns = strings.Join(UserColumns, ", ")

// Register inserts a user unless the external id already exists. inserted is
// false when another request registered it first.
func (s *UserStore) Register(ctx context.Context, tx Getter, externalID int64, credits decimal.Decimal) (id int64, inserted bool, err error) {
	err = tx.GetContext(ctx, &id, `
		INSERT INTO users (user_id, credits)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING id
	`, externalID, credits)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *UserStore) GetByExternalID(ctx context.Context, q Getter, externalID int64) (models.User, error) {
	var row models.User
	err := q.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, externalID)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) GetForUpdate(ctx context.Context, tx Getter, externalID int64) (models.User, error) {
	var row models.User
	err := tx.GetContext(ctx, &row, `
		SELECT `+userColumns+`
		FROM users
		WHERE user_id = $1
		FOR UPDATE
	`, externalID)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) UpdateCredits(ctx context.Context, tx Execer, id int64, credits decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET credits = $1, updated_at = NOW()
		WHERE id = $2
	`, credits, id)
	return err
}

func (s *UserStore) ListByExternalIDs(ctx context.Context, q Selecter, externalIDs []int64) ([]models.User, error) {
	rows := []models.User{}
	err := q.SelectContext(ctx, &rows, `
		SELECT `+userColumns+`
		FROM users
		WHERE user_id = ANY($1)
		ORDER BY user_id
	`, pq.Array(externalIDs))
	if err != nil {
		return nil, err
	}
	return rows, nil
}
