package store

import (
	"context"

	"forumshop/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var ItemColumns = []string{
	"id", "name", "description", "price", "image", "is_active", "is_deleted",
	"created_at", "edited_at", "created_by", "edited_by",
}

type ItemStore struct {
	db DB
}

func NewItemStore(db DB) *ItemStore {
	return &ItemStore{db: db}
}

type ItemInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	IsActive    bool
}

type ItemPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Image       *string
	IsActive    *bool
}

// ItemFilter narrows list reads; a nil CategoryID lists everything.
type ItemFilter struct {
	CategoryID *int64
}

func (f ItemFilter) apply(b sq.SelectBuilder) sq.SelectBuilder {
	b = b.Where(sq.Eq{"i.is_deleted": false})
	if f.CategoryID != nil {
		b = b.Join("item_categories ic ON ic.item_id = i.id").Where(sq.Eq{"ic.category_id": *f.CategoryID})
	}
	return b
}

func (s *ItemStore) Insert(ctx context.Context, tx Getter, input ItemInput, actorID int64) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, `
		INSERT INTO items (name, description, price, image, is_active, is_deleted, created_by)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		RETURNING id
	`, input.Name, input.Description, input.Price, input.Image, input.IsActive, actorID)
	return id, err
}

func (s *ItemStore) Update(ctx context.Context, tx Execer, id int64, patch ItemPatch, actorID int64) error {
	values := map[string]any{
		"edited_at": sq.Expr("NOW()"),
		"edited_by": actorID,
	}
	if patch.Name != nil {
		values["name"] = *patch.Name
	}
	if patch.Description != nil {
		values["description"] = *patch.Description
	}
	if patch.Price != nil {
		values["price"] = *patch.Price
	}
	if patch.Image != nil {
		values["image"] = *patch.Image
	}
	if patch.IsActive != nil {
		values["is_active"] = *patch.IsActive
	}
	query, args, err := psql.Update("items").SetMap(values).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// Link attaches an item to categories in one statement.
func (s *ItemStore) Link(ctx context.Context, tx Execer, itemID int64, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	insert := psql.Insert("item_categories").Columns("item_id", "category_id")
	for _, categoryID := range categoryIDs {
		insert = insert.Values(itemID, categoryID)
	}
	query, args, err := insert.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (s *ItemStore) Unlink(ctx context.Context, tx Execer, itemID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM item_categories WHERE item_id = $1`, itemID)
	return err
}

func (s *ItemStore) Get(ctx context.Context, id int64) (models.Item, error) {
	query, args, err := psql.Select(ItemColumns...).
		From("items").
		Where(sq.Eq{"id": id, "is_deleted": false}).
		ToSql()
	if err != nil {
		return models.Item{}, err
	}
	var row models.Item
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		return models.Item{}, err
	}
	return row, nil
}

func (s *ItemStore) List(ctx context.Context, filter ItemFilter, limit, offset int) ([]models.Item, error) {
	columns := make([]string, 0, len(ItemColumns))
	for _, column := range ItemColumns {
		columns = append(columns, "i."+column)
	}
	query, args, err := filter.apply(psql.Select(columns...).From("items i")).
		OrderBy("i.id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows := []models.Item{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ItemStore) Count(ctx context.Context, filter ItemFilter) (int, error) {
	query, args, err := filter.apply(psql.Select("COUNT(*)").From("items i")).ToSql()
	if err != nil {
		return 0, err
	}
	var total int
	err = s.db.GetContext(ctx, &total, query, args...)
	return total, err
}

// CategoriesForItems fetches the live categories of many items at once.
func (s *ItemStore) CategoriesForItems(ctx context.Context, itemIDs []int64) ([]models.ItemCategory, error) {
	rows := []models.ItemCategory{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT ic.item_id, c.id, c.name, c.image, c.is_active, c.is_deleted,
		       c.created_at, c.edited_at, c.created_by, c.edited_by
		FROM item_categories ic
		JOIN categories c ON c.id = ic.category_id
		WHERE ic.item_id = ANY($1) AND c.is_deleted = FALSE
		ORDER BY ic.item_id, c.id
	`, pq.Array(itemIDs))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Availability returns the rows for ids. Inside a transaction pass lock to
// hold them FOR SHARE until commit.
func (s *ItemStore) Availability(ctx context.Context, q Selecter, ids []int64, lock bool) ([]models.Item, error) {
	builder := psql.Select(ItemColumns...).
		From("items").
		Where("id = ANY(?)", pq.Array(ids)).
		OrderBy("id")
	if lock {
		builder = builder.Suffix("FOR SHARE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows := []models.Item{}
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
