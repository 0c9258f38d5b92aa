package store

import (
	"context"

	"forumshop/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// CategoryColumns is the snapshot of a category row.
var CategoryColumns = []string{
	"id", "name", "image", "is_active", "is_deleted",
	"created_at", "edited_at", "created_by", "edited_by",
}

type CategoryStore struct {
	db DB
}

func NewCategoryStore(db DB) *CategoryStore {
	return &CategoryStore{db: db}
}

type CategoryInput struct {
	Name     string
	Image    string
	IsActive bool
}

// CategoryPatch holds the fields an update sets; nil fields are left alone.
type CategoryPatch struct {
	Name     *string
	Image    *string
	IsActive *bool
}

func (s *CategoryStore) Insert(ctx context.Context, tx Getter, input CategoryInput, actorID int64) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, `
		INSERT INTO categories (name, image, is_active, is_deleted, created_by)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id
	`, input.Name, input.Image, input.IsActive, actorID)
	return id, err
}

func (s *CategoryStore) Update(ctx context.Context, tx Execer, id int64, patch CategoryPatch, actorID int64) error {
	values := map[string]any{
		"edited_at": sq.Expr("NOW()"),
		"edited_by": actorID,
	}
	if patch.Name != nil {
		values["name"] = *patch.Name
	}
	if patch.Image != nil {
		values["image"] = *patch.Image
	}
	if patch.IsActive != nil {
		values["is_active"] = *patch.IsActive
	}
	query, args, err := psql.Update("categories").SetMap(values).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (s *CategoryStore) Get(ctx context.Context, id int64) (models.Category, error) {
	query, args, err := psql.Select(CategoryColumns...).
		From("categories").
		Where(sq.Eq{"id": id, "is_deleted": false}).
		ToSql()
	if err != nil {
		return models.Category{}, err
	}
	var row models.Category
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		return models.Category{}, err
	}
	return row, nil
}

func (s *CategoryStore) List(ctx context.Context, limit, offset int) ([]models.Category, error) {
	query, args, err := psql.Select(CategoryColumns...).
		From("categories").
		Where(sq.Eq{"is_deleted": false}).
		OrderBy("id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows := []models.Category{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *CategoryStore) Count(ctx context.Context) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM categories WHERE is_deleted = FALSE`)
	return total, err
}

// ItemsFor lists the non-deleted items linked to a category.
func (s *CategoryStore) ItemsFor(ctx context.Context, categoryID int64) ([]models.Item, error) {
	rows := []models.Item{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT i.id, i.name, i.description, i.price, i.image, i.is_active, i.is_deleted,
		       i.created_at, i.edited_at, i.created_by, i.edited_by
		FROM items i
		JOIN item_categories ic ON ic.item_id = i.id
		WHERE ic.category_id = $1 AND i.is_deleted = FALSE
		ORDER BY i.id
	`, categoryID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ExistingIDs returns which of ids are non-deleted categories.
func (s *CategoryStore) ExistingIDs(ctx context.Context, q Selecter, ids []int64) ([]int64, error) {
	var found []int64
	err := q.SelectContext(ctx, &found, `
		SELECT id FROM categories
		WHERE id = ANY($1) AND is_deleted = FALSE
	`, pq.Array(ids))
	return found, err
}

// SoleCategoryItems lists live items whose only category link is categoryID.
func (s *CategoryStore) SoleCategoryItems(ctx context.Context, tx Selecter, categoryID int64) ([]int64, error) {
	var ids []int64
	err := tx.SelectContext(ctx, &ids, `
		SELECT i.id
		FROM items i
		JOIN item_categories ic ON ic.item_id = i.id
		WHERE ic.category_id = $1
		  AND i.is_deleted = FALSE
		  AND (SELECT COUNT(*) FROM item_categories other WHERE other.item_id = i.id) = 1
		ORDER BY i.id
		FOR UPDATE OF i
	`, categoryID)
	return ids, err
}

func (s *CategoryStore) DeleteLinks(ctx context.Context, tx Execer, categoryID int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM item_categories WHERE category_id = $1`, categoryID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
