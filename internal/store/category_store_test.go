package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"forumshop/internal/models"
)

func TestCategoryStoreInsert(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "INSERT INTO categories") || !strings.Contains(query, "RETURNING id") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 4 || args[0] != "Snacks" || args[3] != int64(42) {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*int64) = 3
			return nil
		},
	}
	store := NewCategoryStore(stubDB{})
	id, err := store.Insert(ctx, getter, CategoryInput{Name: "Snacks", Image: "img", IsActive: true}, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 3 {
		t.Fatalf("expected id 3, got %d", id)
	}
}

func TestCategoryStoreUpdateSetsOnlyPatchedFields(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if query != "UPDATE categories SET edited_at = NOW(), edited_by = $1, name = $2 WHERE id = $3" {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 3 || args[0] != int64(42) || args[1] != "Drinks" || args[2] != int64(3) {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	name := "Drinks"
	store := NewCategoryStore(stubDB{})
	if err := store.Update(ctx, execer, 3, CategoryPatch{Name: &name}, 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCategoryStoreGetExcludesDeleted(t *testing.T) {
	ctx := context.Background()
	store := NewCategoryStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM categories WHERE id = $1 AND is_deleted = $2") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[0] != int64(3) || args[1] != false {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*models.Category) = models.Category{ID: 3}
			return nil
		},
	})
	category, err := store.Get(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if category.ID != 3 {
		t.Fatalf("unexpected category: %#v", category)
	}
}

func TestCategoryStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewCategoryStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.HasSuffix(query, "ORDER BY id LIMIT 24 OFFSET 24") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*[]models.Category) = []models.Category{{ID: 25}}
			return nil
		},
	})
	rows, err := store.List(ctx, 24, 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestCategoryStoreSoleCategoryItemsLocksItems(t *testing.T) {
	ctx := context.Background()
	tx := stubTx{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "= 1") || !strings.Contains(query, "FOR UPDATE OF i") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*[]int64) = []int64{10, 12}
			return nil
		},
	}
	store := NewCategoryStore(stubDB{})
	ids, err := store.SoleCategoryItems(ctx, tx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != 10 {
		t.Fatalf("unexpected ids: %#v", ids)
	}
}

func TestCategoryStoreDeleteLinks(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "DELETE FROM item_categories WHERE category_id = $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			return stubResult{rows: 2}, nil
		},
	}
	store := NewCategoryStore(stubDB{})
	removed, err := store.DeleteLinks(ctx, execer, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 links removed, got %d", removed)
	}
}
