// Package loaders provides per-request batch loaders so list reads fetch
// related rows with one query instead of one per parent.
package loaders

import (
	"context"
	"time"

	"forumshop/internal/models"

	"github.com/graph-gophers/dataloader/v7"
)

const (
	maxBatch = 100
	wait     = 2 * time.Millisecond
)

type categoryRepo interface {
	CategoriesForItems(ctx context.Context, itemIDs []int64) ([]models.ItemCategory, error)
}

// CategoriesByItem loads the live categories of items. Create one per request.
type CategoriesByItem struct {
	loader *dataloader.Loader[int64, []models.Category]
}

func NewCategoriesByItem(repo categoryRepo) *CategoriesByItem {
	return &CategoriesByItem{loader: newLoader(newCategoriesBatchFn(repo))}
}

// LoadMany returns the categories of each id in order.
func (l *CategoriesByItem) LoadMany(ctx context.Context, itemIDs []int64) ([][]models.Category, error) {
	results, errs := l.loader.LoadMany(ctx, itemIDs)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (l *CategoriesByItem) Load(ctx context.Context, itemID int64) ([]models.Category, error) {
	return l.loader.Load(ctx, itemID)()
}

func newCategoriesBatchFn(repo categoryRepo) dataloader.BatchFunc[int64, []models.Category] {
	return func(ctx context.Context, keys []int64) []*dataloader.Result[[]models.Category] {
		rows, err := repo.CategoriesForItems(ctx, keys)
		if err != nil {
			return errorResults[[]models.Category](len(keys), err)
		}
		grouped := make(map[int64][]models.Category, len(keys))
		for _, row := range rows {
			grouped[row.ItemID] = append(grouped[row.ItemID], row.Category)
		}
		return mapResults(keys, grouped, emptySlice[models.Category])
	}
}

func newLoader[V any](batchFn dataloader.BatchFunc[int64, V]) *dataloader.Loader[int64, V] {
	return dataloader.NewBatchedLoader(
		batchFn,
		dataloader.WithWait[int64, V](wait),
		dataloader.WithBatchCapacity[int64, V](maxBatch),
	)
}

func errorResults[V any](n int, err error) []*dataloader.Result[V] {
	results := make([]*dataloader.Result[V], n)
	for i := range results {
		results[i] = &dataloader.Result[V]{Error: err}
	}
	return results
}

func mapResults[V any](keys []int64, grouped map[int64]V, defaultFn func() V) []*dataloader.Result[V] {
	results := make([]*dataloader.Result[V], len(keys))
	for i, key := range keys {
		if v, ok := grouped[key]; ok {
			results[i] = &dataloader.Result[V]{Data: v}
		} else {
			results[i] = &dataloader.Result[V]{Data: defaultFn()}
		}
	}
	return results
}

func emptySlice[T any]() []T {
	return []T{}
}
