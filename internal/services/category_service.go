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
	"forumshop/internal/mutation"
	"forumshop/internal/store"
	"forumshop/internal/validator"
)

type CategoryService struct {
	txRunner   db.TxRunner
	categories CategoryStore
	items      ItemStore
	engine     *mutation.Engine[models.Category]
	itemEngine *mutation.Engine[models.Item]
}

func NewCategoryService(txRunner db.TxRunner, categories CategoryStore, items ItemStore, audit AuditStore) *CategoryService {
	return &CategoryService{
		txRunner:   txRunner,
		categories: categories,
		items:      items,
		engine:     mutation.New(categorySpec, audit),
		itemEngine: mutation.New(itemSpec, audit),
	}
}

type AddCategoryRequest struct {
	ActorID  int64  `json:"user_id" validate:"gt=0"`
	Name     string `json:"name" validate:"required,max=100"`
	Image    string `json:"image" validate:"required"`
	IsActive bool   `json:"is_active"`
}

type UpdateCategoryRequest struct {
	ID       int64   `json:"id" validate:"gt=0"`
	ActorID  int64   `json:"user_id" validate:"gt=0"`
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Image    *string `json:"image"`
	IsActive *bool   `json:"is_active"`
}

type CategoryDetail struct {
	models.Category
	Items []models.Item `json:"items"`
}

type CategoryDeletion struct {
	Category      models.Category `json:"category"`
	CascadedItems []int64         `json:"cascaded_items"`
}

func (s *CategoryService) AddCategory(ctx context.Context, req AddCategoryRequest) (models.Category, error) {
	if err := validator.Struct(req); err != nil {
		return models.Category{}, err
	}
	var created models.Category
	err := s.txRunner.WithTx(ctx, func(tx store.Tx) error {
		var err error
		created, err = s.engine.Create(ctx, tx, req.ActorID, func(tx store.Tx) (int64, error) {
			return s.categories.Insert(ctx, tx, store.CategoryInput{
				Name:     req.Name,
				Image:    req.Image,
				IsActive: req.IsActive,
			}, req.ActorID)
		})
		return err
	})
	if err != nil {
		return models.Category{}, err
	}
	metrics.MutationsTotal.WithLabelValues(categorySpec.Entity).Inc()
	return created, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, req UpdateCategoryRequest) (models.Category, error) {
	if err := validator.Struct(req); err != nil {
		return models.Category{}, err
	}
	if req.Name == nil && req.Image == nil && req.IsActive == nil {
		return models.Category{}, ErrNothingToUpdate.WithMessage("Nothing to update: provide name, image or is_active")
	}
	var updated models.Category
	err := s.txRunner.WithTx(ctx, func(tx store.Tx) error {
		var err error
		_, updated, err = s.engine.Update(ctx, tx, req.ID, req.ActorID, func(tx store.Tx, _ models.Category) error {
			return s.categories.Update(ctx, tx, req.ID, store.CategoryPatch{
				Name:     req.Name,
				Image:    req.Image,
				IsActive: req.IsActive,
			}, req.ActorID)
		})
		return err
	})
	if err != nil {
		return models.Category{}, err
	}
	metrics.MutationsTotal.WithLabelValues(categorySpec.Entity).Inc()
	return updated, nil
}

// DeleteCategory soft-deletes a category. Items linked only to it are
// soft-deleted too and every link to the category is removed, all in one
// transaction with one audit row per entity.
func (s *CategoryService) DeleteCategory(ctx context.Context, id, actorID int64) (CategoryDeletion, error) {
	if actorID <= 0 {
		return CategoryDeletion{}, validator.InvalidRange("user_id", "must be a positive integer")
	}
	var result CategoryDeletion
	err := s.txRunner.WithTx(ctx, func(tx store.Tx) error {
		result = CategoryDeletion{CascadedItems: []int64{}}
		_, deleted, err := s.engine.Delete(ctx, tx, id, actorID, func(tx store.Tx, _ models.Category) error {
			orphans, err := s.categories.SoleCategoryItems(ctx, tx, id)
			if err != nil {
				return fmt.Errorf("find sole-category items: %w", err)
			}
			for _, itemID := range orphans {
				if _, _, err := s.itemEngine.Delete(ctx, tx, itemID, actorID, nil); err != nil {
					return err
				}
				result.CascadedItems = append(result.CascadedItems, itemID)
			}
			_, err = s.categories.DeleteLinks(ctx, tx, id)
			return err
		})
		if err != nil {
			return err
		}
		result.Category = deleted
		return nil
	})
	if err != nil {
		return CategoryDeletion{}, err
	}
	logger.FromContext(ctx).Info("category deleted",
		slog.Int64("category_id", id),
		slog.Int("cascaded_items", len(result.CascadedItems)))
	metrics.MutationsTotal.WithLabelValues(categorySpec.Entity).Inc()
	metrics.MutationsTotal.WithLabelValues(itemSpec.Entity).Add(float64(len(result.CascadedItems)))
	return result, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id int64) (CategoryDetail, error) {
	category, err := s.categories.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return CategoryDetail{}, ErrCategoryNotFound.WithMessage("Category %d not found", id)
	}
	if err != nil {
		return CategoryDetail{}, err
	}
	items, err := s.categories.ItemsFor(ctx, id)
	if err != nil {
		return CategoryDetail{}, err
	}
	return CategoryDetail{Category: category, Items: items}, nil
}

func (s *CategoryService) ListCategories(ctx context.Context, page, limit int) (Page[models.Category], error) {
	total, err := s.categories.Count(ctx)
	if err != nil {
		return Page[models.Category]{}, err
	}
	pagination := NewPagination(total, page, limit)
	rows, err := s.categories.List(ctx, limit, pagination.Offset())
	if err != nil {
		return Page[models.Category]{}, err
	}
	return Page[models.Category]{Items: rows, Pagination: pagination}, nil
}
