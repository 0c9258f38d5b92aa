package handlers

import (
	"context"
	"io"

	"forumshop/internal/models"
	"forumshop/internal/services"
	"forumshop/internal/store"
)

type CategoryService interface {
	AddCategory(ctx context.Context, req services.AddCategoryRequest) (models.Category, error)
	UpdateCategory(ctx context.Context, req services.UpdateCategoryRequest) (models.Category, error)
	DeleteCategory(ctx context.Context, id, actorID int64) (services.CategoryDeletion, error)
	GetCategory(ctx context.Context, id int64) (services.CategoryDetail, error)
	ListCategories(ctx context.Context, page, limit int) (services.Page[models.Category], error)
}

type ItemService interface {
	AddItem(ctx context.Context, req services.AddItemRequest) (services.ItemDetail, error)
	UpdateItem(ctx context.Context, req services.UpdateItemRequest) (services.ItemDetail, error)
	DeleteItem(ctx context.Context, id, actorID int64) (models.Item, error)
	GetItem(ctx context.Context, id int64) (services.ItemDetail, error)
	ListItems(ctx context.Context, q services.ItemQuery) (services.Page[services.ItemDetail], error)
}

type UserService interface {
	GetInventory(ctx context.Context, externalID int64) (services.UserInventory, error)
	GetInventories(ctx context.Context, externalIDs []int64) ([]services.UserInventory, error)
	GetBags(ctx context.Context, externalIDs []int64) ([]services.UserBag, error)
	UpdateCredits(ctx context.Context, req services.UpdateCreditsRequest) (models.User, error)
}

type PurchaseService interface {
	Purchase(ctx context.Context, req services.PurchaseRequest) (services.PurchaseResult, error)
}

type InventoryService interface {
	Reconcile(ctx context.Context, req services.ReconcileRequest) (services.ReconcileResult, error)
}

type AuditStore interface {
	ListByEntity(ctx context.Context, target store.AuditTarget, entityID int64, limit, offset int) ([]models.AuditRecord, error)
	CountByEntity(ctx context.Context, target store.AuditTarget, entityID int64) (int, error)
}

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader) (string, error)
}

// Pinger checks that the database answers.
type Pinger func(ctx context.Context) error
