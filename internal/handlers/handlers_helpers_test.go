package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"forumshop/internal/config"
	"forumshop/internal/middleware"
	"forumshop/internal/models"
	"forumshop/internal/services"
	"forumshop/internal/store"
	"forumshop/internal/websocket"
)

const testAPIKey = "secret"

type stubCategoryService struct {
	addFn    func(ctx context.Context, req services.AddCategoryRequest) (models.Category, error)
	updateFn func(ctx context.Context, req services.UpdateCategoryRequest) (models.Category, error)
	deleteFn func(ctx context.Context, id, actorID int64) (services.CategoryDeletion, error)
	getFn    func(ctx context.Context, id int64) (services.CategoryDetail, error)
	listFn   func(ctx context.Context, page, limit int) (services.Page[models.Category], error)
}

func (s stubCategoryService) AddCategory(ctx context.Context, req services.AddCategoryRequest) (models.Category, error) {
	if s.addFn == nil {
		return models.Category{}, nil
	}
	return s.addFn(ctx, req)
}

func (s stubCategoryService) UpdateCategory(ctx context.Context, req services.UpdateCategoryRequest) (models.Category, error) {
	if s.updateFn == nil {
		return models.Category{}, nil
	}
	return s.updateFn(ctx, req)
}

func (s stubCategoryService) DeleteCategory(ctx context.Context, id, actorID int64) (services.CategoryDeletion, error) {
	if s.deleteFn == nil {
		return services.CategoryDeletion{}, nil
	}
	return s.deleteFn(ctx, id, actorID)
}

func (s stubCategoryService) GetCategory(ctx context.Context, id int64) (services.CategoryDetail, error) {
	if s.getFn == nil {
		return services.CategoryDetail{}, nil
	}
	return s.getFn(ctx, id)
}

func (s stubCategoryService) ListCategories(ctx context.Context, page, limit int) (services.Page[models.Category], error) {
	if s.listFn == nil {
		return services.Page[models.Category]{}, nil
	}
	return s.listFn(ctx, page, limit)
}

type stubItemService struct {
	addFn    func(ctx context.Context, req services.AddItemRequest) (services.ItemDetail, error)
	updateFn func(ctx context.Context, req services.UpdateItemRequest) (services.ItemDetail, error)
	deleteFn func(ctx context.Context, id, actorID int64) (models.Item, error)
	getFn    func(ctx context.Context, id int64) (services.ItemDetail, error)
	listFn   func(ctx context.Context, q services.ItemQuery) (services.Page[services.ItemDetail], error)
}

func (s stubItemService) AddItem(ctx context.Context, req services.AddItemRequest) (services.ItemDetail, error) {
	if s.addFn == nil {
		return services.ItemDetail{}, nil
	}
	return s.addFn(ctx, req)
}

func (s stubItemService) UpdateItem(ctx context.Context, req services.UpdateItemRequest) (services.ItemDetail, error) {
	if s.updateFn == nil {
		return services.ItemDetail{}, nil
	}
	return s.updateFn(ctx, req)
}

func (s stubItemService) DeleteItem(ctx context.Context, id, actorID int64) (models.Item, error) {
	if s.deleteFn == nil {
		return models.Item{}, nil
	}
	return s.deleteFn(ctx, id, actorID)
}

func (s stubItemService) GetItem(ctx context.Context, id int64) (services.ItemDetail, error) {
	if s.getFn == nil {
		return services.ItemDetail{}, nil
	}
	return s.getFn(ctx, id)
}

func (s stubItemService) ListItems(ctx context.Context, q services.ItemQuery) (services.Page[services.ItemDetail], error) {
	if s.listFn == nil {
		return services.Page[services.ItemDetail]{}, nil
	}
	return s.listFn(ctx, q)
}

type stubUserService struct {
	inventoryFn   func(ctx context.Context, externalID int64) (services.UserInventory, error)
	inventoriesFn func(ctx context.Context, externalIDs []int64) ([]services.UserInventory, error)
	bagsFn        func(ctx context.Context, externalIDs []int64) ([]services.UserBag, error)
	creditsFn     func(ctx context.Context, req services.UpdateCreditsRequest) (models.User, error)
}

func (s stubUserService) GetInventory(ctx context.Context, externalID int64) (services.UserInventory, error) {
	if s.inventoryFn == nil {
		return services.UserInventory{}, nil
	}
	return s.inventoryFn(ctx, externalID)
}

func (s stubUserService) GetInventories(ctx context.Context, externalIDs []int64) ([]services.UserInventory, error) {
	if s.inventoriesFn == nil {
		return nil, nil
	}
	return s.inventoriesFn(ctx, externalIDs)
}

func (s stubUserService) GetBags(ctx context.Context, externalIDs []int64) ([]services.UserBag, error) {
	if s.bagsFn == nil {
		return nil, nil
	}
	return s.bagsFn(ctx, externalIDs)
}

func (s stubUserService) UpdateCredits(ctx context.Context, req services.UpdateCreditsRequest) (models.User, error) {
	if s.creditsFn == nil {
		return models.User{}, nil
	}
	return s.creditsFn(ctx, req)
}

type stubPurchaseService struct {
	purchaseFn func(ctx context.Context, req services.PurchaseRequest) (services.PurchaseResult, error)
}

func (s stubPurchaseService) Purchase(ctx context.Context, req services.PurchaseRequest) (services.PurchaseResult, error) {
	if s.purchaseFn == nil {
		return services.PurchaseResult{}, nil
	}
	return s.purchaseFn(ctx, req)
}

type stubInventoryService struct {
	reconcileFn func(ctx context.Context, req services.ReconcileRequest) (services.ReconcileResult, error)
}

func (s stubInventoryService) Reconcile(ctx context.Context, req services.ReconcileRequest) (services.ReconcileResult, error) {
	if s.reconcileFn == nil {
		return services.ReconcileResult{}, nil
	}
	return s.reconcileFn(ctx, req)
}

type stubAuditStore struct {
	listFn  func(ctx context.Context, target store.AuditTarget, entityID int64, limit, offset int) ([]models.AuditRecord, error)
	countFn func(ctx context.Context, target store.AuditTarget, entityID int64) (int, error)
}

func (s stubAuditStore) ListByEntity(ctx context.Context, target store.AuditTarget, entityID int64, limit, offset int) ([]models.AuditRecord, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, target, entityID, limit, offset)
}

func (s stubAuditStore) CountByEntity(ctx context.Context, target store.AuditTarget, entityID int64) (int, error) {
	if s.countFn == nil {
		return 0, nil
	}
	return s.countFn(ctx, target, entityID)
}

type stubUploader struct {
	uploadFn func(ctx context.Context, file io.Reader) (string, error)
}

func (s stubUploader) Upload(ctx context.Context, file io.Reader) (string, error) {
	if s.uploadFn == nil {
		return "", nil
	}
	return s.uploadFn(ctx, file)
}

// newTestRouter fills unset dependencies with zero stubs.
func newTestRouter(deps Deps) http.Handler {
	if deps.Categories == nil {
		deps.Categories = stubCategoryService{}
	}
	if deps.Items == nil {
		deps.Items = stubItemService{}
	}
	if deps.Users == nil {
		deps.Users = stubUserService{}
	}
	if deps.Purchases == nil {
		deps.Purchases = stubPurchaseService{}
	}
	if deps.Inventory == nil {
		deps.Inventory = stubInventoryService{}
	}
	if deps.Audit == nil {
		deps.Audit = stubAuditStore{}
	}
	if deps.Uploader == nil {
		deps.Uploader = stubUploader{}
	}
	if deps.Ping == nil {
		deps.Ping = func(context.Context) error { return nil }
	}
	if deps.Hub == nil {
		deps.Hub = websocket.NewHub([]string{"*"})
	}
	cfg := config.Config{APIKey: testAPIKey, AllowedOrigins: "*"}
	return New(cfg, deps).Routes()
}

func newRequest(method, target string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.APIKeyHeader, testAPIKey)
	return req
}

func serve(t *testing.T, router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	if got := decodeBody(t, rr)["error"]; got != message {
		t.Fatalf("expected error %q, got %v", message, got)
	}
}
