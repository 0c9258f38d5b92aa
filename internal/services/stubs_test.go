package services

import (
	"context"
	"database/sql"
	"strings"

	"forumshop/internal/models"
	"forumshop/internal/store"
	"forumshop/internal/websocket"

	"github.com/shopspring/decimal"
)

// fakeTxRunner fails the first calls with failures, then always with err
// when set.
type fakeTxRunner struct {
	tx       store.Tx
	err      error
	failures []error
	calls    int
}

func (f *fakeTxRunner) WithTx(_ context.Context, fn func(store.Tx) error) error {
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	if f.err != nil {
		return f.err
	}
	return fn(f.tx)
}

// fakeTx serves the engine's row reads from memory and applies its
// soft-delete updates.
type fakeTx struct {
	categories map[int64]models.Category
	items      map[int64]models.Item
	users      map[int64]models.User
	execs      []string
}

func newFakeTx() *fakeTx {
	return &fakeTx{
		categories: map[int64]models.Category{},
		items:      map[int64]models.Item{},
		users:      map[int64]models.User{},
	}
}

func (f *fakeTx) GetContext(_ context.Context, dest any, _ string, args ...any) error {
	id, _ := args[0].(int64)
	switch d := dest.(type) {
	case *models.Category:
		row, ok := f.categories[id]
		if !ok {
			return sql.ErrNoRows
		}
		*d = row
	case *models.Item:
		row, ok := f.items[id]
		if !ok {
			return sql.ErrNoRows
		}
		*d = row
	case *models.User:
		row, ok := f.users[id]
		if !ok {
			return sql.ErrNoRows
		}
		*d = row
	}
	return nil
}

func (f *fakeTx) SelectContext(context.Context, any, string, ...any) error {
	return nil
}

func (f *fakeTx) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.execs = append(f.execs, query)
	if strings.Contains(query, "is_deleted") {
		id, _ := args[len(args)-1].(int64)
		switch {
		case strings.HasPrefix(query, "UPDATE categories"):
			row := f.categories[id]
			row.IsDeleted, row.IsActive = true, false
			f.categories[id] = row
		case strings.HasPrefix(query, "UPDATE items"):
			row := f.items[id]
			row.IsDeleted, row.IsActive = true, false
			f.items[id] = row
		}
	}
	return rowsAffected(1), nil
}

type rowsAffected int64

func (r rowsAffected) LastInsertId() (int64, error) { return 0, nil }
func (r rowsAffected) RowsAffected() (int64, error) { return int64(r), nil }

type recordingAudit struct {
	entries []store.AuditEntry
}

func (a *recordingAudit) Record(_ context.Context, _ store.Execer, entry store.AuditEntry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func (a *recordingAudit) actions() []string {
	out := make([]string, len(a.entries))
	for i, entry := range a.entries {
		out[i] = entry.Target.Entity + ":" + string(entry.Action)
	}
	return out
}

type recordingHub struct {
	updates []websocket.InventoryUpdate
}

func (h *recordingHub) BroadcastInventory(update websocket.InventoryUpdate) {
	h.updates = append(h.updates, update)
}

type stubCategoryStore struct {
	insertFn      func(ctx context.Context, tx store.Getter, input store.CategoryInput, actorID int64) (int64, error)
	updateFn      func(ctx context.Context, tx store.Execer, id int64, patch store.CategoryPatch, actorID int64) error
	getFn         func(ctx context.Context, id int64) (models.Category, error)
	listFn        func(ctx context.Context, limit, offset int) ([]models.Category, error)
	countFn       func(ctx context.Context) (int, error)
	itemsForFn    func(ctx context.Context, categoryID int64) ([]models.Item, error)
	existingIDsFn func(ctx context.Context, q store.Selecter, ids []int64) ([]int64, error)
	soleFn        func(ctx context.Context, tx store.Selecter, categoryID int64) ([]int64, error)
	deleteLinksFn func(ctx context.Context, tx store.Execer, categoryID int64) (int64, error)
}

func (s stubCategoryStore) Insert(ctx context.Context, tx store.Getter, input store.CategoryInput, actorID int64) (int64, error) {
	return s.insertFn(ctx, tx, input, actorID)
}

func (s stubCategoryStore) Update(ctx context.Context, tx store.Execer, id int64, patch store.CategoryPatch, actorID int64) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, tx, id, patch, actorID)
}

func (s stubCategoryStore) Get(ctx context.Context, id int64) (models.Category, error) {
	return s.getFn(ctx, id)
}

func (s stubCategoryStore) List(ctx context.Context, limit, offset int) ([]models.Category, error) {
	return s.listFn(ctx, limit, offset)
}

func (s stubCategoryStore) Count(ctx context.Context) (int, error) {
	return s.countFn(ctx)
}

func (s stubCategoryStore) ItemsFor(ctx context.Context, categoryID int64) ([]models.Item, error) {
	if s.itemsForFn == nil {
		return []models.Item{}, nil
	}
	return s.itemsForFn(ctx, categoryID)
}

func (s stubCategoryStore) ExistingIDs(ctx context.Context, q store.Selecter, ids []int64) ([]int64, error) {
	if s.existingIDsFn == nil {
		return ids, nil
	}
	return s.existingIDsFn(ctx, q, ids)
}

func (s stubCategoryStore) SoleCategoryItems(ctx context.Context, tx store.Selecter, categoryID int64) ([]int64, error) {
	if s.soleFn == nil {
		return nil, nil
	}
	return s.soleFn(ctx, tx, categoryID)
}

func (s stubCategoryStore) DeleteLinks(ctx context.Context, tx store.Execer, categoryID int64) (int64, error) {
	if s.deleteLinksFn == nil {
		return 0, nil
	}
	return s.deleteLinksFn(ctx, tx, categoryID)
}

type stubItemStore struct {
	insertFn       func(ctx context.Context, tx store.Getter, input store.ItemInput, actorID int64) (int64, error)
	updateFn       func(ctx context.Context, tx store.Execer, id int64, patch store.ItemPatch, actorID int64) error
	linkFn         func(ctx context.Context, tx store.Execer, itemID int64, categoryIDs []int64) error
	unlinkFn       func(ctx context.Context, tx store.Execer, itemID int64) error
	getFn          func(ctx context.Context, id int64) (models.Item, error)
	listFn         func(ctx context.Context, filter store.ItemFilter, limit, offset int) ([]models.Item, error)
	countFn        func(ctx context.Context, filter store.ItemFilter) (int, error)
	categoriesFn   func(ctx context.Context, itemIDs []int64) ([]models.ItemCategory, error)
	availabilityFn func(ctx context.Context, q store.Selecter, ids []int64, lock bool) ([]models.Item, error)
}

func (s stubItemStore) Insert(ctx context.Context, tx store.Getter, input store.ItemInput, actorID int64) (int64, error) {
	return s.insertFn(ctx, tx, input, actorID)
}

func (s stubItemStore) Update(ctx context.Context, tx store.Execer, id int64, patch store.ItemPatch, actorID int64) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, tx, id, patch, actorID)
}

func (s stubItemStore) Link(ctx context.Context, tx store.Execer, itemID int64, categoryIDs []int64) error {
	if s.linkFn == nil {
		return nil
	}
	return s.linkFn(ctx, tx, itemID, categoryIDs)
}

func (s stubItemStore) Unlink(ctx context.Context, tx store.Execer, itemID int64) error {
	if s.unlinkFn == nil {
		return nil
	}
	return s.unlinkFn(ctx, tx, itemID)
}

func (s stubItemStore) Get(ctx context.Context, id int64) (models.Item, error) {
	return s.getFn(ctx, id)
}

func (s stubItemStore) List(ctx context.Context, filter store.ItemFilter, limit, offset int) ([]models.Item, error) {
	return s.listFn(ctx, filter, limit, offset)
}

func (s stubItemStore) Count(ctx context.Context, filter store.ItemFilter) (int, error) {
	return s.countFn(ctx, filter)
}

func (s stubItemStore) CategoriesForItems(ctx context.Context, itemIDs []int64) ([]models.ItemCategory, error) {
	if s.categoriesFn == nil {
		return nil, nil
	}
	return s.categoriesFn(ctx, itemIDs)
}

func (s stubItemStore) Availability(ctx context.Context, q store.Selecter, ids []int64, lock bool) ([]models.Item, error) {
	return s.availabilityFn(ctx, q, ids, lock)
}

type stubUserStore struct {
	registerFn      func(ctx context.Context, tx store.Getter, externalID int64, credits decimal.Decimal) (int64, bool, error)
	getByExternalFn func(ctx context.Context, q store.Getter, externalID int64) (models.User, error)
	getForUpdateFn  func(ctx context.Context, tx store.Getter, externalID int64) (models.User, error)
	updateCreditsFn func(ctx context.Context, tx store.Execer, id int64, credits decimal.Decimal) error
	listFn          func(ctx context.Context, q store.Selecter, externalIDs []int64) ([]models.User, error)
}

func (s stubUserStore) Register(ctx context.Context, tx store.Getter, externalID int64, credits decimal.Decimal) (int64, bool, error) {
	return s.registerFn(ctx, tx, externalID, credits)
}

func (s stubUserStore) GetByExternalID(ctx context.Context, q store.Getter, externalID int64) (models.User, error) {
	return s.getByExternalFn(ctx, q, externalID)
}

func (s stubUserStore) GetForUpdate(ctx context.Context, tx store.Getter, externalID int64) (models.User, error) {
	if s.getForUpdateFn == nil {
		return s.getByExternalFn(ctx, tx, externalID)
	}
	return s.getForUpdateFn(ctx, tx, externalID)
}

func (s stubUserStore) UpdateCredits(ctx context.Context, tx store.Execer, id int64, credits decimal.Decimal) error {
	return s.updateCreditsFn(ctx, tx, id, credits)
}

func (s stubUserStore) ListByExternalIDs(ctx context.Context, q store.Selecter, externalIDs []int64) ([]models.User, error) {
	return s.listFn(ctx, q, externalIDs)
}

type stubInventoryStore struct {
	listFn     func(ctx context.Context, q store.Selecter, userIDs []int64) ([]models.InventoryEntry, error)
	snapshotFn func(ctx context.Context, tx store.Selecter, userID int64) ([]models.InventoryRow, error)
	deleteFn   func(ctx context.Context, tx store.Execer, userID int64) error
	insertFn   func(ctx context.Context, tx store.Execer, rows []models.InventoryRow) error
	addFn      func(ctx context.Context, tx store.Execer, userID, itemID, quantity int64) error
}

func (s stubInventoryStore) ListByUsers(ctx context.Context, q store.Selecter, userIDs []int64) ([]models.InventoryEntry, error) {
	return s.listFn(ctx, q, userIDs)
}

func (s stubInventoryStore) Snapshot(ctx context.Context, tx store.Selecter, userID int64) ([]models.InventoryRow, error) {
	if s.snapshotFn == nil {
		return nil, nil
	}
	return s.snapshotFn(ctx, tx, userID)
}

func (s stubInventoryStore) DeleteForUser(ctx context.Context, tx store.Execer, userID int64) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, tx, userID)
}

func (s stubInventoryStore) InsertRows(ctx context.Context, tx store.Execer, rows []models.InventoryRow) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, rows)
}

func (s stubInventoryStore) AddQuantity(ctx context.Context, tx store.Execer, userID, itemID, quantity int64) error {
	if s.addFn == nil {
		return nil
	}
	return s.addFn(ctx, tx, userID, itemID, quantity)
}

type stubPurchaseStore struct {
	createFn func(ctx context.Context, tx store.Getter, input store.PurchaseInput) (int64, error)
	linesFn  func(ctx context.Context, tx store.Execer, transactionID int64, lines []models.PurchaseLine) error
}

func (s stubPurchaseStore) CreateTransaction(ctx context.Context, tx store.Getter, input store.PurchaseInput) (int64, error) {
	return s.createFn(ctx, tx, input)
}

func (s stubPurchaseStore) InsertLines(ctx context.Context, tx store.Execer, transactionID int64, lines []models.PurchaseLine) error {
	if s.linesFn == nil {
		return nil
	}
	return s.linesFn(ctx, tx, transactionID, lines)
}
