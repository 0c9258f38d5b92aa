package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Image     string     `db:"image" json:"image"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	IsDeleted bool       `db:"is_deleted" json:"is_deleted"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	EditedAt  *time.Time `db:"edited_at" json:"edited_at"`
	CreatedBy int64      `db:"created_by" json:"created_by"`
	EditedBy  *int64     `db:"edited_by" json:"edited_by"`
}

func (c Category) Deleted() bool { return c.IsDeleted }

type Item struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Image       string          `db:"image" json:"image"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	IsDeleted   bool            `db:"is_deleted" json:"is_deleted"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	EditedAt    *time.Time      `db:"edited_at" json:"edited_at"`
	CreatedBy   int64           `db:"created_by" json:"created_by"`
	EditedBy    *int64          `db:"edited_by" json:"edited_by"`
}

func (i Item) Deleted() bool { return i.IsDeleted }

// Available reports whether the item can be sold.
func (i Item) Available() bool { return i.IsActive && !i.IsDeleted }

// ItemCategory pairs a category with one item it is linked to.
type ItemCategory struct {
	ItemID int64 `db:"item_id" json:"-"`
	Category
}

// User is a forum member. UserID is the external forum identity, ID the
// internal key referenced by inventory and purchases.
type User struct {
	ID        int64           `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Credits   decimal.Decimal `db:"credits" json:"credits"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

func (u User) Deleted() bool { return false }

type InventoryRow struct {
	UserID        int64     `db:"user_id" json:"user_id"`
	ItemID        int64     `db:"item_id" json:"item_id"`
	TotalQuantity int64     `db:"total_quantity" json:"total_quantity"`
	QuantityInBag int64     `db:"quantity_in_bag" json:"quantity_in_bag"`
	LastUpdated   time.Time `db:"last_updated" json:"last_updated"`
}

// InventoryEntry is an inventory row joined with its item for reads.
type InventoryEntry struct {
	OwnerID       int64           `db:"owner_id" json:"-"`
	ItemID        int64           `db:"item_id" json:"item_id"`
	Name          string          `db:"name" json:"name"`
	Description   string          `db:"description" json:"description"`
	Image         string          `db:"image" json:"image"`
	Price         decimal.Decimal `db:"price" json:"price"`
	TotalQuantity int64           `db:"total_quantity" json:"total_quantity"`
	QuantityInBag int64           `db:"quantity_in_bag" json:"quantity_in_bag"`
	LastUpdated   time.Time       `db:"last_updated" json:"last_updated"`
}

type PurchaseTransaction struct {
	ID                int64           `db:"id" json:"id"`
	UserID            int64           `db:"user_id" json:"user_id"`
	CreditsBefore     decimal.Decimal `db:"credits_before" json:"credits_before"`
	CreditsAfter      decimal.Decimal `db:"credits_after" json:"credits_after"`
	TotalCreditsSpent decimal.Decimal `db:"total_credits_spent" json:"total_credits_spent"`
	Timestamp         time.Time       `db:"timestamp" json:"timestamp"`
}

type PurchaseLine struct {
	ItemID   int64           `db:"item_id" json:"item_id"`
	Quantity int64           `db:"quantity" json:"quantity"`
	Price    decimal.Decimal `db:"price" json:"price"`
}

type AuditAction string

const (
	AuditInsert AuditAction = "INSERT"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
)

type AuditRecord struct {
	ID         int64              `db:"id" json:"id"`
	EntityID   int64              `db:"entity_id" json:"entity_id"`
	UserID     int64              `db:"user_id" json:"user_id"`
	ActionType AuditAction        `db:"action_type" json:"action_type"`
	OldValues  types.NullJSONText `db:"old_values" json:"old_values"`
	NewValues  types.JSONText     `db:"new_values" json:"new_values"`
	Timestamp  time.Time          `db:"timestamp" json:"timestamp"`
}
