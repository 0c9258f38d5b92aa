package store

import (
	"context"
	"encoding/json"
	"fmt"

	"forumshop/internal/models"

	sq "github.com/Masterminds/squirrel"
)

// AuditTarget names the audit table of one entity and its foreign-key column.
type AuditTarget struct {
	Entity string
	Table  string
	Key    string
}

var (
	CategoryAudit = AuditTarget{Entity: "category", Table: "category_audit", Key: "category_id"}
	ItemAudit     = AuditTarget{Entity: "item", Table: "item_audit", Key: "item_id"}
	UserAudit     = AuditTarget{Entity: "user", Table: "user_audit", Key: "target_user_id"}
	PurchaseAudit = AuditTarget{Entity: "purchase", Table: "purchase_audit", Key: "transaction_id"}
)

var auditTargets = map[string]AuditTarget{
	CategoryAudit.Entity: CategoryAudit,
	ItemAudit.Entity:     ItemAudit,
	UserAudit.Entity:     UserAudit,
	PurchaseAudit.Entity: PurchaseAudit,
}

// LookupAuditTarget resolves an entity name from a request path.
func LookupAuditTarget(entity string) (AuditTarget, bool) {
	target, ok := auditTargets[entity]
	return target, ok
}

type AuditEntry struct {
	Target   AuditTarget
	EntityID int64
	ActorID  int64
	Action   models.AuditAction
	Old      any
	New      any
}

type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

// Record appends one audit row. A nil Old is stored as SQL NULL.
func (s *AuditStore) Record(ctx context.Context, tx Execer, entry AuditEntry) error {
	var oldValues any
	if entry.Old != nil {
		data, err := json.Marshal(entry.Old)
		if err != nil {
			return fmt.Errorf("marshal old values: %w", err)
		}
		oldValues = string(data)
	}
	newValues, err := json.Marshal(entry.New)
	if err != nil {
		return fmt.Errorf("marshal new values: %w", err)
	}
	query, args, err := psql.Insert(entry.Target.Table).
		Columns(entry.Target.Key, "user_id", "action_type", "old_values", "new_values").
		Values(entry.EntityID, entry.ActorID, string(entry.Action), oldValues, string(newValues)).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (s *AuditStore) ListByEntity(ctx context.Context, target AuditTarget, entityID int64, limit, offset int) ([]models.AuditRecord, error) {
	query, args, err := psql.
		Select("id", target.Key+" AS entity_id", "user_id", "action_type", "old_values", "new_values", "timestamp").
		From(target.Table).
		Where(sq.Eq{target.Key: entityID}).
		OrderBy("timestamp DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows := []models.AuditRecord{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AuditStore) CountByEntity(ctx context.Context, target AuditTarget, entityID int64) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, target.Table, target.Key), entityID)
	return total, err
}
