// Package mutation runs single-entity writes with an audit trail. Every
// operation reads the row before and after the write and appends one audit
// row inside the caller's transaction.
package mutation

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"forumshop/internal/apperr"
	"forumshop/internal/models"
	"forumshop/internal/store"

	sq "github.com/Masterminds/squirrel"
)

// Entity is a row type the engine can snapshot.
type Entity interface {
	Deleted() bool
}

// Spec describes how an entity is stored and audited.
type Spec[T Entity] struct {
	Entity  string
	Table   string
	Columns []string
	Audit   store.AuditTarget
	// SoftDelete enables Delete; rows are flagged, never removed.
	SoftDelete bool
}

type Auditor interface {
	Record(ctx context.Context, tx store.Execer, entry store.AuditEntry) error
}

type Engine[T Entity] struct {
	spec  Spec[T]
	audit Auditor
}

func New[T Entity](spec Spec[T], audit Auditor) *Engine[T] {
	return &Engine[T]{spec: spec, audit: audit}
}

// Create runs insert, then re-reads and audits the new row.
func (e *Engine[T]) Create(ctx context.Context, tx store.Tx, actorID int64, insert func(store.Tx) (int64, error)) (T, error) {
	var zero T
	id, err := insert(tx)
	if err != nil {
		return zero, err
	}
	return e.Created(ctx, tx, id, actorID)
}

// Created audits a row that was inserted outside the engine.
func (e *Engine[T]) Created(ctx context.Context, tx store.Tx, id, actorID int64) (T, error) {
	var zero T
	created, err := e.verify(ctx, tx, id)
	if err != nil {
		return zero, err
	}
	if err := e.record(ctx, tx, id, actorID, models.AuditInsert, nil, created); err != nil {
		return zero, err
	}
	return created, nil
}

// Update locks the row, applies the change and audits old and new values.
func (e *Engine[T]) Update(ctx context.Context, tx store.Tx, id, actorID int64, apply func(store.Tx, T) error) (T, T, error) {
	var zero T
	current, err := e.lock(ctx, tx, id)
	if err != nil {
		return zero, zero, err
	}
	if current.Deleted() {
		return zero, zero, apperr.ErrCannotModify.WithMessage("Cannot modify a deleted %s", e.spec.Entity)
	}
	if err := apply(tx, current); err != nil {
		return zero, zero, err
	}
	updated, err := e.verify(ctx, tx, id)
	if err != nil {
		return zero, zero, err
	}
	if err := e.record(ctx, tx, id, actorID, models.AuditUpdate, current, updated); err != nil {
		return zero, zero, err
	}
	return current, updated, nil
}

// Delete soft-deletes the row after running cascade, which may touch related
// rows in the same transaction.
func (e *Engine[T]) Delete(ctx context.Context, tx store.Tx, id, actorID int64, cascade func(store.Tx, T) error) (T, T, error) {
	var zero T
	if !e.spec.SoftDelete {
		return zero, zero, errors.New(e.spec.Entity + " does not support delete")
	}
	current, err := e.lock(ctx, tx, id)
	if err != nil {
		return zero, zero, err
	}
	if current.Deleted() {
		return zero, zero, apperr.ErrAlreadyDeleted.WithMessage("%s %d is already deleted", capitalize(e.spec.Entity), id)
	}
	if cascade != nil {
		if err := cascade(tx, current); err != nil {
			return zero, zero, err
		}
	}
	query, args, err := store.Builder().Update(e.spec.Table).
		Set("is_deleted", true).
		Set("is_active", false).
		Set("edited_at", sq.Expr("NOW()")).
		Set("edited_by", actorID).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return zero, zero, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return zero, zero, err
	}
	deleted, err := e.verify(ctx, tx, id)
	if err != nil {
		return zero, zero, err
	}
	if err := e.record(ctx, tx, id, actorID, models.AuditDelete, current, deleted); err != nil {
		return zero, zero, err
	}
	return current, deleted, nil
}

func (e *Engine[T]) lock(ctx context.Context, tx store.Getter, id int64) (T, error) {
	row, found, err := e.load(ctx, tx, id, true)
	if err != nil {
		return row, err
	}
	if !found {
		return row, apperr.ErrNotFound.WithMessage("%s %d not found", capitalize(e.spec.Entity), id)
	}
	return row, nil
}

func (e *Engine[T]) verify(ctx context.Context, tx store.Getter, id int64) (T, error) {
	row, found, err := e.load(ctx, tx, id, false)
	if err != nil {
		return row, err
	}
	if !found {
		return row, apperr.ErrVerificationFailed.WithMessage("%s %d missing after write", e.spec.Entity, id)
	}
	return row, nil
}

func (e *Engine[T]) load(ctx context.Context, tx store.Getter, id int64, forUpdate bool) (T, bool, error) {
	var row T
	builder := store.Builder().Select(e.spec.Columns...).From(e.spec.Table).Where(sq.Eq{"id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return row, false, err
	}
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return row, false, nil
		}
		return row, false, err
	}
	return row, true, nil
}

func (e *Engine[T]) record(ctx context.Context, tx store.Execer, id, actorID int64, action models.AuditAction, old, updated any) error {
	return e.audit.Record(ctx, tx, store.AuditEntry{
		Target:   e.spec.Audit,
		EntityID: id,
		ActorID:  actorID,
		Action:   action,
		Old:      old,
		New:      updated,
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
