package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"forumshop/internal/logger"
	"forumshop/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrRetryLimit = errors.New("transaction retry limit exceeded")

type TxRunner interface {
	WithTx(ctx context.Context, fn func(store.Tx) error) error
}

type SQLXTxRunner struct {
	db          *sqlx.DB
	maxAttempts int
}

func NewTxRunner(db *sqlx.DB, maxAttempts int) SQLXTxRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return SQLXTxRunner{db: db, maxAttempts: maxAttempts}
}

func (r SQLXTxRunner) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	return WithTx(ctx, r.db, r.maxAttempts, fn)
}

func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Ping checks the pool with a short deadline.
func Ping(ctx context.Context, db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// WithTx runs fn in a serializable transaction. The error returned by fn is
// returned unchanged after rollback; a failing rollback is only logged.
// Serialization failures are retried while attempts remain.
func WithTx(ctx context.Context, db *sqlx.DB, maxAttempts int, fn func(store.Tx) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			rollback(ctx, tx)
			if IsSerializationFailure(err) && attempt < maxAttempts {
				sleepWithBackoff(attempt)
				continue
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			if IsSerializationFailure(err) && attempt < maxAttempts {
				sleepWithBackoff(attempt)
				continue
			}
			if maxAttempts > 1 && IsSerializationFailure(err) {
				return fmt.Errorf("%w: %w", ErrRetryLimit, err)
			}
			return err
		}
		return nil
	}
	return ErrRetryLimit
}

// Retry reruns fn while it fails with a serialization failure, up to
// attempts calls. It is for idempotent work such as lazy registration on
// reads, which should not fail under contention even when mutation retries
// are off.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil || !IsSerializationFailure(err) {
			return err
		}
		if attempt < attempts {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return err
			}
			sleepWithBackoff(attempt)
		}
	}
	return err
}

func rollback(ctx context.Context, tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.FromContext(ctx).Error("transaction rollback failed", slog.Any("error", err))
	}
}

// IsSerializationFailure reports a PostgreSQL serialization failure or
// deadlock, both safe to retry.
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func sleepWithBackoff(attempt int) {
	base := 20 * time.Millisecond
	backoff := time.Duration(attempt*attempt) * base
	jitter := time.Duration(rand.Int63n(int64(10 * time.Millisecond)))
	time.Sleep(backoff + jitter)
}
