package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"forumshop/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type txState struct {
	commits      int64
	rollbacks    int64
	failRollback bool
}

type trackingDriver struct {
	state *txState
}

func (d *trackingDriver) Open(name string) (driver.Conn, error) {
	return &trackingConn{state: d.state}, nil
}

type trackingConn struct {
	state *txState
}

func (c *trackingConn) Prepare(query string) (driver.Stmt, error) {
	return &trackingStmt{}, nil
}

func (c *trackingConn) Close() error {
	return nil
}

func (c *trackingConn) Begin() (driver.Tx, error) {
	return &trackingTx{state: c.state}, nil
}

func (c *trackingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return &trackingTx{state: c.state}, nil
}

type trackingTx struct {
	state *txState
}

func (t *trackingTx) Commit() error {
	atomic.AddInt64(&t.state.commits, 1)
	return nil
}

func (t *trackingTx) Rollback() error {
	atomic.AddInt64(&t.state.rollbacks, 1)
	if t.state.failRollback {
		return errors.New("connection reset")
	}
	return nil
}

type trackingStmt struct{}

func (s *trackingStmt) Close() error {
	return nil
}

func (s *trackingStmt) NumInput() int {
	return -1
}

func (s *trackingStmt) Exec(args []driver.Value) (driver.Result, error) {
	return rowsAffected(1), nil
}

func (s *trackingStmt) Query(args []driver.Value) (driver.Rows, error) {
	return nil, nil
}

var driverCounter uint64

func registerTrackingDriver(state *txState) string {
	name := fmt.Sprintf("tracking-%d", atomic.AddUint64(&driverCounter, 1))
	sql.Register(name, &trackingDriver{state: state})
	return name
}

type retryState struct {
	commitCalls int64
	failCommits int64
	failCode    string
}

type retryDriver struct {
	state *retryState
}

func (d *retryDriver) Open(name string) (driver.Conn, error) {
	return &retryConn{state: d.state}, nil
}

type retryConn struct {
	state *retryState
}

func (c *retryConn) Prepare(query string) (driver.Stmt, error) {
	return &trackingStmt{}, nil
}

func (c *retryConn) Close() error {
	return nil
}

func (c *retryConn) Begin() (driver.Tx, error) {
	return &retryTx{state: c.state}, nil
}

func (c *retryConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return &retryTx{state: c.state}, nil
}

type retryTx struct {
	state *retryState
}

func (t *retryTx) Commit() error {
	call := atomic.AddInt64(&t.state.commitCalls, 1)
	if call <= t.state.failCommits {
		code := t.state.failCode
		if code == "" {
			code = "40001"
		}
		return &pq.Error{Code: pq.ErrorCode(code)}
	}
	return nil
}

func (t *retryTx) Rollback() error {
	return nil
}

type rowsAffected int64

func (r rowsAffected) LastInsertId() (int64, error) { return 0, nil }
func (r rowsAffected) RowsAffected() (int64, error) { return int64(r), nil }

func registerRetryDriver(state *retryState) string {
	name := fmt.Sprintf("retry-%d", atomic.AddUint64(&driverCounter, 1))
	sql.Register(name, &retryDriver{state: state})
	return name
}

func openDB(t *testing.T, driverName string) *sqlx.DB {
	t.Helper()
	sqlDB, err := sql.Open(driverName, "")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlx.NewDb(sqlDB, driverName)
}

func TestWithTxCommits(t *testing.T) {
	state := &txState{}
	xdb := openDB(t, registerTrackingDriver(state))

	if err := WithTx(context.Background(), xdb, 1, func(store.Tx) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.commits != 1 || state.rollbacks != 0 {
		t.Fatalf("expected commit=1 rollback=0, got %d/%d", state.commits, state.rollbacks)
	}
}

func TestWithTxPassesUsableTx(t *testing.T) {
	state := &txState{}
	xdb := openDB(t, registerTrackingDriver(state))

	err := WithTx(context.Background(), xdb, 1, func(tx store.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE users SET credits = $1 WHERE id = $2", "50.00", 1)
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.commits != 1 {
		t.Fatalf("expected commit, got %d", state.commits)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	state := &txState{}
	xdb := openDB(t, registerTrackingDriver(state))

	boom := errors.New("boom")
	err := WithTx(context.Background(), xdb, 1, func(store.Tx) error { return boom })
	if err != boom {
		t.Fatalf("expected original error, got %v", err)
	}
	if state.rollbacks != 1 || state.commits != 0 {
		t.Fatalf("expected rollback=1 commit=0, got %d/%d", state.rollbacks, state.commits)
	}
}

func TestWithTxRollbackFailureKeepsOriginalError(t *testing.T) {
	state := &txState{failRollback: true}
	xdb := openDB(t, registerTrackingDriver(state))

	boom := errors.New("audit insert failed")
	err := WithTx(context.Background(), xdb, 1, func(store.Tx) error { return boom })
	if err != boom {
		t.Fatalf("expected original error, got %v", err)
	}
	if state.rollbacks != 1 {
		t.Fatalf("expected rollback attempt, got %d", state.rollbacks)
	}
}

func TestWithTxDoesNotRetryByDefault(t *testing.T) {
	state := &retryState{failCommits: 1}
	xdb := openDB(t, registerRetryDriver(state))

	err := WithTx(context.Background(), xdb, 1, func(store.Tx) error { return nil })
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "40001" {
		t.Fatalf("expected serialization failure, got %v", err)
	}
	if state.commitCalls != 1 {
		t.Fatalf("expected 1 commit, got %d", state.commitCalls)
	}
}

func TestWithTxRetriesOnSerializableConflict(t *testing.T) {
	state := &retryState{failCommits: 1}
	xdb := openDB(t, registerRetryDriver(state))

	if err := WithTx(context.Background(), xdb, 5, func(store.Tx) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.commitCalls != 2 {
		t.Fatalf("expected 2 commits, got %d", state.commitCalls)
	}
}

func TestWithTxRetryCapExceeded(t *testing.T) {
	state := &retryState{failCommits: 10, failCode: "40P01"}
	xdb := openDB(t, registerRetryDriver(state))

	err := WithTx(context.Background(), xdb, 5, func(store.Tx) error { return nil })
	if !errors.Is(err, ErrRetryLimit) {
		t.Fatalf("expected retry limit error, got %v", err)
	}
	if state.commitCalls != 5 {
		t.Fatalf("expected 5 commits, got %d", state.commitCalls)
	}
}

func TestRetryRerunsSerializationFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func() error {
		calls++
		if calls == 1 {
			return fmt.Errorf("register: %w", &pq.Error{Code: "40001"})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetryStopsOnOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Retry(context.Background(), 3, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected one call returning boom, got %d calls, %v", calls, err)
	}
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 2, func() error {
		calls++
		return &pq.Error{Code: "40P01"}
	})
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || calls != 2 {
		t.Fatalf("expected deadlock error after 2 calls, got %d calls, %v", calls, err)
	}
}

func TestTxRunnerClampsAttempts(t *testing.T) {
	runner := NewTxRunner(nil, 0)
	if runner.maxAttempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", runner.maxAttempts)
	}
}
