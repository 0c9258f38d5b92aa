package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
)

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type DB interface {
	Execer
	Getter
	Selecter
}

// Tx is the capability handed to code running inside db.TxRunner.WithTx.
type Tx interface {
	Execer
	Getter
	Selecter
}

// Querier reads either from the pool or from an open transaction.
type Querier interface {
	Getter
	Selecter
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Builder returns the statement builder used by every store.
func Builder() sq.StatementBuilderType {
	return psql
}
