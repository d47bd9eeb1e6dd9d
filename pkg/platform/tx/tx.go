package tx

import (
	"context"
	"database/sql"
	"time"

	dErrors "worktrust/pkg/domain-errors"
)

const defaultTimeout = 5 * time.Second

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner runs fn so that every store call made with its context shares one
// unit of work.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopRunner calls fn directly. It serves the in-memory stores.
type NopRunner struct{}

func (NopRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// SQLRunner begins a database transaction and publishes it through the
// context. Nested calls join the outer transaction.
type SQLRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db, timeout: defaultTimeout}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}
