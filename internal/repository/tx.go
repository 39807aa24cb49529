package repository

import (
	"context"
	"database/sql"
)

type txKey struct{}

// DB wraps the shared *sql.DB handle and carries transactions through the
// context so that a service-level unit of work can span several
// repositories.  WithTx begins a transaction, runs fn with the
// transaction embedded in the context, and commits on success or rolls
// back on error.  Nested calls reuse the outer transaction.
type DB struct {
	sql *sql.DB
}

// NewDB wraps an opened database handle.
func NewDB(db *sql.DB) *DB { return &DB{sql: db} }

// SQL exposes the raw handle for health checks and migrations.
func (d *DB) SQL() *sql.DB { return d.sql }

// WithTx runs fn inside a transaction.  If the context already carries a
// transaction the function simply joins it, so callers can compose
// transactional helpers without double-begin.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// q returns the active transaction when one is carried by the context,
// otherwise the plain handle.  Locking reads (FOR UPDATE) only make
// sense inside WithTx; repositories rely on callers to wrap them.
func (d *DB) q(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return d.sql
}
