package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// Queryer is the statement surface shared by *TimedDB and *Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLDB is the database interface used by all stores.
// Queries are written with ? placeholders; implementations rebind them.
type SQLDB interface {
	Queryer
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error)
	Dialect() Dialect
}

// DefaultSlowQuery is the default threshold for slow query warnings.
const DefaultSlowQuery = 50 * time.Millisecond

// TimedDB wraps a *sql.DB to rebind placeholders and log slow queries.
type TimedDB struct {
	db        *sql.DB
	dialect   Dialect
	threshold time.Duration
}

// Compile-time check that *TimedDB satisfies SQLDB.
var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps db. A zero threshold selects DefaultSlowQuery.
// PRE: db is a valid database connection for dialect
// POST: Returns a TimedDB that logs statements slower than threshold
func NewTimedDB(db *sql.DB, dialect Dialect, threshold time.Duration) *TimedDB {
	if threshold <= 0 {
		threshold = DefaultSlowQuery
	}
	return &TimedDB{db: db, dialect: dialect, threshold: threshold}
}

// Dialect reports the backend this connection talks to.
func (t *TimedDB) Dialect() Dialect {
	return t.dialect
}

// RawDB returns the underlying *sql.DB (needed for migrations and pool config).
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

func (t *TimedDB) logQuery(op, query string, start time.Time) {
	d := time.Since(start)
	durationMs := float64(d.Microseconds()) / 1000.0
	if d >= t.threshold {
		slog.Warn("slow_query", "op", op, "duration_ms", durationMs, "query", firstLine(query))
		return
	}
	slog.Debug("query", "op", op, "duration_ms", durationMs)
}

func firstLine(q string) string {
	const limit = 120
	for i := 0; i < len(q) && i < limit; i++ {
		if q[i] == '\n' {
			return q[:i]
		}
	}
	if len(q) > limit {
		return q[:limit]
	}
	return q
}

// ExecContext wraps sql.DB.ExecContext with rebinding and timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query = Rebind(t.dialect, query)
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.logQuery("exec", query, start)
	return result, err
}

// QueryContext wraps sql.DB.QueryContext with rebinding and timing.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	query = Rebind(t.dialect, query)
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.logQuery("query", query, start)
	return rows, err
}

// QueryRowContext wraps sql.DB.QueryRowContext with rebinding and timing.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	query = Rebind(t.dialect, query)
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.logQuery("query_row", query, start)
	return row
}

// BeginTx starts a transaction whose statements are rebound and timed like t's.
// PRE: ctx is valid
// POST: Returns an open *Tx; the caller must Commit or Rollback
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.logQuery("begin", "BEGIN", start)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, parent: t}, nil
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}

// PingContext verifies the database connection.
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// Tx is a transaction opened through TimedDB.
type Tx struct {
	tx     *sql.Tx
	parent *TimedDB
}

var _ Queryer = (*Tx)(nil)

// ExecContext runs a statement inside the transaction.
func (x *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query = Rebind(x.parent.dialect, query)
	start := time.Now()
	result, err := x.tx.ExecContext(ctx, query, args...)
	x.parent.logQuery("tx_exec", query, start)
	return result, err
}

// QueryContext runs a query inside the transaction.
func (x *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	query = Rebind(x.parent.dialect, query)
	start := time.Now()
	rows, err := x.tx.QueryContext(ctx, query, args...)
	x.parent.logQuery("tx_query", query, start)
	return rows, err
}

// QueryRowContext runs a single-row query inside the transaction.
func (x *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	query = Rebind(x.parent.dialect, query)
	start := time.Now()
	row := x.tx.QueryRowContext(ctx, query, args...)
	x.parent.logQuery("tx_query_row", query, start)
	return row
}

// Commit commits the transaction.
func (x *Tx) Commit() error {
	return x.tx.Commit()
}

// Rollback aborts the transaction. Safe to call after Commit.
func (x *Tx) Rollback() error {
	return x.tx.Rollback()
}

// InTx runs fn inside a transaction, committing when fn returns nil.
// PRE: fn does not retain tx
// POST: Either every statement fn issued is committed or none is
func InTx(ctx context.Context, db SQLDB, fn func(tx *Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
