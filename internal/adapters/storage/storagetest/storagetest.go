// Package storagetest opens migrated SQLite databases for store tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"surfshop/internal/adapters/storage"
)

// Open returns a migrated in-memory database. The pool is pinned to one
// connection because every :memory: connection is a separate database.
func Open(t testing.TB) *storage.TimedDB {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.DialectSQLite,
		":memory:?_pragma=foreign_keys(1)", storage.Options{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(context.Background(), db))
	return db
}

// OpenFile returns a migrated file-backed database in WAL mode, for tests
// that need several connections writing at once.
func OpenFile(t testing.TB, maxConns int) *storage.TimedDB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "surfshop.db")
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := storage.Open(context.Background(), storage.DialectSQLite, dsn, storage.Options{MaxOpenConns: maxConns})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(context.Background(), db))
	return db
}
