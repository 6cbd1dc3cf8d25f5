// Package testdb opens throwaway in-memory SQLite databases with the
// production schema applied, for use in tests.
package testdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/wellness/internal/server/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// DSN is an in-memory database with foreign keys enforced.
const DSN = ":memory:?_pragma=foreign_keys(1)"

// NewSQLite returns a migrated in-memory database closed at test cleanup.
// The pool is capped at one connection so every query sees the same memory
// database.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", DSN)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		t.Fatalf("goose dialect: %v", err)
	}
	if err := goose.UpContext(context.Background(), db, migrations.SQLiteDir); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
