package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// Open connects to the database, verifies the connection, applies pending
// migrations and returns the pool together with its RepositoryManager.
// The caller owns the returned *sql.DB and must Close it.
//
// SQLite pools are capped at one connection and always run with foreign key
// enforcement enabled.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, RepositoryManager, error) {
	manager, err := New(driver)
	if err != nil {
		return nil, nil, err
	}

	if driver == DriverSQLite {
		dsn = withForeignKeys(dsn)
	}

	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	if err := manager.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, manager, nil
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}
