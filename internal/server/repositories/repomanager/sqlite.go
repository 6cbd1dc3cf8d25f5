package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/wellness/internal/dbx"
	"github.com/dmitrijs2005/wellness/internal/server/migrations"
	"github.com/dmitrijs2005/wellness/internal/server/repositories/metrics"
	"github.com/dmitrijs2005/wellness/internal/server/repositories/users"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repositories.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Metrics(db dbx.DBTX) metrics.Repository {
	return metrics.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db, "sqlite3", migrations.SQLiteDir)
}

func NewSQLiteRepositoryManager() (RepositoryManager, error) {
	return &SQLiteRepositoryManager{}, nil
}
