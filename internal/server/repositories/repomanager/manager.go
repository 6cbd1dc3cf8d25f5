package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/wellness/internal/dbx"
	"github.com/dmitrijs2005/wellness/internal/server/repositories/metrics"
	"github.com/dmitrijs2005/wellness/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so callers choose
// per unit of work whether they run against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Metrics(db dbx.DBTX) metrics.Repository
}

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// New returns the RepositoryManager for the given driver name.
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgresRepositoryManager()
	case DriverSQLite:
		return NewSQLiteRepositoryManager()
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
