package services

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/wellness/internal/dbx"
	"github.com/dmitrijs2005/wellness/internal/logging"
	"github.com/dmitrijs2005/wellness/internal/server/config"
	"github.com/dmitrijs2005/wellness/internal/server/models"
	metricsrepo "github.com/dmitrijs2005/wellness/internal/server/repositories/metrics"
	"github.com/dmitrijs2005/wellness/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/wellness/internal/server/scoring"
	"github.com/dmitrijs2005/wellness/internal/server/testdb"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db      *sql.DB
	rm      repomanager.RepositoryManager
	users   *UserService
	metrics *MetricsService
}

func newTestEnv(t *testing.T, scorer scoring.Scorer) *testEnv {
	t.Helper()
	db := testdb.NewSQLite(t)
	rm, err := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, err)
	return newTestEnvWith(t, db, rm, scorer)
}

func newTestEnvWith(t *testing.T, db *sql.DB, rm repomanager.RepositoryManager, scorer scoring.Scorer) *testEnv {
	t.Helper()
	cfg := &config.Config{SecretKey: "k", AccessTokenValidityDuration: time.Hour}
	return &testEnv{
		db:      db,
		rm:      rm,
		users:   NewUserService(db, rm, cfg, logging.Nop()),
		metrics: NewMetricsService(db, rm, scorer, logging.Nop()),
	}
}

func (e *testEnv) register(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), "Test User", email)
	require.NoError(t, err)
	return u
}

// fixedScorer returns score and counts calls.
type fixedScorer struct {
	score float64
	err   error
	calls atomic.Int32
}

func (s *fixedScorer) Score(ctx context.Context, f scoring.Features) (float64, error) {
	s.calls.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return s.score, nil
}

// failingScoreManager wraps a real manager but makes UpdateScore fail.
type failingScoreManager struct {
	repomanager.RepositoryManager
	err error
}

func (m *failingScoreManager) Metrics(db dbx.DBTX) metricsrepo.Repository {
	return &failingScoreRepo{Repository: m.RepositoryManager.Metrics(db), err: m.err}
}

type failingScoreRepo struct {
	metricsrepo.Repository
	err error
}

func (r *failingScoreRepo) UpdateScore(ctx context.Context, id int64, score float64) (*models.Metric, error) {
	return nil, r.err
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}
