//go:build integration

package services_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmitrijs2005/wellness/internal/common"
	"github.com/dmitrijs2005/wellness/internal/logging"
	"github.com/dmitrijs2005/wellness/internal/server/config"
	"github.com/dmitrijs2005/wellness/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/wellness/internal/server/scoring"
	"github.com/dmitrijs2005/wellness/internal/server/services"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "wellness_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/wellness_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func openPostgres(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	db, rm, err := repomanager.Open(context.Background(), repomanager.DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec(`TRUNCATE users RESTART IDENTITY CASCADE`)
		_ = db.Close()
	})
	return db, rm
}

func TestPostgres_EndToEnd(t *testing.T) {
	db, rm := openPostgres(t)
	ctx := context.Background()

	cfg := &config.Config{SecretKey: "k", AccessTokenValidityDuration: time.Hour}
	users := services.NewUserService(db, rm, cfg, logging.Nop())
	calls := 0
	metrics := services.NewMetricsService(db, rm, scoring.Func(func(ctx context.Context, f scoring.Features) (float64, error) {
		calls++
		return 72.5, nil
	}), logging.Nop())

	_, err := users.Register(ctx, "Test User", "test@example.com")
	require.NoError(t, err)
	_, err = users.Register(ctx, "Again", "test@example.com")
	require.ErrorIs(t, err, common.ErrDuplicateEmail)

	_, err = metrics.FetchLatest(ctx, "test@example.com")
	require.ErrorIs(t, err, common.ErrNoMetrics)

	id, err := metrics.Ingest(ctx, "test@example.com", services.MetricInput{Steps: 8000, Calories: 2000, SleepHours: 7})
	require.NoError(t, err)

	scored, err := metrics.PredictAndStore(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, scored.ID)
	assert.Equal(t, 72.5, *scored.WellnessScore)
	assert.Equal(t, 1, calls)

	err = metrics.DeleteBySteps(ctx, "test@example.com", 9999)
	require.ErrorIs(t, err, common.ErrNoMatchingMetric)

	n, err := metrics.DeleteAll(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = metrics.FetchLatest(ctx, "test@example.com")
	require.True(t, errors.Is(err, common.ErrNoMetrics))
}

func TestPostgres_CascadeOnUserDelete(t *testing.T) {
	db, rm := openPostgres(t)
	ctx := context.Background()

	u, err := services.NewUserService(db, rm, &config.Config{}, logging.Nop()).Register(ctx, "C", "cascade@example.com")
	require.NoError(t, err)
	ms := services.NewMetricsService(db, rm, scoring.Func(func(context.Context, scoring.Features) (float64, error) { return 0, nil }), logging.Nop())
	_, err = ms.Ingest(ctx, u.Email, services.MetricInput{Steps: 1})
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, u.ID)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM metrics`).Scan(&count))
	assert.Zero(t, count)
}
