package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/wellness/internal/common"
	"github.com/dmitrijs2005/wellness/internal/dbx"
	"github.com/dmitrijs2005/wellness/internal/server/models"
	"github.com/dmitrijs2005/wellness/internal/server/repositories/dberr"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Metric) (*models.Metric, error) {

	query :=
		`INSERT INTO metrics (user_id, observed_at, steps, calories, sleep_hours)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		m.UserID, m.ObservedAt, m.Steps, m.Calories, m.SleepHours).Scan(&m.ID)

	if err != nil {
		if dberr.IsForeignKeyViolation(err) {
			return nil, common.ErrUnknownUser.With(fmt.Sprintf("user %d", m.UserID), err)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	m.WellnessScore = nil
	return m, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Metric, error) {
	query := `SELECT ` + metricColumns + ` FROM metrics WHERE id = $1`

	m, err := scanMetric(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]models.Metric, error) {
	query := `SELECT ` + metricColumns + ` FROM metrics
		 WHERE user_id = $1
		 ORDER BY observed_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	result, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Latest(ctx context.Context, userID int64) (*models.Metric, error) {
	query := `SELECT ` + metricColumns + ` FROM metrics
		 WHERE user_id = $1
		 ORDER BY observed_at DESC, id DESC
		 LIMIT 1`

	m, err := scanMetric(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) UpdateScore(ctx context.Context, id int64, score float64) (*models.Metric, error) {
	query := `UPDATE metrics SET wellness_score = $1
		 WHERE id = $2
		 RETURNING ` + metricColumns

	m, err := scanMetric(r.db.QueryRowContext(ctx, query, score, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrUnknownMetric.With(fmt.Sprintf("metric %d", id), nil)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.exec(ctx, `DELETE FROM metrics WHERE id = $1`, id)
}

func (r *PostgresRepository) DeleteFirstBySteps(ctx context.Context, userID, steps int64) (int64, error) {
	query :=
		`DELETE FROM metrics WHERE id = (
		   SELECT id FROM metrics
		   WHERE user_id = $1 AND steps = $2
		   ORDER BY observed_at, id
		   LIMIT 1
		 )`

	return r.exec(ctx, query, userID, steps)
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	return r.exec(ctx, `DELETE FROM metrics WHERE user_id = $1`, userID)
}

func (r *PostgresRepository) ListAll(ctx context.Context, scoredOnly bool) ([]models.Metric, error) {
	query := `SELECT ` + metricColumns + ` FROM metrics`
	if scoredOnly {
		query += ` WHERE wellness_score IS NOT NULL`
	}
	query += ` ORDER BY user_id, observed_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	result, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
