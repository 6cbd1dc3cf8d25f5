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

// SQLiteRepository expects foreign key enforcement to be enabled on the
// connection; otherwise orphaned inserts are not rejected.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, m *models.Metric) (*models.Metric, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO metrics (user_id, observed_at, steps, calories, sleep_hours)
		VALUES (?, ?, ?, ?, ?)
	`, m.UserID, m.ObservedAt.UTC(), m.Steps, m.Calories, m.SleepHours)
	if err != nil {
		if dberr.IsForeignKeyViolation(err) {
			return nil, common.ErrUnknownUser.With(fmt.Sprintf("user %d", m.UserID), err)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	m.ID = id
	m.WellnessScore = nil
	return m, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Metric, error) {
	return r.one(ctx, `SELECT `+metricColumns+` FROM metrics WHERE id = ?`, id)
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID int64) ([]models.Metric, error) {
	return r.many(ctx, `SELECT `+metricColumns+` FROM metrics WHERE user_id = ? ORDER BY observed_at, id`, userID)
}

func (r *SQLiteRepository) Latest(ctx context.Context, userID int64) (*models.Metric, error) {
	return r.one(ctx, `
		SELECT `+metricColumns+` FROM metrics
		WHERE user_id = ?
		ORDER BY observed_at DESC, id DESC
		LIMIT 1
	`, userID)
}

func (r *SQLiteRepository) UpdateScore(ctx context.Context, id int64, score float64) (*models.Metric, error) {
	n, err := r.exec(ctx, `UPDATE metrics SET wellness_score = ? WHERE id = ?`, score, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, common.ErrUnknownMetric.With(fmt.Sprintf("metric %d", id), nil)
	}
	return r.GetByID(ctx, id)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.exec(ctx, `DELETE FROM metrics WHERE id = ?`, id)
}

func (r *SQLiteRepository) DeleteFirstBySteps(ctx context.Context, userID, steps int64) (int64, error) {
	return r.exec(ctx, `
		DELETE FROM metrics WHERE id = (
			SELECT id FROM metrics
			WHERE user_id = ? AND steps = ?
			ORDER BY observed_at, id
			LIMIT 1
		)
	`, userID, steps)
}

func (r *SQLiteRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	return r.exec(ctx, `DELETE FROM metrics WHERE user_id = ?`, userID)
}

func (r *SQLiteRepository) ListAll(ctx context.Context, scoredOnly bool) ([]models.Metric, error) {
	query := `SELECT ` + metricColumns + ` FROM metrics`
	if scoredOnly {
		query += ` WHERE wellness_score IS NOT NULL`
	}
	return r.many(ctx, query+` ORDER BY user_id, observed_at, id`)
}

func (r *SQLiteRepository) one(ctx context.Context, query string, args ...any) (*models.Metric, error) {
	m, err := scanMetric(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) many(ctx context.Context, query string, args ...any) ([]models.Metric, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	result, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
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
