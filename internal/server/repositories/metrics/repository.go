package metrics

import (
	"context"

	"github.com/dmitrijs2005/wellness/internal/server/models"
)

// Repository stores metrics. Sequences are ordered by observed_at, then id,
// so Latest is always the last element of ListByUser.
//
// Lookups return common.ErrorNotFound when nothing matches. Deletions report
// the number of removed rows and treat zero as success.
type Repository interface {
	Create(ctx context.Context, m *models.Metric) (*models.Metric, error)
	GetByID(ctx context.Context, id int64) (*models.Metric, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Metric, error)
	Latest(ctx context.Context, userID int64) (*models.Metric, error)
	UpdateScore(ctx context.Context, id int64, score float64) (*models.Metric, error)
	Delete(ctx context.Context, id int64) (int64, error)
	DeleteFirstBySteps(ctx context.Context, userID, steps int64) (int64, error)
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
	ListAll(ctx context.Context, scoredOnly bool) ([]models.Metric, error)
}

const metricColumns = `id, user_id, observed_at, steps, calories, sleep_hours, wellness_score`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetric(row rowScanner) (*models.Metric, error) {
	m := &models.Metric{}
	var score *float64
	if err := row.Scan(&m.ID, &m.UserID, &m.ObservedAt, &m.Steps, &m.Calories, &m.SleepHours, &score); err != nil {
		return nil, err
	}
	m.ObservedAt = m.ObservedAt.UTC()
	m.WellnessScore = score
	return m, nil
}

type rowsIter interface {
	rowScanner
	Next() bool
	Err() error
	Close() error
}

func collect(rows rowsIter) ([]models.Metric, error) {
	defer rows.Close()

	result := []models.Metric{}
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
