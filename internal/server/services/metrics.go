package services

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/dmitrijs2005/wellness/internal/common"
	"github.com/dmitrijs2005/wellness/internal/dbx"
	"github.com/dmitrijs2005/wellness/internal/logging"
	"github.com/dmitrijs2005/wellness/internal/server/models"
	"github.com/dmitrijs2005/wellness/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/wellness/internal/server/repositories/users"
	"github.com/dmitrijs2005/wellness/internal/server/scoring"
)

// MetricInput is one observation to ingest. A nil ObservedAt means now.
type MetricInput struct {
	Steps      int64
	Calories   int64
	SleepHours float64
	ObservedAt *time.Time
}

func (in MetricInput) validate() error {
	if in.Steps < 0 {
		return common.ErrInvalidInput.Withf("steps must not be negative, got %d", in.Steps)
	}
	if in.Calories < 0 {
		return common.ErrInvalidInput.Withf("calories must not be negative, got %d", in.Calories)
	}
	if math.IsNaN(in.SleepHours) || math.IsInf(in.SleepHours, 0) || in.SleepHours < 0 {
		return common.ErrInvalidInput.Withf("sleep_hours must be a non-negative number, got %v", in.SleepHours)
	}
	if in.ObservedAt != nil && in.ObservedAt.IsZero() {
		return common.ErrInvalidInput.Withf("observed_at must not be the zero time")
	}
	return nil
}

// MetricsService orchestrates the metric store and the scorer. Every
// operation first resolves the user by email.
type MetricsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	scorer      scoring.Scorer
	logger      logging.Logger
	now         func() time.Time
}

func NewMetricsService(db *sql.DB, m repomanager.RepositoryManager, scorer scoring.Scorer, logger logging.Logger) *MetricsService {
	return &MetricsService{
		db:          db,
		repomanager: m,
		scorer:      scorer,
		logger:      logger.With("module", "metrics_service"),
		now:         time.Now,
	}
}

// Ingest stores one metric for the user and returns its id.
func (s *MetricsService) Ingest(ctx context.Context, email string, in MetricInput) (int64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}

	observed := s.now()
	if in.ObservedAt != nil {
		observed = *in.ObservedAt
	}

	var id int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := resolveUser(ctx, s.repomanager.Users(tx), email)
		if err != nil {
			return err
		}
		m, err := s.repomanager.Metrics(tx).Create(ctx, &models.Metric{
			UserID:     user.ID,
			ObservedAt: observed.UTC().Truncate(time.Microsecond),
			Steps:      in.Steps,
			Calories:   in.Calories,
			SleepHours: in.SleepHours,
		})
		if err != nil {
			return err
		}
		id = m.ID
		return nil
	})
	if err != nil {
		return 0, s.fail(ctx, "ingest", err)
	}

	s.logger.Info(ctx, "metric ingested", "metric_id", id)
	return id, nil
}

// FetchLatest returns the user's most recent metric or common.ErrNoMetrics.
func (s *MetricsService) FetchLatest(ctx context.Context, email string) (*models.Metric, error) {
	var latest *models.Metric
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := resolveUser(ctx, s.repomanager.Users(tx), email)
		if err != nil {
			return err
		}
		latest, err = s.latest(ctx, tx, user, email)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "fetch latest", err)
	}
	return latest, nil
}

// List returns all of the user's metrics, oldest first. No metrics is an
// empty slice, not an error.
func (s *MetricsService) List(ctx context.Context, email string) ([]models.Metric, error) {
	var list []models.Metric
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := resolveUser(ctx, s.repomanager.Users(tx), email)
		if err != nil {
			return err
		}
		list, err = s.repomanager.Metrics(tx).ListByUser(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}
	return list, nil
}

// DeleteBySteps removes the oldest of the user's metrics whose steps equal
// steps exactly, or fails with common.ErrNoMatchingMetric.
func (s *MetricsService) DeleteBySteps(ctx context.Context, email string, steps int64) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := resolveUser(ctx, s.repomanager.Users(tx), email)
		if err != nil {
			return err
		}
		n, err := s.repomanager.Metrics(tx).DeleteFirstBySteps(ctx, user.ID, steps)
		if err != nil {
			return err
		}
		if n == 0 {
			return common.ErrNoMatchingMetric.Withf("no metric with steps=%d for %s", steps, email)
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, "delete by steps", err)
	}
	s.logger.Info(ctx, "metric deleted by steps", "steps", steps)
	return nil
}

// DeleteAll removes every metric of the user and reports how many went.
// A user without metrics gets common.ErrNoMetrics.
func (s *MetricsService) DeleteAll(ctx context.Context, email string) (int64, error) {
	var deleted int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := resolveUser(ctx, s.repomanager.Users(tx), email)
		if err != nil {
			return err
		}
		deleted, err = s.repomanager.Metrics(tx).DeleteByUser(ctx, user.ID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return common.ErrNoMetrics.With(email, nil)
		}
		return nil
	})
	if err != nil {
		return 0, s.fail(ctx, "delete all", err)
	}
	s.logger.Info(ctx, "metrics deleted", "count", deleted)
	return deleted, nil
}

// DeleteMetric removes one metric by id. Metrics owned by another user are
// reported as common.ErrMetricNotFound.
func (s *MetricsService) DeleteMetric(ctx context.Context, email string, metricID int64) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := resolveUser(ctx, s.repomanager.Users(tx), email)
		if err != nil {
			return err
		}
		if _, err := s.owned(ctx, tx, user, metricID); err != nil {
			return err
		}
		_, err = s.repomanager.Metrics(tx).Delete(ctx, metricID)
		return err
	})
	if err != nil {
		return s.fail(ctx, "delete metric", err)
	}
	s.logger.Info(ctx, "metric deleted", "metric_id", metricID)
	return nil
}

// PredictAndStore scores the user's most recent metric and stores the score
// on it. See scoreAndStore for the failure contract.
func (s *MetricsService) PredictAndStore(ctx context.Context, email string) (*models.Metric, error) {
	var target *models.Metric
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := resolveUser(ctx, s.repomanager.Users(tx), email)
		if err != nil {
			return err
		}
		target, err = s.latest(ctx, tx, user, email)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "predict", err)
	}
	return s.scoreAndStore(ctx, target)
}

// PredictAndStoreMetric scores the named metric, which must belong to the user.
func (s *MetricsService) PredictAndStoreMetric(ctx context.Context, email string, metricID int64) (*models.Metric, error) {
	var target *models.Metric
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := resolveUser(ctx, s.repomanager.Users(tx), email)
		if err != nil {
			return err
		}
		target, err = s.owned(ctx, tx, user, metricID)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "predict", err)
	}
	return s.scoreAndStore(ctx, target)
}

// StoreScore writes an already computed score onto a metric without calling
// the scorer. It is the retry path for common.ErrScorePersistFailed.
func (s *MetricsService) StoreScore(ctx context.Context, metricID int64, score float64) (*models.Metric, error) {
	return s.storeScore(ctx, metricID, score, nil)
}

// StoreUserScore is StoreScore for a metric that must belong to the user.
// Metrics owned by someone else are reported as common.ErrMetricNotFound.
func (s *MetricsService) StoreUserScore(ctx context.Context, email string, metricID int64, score float64) (*models.Metric, error) {
	return s.storeScore(ctx, metricID, score, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := resolveUser(ctx, s.repomanager.Users(tx), email)
		if err != nil {
			return err
		}
		_, err = s.owned(ctx, tx, user, metricID)
		return err
	})
}

func (s *MetricsService) storeScore(ctx context.Context, metricID int64, score float64, check func(context.Context, dbx.DBTX) error) (*models.Metric, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, common.ErrInvalidInput.Withf("score must be finite")
	}

	var updated *models.Metric
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if check != nil {
			if err := check(ctx, tx); err != nil {
				return err
			}
		}
		var err error
		updated, err = s.repomanager.Metrics(tx).UpdateScore(ctx, metricID, score)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrUnknownMetric) {
			return nil, common.ErrMetricNotFound.Withf("metric %d", metricID)
		}
		var e *common.Error
		if errors.As(err, &e) {
			return nil, err
		}
		s.logger.Error(ctx, "store score failed", "metric_id", metricID, "error", err)
		return nil, common.ErrScorePersistFailed.With("", &common.ScorePersistError{MetricID: metricID, Score: score, Err: err})
	}
	s.logger.Info(ctx, "score stored", "metric_id", metricID, "score", score)
	return updated, nil
}

// scoreAndStore runs the scorer outside any transaction, then persists the
// result in its own transaction. A scoring failure leaves the metric as it
// was. A persistence failure after a successful score returns
// common.ErrScorePersistFailed carrying the score for StoreScore.
func (s *MetricsService) scoreAndStore(ctx context.Context, target *models.Metric) (*models.Metric, error) {
	features := scoring.Features{
		Steps:      target.Steps,
		Calories:   target.Calories,
		SleepHours: target.SleepHours,
	}

	score, err := s.scorer.Score(ctx, features)
	if err != nil {
		s.logger.Warn(ctx, "scoring failed", "metric_id", target.ID, "reason", common.ReasonOf(err), "error", err)
		var e *common.Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, common.ErrModelUnavailable.With("", err)
	}

	var updated *models.Metric
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		updated, err = s.repomanager.Metrics(tx).UpdateScore(ctx, target.ID, score)
		return err
	})
	if err != nil {
		s.logger.Error(ctx, "score computed but not stored", "metric_id", target.ID, "score", score, "error", err)
		return nil, common.ErrScorePersistFailed.With("", &common.ScorePersistError{MetricID: target.ID, Score: score, Err: err})
	}

	s.logger.Info(ctx, "metric scored", "metric_id", updated.ID, "score", score)
	return updated, nil
}

func (s *MetricsService) latest(ctx context.Context, tx dbx.DBTX, user *models.User, email string) (*models.Metric, error) {
	m, err := s.repomanager.Metrics(tx).Latest(ctx, user.ID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrNoMetrics.With(email, nil)
	}
	return m, err
}

func (s *MetricsService) owned(ctx context.Context, tx dbx.DBTX, user *models.User, metricID int64) (*models.Metric, error) {
	m, err := s.repomanager.Metrics(tx).GetByID(ctx, metricID)
	if errors.Is(err, common.ErrorNotFound) || (err == nil && m.UserID != user.ID) {
		return nil, common.ErrMetricNotFound.Withf("metric %d", metricID)
	}
	return m, err
}

// fail classifies err and logs store failures; expected outcomes such as
// not-found are returned without noise.
func (s *MetricsService) fail(ctx context.Context, op string, err error) error {
	classified := classify(err)
	if common.KindOf(classified) == common.KindPersistenceFailed {
		s.logger.Error(ctx, op+" failed", "error", err)
	}
	return classified
}

func resolveUser(ctx context.Context, repo users.Repository, email string) (*models.User, error) {
	user, err := repo.GetByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrUserNotFound.With(email, nil)
	}
	return user, err
}

// classify passes *common.Error values through and reports anything else,
// typically a wrapped driver error, as common.ErrPersistenceFailed.
func classify(err error) error {
	var e *common.Error
	if errors.As(err, &e) {
		return err
	}
	return common.ErrPersistenceFailed.With("", err)
}
