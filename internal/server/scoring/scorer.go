// Package scoring turns a metric's feature vector into a wellness score.
//
// Two Scorer variants exist: Local evaluates a model held in memory, Remote
// calls a hosted model over HTTP. New picks one from configuration. All
// failures are *common.Error values with reason model_unavailable,
// invalid_features or scoring_failed.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/dmitrijs2005/wellness/internal/common"
)

// Features is the fixed three-value model input.
type Features struct {
	Steps      int64   `json:"steps"`
	Calories   int64   `json:"calories"`
	SleepHours float64 `json:"sleep_hours"`
}

// Validate rejects negative and non-finite values with common.ErrInvalidFeatures.
func (f Features) Validate() error {
	if f.Steps < 0 {
		return common.ErrInvalidFeatures.Withf("steps must not be negative, got %d", f.Steps)
	}
	if f.Calories < 0 {
		return common.ErrInvalidFeatures.Withf("calories must not be negative, got %d", f.Calories)
	}
	if math.IsNaN(f.SleepHours) || math.IsInf(f.SleepHours, 0) {
		return common.ErrInvalidFeatures.Withf("sleep_hours must be finite")
	}
	if f.SleepHours < 0 {
		return common.ErrInvalidFeatures.Withf("sleep_hours must not be negative, got %v", f.SleepHours)
	}
	return nil
}

func (f Features) named() map[string]float64 {
	return map[string]float64{
		"steps":       float64(f.Steps),
		"calories":    float64(f.Calories),
		"sleep_hours": f.SleepHours,
	}
}

func (f Features) String() string {
	return fmt.Sprintf("steps=%d calories=%d sleep_hours=%g", f.Steps, f.Calories, f.SleepHours)
}

// Scorer computes a wellness score. Implementations are deterministic for a
// fixed model version and safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, f Features) (float64, error)
}

// Func adapts a plain function to Scorer.
type Func func(ctx context.Context, f Features) (float64, error)

func (fn Func) Score(ctx context.Context, f Features) (float64, error) { return fn(ctx, f) }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
