package scoring

import (
	"context"

	"github.com/dmitrijs2005/wellness/internal/common"
	"github.com/dmitrijs2005/wellness/internal/server/scoring/model"
)

// Local scores in-process with a model loaded once at construction.
type Local struct {
	model *model.Model
}

// NewLocal wraps an already validated model.
func NewLocal(m *model.Model) *Local {
	return &Local{model: m}
}

// LoadLocal loads the model from a path or s3:// URL. Any load failure is
// reported as common.ErrModelUnavailable.
func LoadLocal(ctx context.Context, location string, opts model.S3Options) (*Local, error) {
	m, err := model.Load(ctx, location, opts)
	if err != nil {
		return nil, common.ErrModelUnavailable.With(location, err)
	}
	return NewLocal(m), nil
}

// Version returns the loaded model's version label.
func (l *Local) Version() string { return l.model.Version }

func (l *Local) Score(ctx context.Context, f Features) (float64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, common.ErrModelUnavailable.With("scoring cancelled", err)
	}

	y, err := l.model.Predict(f.named())
	if err != nil {
		return 0, common.ErrScoringFailed.With(f.String(), err)
	}
	if !finite(y) {
		return 0, common.ErrScoringFailed.Withf("model produced non-finite score for %s", f)
	}
	return y, nil
}
