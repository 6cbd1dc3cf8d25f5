package scoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/wellness/internal/common"
	"github.com/dmitrijs2005/wellness/internal/server/scoring/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearModel() *model.Model {
	return &model.Model{
		Version:      "test",
		Kind:         model.KindLinear,
		Features:     []string{"steps", "calories", "sleep_hours"},
		Intercept:    10,
		Coefficients: []float64{0.001, 0.01, 2.5},
	}
}

func TestLocal_Score(t *testing.T) {
	l := NewLocal(linearModel())

	got, err := l.Score(context.Background(), Features{Steps: 8000, Calories: 2000, SleepHours: 7})
	require.NoError(t, err)
	assert.InDelta(t, 55.5, got, 1e-9)
	assert.Equal(t, "test", l.Version())

	again, err := l.Score(context.Background(), Features{Steps: 8000, Calories: 2000, SleepHours: 7})
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestLocal_InvalidFeatures(t *testing.T) {
	l := NewLocal(linearModel())

	_, err := l.Score(context.Background(), Features{Steps: -5})
	require.ErrorIs(t, err, common.ErrInvalidFeatures)
}

func TestLocal_NonFiniteOutput(t *testing.T) {
	m := linearModel()
	m.Coefficients = []float64{1e308, 1e308, 0}
	l := NewLocal(m)

	_, err := l.Score(context.Background(), Features{Steps: 1e6, Calories: 1e6})
	require.ErrorIs(t, err, common.ErrScoringFailed)
}

func TestLocal_CancelledContext(t *testing.T) {
	l := NewLocal(linearModel())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Score(ctx, Features{})
	require.ErrorIs(t, err, common.ErrModelUnavailable)
}

func TestLoadLocal(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"version":"v2","kind":"linear","features":["steps"],"intercept":1,"coefficients":[0.5]}`), 0o600))

	l, err := LoadLocal(context.Background(), good, model.S3Options{})
	require.NoError(t, err)
	got, err := l.Score(context.Background(), Features{Steps: 10})
	require.NoError(t, err)
	assert.Equal(t, 6.0, got)

	_, err = LoadLocal(context.Background(), filepath.Join(dir, "missing.json"), model.S3Options{})
	require.ErrorIs(t, err, common.ErrModelUnavailable)
	assert.Equal(t, common.KindUpstreamUnavailable, common.KindOf(err))
}
