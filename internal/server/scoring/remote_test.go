package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/wellness/internal/common"
	"github.com/dmitrijs2005/wellness/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRemote(url string, retries uint64) *Remote {
	return NewRemote(RemoteOptions{
		URL:        url,
		APIKey:     "secret",
		Timeout:    200 * time.Millisecond,
		MaxRetries: retries,
		Backoff:    time.Millisecond,
	}, logging.Nop())
}

func TestRemote_Prediction(t *testing.T) {
	var got Features
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"prediction": 72.5}`))
	}))
	defer ts.Close()

	score, err := newRemote(ts.URL, 0).Score(context.Background(), Features{Steps: 8000, Calories: 2000, SleepHours: 7})
	require.NoError(t, err)
	assert.Equal(t, 72.5, score)
	assert.Equal(t, Features{Steps: 8000, Calories: 2000, SleepHours: 7}, got)
	assert.Equal(t, "Bearer secret", auth)
}

func TestRemote_WrappedStringPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"{\"prediction\": 61.25}"`))
	}))
	defer ts.Close()

	score, err := newRemote(ts.URL, 0).Score(context.Background(), Features{Steps: 1})
	require.NoError(t, err)
	assert.Equal(t, 61.25, score)
}

func TestRemote_ErrorPayloadIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"error": "could not convert string to float"}`))
	}))
	defer ts.Close()

	_, err := newRemote(ts.URL, 3).Score(context.Background(), Features{Steps: 1})
	require.ErrorIs(t, err, common.ErrScoringFailed)
	assert.Contains(t, err.Error(), "could not convert")
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemote_ServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"prediction": 50}`))
	}))
	defer ts.Close()

	score, err := newRemote(ts.URL, 3).Score(context.Background(), Features{Steps: 1})
	require.NoError(t, err)
	assert.Equal(t, 50.0, score)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRemote_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := newRemote(ts.URL, 2).Score(context.Background(), Features{Steps: 1})
	require.ErrorIs(t, err, common.ErrModelUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRemote_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	r := NewRemote(RemoteOptions{URL: ts.URL, Timeout: 20 * time.Millisecond}, nil)
	start := time.Now()
	_, err := r.Score(context.Background(), Features{Steps: 1})
	require.ErrorIs(t, err, common.ErrModelUnavailable)
	assert.NotErrorIs(t, err, common.ErrScoringFailed)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRemote_ConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := newRemote(url, 1).Score(context.Background(), Features{Steps: 1})
	require.ErrorIs(t, err, common.ErrModelUnavailable)
	assert.Equal(t, common.KindUpstreamUnavailable, common.KindOf(err))
}

func TestRemote_CallerContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRemote(ts.URL, 5).Score(ctx, Features{Steps: 1})
	require.ErrorIs(t, err, common.ErrModelUnavailable)
}

func TestRemote_BadResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"neither field", http.StatusOK, `{"result": 1}`},
		{"not json", http.StatusOK, `<html>`},
		{"client error", http.StatusBadRequest, `{}`},
		{"null prediction", http.StatusOK, `{"prediction": null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := newRemote(ts.URL, 2).Score(context.Background(), Features{Steps: 1})
			require.ErrorIs(t, err, common.ErrScoringFailed)
		})
	}
}

func TestRemote_InvalidFeaturesSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()

	_, err := newRemote(ts.URL, 0).Score(context.Background(), Features{Steps: -1})
	require.ErrorIs(t, err, common.ErrInvalidFeatures)
	assert.Zero(t, calls.Load())
}
