package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/wellness/internal/common"
	"github.com/dmitrijs2005/wellness/internal/logging"
	"github.com/dmitrijs2005/wellness/internal/netx"
	"github.com/sethvargo/go-retry"
)

// RemoteOptions configures a Remote scorer.
type RemoteOptions struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	MaxRetries uint64
	// Backoff is the first retry delay; it doubles on every attempt.
	Backoff time.Duration
	Client  *http.Client
}

// Remote scores by POSTing the features to a hosted model endpoint that
// answers {"prediction": float} or {"error": string}.
type Remote struct {
	opts   RemoteOptions
	logger logging.Logger
}

func NewRemote(opts RemoteOptions, logger logging.Logger) *Remote {
	if opts.Backoff <= 0 {
		opts.Backoff = 100 * time.Millisecond
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Remote{opts: opts, logger: logger.With("module", "scoring", "scorer", "remote")}
}

type remoteResponse struct {
	Prediction *float64 `json:"prediction"`
	Error      *string  `json:"error"`
}

// Score applies the configured timeout to every attempt. Transport failures,
// timeouts and 5xx/429 replies are retried with exponential backoff and end
// as common.ErrModelUnavailable; an error payload ends as
// common.ErrScoringFailed immediately.
func (r *Remote) Score(ctx context.Context, f Features) (float64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}

	headers := map[string]string{}
	if r.opts.APIKey != "" {
		headers["Authorization"] = "Bearer " + r.opts.APIKey
	}

	backoff := retry.WithMaxRetries(r.opts.MaxRetries, retry.NewExponential(r.opts.Backoff))

	var score float64
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		v, err := r.attempt(ctx, headers, f)
		if err != nil {
			if errors.Is(err, common.ErrModelUnavailable) {
				r.logger.Warn(ctx, "remote scorer attempt failed", "attempt", attempt, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		score = v
		return nil
	})
	if err != nil {
		var e *common.Error
		if !errors.As(err, &e) {
			// retry.Do itself gave up on the caller's context
			return 0, common.ErrModelUnavailable.With("scoring cancelled", err)
		}
		return 0, err
	}
	return score, nil
}

func (r *Remote) attempt(ctx context.Context, headers map[string]string, f Features) (float64, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	resp, err := netx.PostJSON(ctx, r.opts.Client, r.opts.URL, headers, f)
	if err != nil {
		return 0, common.ErrModelUnavailable.With(r.opts.URL, err)
	}

	body, decodeErr := decodeRemote(resp.Body)
	if decodeErr == nil && body.Error != nil {
		return 0, common.ErrScoringFailed.With(*body.Error, nil)
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return 0, common.ErrModelUnavailable.Withf("%s answered %d", r.opts.URL, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, common.ErrScoringFailed.Withf("%s answered %d", r.opts.URL, resp.StatusCode)
	}
	if decodeErr != nil {
		return 0, common.ErrScoringFailed.With("malformed response", decodeErr)
	}
	if body.Prediction == nil {
		return 0, common.ErrScoringFailed.Withf("response has neither prediction nor error")
	}
	if !finite(*body.Prediction) {
		return 0, common.ErrScoringFailed.Withf("non-finite prediction")
	}
	return *body.Prediction, nil
}

// decodeRemote accepts the payload as a JSON object or as a JSON string that
// contains the object, which is how some hosted endpoints wrap their output.
func decodeRemote(b []byte) (*remoteResponse, error) {
	var out remoteResponse
	err := json.Unmarshal(b, &out)
	if err == nil {
		return &out, nil
	}
	var wrapped string
	if json.Unmarshal(b, &wrapped) == nil {
		if err := json.Unmarshal([]byte(wrapped), &out); err == nil {
			return &out, nil
		}
	}
	return nil, fmt.Errorf("decode response: %w", err)
}
