package scoring

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/wellness/internal/logging"
	"github.com/dmitrijs2005/wellness/internal/server/config"
	"github.com/dmitrijs2005/wellness/internal/server/scoring/model"
)

// New builds the Scorer selected by cfg.ScorerMode. The local model is loaded
// here, once, so a missing or corrupt model fails startup.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (Scorer, error) {
	switch cfg.ScorerMode {
	case config.ScorerLocal:
		l, err := LoadLocal(ctx, cfg.ModelPath, model.S3Options{
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "local model loaded", "location", cfg.ModelPath, "version", l.Version())
		return l, nil

	case config.ScorerRemote:
		retries := cfg.ScorerMaxRetries
		if retries < 0 {
			retries = 0
		}
		logger.Info(ctx, "using remote scorer", "url", cfg.ScorerURL, "timeout", cfg.ScorerTimeout)
		return NewRemote(RemoteOptions{
			URL:        cfg.ScorerURL,
			APIKey:     cfg.ScorerAPIKey,
			Timeout:    cfg.ScorerTimeout,
			MaxRetries: uint64(retries),
		}, logger), nil

	default:
		return nil, fmt.Errorf("unsupported scorer mode %q", cfg.ScorerMode)
	}
}
