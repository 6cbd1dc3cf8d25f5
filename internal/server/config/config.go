// Package config handles configuration for the wellness server and admin CLI:
// defaults, then an optional JSON file, then WELLNESS_* environment
// variables, then command-line flags.
package config

import (
	"fmt"
	"time"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"

	ScorerLocal  = "local"
	ScorerRemote = "remote"
)

// Config holds runtime settings.
//
// Fields:
//   - EndpointAddr: bind address of the HTTP API.
//   - DatabaseDriver / DatabaseDSN: "pgx" (PostgreSQL) or "sqlite" and its DSN.
//   - SecretKey: HMAC secret for API bearer tokens; empty disables auth.
//   - ScorerMode: "local" loads ModelPath in-process, "remote" calls ScorerURL.
//   - ModelPath: file path or s3://bucket/key of the JSON regression model.
//   - S3*: credentials and endpoint for fetching the model from object storage.
type Config struct {
	EndpointAddr                string        `env:"ENDPOINT_ADDR"`
	LogLevel                    string        `env:"LOG_LEVEL"`
	DatabaseDriver              string        `env:"DATABASE_DRIVER"`
	DatabaseDSN                 string        `env:"DATABASE_DSN"`
	SecretKey                   string        `env:"SECRET_KEY"`
	AccessTokenValidityDuration time.Duration `env:"ACCESS_TOKEN_VALIDITY"`
	ScorerMode                  string        `env:"SCORER_MODE"`
	ModelPath                   string        `env:"MODEL_PATH"`
	ScorerURL                   string        `env:"SCORER_URL"`
	ScorerAPIKey                string        `env:"SCORER_API_KEY"`
	ScorerTimeout               time.Duration `env:"SCORER_TIMEOUT"`
	ScorerMaxRetries            int           `env:"SCORER_MAX_RETRIES"`
	S3RootUser                  string        `env:"S3_ROOT_USER"`
	S3RootPassword              string        `env:"S3_ROOT_PASSWORD"`
	S3Region                    string        `env:"S3_REGION"`
	S3BaseEndpoint              string        `env:"S3_BASE_ENDPOINT"`
	ShutdownTimeout             time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

// LoadDefaults populates Config with development defaults: a local SQLite
// file and an in-process model.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8000"
	c.LogLevel = "info"
	c.DatabaseDriver = DriverSQLite
	c.DatabaseDSN = "fitness_tracker.db"
	c.SecretKey = ""
	c.AccessTokenValidityDuration = 60 * time.Minute
	c.ScorerMode = ScorerLocal
	c.ModelPath = "wellness_model.json"
	c.ScorerURL = "http://127.0.0.1:5001/score"
	c.ScorerTimeout = 10 * time.Second
	c.ScorerMaxRetries = 2
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.ShutdownTimeout = 10 * time.Second
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database DSN is empty")
	}
	switch c.ScorerMode {
	case ScorerLocal:
		if c.ModelPath == "" {
			return fmt.Errorf("local scorer requires a model path")
		}
	case ScorerRemote:
		if c.ScorerURL == "" {
			return fmt.Errorf("remote scorer requires a URL")
		}
	default:
		return fmt.Errorf("unsupported scorer mode %q", c.ScorerMode)
	}
	if c.ScorerTimeout <= 0 {
		return fmt.Errorf("scorer timeout must be positive")
	}
	if c.ScorerMaxRetries < 0 {
		return fmt.Errorf("scorer max retries must not be negative")
	}
	return nil
}

// LoadConfig builds the server Config from defaults, the JSON file named by
// -c/-config (or WELLNESS_CONFIG), the environment and finally flags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile builds a Config from defaults, the given JSON file (if any)
// and the environment. The admin CLI uses it because it owns its own flags.
func LoadConfigFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path != "" {
		if err := readJsonFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
