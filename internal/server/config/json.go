package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/wellness/internal/flagx"
	"github.com/dmitrijs2005/wellness/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// "10s" or integer nanoseconds. Absent fields leave the current value alone.
type JsonConfig struct {
	EndpointAddr                string         `json:"endpoint_addr"`
	LogLevel                    string         `json:"log_level"`
	DatabaseDriver              string         `json:"database_driver"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	ScorerMode                  string         `json:"scorer_mode"`
	ModelPath                   string         `json:"model_path"`
	ScorerURL                   string         `json:"scorer_url"`
	ScorerAPIKey                string         `json:"scorer_api_key"`
	ScorerTimeout               timex.Duration `json:"scorer_timeout"`
	ScorerMaxRetries            *int           `json:"scorer_max_retries"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	ShutdownTimeout             timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads the file named by -c/-config in args, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}
	return readJsonFile(config, path)
}

func readJsonFile(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.ScorerMode, c.ScorerMode)
	setString(&config.ModelPath, c.ModelPath)
	setString(&config.ScorerURL, c.ScorerURL)
	setString(&config.ScorerAPIKey, c.ScorerAPIKey)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.ScorerTimeout.Duration != 0 {
		config.ScorerTimeout = c.ScorerTimeout.Duration
	}
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.ScorerMaxRetries != nil {
		config.ScorerMaxRetries = *c.ScorerMaxRetries
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
