package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		initial  *Config
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{name: "all flags", args: []string{
			"-a", "127.0.0.1:9090", "-b", "pgx", "-d", "db", "-s", "secret",
			"-t", "1", "-m", "remote", "-l", "model.json", "-u", "http://scorer",
			"-k", "key", "-w", "4", "-r", "5", "-v", "debug",
		},
			expected: &Config{
				EndpointAddr:                "127.0.0.1:9090",
				DatabaseDriver:              "pgx",
				DatabaseDSN:                 "db",
				SecretKey:                   "secret",
				AccessTokenValidityDuration: 1 * time.Minute,
				ScorerMode:                  "remote",
				ModelPath:                   "model.json",
				ScorerURL:                   "http://scorer",
				ScorerAPIKey:                "key",
				ScorerTimeout:               4 * time.Second,
				ScorerMaxRetries:            5,
				LogLevel:                    "debug",
			}},
		{name: "foreign flags are ignored", args: []string{"-c", "cfg.json", "-a", ":1", "--unknown", "x"},
			expected: &Config{EndpointAddr: ":1"}},
		{name: "unset duration flags keep earlier values", args: []string{"-a", ":2"},
			initial: &Config{ScorerTimeout: 1500 * time.Millisecond, AccessTokenValidityDuration: 90 * time.Second},
			expected: &Config{
				EndpointAddr:                ":2",
				ScorerTimeout:               1500 * time.Millisecond,
				AccessTokenValidityDuration: 90 * time.Second,
			}},
		{name: "explicit duration flags replace earlier values", args: []string{"-w", "3", "-t", "2"},
			initial: &Config{ScorerTimeout: 500 * time.Millisecond, AccessTokenValidityDuration: 90 * time.Second},
			expected: &Config{
				ScorerTimeout:               3 * time.Second,
				AccessTokenValidityDuration: 2 * time.Minute,
			}},
		{name: "bad int", args: []string{"-r", "many"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			if tt.initial != nil {
				config = tt.initial
			}

			err := parseFlags(config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
