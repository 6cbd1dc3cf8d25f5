package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/wellness/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-b string   database driver: pgx or sqlite
//	-d string   database DSN
//	-s string   JWT HMAC secret key (empty disables auth)
//	-t int      access token validity, minutes
//	-m string   scorer mode: local or remote
//	-l string   model location (path or s3://bucket/key)
//	-u string   remote scorer URL
//	-k string   remote scorer API key
//	-w int      remote scorer timeout, seconds
//	-r int      remote scorer max retries
//	-v string   log level
//
// Arguments are filtered with flagx.FilterArgs first, so flags owned by
// other components (such as -c) do not cause parse errors.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-b", "-d", "-s", "-t", "-m", "-l", "-u", "-k", "-w", "-r", "-v"})

	fs := flag.NewFlagSet("wellness", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDriver, "b", config.DatabaseDriver, "database driver (pgx|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	tokenMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.StringVar(&config.ScorerMode, "m", config.ScorerMode, "scorer mode (local|remote)")
	fs.StringVar(&config.ModelPath, "l", config.ModelPath, "model location")
	fs.StringVar(&config.ScorerURL, "u", config.ScorerURL, "remote scorer URL")
	fs.StringVar(&config.ScorerAPIKey, "k", config.ScorerAPIKey, "remote scorer API key")
	timeoutSeconds := fs.Int("w", int(config.ScorerTimeout.Seconds()), "remote scorer timeout (in seconds)")
	fs.IntVar(&config.ScorerMaxRetries, "r", config.ScorerMaxRetries, "remote scorer max retries")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	// -t and -w are whole units; only an explicit flag replaces the value from
	// earlier layers.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*tokenMinutes) * time.Minute
		case "w":
			config.ScorerTimeout = time.Duration(*timeoutSeconds) * time.Second
		}
	})
	return nil
}
