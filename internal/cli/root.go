// Package cli implements wellnessctl, the admin command line for the wellness
// store. It talks to the database directly through the same services the HTTP
// server uses.
package cli

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/wellness/internal/flagx"
	"github.com/dmitrijs2005/wellness/internal/logging"
	"github.com/dmitrijs2005/wellness/internal/server/config"
	"github.com/dmitrijs2005/wellness/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/wellness/internal/server/scoring"
	"github.com/dmitrijs2005/wellness/internal/server/services"
	"github.com/spf13/cobra"
)

// App carries state shared by every subcommand. The database is opened on
// first use and closed by Run.
type App struct {
	out        io.Writer
	configPath string
	driver     string
	dsn        string
	modelPath  string

	cfg    *config.Config
	logger logging.Logger
	db     *sql.DB
	rm     repomanager.RepositoryManager
}

// Run executes wellnessctl with args, writing command output to out. The
// database, if a command opened one, is closed before returning.
func Run(ctx context.Context, out io.Writer, args []string) error {
	app := &App{out: out}
	root := app.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if cerr := app.close(); err == nil {
		err = cerr
	}
	return err
}

func (a *App) rootCommand() *cobra.Command {
	out := a.out
	root := &cobra.Command{
		Use:           "wellnessctl",
		Short:         "Administer the wellness metrics store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv(flagx.ConfigFileEnv), "Path to JSON config file")
	root.PersistentFlags().StringVar(&a.driver, "driver", "", "Database driver override: pgx or sqlite")
	root.PersistentFlags().StringVar(&a.dsn, "dsn", "", "Database DSN override")
	root.PersistentFlags().StringVar(&a.modelPath, "model", "", "Model location override (file or s3://bucket/key)")

	root.AddCommand(
		a.migrateCommand(),
		a.userCommand(),
		a.metricsCommand(),
		a.predictCommand(),
		a.tokenCommand(),
		a.exportCommand(),
	)

	return root
}

func (a *App) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadConfigFile(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("driver") {
		cfg.DatabaseDriver = a.driver
	}
	if cmd.Flags().Changed("dsn") {
		cfg.DatabaseDSN = a.dsn
	}
	if cmd.Flags().Changed("model") {
		cfg.ModelPath = a.modelPath
	}
	a.cfg = cfg

	// Logs go to stderr so command output stays machine readable.
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logging.ParseLevel(cfg.LogLevel)})
	a.logger = logging.NewSlogLogger(slog.New(h))
	return nil
}

func (a *App) open(ctx context.Context) error {
	if a.db != nil {
		return nil
	}
	db, rm, err := repomanager.Open(ctx, a.cfg.DatabaseDriver, a.cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	a.db, a.rm = db, rm
	return nil
}

func (a *App) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db, a.rm = nil, nil
	return err
}

func (a *App) userService(ctx context.Context) (*services.UserService, error) {
	if err := a.open(ctx); err != nil {
		return nil, err
	}
	return services.NewUserService(a.db, a.rm, a.cfg, a.logger), nil
}

// metricsService builds the service; the scorer is loaded only when withScorer
// is set so that plain CRUD commands work without a model.
func (a *App) metricsService(ctx context.Context, withScorer bool) (*services.MetricsService, error) {
	if err := a.open(ctx); err != nil {
		return nil, err
	}
	var scorer scoring.Scorer = scoring.Func(func(context.Context, scoring.Features) (float64, error) {
		return 0, nil
	})
	if withScorer {
		s, err := scoring.New(ctx, a.cfg, a.logger)
		if err != nil {
			return nil, err
		}
		scorer = s
	}
	return services.NewMetricsService(a.db, a.rm, scorer, a.logger), nil
}
