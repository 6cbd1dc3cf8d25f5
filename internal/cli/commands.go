package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/wellness/internal/server/export"
	"github.com/dmitrijs2005/wellness/internal/server/models"
	"github.com/dmitrijs2005/wellness/internal/server/services"
	"github.com/spf13/cobra"
)

func (a *App) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintf(a.out, "migrations applied (%s)\n", a.cfg.DatabaseDriver)
			return err
		},
	}
}

func (a *App) userCommand() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage users"}

	var name, email string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			us, err := a.userService(cmd.Context())
			if err != nil {
				return err
			}
			u, err := us.Register(cmd.Context(), name, email)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "User %s added successfully (id %d)\n", u.Name, u.ID)
			return err
		},
	}
	create.Flags().StringVar(&name, "name", "", "Display name")
	create.Flags().StringVar(&email, "email", "", "Email address")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("email")

	user.AddCommand(create)
	return user
}

func (a *App) metricsCommand() *cobra.Command {
	metrics := &cobra.Command{Use: "metrics", Short: "Ingest, list and delete metrics"}
	metrics.AddCommand(a.ingestCommand(), a.listCommand(), a.latestCommand(), a.deleteCommand(), a.scoreCommand())
	return metrics
}

func (a *App) ingestCommand() *cobra.Command {
	var (
		steps, calories int64
		sleep           float64
		date            string
	)
	cmd := &cobra.Command{
		Use:   "ingest <email>",
		Short: "Store one day of metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := services.MetricInput{Steps: steps, Calories: calories, SleepHours: sleep}
			if date != "" {
				t, err := time.Parse(time.RFC3339, date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				in.ObservedAt = &t
			}

			ms, err := a.metricsService(cmd.Context(), false)
			if err != nil {
				return err
			}
			id, err := ms.Ingest(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "Metrics with id %d created for user %s\n", id, args[0])
			return err
		},
	}
	cmd.Flags().Int64Var(&steps, "steps", 0, "Step count")
	cmd.Flags().Int64Var(&calories, "calories", 0, "Calories burnt")
	cmd.Flags().Float64Var(&sleep, "sleep", 0, "Hours slept")
	cmd.Flags().StringVar(&date, "date", "", "Observation time (RFC 3339), defaults to now")
	_ = cmd.MarkFlagRequired("steps")
	_ = cmd.MarkFlagRequired("calories")
	_ = cmd.MarkFlagRequired("sleep")
	return cmd
}

func (a *App) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <email>",
		Short: "Show all metrics of a user, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := a.metricsService(cmd.Context(), false)
			if err != nil {
				return err
			}
			list, err := ms.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeMetricsTable(a.out, list)
		},
	}
}

func (a *App) latestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "latest <email>",
		Short: "Show the most recent metric of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := a.metricsService(cmd.Context(), false)
			if err != nil {
				return err
			}
			m, err := ms.FetchLatest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeMetricsTable(a.out, []models.Metric{*m})
		},
	}
}

func (a *App) deleteCommand() *cobra.Command {
	var (
		steps, id int64
		all       bool
	)
	cmd := &cobra.Command{
		Use:   "delete <email>",
		Short: "Delete by steps, by id, or everything for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := a.metricsService(cmd.Context(), false)
			if err != nil {
				return err
			}
			ctx, email := cmd.Context(), args[0]

			switch {
			case all:
				n, err := ms.DeleteAll(ctx, email)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.out, "%d metrics deleted\n", n)
				return err
			case cmd.Flags().Changed("id"):
				if err := ms.DeleteMetric(ctx, email, id); err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.out, "Metric %d deleted\n", id)
				return err
			default:
				if err := ms.DeleteBySteps(ctx, email, steps); err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.out, "Metric with %d steps deleted\n", steps)
				return err
			}
		},
	}
	cmd.Flags().Int64Var(&steps, "steps", 0, "Delete the oldest metric with exactly this step count")
	cmd.Flags().Int64Var(&id, "id", 0, "Delete the metric with this id")
	cmd.Flags().BoolVar(&all, "all", false, "Delete every metric of the user")
	cmd.MarkFlagsMutuallyExclusive("steps", "id", "all")
	cmd.MarkFlagsOneRequired("steps", "id", "all")
	return cmd
}

func (a *App) predictCommand() *cobra.Command {
	var metricID int64
	cmd := &cobra.Command{
		Use:   "predict <email>",
		Short: "Score the latest (or a given) metric and store the score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := a.metricsService(cmd.Context(), true)
			if err != nil {
				return err
			}

			var m *models.Metric
			if cmd.Flags().Changed("metric-id") {
				m, err = ms.PredictAndStoreMetric(cmd.Context(), args[0], metricID)
			} else {
				m, err = ms.PredictAndStore(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "metric %d wellness_score=%s\n", m.ID, formatScore(m))
			return err
		},
	}
	cmd.Flags().Int64Var(&metricID, "metric-id", 0, "Score this metric instead of the latest")
	return cmd
}

func (a *App) scoreCommand() *cobra.Command {
	var (
		metricID int64
		score    float64
	)
	cmd := &cobra.Command{
		Use:   "score <email>",
		Short: "Store a score that predict computed but could not save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := a.metricsService(cmd.Context(), false)
			if err != nil {
				return err
			}
			m, err := ms.StoreUserScore(cmd.Context(), args[0], metricID, score)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "metric %d wellness_score=%s\n", m.ID, formatScore(m))
			return err
		},
	}
	cmd.Flags().Int64Var(&metricID, "id", 0, "Metric id")
	cmd.Flags().Float64Var(&score, "score", 0, "Wellness score to store")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}

func (a *App) tokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token <email>",
		Short: "Issue an API bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			us, err := a.userService(cmd.Context())
			if err != nil {
				return err
			}
			tok, err := us.IssueToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, tok)
			return err
		},
	}
}

func (a *App) exportCommand() *cobra.Command {
	var (
		out        string
		scoredOnly bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all metrics as a training set (.parquet or .csv)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := export.FormatFromPath(out); err != nil {
				return err
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			rows, err := export.Rows(cmd.Context(), a.db, a.rm, scoredOnly)
			if err != nil {
				return err
			}
			if err := export.WriteFile(out, rows); err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "Exported %d rows to: %s\n", len(rows), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, .parquet or .csv")
	cmd.Flags().BoolVar(&scoredOnly, "scored-only", false, "Only rows that have a wellness score")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func formatScore(m *models.Metric) string {
	if !m.Scored() {
		return "-"
	}
	return strconv.FormatFloat(*m.WellnessScore, 'f', 2, 64)
}
