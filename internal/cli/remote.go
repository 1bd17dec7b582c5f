package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/givemewater/internal/clock"
	"github.com/roach88/givemewater/internal/daykey"
	"github.com/roach88/givemewater/internal/remote"
	"github.com/roach88/givemewater/internal/retention"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the remote schema migrations",
		Long: `Apply the embedded goose migrations to the configured remote database.
Requires remote.dsn (or GMW_REMOTE_DSN).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if !cfg.Remote.Enabled() {
				return NewExitError(ExitCommandError, "remote.dsn is not configured")
			}
			if err := remote.Migrate(commandContext(cmd), cfg.Remote.DSN); err != nil {
				return WrapExitError(ExitFailure, "migration failed", err)
			}
			log.Info("remote schema is up to date")

			return newFormatter(rootOpts, cmd).Render(map[string]string{"schema": "up to date"}, func(w io.Writer) {
				fmt.Fprintln(w, "Remote schema is up to date")
			})
		},
	}
}

// RetentionRemoteOptions holds flags for the retention-remote command.
type RetentionRemoteOptions struct {
	*RootOptions
	UserID string
	Month  string
}

// NewRetentionRemoteCommand creates the retention-remote command.
func NewRetentionRemoteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RetentionRemoteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "retention-remote",
		Short: "Compact a user's previous month in the remote store",
		Long: `Summarise the month before --month from the user's remote drinks,
upsert the summary and delete that month's detail rows. Intended for a
monthly scheduled job.

Examples:
  gmw retention-remote --user 0b8f...
  gmw retention-remote --user 0b8f... --month 2026-11`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if !cfg.Remote.Enabled() {
				return NewExitError(ExitCommandError, "remote.dsn is not configured")
			}

			ctx := commandContext(cmd)
			pool, err := remote.NewPool(ctx, cfg.Remote)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to connect to remote", err)
			}
			pg := remote.NewPostgres(pool, remote.WithTimeout(cfg.Remote.Timeout), remote.WithLogger(log))
			defer pg.Close()

			utc := clock.System{Location: time.UTC}
			month := opts.Month
			if month == "" {
				month = daykey.CurrentMonth(utc.Now(), "00:00")
			}
			report, err := retention.New(utc, log).CompactRemote(ctx, pg, opts.UserID, month)
			if err != nil {
				return WrapExitError(ExitFailure, "remote retention failed", err)
			}

			return newFormatter(rootOpts, cmd).Render(report, func(w io.Writer) {
				fmt.Fprintf(w, "Summarised %s: %d events\n", report.MonthSummarized, report.EventCount)
			})
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id to compact (required)")
	cmd.Flags().StringVar(&opts.Month, "month", "", "current month as YYYY-MM (default: now, UTC)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
