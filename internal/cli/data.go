package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/givemewater/internal/analytics"
	"github.com/roach88/givemewater/internal/model"
)

// CompactResult is the compact command's output.
type CompactResult struct {
	LastProcessedMonth string                 `json:"lastProcessedMonth"`
	HistoryEvents      int                    `json:"historyEvents"`
	Summaries          []model.MonthlySummary `json:"summaries"`
}

// NewCompactCommand creates the compact command.
func NewCompactCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Run monthly retention and list summaries",
		Long: `Run day rollover and monthly retention now: the previous month's drinks
are summarised and everything outside the current month is dropped from
the local history. Retention runs at most once per month; the command
then lists the stored summaries.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, rootOpts, func(_ context.Context, rt *runtime) error {
				if err := rt.resume(); err != nil {
					return err
				}
				st := rt.app.Refresh()
				result := CompactResult{
					LastProcessedMonth: st.Retention.LastProcessedMonth,
					HistoryEvents:      len(st.History),
					Summaries:          st.MonthlySummaries,
				}
				return newFormatter(rootOpts, cmd).Render(result, func(w io.Writer) {
					fmt.Fprintf(w, "Retention processed through %s; %d drinks in history\n",
						result.LastProcessedMonth, result.HistoryEvents)
					if len(result.Summaries) == 0 {
						fmt.Fprintln(w, "No monthly summaries yet")
						return
					}
					fmt.Fprintln(w, "\nMonth     Avg ml  Tracked  Met  Completion")
					for _, s := range result.Summaries {
						fmt.Fprintf(w, "%-8s  %6d  %7d  %3d  %9d%%\n",
							s.MonthKey, s.AverageIntakeML, s.DaysTracked, s.DaysMetGoal, s.CompletionRate)
					}
				})
			})
		},
	}
}

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Yes bool
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all tracked data",
		Long: `Delete the signed-in user's cloud data, the queue and the local history,
goal and profile. Settings and the session are kept. If the cloud delete
fails nothing local is touched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes {
				return NewExitError(ExitCommandError, "refusing to reset without --yes")
			}
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				if err := rt.resume(); err != nil {
					return err
				}
				res := rt.app.ResetAllData(ctx)
				if !res.Success {
					return NewExitError(ExitFailure, res.Message)
				}
				return newFormatter(rootOpts, cmd).Render(res, func(w io.Writer) {
					fmt.Fprintln(w, res.Message)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm the reset")

	return cmd
}

// AnalyticsOptions holds flags for the analytics command.
type AnalyticsOptions struct {
	*RootOptions
	Month bool
}

// NewAnalyticsCommand creates the analytics command.
func NewAnalyticsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyticsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show the weekly or monthly view",
		Long: `Show the current week (from the configured week start) or, with
--month, one point per day of the current month.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, rootOpts, func(_ context.Context, rt *runtime) error {
				st := rt.app.Refresh()
				now := rt.app.Now()
				out := newFormatter(rootOpts, cmd)

				if opts.Month {
					series := analytics.MonthlySeries(st, now)
					return out.Render(series, func(w io.Writer) {
						outputMonthText(w, series, st.Goal)
					})
				}
				week := analytics.Weekly(st, now)
				return out.Render(week, func(w io.Writer) {
					outputWeekText(w, week)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Month, "month", false, "show the monthly series")

	return cmd
}

func outputWeekText(w io.Writer, week analytics.Week) {
	for _, d := range week.Days {
		mark := ""
		if d.GoalMet {
			mark = " *"
		}
		fmt.Fprintf(w, "  %s %s %6d ml%s\n", d.Label, d.DayKey, d.Intake, mark)
	}
	fmt.Fprintf(w, "Average: %d ml/day  Completion: %d%%\n", week.AverageIntake, week.CompletionRate)
}

// outputMonthText draws one bar per day, scaled so the goal is 20 cells.
func outputMonthText(w io.Writer, series []analytics.MonthPoint, goal int) {
	scale := goal
	if scale <= 0 {
		scale = 2000
	}
	for _, p := range series {
		if p.Intake == nil {
			fmt.Fprintf(w, "  %2d\n", p.Day)
			continue
		}
		cells := min(40, max(0, *p.Intake*20/scale))
		fmt.Fprintf(w, "  %2d %-40s %d\n", p.Day, strings.Repeat("#", cells), *p.Intake)
	}
}
