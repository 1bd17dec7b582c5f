package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/givemewater/internal/daykey"
	"github.com/roach88/givemewater/internal/model"
	"github.com/roach88/givemewater/internal/state"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Source string
}

// AddResult is the add command's output.
type AddResult struct {
	Event        model.HydrationEvent `json:"event"`
	Current      int                  `json:"current"`
	Goal         int                  `json:"goal"`
	PendingCount int                  `json:"pendingCount"`
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <drink> <ml>",
		Short: "Record a drink",
		Long: `Record a drink of the given raw volume.

The hydration amount is the raw volume times the drink's hydration factor,
so diuretic drinks subtract from the day's total. Run "gmw drinks" for the
catalog.

Examples:
  gmw add water 250
  gmw add coffee 200 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", string(model.SourceManual), "event source tag")

	return cmd
}

func runAdd(opts *AddOptions, drinkID, rawAmount string, cmd *cobra.Command) error {
	amount, err := strconv.Atoi(rawAmount)
	if err != nil {
		return WrapExitError(ExitCommandError, "amount must be an integer number of ml", err)
	}

	return withRuntime(cmd, opts.RootOptions, func(ctx context.Context, rt *runtime) error {
		if err := rt.resume(); err != nil {
			return err
		}

		ev, err := rt.app.AddDrink(ctx, drinkID, amount, model.Source(opts.Source))
		if err != nil {
			return domainExitError(err)
		}

		st := rt.app.State()
		result := AddResult{Event: ev, Current: st.Current, Goal: st.Goal, PendingCount: st.Sync.PendingCount}
		drink, _ := model.LookupDrink(ev.DrinkID)

		return newFormatter(opts.RootOptions, cmd).Render(result, func(w io.Writer) {
			fmt.Fprintf(w, "Added %s %d ml (%+d ml hydration)\n", drink.Name, ev.RawAmountML, ev.HydrationAmountML)
			fmt.Fprintf(w, "Today: %s\n", formatProgress(st))
			if result.PendingCount > 0 {
				fmt.Fprintf(w, "Pending sync: %d\n", result.PendingCount)
			}
		})
	})
}

// NewDrinksCommand creates the drinks command.
func NewDrinksCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "drinks",
		Short:         "List the drink catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newFormatter(rootOpts, cmd).Render(model.Drinks, func(w io.Writer) {
				for _, d := range model.Drinks {
					fmt.Fprintf(w, "  %-12s %-14s x%.2f\n", d.ID, d.Name, d.HydrationFactor)
				}
			})
		},
	}
}

// StatusResult is the status command's output.
type StatusResult struct {
	DayKey     string                 `json:"dayKey"`
	Current    int                    `json:"current"`
	Goal       int                    `json:"goal"`
	Percentage float64                `json:"percentage"`
	Today      []model.HydrationEvent `json:"today"`
	Sync       model.SyncState        `json:"sync"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show today's progress and sync status",
		Long: `Show today's intake against the goal, today's drinks and the sync
status. Day rollover and monthly compaction run first.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, rootOpts, func(_ context.Context, rt *runtime) error {
				st := rt.app.Refresh()
				now := rt.app.Now()
				result := StatusResult{
					DayKey:     daykey.DayKey(now, st.Settings.EndOfDayTime),
					Current:    st.Current,
					Goal:       st.Goal,
					Percentage: state.ProgressPercentage(st),
					Today:      state.TodayHistory(st, now),
					Sync:       st.Sync,
				}
				return newFormatter(rootOpts, cmd).Render(result, func(w io.Writer) {
					outputStatusText(w, result, rt.clock.Now().Location())
				})
			})
		},
	}
}

func outputStatusText(w io.Writer, r StatusResult, loc *time.Location) {
	fmt.Fprintf(w, "Day %s: %d / %s ml (%.0f%%)\n", r.DayKey, r.Current, goalText(r.Goal), r.Percentage)

	if len(r.Today) > 0 {
		fmt.Fprintln(w, "\nToday:")
		for _, ev := range r.Today {
			fmt.Fprintf(w, "  %s  %-12s %5d ml  %+5d ml\n",
				ev.Timestamp.In(loc).Format("15:04"), ev.DrinkID, ev.RawAmountML, ev.HydrationAmountML)
		}
	}

	fmt.Fprintln(w)
	if r.Sync.SignedIn() {
		fmt.Fprintf(w, "Signed in as %s\n", identity(r.Sync))
	} else {
		fmt.Fprintln(w, "Not signed in")
	}
	fmt.Fprintf(w, "Pending sync: %d\n", r.Sync.PendingCount)
	if r.Sync.LastSyncedAt != nil {
		fmt.Fprintf(w, "Last synced: %s\n", r.Sync.LastSyncedAt.In(loc).Format(time.RFC3339))
	}
}

// GoalOptions holds flags for the goal command.
type GoalOptions struct {
	*RootOptions
	Gender   string
	Weight   float64
	Height   float64
	Activity float64
	Climate  float64
}

// NewGoalCommand creates the goal command.
func NewGoalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GoalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "goal [ml]",
		Short: "Show or set the daily goal",
		Long: `Show the daily goal, set it directly, or derive it from a profile.

Examples:
  gmw goal
  gmw goal 2200
  gmw goal --gender female --weight 62 --height 168 --activity 1.1 --climate 1.0`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoal(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Gender, "gender", "", "profile gender (male uses the higher base)")
	cmd.Flags().Float64Var(&opts.Weight, "weight", 0, "profile weight in kg")
	cmd.Flags().Float64Var(&opts.Height, "height", 0, "profile height in cm")
	cmd.Flags().Float64Var(&opts.Activity, "activity", 1, "activity factor")
	cmd.Flags().Float64Var(&opts.Climate, "climate", 1, "climate factor")

	return cmd
}

func runGoal(opts *GoalOptions, args []string, cmd *cobra.Command) error {
	fromProfile := cmd.Flags().Changed("weight")
	if len(args) == 1 && fromProfile {
		return NewExitError(ExitCommandError, "give either a goal or profile flags, not both")
	}

	var goal int
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return WrapExitError(ExitCommandError, "goal must be an integer number of ml", err)
		}
		goal = n
	}
	if fromProfile && opts.Weight <= 0 {
		return NewExitError(ExitCommandError, "weight must be positive")
	}

	return withRuntime(cmd, opts.RootOptions, func(_ context.Context, rt *runtime) error {
		if err := rt.resume(); err != nil {
			return err
		}

		switch {
		case fromProfile:
			rt.app.SetProfile(model.Profile{
				Gender:         opts.Gender,
				WeightKg:       opts.Weight,
				HeightCm:       opts.Height,
				ActivityFactor: opts.Activity,
				ClimateFactor:  opts.Climate,
			})
		case len(args) == 1:
			if err := rt.app.SetGoal(goal); err != nil {
				return domainExitError(err)
			}
		}

		st := rt.app.State()
		result := map[string]any{"goal": st.Goal, "profile": st.Profile}
		return newFormatter(opts.RootOptions, cmd).Render(result, func(w io.Writer) {
			fmt.Fprintf(w, "Daily goal: %s ml\n", goalText(st.Goal))
			if fromProfile {
				fmt.Fprintln(w, "(suggested from profile)")
			}
		})
	})
}

// SettingsOptions holds flags for the settings command.
type SettingsOptions struct {
	*RootOptions
	EndOfDay      string
	WeekStart     int
	Notifications bool
	ReminderStart string
	ReminderEnd   string
	Interval      int
}

// NewSettingsCommand creates the settings command.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SettingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
		Long: `Show settings, or change the ones given as flags.

Changing the end-of-day cutoff only affects drinks recorded afterwards.

Examples:
  gmw settings
  gmw settings --end-of-day 03:00 --week-start 1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettings(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.EndOfDay, "end-of-day", "", "day cutoff as HH:MM")
	cmd.Flags().IntVar(&opts.WeekStart, "week-start", 0, "first day of the week (0 = Sunday)")
	cmd.Flags().BoolVar(&opts.Notifications, "notifications", false, "enable reminders")
	cmd.Flags().StringVar(&opts.ReminderStart, "reminder-start", "", "reminder window start as HH:MM")
	cmd.Flags().StringVar(&opts.ReminderEnd, "reminder-end", "", "reminder window end as HH:MM")
	cmd.Flags().IntVar(&opts.Interval, "interval", 0, "reminder interval in minutes")

	return cmd
}

func (o *SettingsOptions) patch(cmd *cobra.Command) (model.SettingsPatch, bool) {
	var p model.SettingsPatch
	flags := cmd.Flags()
	if flags.Changed("end-of-day") {
		p.EndOfDayTime = &o.EndOfDay
	}
	if flags.Changed("week-start") {
		p.StartOfWeek = &o.WeekStart
	}
	if flags.Changed("notifications") {
		p.NotificationsEnabled = &o.Notifications
	}
	if flags.Changed("reminder-start") {
		p.ReminderStartTime = &o.ReminderStart
	}
	if flags.Changed("reminder-end") {
		p.ReminderEndTime = &o.ReminderEnd
	}
	if flags.Changed("interval") {
		p.IntervalMinutes = &o.Interval
	}
	return p, p != (model.SettingsPatch{})
}

func runSettings(opts *SettingsOptions, cmd *cobra.Command) error {
	return withRuntime(cmd, opts.RootOptions, func(_ context.Context, rt *runtime) error {
		if p, changed := opts.patch(cmd); changed {
			if err := rt.resume(); err != nil {
				return err
			}
			if err := rt.app.UpdateSettings(p); err != nil {
				return domainExitError(err)
			}
		}

		s := rt.app.State().Settings
		return newFormatter(opts.RootOptions, cmd).Render(s, func(w io.Writer) {
			fmt.Fprintf(w, "End of day:     %s\n", s.EndOfDayTime)
			fmt.Fprintf(w, "Week starts:    %s\n", time.Weekday(s.StartOfWeek))
			fmt.Fprintf(w, "Notifications:  %t\n", s.NotificationsEnabled)
			fmt.Fprintf(w, "Reminders:      %s-%s every %d min\n", s.ReminderStartTime, s.ReminderEndTime, s.IntervalMinutes)
		})
	})
}

// domainExitError maps validation failures to command errors.
func domainExitError(err error) error {
	switch {
	case errors.Is(err, model.ErrUnknownDrink),
		errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidGoal),
		errors.Is(err, model.ErrInvalidSettings):
		return WrapExitError(ExitCommandError, "invalid input", err)
	default:
		return WrapExitError(ExitFailure, "operation failed", err)
	}
}

func formatProgress(st model.AppState) string {
	return fmt.Sprintf("%d / %s ml (%.0f%%)", st.Current, goalText(st.Goal), state.ProgressPercentage(st))
}

func goalText(goal int) string {
	if goal <= 0 {
		return "-"
	}
	return strconv.Itoa(goal)
}

func identity(s model.SyncState) string {
	if s.Email != "" {
		return fmt.Sprintf("%s (%s)", s.Email, s.UserID)
	}
	return s.UserID
}
