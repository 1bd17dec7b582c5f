package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/givemewater/internal/model"
)

// SyncResult is the sync command's output.
type SyncResult struct {
	Steps        []SyncStep `json:"steps"`
	PendingCount int        `json:"pendingCount"`
}

// SyncStep is one step of a sync cycle.
type SyncStep struct {
	Name string `json:"name"`
	model.Result
}

var syncStepNames = []string{"flush", "pull", "summaries", "profile"}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle",
		Long: `Flush queued drinks, pull the remote snapshot, push monthly summaries
(pruning summarised remote detail) and mirror goal, profile and settings.

Exits 1 when any step failed; failed steps retry on the next sync.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				if err := rt.resume(); err != nil {
					return err
				}

				results := rt.app.Sync(ctx)
				out := SyncResult{PendingCount: rt.app.State().Sync.PendingCount}
				failed := false
				for i, res := range results {
					out.Steps = append(out.Steps, SyncStep{Name: syncStepNames[i], Result: res})
					failed = failed || !res.Success
				}

				if err := newFormatter(rootOpts, cmd).Render(out, func(w io.Writer) {
					for _, step := range out.Steps {
						mark := "ok"
						if !step.Success {
							mark = "FAILED"
						}
						fmt.Fprintf(w, "  %-10s %-6s %s\n", step.Name, mark, step.Message)
					}
					fmt.Fprintf(w, "Pending sync: %d\n", out.PendingCount)
				}); err != nil {
					return err
				}
				if failed {
					return NewExitError(ExitFailure, "sync incomplete")
				}
				return nil
			})
		},
	}
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay connected and merge remote drinks live",
		Long: `Attach the persisted session with a realtime subscription, merge drinks
recorded on other devices as they arrive and flush the queue on the
configured interval. Stops on Ctrl-C.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				ctx, cancel := signalContext(ctx, rt.log)
				defer cancel()

				if s, ok := rt.app.SignedInSession(); ok {
					if err := rt.app.SignIn(ctx, s); err != nil {
						return WrapExitError(ExitFailure, "sign in failed", err)
					}
				} else {
					rt.log.Info("not signed in, watching local queue only")
				}

				fmt.Fprintln(cmd.OutOrStdout(), "Watching for remote drinks...")
				fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

				if err := rt.app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return WrapExitError(ExitFailure, "engine error", err)
				}
				rt.log.Info("watch stopped gracefully")
				return nil
			})
		},
	}
}
