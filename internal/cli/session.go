package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/givemewater/internal/engine"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	UserID string
	Email  string
	Token  string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Attach a cloud session",
		Long: `Attach a session and run a first sync: pull the remote snapshot, flush
queued drinks and push monthly summaries.

A session comes either from an access token issued by the hosted auth
service (verified with remote.jwt_secret) or, for local development, from
an explicit user id.

Examples:
  gmw login --token "$ACCESS_TOKEN"
  gmw login --user 5b1c... --email me@example.com`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id")
	cmd.Flags().StringVar(&opts.Email, "email", "", "user email")
	cmd.Flags().StringVar(&opts.Token, "token", "", "access token")
	cmd.MarkFlagsMutuallyExclusive("user", "token")
	cmd.MarkFlagsOneRequired("user", "token")

	return cmd
}

func runLogin(opts *LoginOptions, cmd *cobra.Command) error {
	return withRuntime(cmd, opts.RootOptions, func(ctx context.Context, rt *runtime) error {
		s := engine.Session{UserID: opts.UserID, Email: opts.Email}
		if opts.Token != "" {
			if rt.verifier == nil {
				return NewExitError(ExitCommandError, "remote.jwt_secret is not configured")
			}
			verified, err := rt.verifier.Verify(opts.Token)
			if err != nil {
				return WrapExitError(ExitCommandError, "token rejected", err)
			}
			s = verified
		}

		if err := rt.app.SignIn(ctx, s); err != nil {
			return WrapExitError(ExitFailure, "sign in failed", err)
		}

		st := rt.app.State()
		return newFormatter(opts.RootOptions, cmd).Render(st.Sync, func(w io.Writer) {
			fmt.Fprintf(w, "Signed in as %s\n", identity(st.Sync))
			if rt.pg == nil {
				fmt.Fprintln(w, "Cloud sync not configured; drinks stay local.")
			}
			fmt.Fprintf(w, "Pending sync: %d\n", st.Sync.PendingCount)
		})
	})
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Detach the cloud session",
		Long: `Detach the session. Local history and queued drinks are kept; they sync
on the next login.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, rootOpts, func(_ context.Context, rt *runtime) error {
				rt.app.SignOut()
				st := rt.app.State()
				return newFormatter(rootOpts, cmd).Render(st.Sync, func(w io.Writer) {
					fmt.Fprintln(w, "Signed out")
					if st.Sync.PendingCount > 0 {
						fmt.Fprintf(w, "%d drinks wait for the next login\n", st.Sync.PendingCount)
					}
				})
			})
		},
	}
}
