package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/givemewater/internal/daykey"
	"github.com/roach88/givemewater/internal/retention"
	"github.com/roach88/givemewater/internal/transport/httpapi"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the tracker over a local HTTP API",
		Long: `Run the JSON API on http.addr together with the sync loop. A persisted
session is resumed with a realtime subscription; bearer tokens are verified
with remote.jwt_secret.

Stops on SIGINT or SIGTERM, draining in-flight requests.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, rootOpts, func(parent context.Context, rt *runtime) error {
				ctx, cancel := signalContext(parent, rt.log)
				defer cancel()

				if s, ok := rt.app.SignedInSession(); ok {
					if err := rt.app.SignIn(ctx, s); err != nil {
						rt.log.Warn("session resume failed, serving local-only", "user_id", s.UserID, "error", err)
					}
				}

				opts := httpapi.Options{Service: rt.app, Logger: rt.log}
				if rt.verifier != nil {
					opts.Verifier = rt.verifier
				}
				if rt.pg != nil {
					compactor := retention.New(rt.clock, rt.log)
					opts.Retention = func(ctx context.Context, userID string) (retention.RemoteReport, error) {
						month := daykey.CurrentMonth(rt.clock.Now().UTC(), "00:00")
						return compactor.CompactRemote(ctx, rt.pg, userID, month)
					}
				}
				srv := httpapi.NewServer(rt.cfg.HTTP, httpapi.New(opts), rt.log)

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					return srv.Run(gctx)
				})
				g.Go(func() error {
					return rt.app.Run(gctx)
				})

				if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
					return WrapExitError(ExitFailure, "server stopped", err)
				}
				return nil
			})
		},
	}
}
