package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/roach88/givemewater/internal/app"
	"github.com/roach88/givemewater/internal/clock"
	"github.com/roach88/givemewater/internal/config"
	"github.com/roach88/givemewater/internal/remote"
	"github.com/roach88/givemewater/internal/session"
	"github.com/roach88/givemewater/internal/state"
	"github.com/roach88/givemewater/internal/store"
)

// runtime is everything a command needs, wired from config.
type runtime struct {
	cfg      *config.Config
	log      *slog.Logger
	clock    clock.Clock
	queue    *store.Store
	pool     *pgxpool.Pool     // nil when local-only
	pg       *remote.Postgres  // nil when local-only
	verifier *session.Verifier // nil without a jwt secret
	app      *app.App
}

// loadConfig reads config and builds the logger. Verbose forces debug.
func loadConfig(opts *RootOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, app.NewLogger(cfg.Log), nil
}

// openRuntime wires the queue, the optional remote store and the app. An
// unreachable remote degrades to local-only.
func openRuntime(ctx context.Context, opts *RootOptions) (*runtime, error) {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Local.Location()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid timezone", err)
	}
	rt := &runtime{cfg: cfg, log: log, clock: clock.System{Location: loc}}

	rt.queue, err = store.Open(cfg.Local.QueuePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open queue", err)
	}

	if cfg.Remote.Enabled() {
		pool, err := remote.NewPool(ctx, cfg.Remote)
		if err != nil {
			log.Warn("remote unavailable, running local-only", "error", err)
		} else {
			rt.pool = pool
			rt.pg = remote.NewPostgres(pool, remote.WithTimeout(cfg.Remote.Timeout), remote.WithLogger(log))
		}
	}
	if cfg.Remote.JWTSecret != "" {
		rt.verifier = session.NewVerifier(cfg.Remote.JWTSecret, session.DefaultAudience, rt.clock)
	}

	appOpts := app.Options{
		StatePath:     cfg.Local.StatePath,
		Queue:         rt.queue,
		Clock:         rt.clock,
		IDs:           state.UUIDv7Generator{},
		Logger:        log,
		PullLimit:     cfg.Remote.PullLimit,
		RemoteTimeout: cfg.Remote.Timeout,
		FlushInterval: cfg.Sync.FlushInterval,
		SyncDebounce:  cfg.Sync.SummaryDebounce,
	}
	if rt.pg != nil {
		appOpts.Remote = rt.pg
	}

	rt.app, err = app.New(appOpts)
	if err != nil {
		rt.closeStores()
		return nil, WrapExitError(ExitCommandError, "failed to load state", err)
	}
	return rt, nil
}

// resume reattaches the persisted session for remote writes.
func (rt *runtime) resume() error {
	if _, err := rt.app.Resume(); err != nil {
		return WrapExitError(ExitFailure, "failed to restore session", err)
	}
	return nil
}

// Close lets scheduled syncs finish when they can reach the remote, then
// closes the app and the stores.
func (rt *runtime) Close() error {
	if _, signedIn := rt.app.SignedInSession(); signedIn && rt.pg != nil {
		rt.app.WaitIdle()
	}
	err := rt.app.Close()
	return errors.Join(err, rt.closeStores())
}

func (rt *runtime) closeStores() error {
	var err error
	if rt.pg != nil {
		rt.pg.Close()
	} else if rt.pool != nil {
		rt.pool.Close()
	}
	if rt.queue != nil {
		if closeErr := rt.queue.Close(); closeErr != nil {
			err = fmt.Errorf("close queue: %w", closeErr)
		}
	}
	return err
}

// withRuntime opens a runtime, runs fn and closes it, logging close errors.
func withRuntime(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, rt *runtime) error) error {
	ctx := commandContext(cmd)
	rt, err := openRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			rt.log.Error("error closing runtime", "error", closeErr)
		}
	}()
	return fn(ctx, rt)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// signalContext derives a context cancelled by SIGINT or SIGTERM.
func signalContext(parent context.Context, log *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
