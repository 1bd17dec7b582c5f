package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/roach88/givemewater/internal/config"
)

// Server runs a handler on the configured address.
type Server struct {
	srv *http.Server
	cfg config.HTTPConfig
	log *slog.Logger
}

// NewServer wraps h in an http.Server configured from cfg.
func NewServer(cfg config.HTTPConfig, h http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		cfg: cfg,
		log: log.With("component", "http"),
	}
}

// Run listens until ctx is cancelled, then shuts down gracefully within
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", ln.Addr().String())
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	base := context.WithoutCancel(ctx)
	var (
		shutdownCtx context.Context
		cancel      context.CancelFunc
	)
	if s.cfg.ShutdownTimeout > 0 {
		shutdownCtx, cancel = context.WithTimeout(base, s.cfg.ShutdownTimeout)
	} else {
		shutdownCtx, cancel = context.WithCancel(base)
	}
	defer cancel()
	s.log.Info("http server shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
