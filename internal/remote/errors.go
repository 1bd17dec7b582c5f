package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for remote failures.
var (
	// ErrNotConfigured means no remote store is reachable. Callers treat it
	// as a no-op, not a failure.
	ErrNotConfigured = errors.New("remote not configured")

	// ErrTransient marks failures worth retrying: network, timeouts and
	// server-side faults.
	ErrTransient = errors.New("remote transient failure")

	// ErrUnauthorized marks failures caused by missing or wrong credentials.
	ErrUnauthorized = errors.New("remote unauthorized")
)

// mapError converts pgx/pgconn errors to remote errors.
// The original error stays in the chain so callers can still inspect it.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "28000", pgErr.Code == "28P01": // invalid_authorization, invalid_password
			return fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
		case pgErr.Code == "42501": // insufficient_privilege (row level security)
			return fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
		case strings.HasPrefix(pgErr.Code, "08"), // connection_exception
			strings.HasPrefix(pgErr.Code, "53"), // insufficient_resources
			strings.HasPrefix(pgErr.Code, "57"), // operator_intervention
			pgErr.Code == "40001", pgErr.Code == "40P01": // serialization, deadlock
			return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}

	// Anything else (dial failures, closed pool) is a connectivity problem.
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}

// ResetError reports every table whose deletion failed during a user reset.
type ResetError struct {
	Errs []error
}

func (e *ResetError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, " | ")
}

func (e *ResetError) Unwrap() []error {
	return e.Errs
}
