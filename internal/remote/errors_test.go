package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, ErrTransient},
		{"canceled", context.Canceled, ErrTransient},
		{"bad password", &pgconn.PgError{Code: "28P01"}, ErrUnauthorized},
		{"privilege", &pgconn.PgError{Code: "42501"}, ErrUnauthorized},
		{"connection", &pgconn.PgError{Code: "08001"}, ErrTransient},
		{"too many connections", &pgconn.PgError{Code: "53300"}, ErrTransient},
		{"dial", errors.New("dial tcp: connection refused"), ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "op")
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err, "original error stays in the chain")
		})
	}
}

func TestMapErrorConstraintNotTransient(t *testing.T) {
	err := mapError(&pgconn.PgError{Code: "23514"}, "op")
	assert.NotErrorIs(t, err, ErrTransient)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestMapErrorNil(t *testing.T) {
	assert.NoError(t, mapError(nil, "op"))
}
