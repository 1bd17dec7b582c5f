package remote

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"
)

func newMockStore(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return newPostgres(mock), mock
}

func strPtr(s string) *string { return &s }
