package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/givemewater/internal/model"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates an event with minimal required fields.
func createTestEvent(id string, amount int) model.HydrationEvent {
	return model.HydrationEvent{
		EventID:           id,
		UserID:            "user-1",
		Timestamp:         time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC),
		EffectiveDayKey:   "2026-10-15",
		DrinkID:           "water",
		RawAmountML:       amount,
		HydrationAmountML: amount,
		Source:            model.SourceManual,
	}
}
