package retention

import (
	"context"
	"fmt"

	"github.com/roach88/givemewater/internal/daykey"
	"github.com/roach88/givemewater/internal/model"
)

// RemoteMonthStore is the slice of the remote store server-side compaction
// needs. Implemented by *remote.Postgres.
type RemoteMonthStore interface {
	QueryEventsInMonth(ctx context.Context, userID, monthKey string) ([]model.HydrationEvent, error)
	UpsertSummary(ctx context.Context, userID string, s model.MonthlySummary) error
	DeleteEventsInMonth(ctx context.Context, userID, monthKey string) error
}

// RemoteReport describes one server-side compaction.
type RemoteReport struct {
	OK              bool   `json:"ok"`
	MonthSummarized string `json:"monthSummarized"`
	EventCount      int    `json:"eventCount"`
}

// CompactRemote summarises the month before currentMonth from the user's
// remote events, upserts the summary and deletes that month's detail.
//
// No goal is known server-side, so only the average and tracked days are
// filled; days met and completion rate are 0. A month without events still
// gets an empty summary.
func (c *Compactor) CompactRemote(ctx context.Context, r RemoteMonthStore, userID, currentMonth string) (RemoteReport, error) {
	if userID == "" {
		return RemoteReport{}, fmt.Errorf("compact remote: user id is required")
	}
	target, err := daykey.PreviousMonth(currentMonth)
	if err != nil {
		return RemoteReport{}, fmt.Errorf("compact remote: %w", err)
	}

	events, err := r.QueryEventsInMonth(ctx, userID, target)
	if err != nil {
		return RemoteReport{}, fmt.Errorf("compact remote: query %s: %w", target, err)
	}

	summary := Summarize(events, 0)
	summary.MonthKey = target
	summary.CreatedAt = c.clock.Now().UTC()

	if err := r.UpsertSummary(ctx, userID, summary); err != nil {
		return RemoteReport{}, fmt.Errorf("compact remote: upsert %s: %w", target, err)
	}
	if err := r.DeleteEventsInMonth(ctx, userID, target); err != nil {
		return RemoteReport{}, fmt.Errorf("compact remote: delete %s: %w", target, err)
	}

	c.log.Info("remote month compacted",
		"user_id", userID,
		"month", target,
		"events", len(events),
		"average_ml", summary.AverageIntakeML)

	return RemoteReport{OK: true, MonthSummarized: target, EventCount: len(events)}, nil
}
