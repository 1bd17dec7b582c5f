package remote

import (
	"context"

	"github.com/roach88/givemewater/internal/model"
)

// Store is the remote store capability.
type Store interface {
	UpsertEvent(ctx context.Context, ev model.HydrationEvent) error
	QueryEventsForUser(ctx context.Context, userID string, limit int) ([]model.HydrationEvent, error)
	QuerySummariesForUser(ctx context.Context, userID string) ([]model.MonthlySummary, error)
	UpsertSummary(ctx context.Context, userID string, s model.MonthlySummary) error
	DeleteEventsInMonth(ctx context.Context, userID, monthKey string) error
	DeleteAllForUser(ctx context.Context, userID string) error
	SubscribeInserts(ctx context.Context, userID string, fn func(model.HydrationEvent)) (Subscription, error)
	UpsertProfile(ctx context.Context, p ProfileRow) error
	UpsertPushSubscription(ctx context.Context, sub model.PushSubscription) error
}

// Subscription is a live inbound insert stream. Close stops delivery and
// waits for the stream goroutine to exit.
type Subscription interface {
	Close() error
}

// ProfileRow is the mirrored profile, goal and settings of one user.
type ProfileRow struct {
	UserID   string
	Goal     int
	Profile  *model.Profile
	Settings model.Settings
}

// Tables cleared by DeleteAllForUser, in the order errors are reported.
var UserTables = []string{"hydration_events", "monthly_summaries", "push_subscriptions"}
