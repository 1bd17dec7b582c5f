package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/givemewater/internal/model"
)

// pull queries events and summaries concurrently. Neither half cancels the
// other; each error is returned separately.
func (e *Engine) pull(ctx context.Context, userID string) (
	events []model.HydrationEvent,
	summaries []model.MonthlySummary,
	eventsErr, summariesErr error,
) {
	var g errgroup.Group

	g.Go(func() error {
		qctx, cancel := e.bound(ctx)
		defer cancel()
		events, eventsErr = e.remote.QueryEventsForUser(qctx, userID, e.pullLimit)
		return nil
	})
	g.Go(func() error {
		qctx, cancel := e.bound(ctx)
		defer cancel()
		summaries, summariesErr = e.remote.QuerySummariesForUser(qctx, userID)
		return nil
	})
	_ = g.Wait()

	return events, summaries, eventsErr, summariesErr
}
