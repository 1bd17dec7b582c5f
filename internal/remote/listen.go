package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/roach88/givemewater/internal/model"
)

// InsertChannelPrefix prefixes the per-user NOTIFY channel fed by the
// hydration_events insert trigger.
const InsertChannelPrefix = "hydration_events:"

// InsertChannel returns the NOTIFY channel carrying userID's inserts.
func InsertChannel(userID string) string {
	return InsertChannelPrefix + userID
}

// decodeInsert parses a trigger payload (row_to_json of the new row).
func decodeInsert(payload string) (model.HydrationEvent, error) {
	var row eventRow
	if err := json.Unmarshal([]byte(payload), &row); err != nil {
		return model.HydrationEvent{}, fmt.Errorf("decode insert payload: %w", err)
	}
	if row.EventID == "" {
		return model.HydrationEvent{}, fmt.Errorf("decode insert payload: missing event_id")
	}
	return row.toModel(), nil
}

// SubscribeInserts listens for inserts into hydration_events for userID and
// calls fn for each one from a dedicated goroutine. The stream ends when ctx
// is cancelled or the subscription is closed.
func (p *Postgres) SubscribeInserts(ctx context.Context, userID string, fn func(model.HydrationEvent)) (Subscription, error) {
	if p.pool == nil {
		return nil, ErrNotConfigured
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, mapError(err, "acquire listen conn")
	}

	channel := pgx.Identifier{InsertChannel(userID)}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, mapError(err, "listen")
	}

	streamCtx, cancel := context.WithCancel(ctx)
	sub := &listenSubscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		// Waiting is interrupted by cancellation, which leaves the connection
		// unusable; Hijack keeps it out of the pool.
		defer func() { _ = conn.Hijack().Close(context.Background()) }()

		for {
			n, err := conn.Conn().WaitForNotification(streamCtx)
			if err != nil {
				if streamCtx.Err() == nil {
					p.log.Error("realtime stream ended", "user_id", userID, "error", err)
				}
				return
			}

			ev, err := decodeInsert(n.Payload)
			if err != nil {
				p.log.Warn("dropping realtime payload", "channel", n.Channel, "error", err)
				continue
			}
			if ev.UserID != userID {
				continue
			}
			fn(ev)
		}
	}()

	return sub, nil
}
