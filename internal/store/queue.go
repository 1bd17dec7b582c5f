package store

import (
	"context"
	"fmt"

	"github.com/roach88/givemewater/internal/model"
)

// Entry is one queued event together with its delivery bookkeeping.
type Entry struct {
	Seq        int64
	Event      model.HydrationEvent
	Attempts   int
	LastError  string
	EnqueuedAt string
}

// Enqueue durably stores ev. Enqueueing an id that is already queued
// replaces the payload and keeps the original position.
func (s *Store) Enqueue(ctx context.Context, ev model.HydrationEvent) error {
	payload, err := marshalEvent(ev)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO queued_events (event_id, user_id, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			user_id = excluded.user_id,
			payload = excluded.payload
	`, ev.EventID, ev.UserID, payload)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", ev.EventID, err)
	}
	return nil
}

// Dequeue removes an acknowledged event. Removing an id that is not queued
// is not an error.
func (s *Store) Dequeue(ctx context.Context, eventID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queued_events WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("dequeue %s: %w", eventID, err)
	}
	return nil
}

// MarkFailed records a failed delivery attempt. The entry stays queued.
func (s *Store) MarkFailed(ctx context.Context, eventID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE queued_events
		SET attempts = attempts + 1, last_error = ?
		WHERE event_id = ?
	`, msg, eventID)
	if err != nil {
		return fmt.Errorf("mark failed %s: %w", eventID, err)
	}
	return nil
}

// Entries returns every queued entry in enqueue order.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, payload, attempts, last_error, enqueued_at
		FROM queued_events
		ORDER BY seq ASC, event_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			payload string
		)
		if err := rows.Scan(&e.Seq, &payload, &e.Attempts, &e.LastError, &e.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		e.Event, err = unmarshalEvent(payload)
		if err != nil {
			return nil, fmt.Errorf("queue seq %d: %w", e.Seq, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue: %w", err)
	}
	return entries, nil
}

// ListAll returns the queued events in enqueue order.
func (s *Store) ListAll(ctx context.Context) ([]model.HydrationEvent, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]model.HydrationEvent, len(entries))
	for i, e := range entries {
		events[i] = e.Event
	}
	return events, nil
}

// Count returns the number of queued events.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queued_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}

// Clear removes every queued event.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queued_events`); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}
