package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/givemewater/internal/model"
)

// Querier is the subset of *pgxpool.Pool the adapter needs. pgxmock pools
// satisfy it too.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// psql builds PostgreSQL statements with $N placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Postgres implements Store on the Supabase schema.
type Postgres struct {
	q       Querier
	pool    *pgxpool.Pool // nil in unit tests; required for SubscribeInserts
	timeout time.Duration
	log     *slog.Logger
}

var _ Store = (*Postgres)(nil)

// Option configures a Postgres store.
type Option func(*Postgres)

// WithTimeout bounds every remote call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Postgres) { p.timeout = d }
}

// WithLogger sets the logger used by the realtime stream.
func WithLogger(l *slog.Logger) Option {
	return func(p *Postgres) {
		if l != nil {
			p.log = l.With("component", "remote")
		}
	}
}

// NewPostgres wraps a connection pool.
func NewPostgres(pool *pgxpool.Pool, opts ...Option) *Postgres {
	p := newPostgres(pool, opts...)
	p.pool = pool
	return p
}

func newPostgres(q Querier, opts ...Option) *Postgres {
	p := &Postgres{
		q:   q,
		log: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Close releases the pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *Postgres) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

// UpsertEvent writes an event keyed by event_id. The row's user_id is the
// event's UserID.
func (p *Postgres) UpsertEvent(ctx context.Context, ev model.HydrationEvent) error {
	if ev.UserID == "" {
		return fmt.Errorf("upsert event %s: missing user id", ev.EventID)
	}
	ctx, cancel := p.bound(ctx)
	defer cancel()

	sql, args, err := psql.Insert("hydration_events").
		Columns(eventColumns...).
		Values(ev.EventID, ev.UserID, ev.Timestamp.UTC(), ev.EffectiveDayKey,
			ev.DrinkID, ev.RawAmountML, ev.HydrationAmountML, string(ev.Source)).
		Suffix(`ON CONFLICT (event_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			timestamp_utc = EXCLUDED.timestamp_utc,
			effective_day_key = EXCLUDED.effective_day_key,
			drink_id = EXCLUDED.drink_id,
			raw_amount_ml = EXCLUDED.raw_amount_ml,
			hydration_amount_ml = EXCLUDED.hydration_amount_ml,
			source = EXCLUDED.source`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert event: %w", err)
	}

	if _, err := p.q.Exec(ctx, sql, args...); err != nil {
		return mapError(err, "upsert event")
	}
	return nil
}

// QueryEventsForUser returns up to limit events, most recent first.
func (p *Postgres) QueryEventsForUser(ctx context.Context, userID string, limit int) ([]model.HydrationEvent, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	b := psql.Select(eventColumns...).
		From("hydration_events").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("timestamp_utc DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query events: %w", err)
	}

	var rows []eventRow
	if err := pgxscan.Select(ctx, p.q, &rows, sql, args...); err != nil {
		return nil, mapError(err, "query events")
	}
	return eventsToModel(rows), nil
}

// QueryEventsInMonth returns every event of the user whose day key falls in
// monthKey.
func (p *Postgres) QueryEventsInMonth(ctx context.Context, userID, monthKey string) ([]model.HydrationEvent, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	sql, args, err := psql.Select(eventColumns...).
		From("hydration_events").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Like{"effective_day_key": monthKey + "-%"}).
		OrderBy("timestamp_utc DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query month events: %w", err)
	}

	var rows []eventRow
	if err := pgxscan.Select(ctx, p.q, &rows, sql, args...); err != nil {
		return nil, mapError(err, "query month events")
	}
	return eventsToModel(rows), nil
}

// QuerySummariesForUser returns the user's summaries, newest month first.
func (p *Postgres) QuerySummariesForUser(ctx context.Context, userID string) ([]model.MonthlySummary, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	sql, args, err := psql.Select(summaryColumns...).
		From("monthly_summaries").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("month_key DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query summaries: %w", err)
	}

	var rows []summaryRow
	if err := pgxscan.Select(ctx, p.q, &rows, sql, args...); err != nil {
		return nil, mapError(err, "query summaries")
	}

	out := make([]model.MonthlySummary, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// UpsertSummary writes a summary keyed by (user_id, month_key).
func (p *Postgres) UpsertSummary(ctx context.Context, userID string, s model.MonthlySummary) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	sql, args, err := psql.Insert("monthly_summaries").
		Columns("user_id", "month_key", "average_intake_ml", "days_tracked", "days_met_goal", "completion_rate").
		Values(userID, s.MonthKey, s.AverageIntakeML, s.DaysTracked, s.DaysMetGoal, s.CompletionRate).
		Suffix(`ON CONFLICT (user_id, month_key) DO UPDATE SET
			average_intake_ml = EXCLUDED.average_intake_ml,
			days_tracked = EXCLUDED.days_tracked,
			days_met_goal = EXCLUDED.days_met_goal,
			completion_rate = EXCLUDED.completion_rate`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert summary: %w", err)
	}

	if _, err := p.q.Exec(ctx, sql, args...); err != nil {
		return mapError(err, "upsert summary")
	}
	return nil
}

// DeleteEventsInMonth removes the user's events whose day key starts with
// monthKey.
func (p *Postgres) DeleteEventsInMonth(ctx context.Context, userID, monthKey string) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	sql, args, err := psql.Delete("hydration_events").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Like{"effective_day_key": monthKey + "-%"}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete month: %w", err)
	}

	if _, err := p.q.Exec(ctx, sql, args...); err != nil {
		return mapError(err, "delete month events")
	}
	return nil
}

// DeleteAllForUser deletes the user's rows from every UserTables table
// concurrently. All deletions run to completion; failures are collected
// into a *ResetError in table order.
func (p *Postgres) DeleteAllForUser(ctx context.Context, userID string) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	errs := make([]error, len(UserTables))
	var g errgroup.Group
	for i, table := range UserTables {
		g.Go(func() error {
			sql, args, err := psql.Delete(table).Where(squirrel.Eq{"user_id": userID}).ToSql()
			if err != nil {
				errs[i] = fmt.Errorf("build delete %s: %w", table, err)
				return nil
			}
			if _, err := p.q.Exec(ctx, sql, args...); err != nil {
				errs[i] = mapError(err, "delete "+table)
			}
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return &ResetError{Errs: failed}
	}
	return nil
}

// UpsertProfile mirrors goal, profile and settings to user_profiles.
func (p *Postgres) UpsertProfile(ctx context.Context, row ProfileRow) error {
	settings, err := json.Marshal(row.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	var profile []byte
	if row.Profile != nil {
		if profile, err = json.Marshal(row.Profile); err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
	}

	ctx, cancel := p.bound(ctx)
	defer cancel()

	sql, args, err := psql.Insert("user_profiles").
		Columns("user_id", "goal_ml", "profile", "settings", "updated_at").
		Values(row.UserID, row.Goal, nullableJSON(profile), string(settings), squirrel.Expr("now()")).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			goal_ml = EXCLUDED.goal_ml,
			profile = EXCLUDED.profile,
			settings = EXCLUDED.settings,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert profile: %w", err)
	}

	if _, err := p.q.Exec(ctx, sql, args...); err != nil {
		return mapError(err, "upsert profile")
	}
	return nil
}

func nullableJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

// UpsertPushSubscription writes a subscription keyed by endpoint.
func (p *Postgres) UpsertPushSubscription(ctx context.Context, sub model.PushSubscription) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	sql, args, err := psql.Insert("push_subscriptions").
		Columns("user_id", "endpoint", "p256dh", "auth", "user_agent", "updated_at").
		Values(sub.UserID, sub.Endpoint, sub.P256DH, sub.Auth, sub.UserAgent, squirrel.Expr("now()")).
		Suffix(`ON CONFLICT (endpoint) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth,
			user_agent = EXCLUDED.user_agent,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert push subscription: %w", err)
	}

	if _, err := p.q.Exec(ctx, sql, args...); err != nil {
		return mapError(err, "upsert push subscription")
	}
	return nil
}

// listenSubscription is a LISTEN stream on a dedicated pooled connection.
type listenSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *listenSubscription) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}
