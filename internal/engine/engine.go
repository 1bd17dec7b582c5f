package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/givemewater/internal/clock"
	"github.com/roach88/givemewater/internal/model"
	"github.com/roach88/givemewater/internal/remote"
	"github.com/roach88/givemewater/internal/state"
)

// DefaultPullLimit caps the events fetched by PullSnapshot.
const DefaultPullLimit = 1500

// Queue is the durable outbound queue. Implemented by *store.Store.
type Queue interface {
	Enqueue(ctx context.Context, ev model.HydrationEvent) error
	Dequeue(ctx context.Context, eventID string) error
	ListAll(ctx context.Context) ([]model.HydrationEvent, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// failureRecorder is implemented by queues that keep delivery bookkeeping.
type failureRecorder interface {
	MarkFailed(ctx context.Context, eventID string, cause error) error
}

// Session is the authenticated identity the engine syncs for.
type Session struct {
	UserID string
	Email  string
}

// Options carries the engine's dependencies.
type Options struct {
	Queue Queue

	// Remote is the cloud store. Nil degrades the engine to local-only.
	Remote remote.Store

	// GetState returns a snapshot of the caller-owned state.
	GetState func() model.AppState

	// UpdateState applies fn to the caller-owned state atomically.
	UpdateState func(fn func(st *model.AppState))

	Clock  clock.Clock
	Logger *slog.Logger

	// PullLimit caps PullSnapshot's event query. Zero means DefaultPullLimit.
	PullLimit int

	// RemoteTimeout bounds each remote call. Zero means unbounded.
	RemoteTimeout time.Duration

	// FlushInterval makes Run flush the queue periodically. Zero disables it.
	FlushInterval time.Duration
}

// Engine is the sync engine.
//
// Thread-safety model:
//   - every exported method is safe from any goroutine
//   - FlushQueue runs are serialised; ResetUserData excludes flushes
//   - Run must be called from exactly one goroutine
type Engine struct {
	queue         Queue
	remote        remote.Store
	getState      func() model.AppState
	updateState   func(fn func(st *model.AppState))
	clock         clock.Clock
	log           *slog.Logger
	pullLimit     int
	timeout       time.Duration
	flushInterval time.Duration

	inbound *inboundQueue

	flushMu   sync.Mutex // serialises FlushQueue and ResetUserData
	summaryMu sync.Mutex // serialises SyncMonthlySummariesAndPruneCloud

	mu      sync.Mutex // guards the fields below
	session Session
	sub     remote.Subscription
	pruned  map[string]struct{} // userID + "/" + monthKey
	closed  bool
}

// New creates an Engine. Queue, GetState and UpdateState are required.
func New(opts Options) (*Engine, error) {
	if opts.Queue == nil {
		return nil, fmt.Errorf("engine: queue is required")
	}
	if opts.GetState == nil || opts.UpdateState == nil {
		return nil, fmt.Errorf("engine: state accessors are required")
	}

	e := &Engine{
		queue:         opts.Queue,
		remote:        opts.Remote,
		getState:      opts.GetState,
		updateState:   opts.UpdateState,
		clock:         opts.Clock,
		log:           opts.Logger,
		pullLimit:     opts.PullLimit,
		timeout:       opts.RemoteTimeout,
		flushInterval: opts.FlushInterval,
		inbound:       newInboundQueue(),
		pruned:        make(map[string]struct{}),
	}
	if e.clock == nil {
		e.clock = clock.System{}
	}
	if e.log == nil {
		e.log = slog.New(slog.DiscardHandler)
	}
	e.log = e.log.With("component", "engine")
	if e.pullLimit <= 0 {
		e.pullLimit = DefaultPullLimit
	}
	return e, nil
}

// Session returns the current session. The zero value means signed out.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// userID returns the signed-in user, or "" when signed out.
func (e *Engine) userID() string {
	return e.Session().UserID
}

// online reports whether remote work can happen, returning the user id.
func (e *Engine) online() (string, bool) {
	userID := e.userID()
	return userID, userID != "" && e.remote != nil
}

// bound applies RemoteTimeout to ctx.
func (e *Engine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// SignIn attaches a session: it records the identity, subscribes to remote
// inserts (replacing any previous subscription), pulls a snapshot, flushes
// the queue and pushes monthly summaries.
func (e *Engine) SignIn(ctx context.Context, s Session) error {
	if s.UserID == "" {
		return ErrInvalidSession
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	old := e.sub
	e.sub = nil
	e.session = s
	e.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	e.updateState(func(st *model.AppState) {
		st.Sync.UserID = s.UserID
		st.Sync.Email = s.Email
	})
	e.log.Info("signed in", "user_id", s.UserID)

	if e.remote == nil {
		e.log.Debug("remote not configured, staying local-only")
		e.refreshPendingCount(ctx)
		return nil
	}

	e.subscribe(ctx, s.UserID)
	e.PullSnapshot(ctx)
	e.FlushQueue(ctx)
	e.SyncMonthlySummariesAndPruneCloud(ctx)
	return nil
}

// Restore reattaches a persisted session without contacting the remote:
// no subscription, pull or flush. Used by short-lived processes that only
// need remote writes to be attempted.
func (e *Engine) Restore(s Session) error {
	if s.UserID == "" {
		return ErrInvalidSession
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.session = s
	return nil
}

// subscribe attaches the realtime stream for userID. The stream outlives
// ctx's cancellation; it ends on SignOut, a new SignIn or Close.
func (e *Engine) subscribe(ctx context.Context, userID string) {
	sub, err := e.remote.SubscribeInserts(context.WithoutCancel(ctx), userID, func(ev model.HydrationEvent) {
		if !e.inbound.Enqueue(ev) {
			e.log.Debug("inbound queue closed, dropping remote insert", "event_id", ev.EventID)
		}
	})
	if err != nil {
		e.log.Error("realtime subscribe failed", "user_id", userID, "error", err)
		return
	}

	e.mu.Lock()
	if e.closed || e.session.UserID != userID {
		e.mu.Unlock()
		_ = sub.Close()
		return
	}
	e.sub = sub
	e.mu.Unlock()
}

// SignOut drops the subscription and clears the identity. No remote calls
// are made; the queue and history are left alone.
func (e *Engine) SignOut() {
	e.mu.Lock()
	sub := e.sub
	e.sub = nil
	e.session = Session{}
	e.mu.Unlock()

	if sub != nil {
		_ = sub.Close()
	}

	e.updateState(func(st *model.AppState) {
		st.Sync.UserID = ""
		st.Sync.Email = ""
	})
	e.log.Info("signed out")
}

// HandleLocalHydrationEvent durably enqueues a freshly recorded event and
// then tries to flush. Only a failed local enqueue is reported.
func (e *Engine) HandleLocalHydrationEvent(ctx context.Context, ev model.HydrationEvent) error {
	if err := e.queue.Enqueue(ctx, ev); err != nil {
		return fmt.Errorf("queue event %s: %w", ev.EventID, err)
	}
	e.refreshPendingCount(ctx)
	e.FlushQueue(ctx)
	return nil
}

// refreshPendingCount copies the queue length into the state.
func (e *Engine) refreshPendingCount(ctx context.Context) {
	n, err := e.queue.Count(ctx)
	if err != nil {
		e.log.Error("count queue failed", "error", err)
		return
	}
	e.updateState(func(st *model.AppState) {
		st.Sync.PendingCount = n
	})
}

// markSynced records confirmed remote progress.
func (e *Engine) markSynced() {
	now := e.clock.Now().UTC()
	e.updateState(func(st *model.AppState) {
		st.Sync.LastSyncedAt = &now
	})
}

// FlushQueue pushes every queued event to the remote. Confirmed events are
// dequeued; failed ones stay queued for the next trigger.
func (e *Engine) FlushQueue(ctx context.Context) model.Result {
	userID, ok := e.online()
	if !ok {
		return e.offlineResult()
	}

	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	events, err := e.queue.ListAll(ctx)
	if err != nil {
		e.log.Error("list queue failed", "error", err)
		return model.Failed(fmt.Sprintf("queue unavailable: %v", err))
	}
	if len(events) == 0 {
		e.refreshPendingCount(ctx)
		return model.OK("nothing to sync")
	}

	synced := 0
	for _, ev := range events {
		ev.UserID = userID
		if err := e.upsert(ctx, ev); err != nil {
			e.log.Error("flush event failed", "event_id", ev.EventID, "error", err)
			if rec, ok := e.queue.(failureRecorder); ok {
				if err := rec.MarkFailed(ctx, ev.EventID, err); err != nil {
					e.log.Error("record flush failure", "event_id", ev.EventID, "error", err)
				}
			}
			continue
		}
		if err := e.queue.Dequeue(ctx, ev.EventID); err != nil {
			e.log.Error("dequeue failed", "event_id", ev.EventID, "error", err)
		}
		synced++
		e.markSynced()
	}
	e.refreshPendingCount(ctx)

	e.log.Debug("flush finished", "synced", synced, "queued", len(events))
	if synced < len(events) {
		return model.Failed(fmt.Sprintf("synced %d of %d events", synced, len(events)))
	}
	return model.OK(fmt.Sprintf("synced %d events", synced))
}

func (e *Engine) upsert(ctx context.Context, ev model.HydrationEvent) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.remote.UpsertEvent(ctx, ev)
}

func (e *Engine) offlineResult() model.Result {
	if e.remote == nil {
		return model.OK("cloud sync not configured")
	}
	return model.OK("not signed in")
}

// PullSnapshot fetches the most recent remote events and the remote monthly
// summaries concurrently and merges them into the state. Each half fails
// independently.
func (e *Engine) PullSnapshot(ctx context.Context) model.Result {
	userID, ok := e.online()
	if !ok {
		return e.offlineResult()
	}

	events, summaries, eventsErr, summariesErr := e.pull(ctx, userID)
	if eventsErr != nil {
		e.log.Error("pull events failed", "user_id", userID, "error", eventsErr)
	}
	if summariesErr != nil {
		e.log.Error("pull summaries failed", "user_id", userID, "error", summariesErr)
	}

	if eventsErr == nil || summariesErr == nil {
		now := e.clock.Now()
		e.updateState(func(st *model.AppState) {
			if eventsErr == nil {
				st.History = state.MergeEvents(st.History, events)
				state.Recompute(st, now)
			}
			if summariesErr == nil {
				st.MonthlySummaries = state.MergeSummaries(st.MonthlySummaries, summaries)
			}
		})
	}
	if eventsErr == nil {
		e.markSynced()
	}

	switch {
	case eventsErr != nil && summariesErr != nil:
		return model.Failed(fmt.Sprintf("pull failed: %v", eventsErr))
	case eventsErr != nil:
		return model.Failed(fmt.Sprintf("pull events failed: %v", eventsErr))
	case summariesErr != nil:
		return model.Failed(fmt.Sprintf("pulled %d events, summaries failed: %v", len(events), summariesErr))
	}
	return model.OK(fmt.Sprintf("pulled %d events and %d summaries", len(events), len(summaries)))
}

// applyRemote merges remote inserts into the history.
func (e *Engine) applyRemote(events []model.HydrationEvent) {
	if len(events) == 0 {
		return
	}
	now := e.clock.Now()
	e.updateState(func(st *model.AppState) {
		st.History = state.MergeEvents(st.History, events)
		state.Recompute(st, now)
	})
	e.log.Debug("merged remote inserts", "count", len(events))
}

// SyncMonthlySummariesAndPruneCloud upserts every local monthly summary and,
// once a month's summary is confirmed, deletes that month's remote detail.
// A month is pruned at most once per process and user.
func (e *Engine) SyncMonthlySummariesAndPruneCloud(ctx context.Context) model.Result {
	userID, ok := e.online()
	if !ok {
		return e.offlineResult()
	}

	e.summaryMu.Lock()
	defer e.summaryMu.Unlock()

	summaries := e.getState().MonthlySummaries
	if len(summaries) == 0 {
		return model.OK("no summaries to sync")
	}

	var upserted, pruned, failed int
	for _, s := range summaries {
		if err := e.upsertSummary(ctx, userID, s); err != nil {
			e.log.Error("upsert summary failed", "month", s.MonthKey, "error", err)
			failed++
			continue
		}
		upserted++

		key := userID + "/" + s.MonthKey
		if e.isPruned(key) {
			continue
		}
		if err := e.deleteMonth(ctx, userID, s.MonthKey); err != nil {
			e.log.Error("prune month failed", "month", s.MonthKey, "error", err)
			failed++
			continue
		}
		e.markPruned(key)
		pruned++
	}

	if upserted > 0 {
		e.markSynced()
	}
	if failed > 0 {
		return model.Failed(fmt.Sprintf("summaries synced %d of %d, %d failures", upserted, len(summaries), failed))
	}
	return model.OK(fmt.Sprintf("summaries synced %d, pruned %d", upserted, pruned))
}

func (e *Engine) upsertSummary(ctx context.Context, userID string, s model.MonthlySummary) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.remote.UpsertSummary(ctx, userID, s)
}

func (e *Engine) deleteMonth(ctx context.Context, userID, monthKey string) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.remote.DeleteEventsInMonth(ctx, userID, monthKey)
}

func (e *Engine) isPruned(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pruned[key]
	return ok
}

func (e *Engine) markPruned(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruned[key] = struct{}{}
}

// ResetUserData deletes the user's remote rows (when signed in), then clears
// the local queue and the pruned-month set. A remote failure aborts before
// anything local is touched.
func (e *Engine) ResetUserData(ctx context.Context) error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	if userID, ok := e.online(); ok {
		rctx, cancel := e.bound(ctx)
		err := e.remote.DeleteAllForUser(rctx, userID)
		cancel()
		if err != nil {
			e.log.Error("cloud reset failed", "user_id", userID, "error", err)
			return fmt.Errorf("cloud reset failed: %w", err)
		}
	}

	if err := e.queue.Clear(ctx); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	e.refreshPendingCount(ctx)

	e.mu.Lock()
	e.pruned = make(map[string]struct{})
	e.mu.Unlock()

	e.log.Info("user data reset")
	return nil
}

// SyncProfileAndSettings mirrors goal, profile and settings to the remote.
func (e *Engine) SyncProfileAndSettings(ctx context.Context) model.Result {
	userID, ok := e.online()
	if !ok {
		return e.offlineResult()
	}

	st := e.getState()
	row := remote.ProfileRow{
		UserID:   userID,
		Goal:     st.Goal,
		Profile:  st.Profile,
		Settings: st.Settings,
	}

	ctx, cancel := e.bound(ctx)
	defer cancel()
	if err := e.remote.UpsertProfile(ctx, row); err != nil {
		e.log.Error("profile sync failed", "user_id", userID, "error", err)
		return model.Failed(fmt.Sprintf("profile sync failed: %v", err))
	}
	e.markSynced()
	return model.OK("profile synced")
}

// RegisterPushSubscription stores a Web Push endpoint for the signed-in user.
func (e *Engine) RegisterPushSubscription(ctx context.Context, sub model.PushSubscription) model.Result {
	userID, ok := e.online()
	if !ok {
		return e.offlineResult()
	}
	if sub.Endpoint == "" {
		return model.Failed("push subscription has no endpoint")
	}
	sub.UserID = userID

	ctx, cancel := e.bound(ctx)
	defer cancel()
	if err := e.remote.UpsertPushSubscription(ctx, sub); err != nil {
		e.log.Error("push subscription sync failed", "user_id", userID, "error", err)
		return model.Failed(fmt.Sprintf("push subscription failed: %v", err))
	}
	return model.OK("push subscription saved")
}

// Run merges inbound remote inserts until ctx is cancelled or the engine is
// closed. With a FlushInterval it also flushes the queue on that cadence.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine starting")

	var tick <-chan time.Time
	if e.flushInterval > 0 {
		ticker := time.NewTicker(e.flushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		e.applyRemote(e.inbound.Drain())

		select {
		case <-ctx.Done():
			e.log.Info("engine stopping: context cancelled")
			return ctx.Err()

		case _, ok := <-e.inbound.Wait():
			if !ok {
				e.applyRemote(e.inbound.Drain())
				e.log.Info("engine stopping: closed")
				return nil
			}

		case <-tick:
			e.FlushQueue(ctx)
		}
	}
}

// Close drops the subscription and stops Run. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	sub := e.sub
	e.sub = nil
	e.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Close()
	}
	e.inbound.Close()
	return err
}
