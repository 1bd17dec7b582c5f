// Package app is the orchestrating owner of AppState.
//
// App serialises every state mutation behind one mutex, runs the day
// rollover and monthly compaction after each change, persists the state and
// schedules cloud syncs when the summary or profile signatures change. The
// engine reaches the state only through App's accessors.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/givemewater/internal/clock"
	"github.com/roach88/givemewater/internal/engine"
	"github.com/roach88/givemewater/internal/model"
	"github.com/roach88/givemewater/internal/remote"
	"github.com/roach88/givemewater/internal/retention"
	"github.com/roach88/givemewater/internal/state"
)

// Options configures an App.
type Options struct {
	// StatePath is the persisted state file. Empty keeps state in memory.
	StatePath string

	Queue  engine.Queue
	Remote remote.Store // nil = local-only

	Clock  clock.Clock
	IDs    state.IDGenerator
	Logger *slog.Logger

	PullLimit     int
	RemoteTimeout time.Duration
	FlushInterval time.Duration

	// SyncDebounce delays the summary and profile syncs scheduled by
	// signature changes.
	SyncDebounce time.Duration
}

// App owns the AppState.
type App struct {
	mu sync.Mutex
	st model.AppState

	// resetMu keeps a reset atomic with respect to new drinks: AddDrink
	// holds it shared from the history insert to the enqueue.
	resetMu sync.RWMutex

	statePath string
	hasRemote bool
	clock     clock.Clock
	log       *slog.Logger
	tracker   *state.Tracker
	compactor *retention.Compactor
	engine    *engine.Engine

	summarySig string
	profileSig string

	bg          context.Context
	cancel      context.CancelFunc
	summarySync *debouncer
	profileSync *debouncer
	closeOnce   sync.Once
}

// New loads the persisted state and wires the engine.
func New(opts Options) (*App, error) {
	c := opts.Clock
	if c == nil {
		c = clock.System{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	a := &App{
		statePath: opts.StatePath,
		hasRemote: opts.Remote != nil,
		clock:     c,
		log:       log.With("component", "app"),
		tracker:   state.NewTracker(c, opts.IDs),
		compactor: retention.New(c, log),
	}

	if opts.StatePath != "" {
		st, err := a.tracker.LoadFile(opts.StatePath)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		a.st = st
	} else {
		a.st = state.NewState(c.Now())
	}

	var err error
	if a.summarySig, err = model.SummarySignature(a.st.MonthlySummaries); err != nil {
		return nil, err
	}
	if a.profileSig, err = model.ProfileSignature(a.st); err != nil {
		return nil, err
	}

	eng, err := engine.New(engine.Options{
		Queue:         opts.Queue,
		Remote:        opts.Remote,
		GetState:      a.State,
		UpdateState:   a.update,
		Clock:         c,
		Logger:        log,
		PullLimit:     opts.PullLimit,
		RemoteTimeout: opts.RemoteTimeout,
		FlushInterval: opts.FlushInterval,
	})
	if err != nil {
		return nil, err
	}
	a.engine = eng

	a.bg, a.cancel = context.WithCancel(context.Background())
	a.summarySync = newDebouncer(opts.SyncDebounce, func() {
		res := a.engine.SyncMonthlySummariesAndPruneCloud(a.bg)
		a.log.Debug("scheduled summary sync", "success", res.Success, "message", res.Message)
	})
	a.profileSync = newDebouncer(opts.SyncDebounce, func() {
		res := a.engine.SyncProfileAndSettings(a.bg)
		a.log.Debug("scheduled profile sync", "success", res.Success, "message", res.Message)
	})

	a.mu.Lock()
	a.applyLocked()
	a.mu.Unlock()

	return a, nil
}

// Engine exposes the sync engine for Run and explicit sync commands.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Now returns the app clock's current time.
func (a *App) Now() time.Time {
	return a.clock.Now()
}

// State returns a deep copy of the current state.
func (a *App) State() model.AppState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.st.Clone()
}

// update applies fn to the state and then runs applyLocked.
func (a *App) update(fn func(st *model.AppState)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.st)
	a.applyLocked()
}

// applyLocked runs rollover and compaction, persists, and schedules syncs
// whose signatures changed. Caller must hold a.mu.
func (a *App) applyLocked() {
	now := a.clock.Now()
	state.EnsureDailyState(&a.st, now)
	a.compactor.Run(&a.st)

	if a.statePath != "" {
		if err := state.SaveFile(a.statePath, a.st); err != nil {
			a.log.Error("save state failed", "path", a.statePath, "error", err)
		}
	}

	if sig, err := model.SummarySignature(a.st.MonthlySummaries); err != nil {
		a.log.Error("summary signature failed", "error", err)
	} else if sig != a.summarySig {
		a.summarySig = sig
		a.summarySync.Trigger()
	}

	sig, err := model.ProfileSignature(a.st)
	if err != nil {
		a.log.Error("profile signature failed", "error", err)
		return
	}
	if sig != a.profileSig {
		a.profileSig = sig
		a.profileSync.Trigger()
	}
}

// Refresh re-runs rollover and compaction against the current time.
func (a *App) Refresh() model.AppState {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applyLocked()
	return a.st.Clone()
}

// AddDrink records a drink and hands it to the sync engine.
func (a *App) AddDrink(ctx context.Context, drinkID string, rawAmountML int, source model.Source) (model.HydrationEvent, error) {
	a.resetMu.RLock()
	defer a.resetMu.RUnlock()

	a.mu.Lock()
	ev, err := a.tracker.AddDrink(&a.st, drinkID, rawAmountML, source)
	if err != nil {
		a.mu.Unlock()
		return model.HydrationEvent{}, err
	}
	a.applyLocked()
	a.mu.Unlock()

	if err := a.engine.HandleLocalHydrationEvent(ctx, ev); err != nil {
		a.log.Error("queue local event failed", "event_id", ev.EventID, "error", err)
	}
	return ev, nil
}

// QuickAdd records water, as the reminder actions do. An empty source
// defaults to push_quick_add.
func (a *App) QuickAdd(ctx context.Context, amountML int, source model.Source) (model.HydrationEvent, error) {
	if source == "" {
		source = model.SourcePushQuickAdd
	}
	return a.AddDrink(ctx, model.WaterDrinkID, amountML, source)
}

// SetGoal overrides the daily goal.
func (a *App) SetGoal(goal int) error {
	if goal <= 0 {
		return fmt.Errorf("%w: %d", model.ErrInvalidGoal, goal)
	}
	a.update(func(st *model.AppState) { st.Goal = goal })
	return nil
}

// SetProfile stores onboarding answers and adopts the suggested goal.
func (a *App) SetProfile(p model.Profile) int {
	goal := p.SuggestedGoal()
	a.update(func(st *model.AppState) {
		st.Profile = &p
		st.Goal = goal
	})
	return goal
}

// UpdateSettings validates and applies a settings patch.
func (a *App) UpdateSettings(patch model.SettingsPatch) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := state.UpdateSettings(&a.st, patch); err != nil {
		return err
	}
	a.applyLocked()
	return nil
}

// SignIn attaches a session to the engine.
func (a *App) SignIn(ctx context.Context, s engine.Session) error {
	return a.engine.SignIn(ctx, s)
}

// Resume restores the persisted identity, if any, without remote calls and
// reports whether one was found.
func (a *App) Resume() (bool, error) {
	st := a.State()
	if !st.Sync.SignedIn() {
		return false, nil
	}
	if err := a.engine.Restore(engine.Session{UserID: st.Sync.UserID, Email: st.Sync.Email}); err != nil {
		return false, err
	}
	return true, nil
}

// SignedInSession returns the persisted identity as a session.
func (a *App) SignedInSession() (engine.Session, bool) {
	st := a.State()
	return engine.Session{UserID: st.Sync.UserID, Email: st.Sync.Email}, st.Sync.SignedIn()
}

// SignOut detaches the session.
func (a *App) SignOut() {
	a.engine.SignOut()
}

// Sync runs a full cycle: flush, pull, summaries, profile.
func (a *App) Sync(ctx context.Context) []model.Result {
	return []model.Result{
		a.engine.FlushQueue(ctx),
		a.engine.PullSnapshot(ctx),
		a.engine.SyncMonthlySummariesAndPruneCloud(ctx),
		a.engine.SyncProfileAndSettings(ctx),
	}
}

// RegisterPushSubscription stores a reminder endpoint remotely.
func (a *App) RegisterPushSubscription(ctx context.Context, sub model.PushSubscription) model.Result {
	return a.engine.RegisterPushSubscription(ctx, sub)
}

// ResetAllData wipes the user's cloud data (when signed in), the queue and
// the local history. Settings survive; a signed-in identity survives with a
// zero pending count. A cloud failure leaves everything local untouched.
// Drinks added concurrently land either before the reset (and are wiped) or
// after it (and survive in both history and queue).
func (a *App) ResetAllData(ctx context.Context) model.Result {
	a.resetMu.Lock()
	defer a.resetMu.Unlock()

	before := a.State()

	if err := a.engine.ResetUserData(ctx); err != nil {
		return model.Failed(err.Error())
	}

	now := a.clock.Now()
	fresh := state.NewState(now)
	fresh.Settings = before.Settings
	signedIn := before.Sync.SignedIn()
	if signedIn {
		syncedAt := now.UTC()
		fresh.Sync = before.Sync
		fresh.Sync.PendingCount = 0
		fresh.Sync.LastSyncedAt = &syncedAt
	}

	a.mu.Lock()
	a.st = fresh
	a.applyLocked()
	a.mu.Unlock()

	if signedIn && a.hasRemote {
		return model.OK("local and cloud data were reset")
	}
	return model.OK("local data was reset")
}

// Run drives the engine's inbound loop until ctx ends or the app closes.
func (a *App) Run(ctx context.Context) error {
	return a.engine.Run(ctx)
}

// WaitIdle blocks until scheduled syncs have finished.
func (a *App) WaitIdle() {
	a.summarySync.Wait()
	a.profileSync.Wait()
}

// Close stops scheduled syncs and the engine and saves the state.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.cancel()
		a.summarySync.Stop()
		a.profileSync.Stop()
		err = a.engine.Close()

		if a.statePath != "" {
			if saveErr := state.SaveFile(a.statePath, a.State()); saveErr != nil {
				err = errors.Join(err, saveErr)
			}
		}
	})
	return err
}
