package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/givemewater/internal/app"
	"github.com/roach88/givemewater/internal/daykey"
	"github.com/roach88/givemewater/internal/engine"
	"github.com/roach88/givemewater/internal/model"
	"github.com/roach88/givemewater/internal/store"
	"github.com/roach88/givemewater/internal/testutil"
)

// insertTimeout bounds how long a remote_insert step waits for the engine
// loop to merge the event.
const insertTimeout = 2 * time.Second

// Harness is the test execution engine.
// It runs scenarios with a manual clock and sequential event ids
// ("evt-1", "evt-2", ...) so traces are reproducible.
type Harness struct {
	app    *app.App
	queue  *store.Store
	remote *testutil.FakeRemote // nil when local-only
	clock  *testutil.ManualClock
	users  []string // users the scenario touched, for the remote snapshot
}

// stepResult is what executing one step produced.
type stepResult struct {
	outcome string
	detail  string
	event   *model.HydrationEvent
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory queue and in-memory state.
// Execution flow:
//  1. Wire the app with the manual clock and, if requested, a fake remote
//  2. Start the engine loop so realtime inserts are merged
//  3. Execute setup steps, which must succeed
//  4. Execute flow steps with expect validation
//  5. Snapshot state and remote, then evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	q, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory queue: %w", err)
	}
	defer q.Close()

	h := &Harness{queue: q, clock: testutil.NewManualClock(scenario.Start)}
	opts := app.Options{
		Queue:  q,
		Clock:  h.clock,
		IDs:    testutil.NewSequenceGenerator("evt"),
		Logger: slog.New(slog.DiscardHandler),
	}
	if scenario.Remote {
		h.remote = testutil.NewFakeRemote()
		opts.Remote = h.remote
	}

	h.app, err = app.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create app: %w", err)
	}
	defer h.app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = h.app.Run(ctx)
	}()

	for i, step := range scenario.Setup {
		res := h.execute(ctx, step)
		if res.outcome != OutcomeOK {
			return nil, fmt.Errorf("setup[%d] %s: %s", i, step.Action, res.detail)
		}
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		res := h.execute(ctx, step)
		result.AddTrace(i, step.Action, res.outcome, res.detail)
		if step.Expect != nil {
			for _, msg := range h.checkExpect(i, step, res) {
				result.AddError(msg)
			}
		}
	}

	cancel()
	<-loopDone

	h.snapshot(result)
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// execute runs one step and waits for any sync it scheduled.
func (h *Harness) execute(ctx context.Context, step Step) stepResult {
	res := h.dispatch(ctx, step)
	h.app.WaitIdle()
	return res
}

func (h *Harness) dispatch(ctx context.Context, step Step) stepResult {
	switch step.Action {
	case ActionAdd:
		source := model.Source(step.Source)
		if source == "" {
			source = model.SourceManual
		}
		ev, err := h.app.AddDrink(ctx, step.Drink, step.ML, source)
		return eventResult(ev, err)

	case ActionQuickAdd:
		ev, err := h.app.QuickAdd(ctx, step.ML, model.Source(step.Source))
		return eventResult(ev, err)

	case ActionSetGoal:
		return errResult(h.app.SetGoal(step.Goal))

	case ActionSettings:
		eod := step.EndOfDay
		return errResult(h.app.UpdateSettings(model.SettingsPatch{EndOfDayTime: &eod}))

	case ActionSignIn:
		h.addUser(step.User)
		return errResult(h.app.SignIn(ctx, engine.Session{UserID: step.User, Email: step.Email}))

	case ActionSignOut:
		h.app.SignOut()
		return stepResult{outcome: OutcomeOK}

	case ActionClock:
		if step.At != nil {
			h.clock.Set(*step.At)
		}
		if step.Advance != 0 {
			h.clock.Advance(step.Advance)
		}
		h.app.Refresh()
		return stepResult{outcome: OutcomeOK, detail: h.clock.Now().UTC().Format(time.RFC3339)}

	case ActionRefresh:
		st := h.app.Refresh()
		return stepResult{outcome: OutcomeOK, detail: fmt.Sprintf("current=%d", st.Current)}

	case ActionSync:
		var failed []string
		for _, r := range h.app.Sync(ctx) {
			if !r.Success {
				failed = append(failed, r.Message)
			}
		}
		if len(failed) > 0 {
			return stepResult{outcome: OutcomeFailed, detail: fmt.Sprint(failed)}
		}
		return stepResult{outcome: OutcomeOK}

	case ActionFlush:
		return syncResult(h.app.Engine().FlushQueue(ctx))

	case ActionPull:
		return syncResult(h.app.Engine().PullSnapshot(ctx))

	case ActionReset:
		return syncResult(h.app.ResetAllData(ctx))

	case ActionFailRemote:
		msg := step.Error
		if msg == "" {
			msg = "network unreachable"
		}
		h.remote.FailOn(step.Op, errors.New(msg))
		return stepResult{outcome: OutcomeOK}

	case ActionRecoverRemote:
		h.remote.FailOn(step.Op, nil)
		return stepResult{outcome: OutcomeOK}

	case ActionSeedRemote:
		h.addUser(step.Event.User)
		h.remote.Seed(step.Event.toModel())
		return stepResult{outcome: OutcomeOK}

	case ActionRemoteInsert:
		ev := step.Event.toModel()
		h.addUser(ev.UserID)
		h.remote.Emit(ev)
		if !h.waitForEvent(ev.EventID) {
			return stepResult{outcome: OutcomeFailed, detail: "insert was not merged"}
		}
		return stepResult{outcome: OutcomeOK}
	}

	return stepResult{outcome: OutcomeError, detail: fmt.Sprintf("unknown action %q", step.Action)}
}

func (h *Harness) addUser(id string) {
	if !slices.Contains(h.users, id) {
		h.users = append(h.users, id)
	}
}

// waitForEvent polls until id is in the local history.
func (h *Harness) waitForEvent(id string) bool {
	deadline := time.Now().Add(insertTimeout)
	for time.Now().Before(deadline) {
		if slices.ContainsFunc(h.app.State().History, func(ev model.HydrationEvent) bool {
			return ev.EventID == id
		}) {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func eventResult(ev model.HydrationEvent, err error) stepResult {
	if err != nil {
		return stepResult{outcome: OutcomeError, detail: err.Error()}
	}
	return stepResult{outcome: OutcomeOK, detail: ev.EventID, event: &ev}
}

func errResult(err error) stepResult {
	if err != nil {
		return stepResult{outcome: OutcomeError, detail: err.Error()}
	}
	return stepResult{outcome: OutcomeOK}
}

func syncResult(r model.Result) stepResult {
	if !r.Success {
		return stepResult{outcome: OutcomeFailed, detail: r.Message}
	}
	return stepResult{outcome: OutcomeOK, detail: r.Message}
}

// checkExpect validates a flow step's outcome against its expect clause.
func (h *Harness) checkExpect(index int, step Step, res stepResult) []string {
	var errs []string
	want := step.Expect.Outcome
	if want == "" {
		want = OutcomeOK
	}
	if res.outcome != want {
		errs = append(errs, fmt.Sprintf("flow[%d] %s: expected outcome %s, got %s (%s)",
			index, step.Action, want, res.outcome, res.detail))
	}

	if step.Expect.HydrationML != nil {
		switch {
		case res.event == nil:
			errs = append(errs, fmt.Sprintf("flow[%d] %s: expected an event", index, step.Action))
		case res.event.HydrationAmountML != *step.Expect.HydrationML:
			errs = append(errs, fmt.Sprintf("flow[%d] %s: expected hydration %d ml, got %d ml",
				index, step.Action, *step.Expect.HydrationML, res.event.HydrationAmountML))
		}
	}

	if step.Expect.Current != nil {
		if current := h.app.State().Current; current != *step.Expect.Current {
			errs = append(errs, fmt.Sprintf("flow[%d] %s: expected current %d, got %d",
				index, step.Action, *step.Expect.Current, current))
		}
	}
	return errs
}

// snapshot copies the final state and remote contents into result.
func (h *Harness) snapshot(result *Result) {
	st := h.app.State()
	ids := make([]string, 0, len(st.History))
	for _, ev := range st.History {
		ids = append(ids, ev.EventID)
	}
	result.State = StateSnapshot{
		DayKey:             st.LastEffectiveDayKey,
		Goal:               st.Goal,
		Current:            st.Current,
		History:            ids,
		MonthlySummaries:   st.MonthlySummaries,
		LastProcessedMonth: st.Retention.LastProcessedMonth,
		UserID:             st.Sync.UserID,
		PendingCount:       st.Sync.PendingCount,
	}
	if result.State.MonthlySummaries == nil {
		result.State.MonthlySummaries = []model.MonthlySummary{}
	}

	if h.remote == nil {
		return
	}
	result.RemoteCalls = h.remote.Calls()
	result.Remote = make(map[string][]string)
	for _, user := range h.users {
		events := h.remote.Events(user)
		evIDs := make([]string, 0, len(events))
		for _, ev := range events {
			evIDs = append(evIDs, ev.EventID)
		}
		result.Remote[user] = evIDs
	}
}

func (e *RemoteEvent) toModel() model.HydrationEvent {
	dayKey := e.DayKey
	if dayKey == "" {
		dayKey = daykey.DayKey(e.At, daykey.DefaultCutoff)
	}
	return model.HydrationEvent{
		EventID:           e.ID,
		UserID:            e.User,
		Timestamp:         e.At.UTC(),
		EffectiveDayKey:   dayKey,
		DrinkID:           e.Drink,
		RawAmountML:       e.RawML,
		HydrationAmountML: e.HydrationML,
		Source:            model.SourceSync,
	}
}
