package testutil

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/givemewater/internal/model"
	"github.com/roach88/givemewater/internal/remote"
)

// Remote operation names used by FakeRemote.FailOn and Calls.
const (
	OpUpsertEvent      = "UpsertEvent"
	OpQueryEvents      = "QueryEventsForUser"
	OpQuerySummaries   = "QuerySummariesForUser"
	OpUpsertSummary    = "UpsertSummary"
	OpDeleteMonth      = "DeleteEventsInMonth"
	OpDeleteAll        = "DeleteAllForUser"
	OpSubscribe        = "SubscribeInserts"
	OpUpsertProfile    = "UpsertProfile"
	OpUpsertPushSub    = "UpsertPushSubscription"
	OpQueryMonthEvents = "QueryEventsInMonth"
)

// FakeRemote is an in-memory remote.Store.
//
// Failures are injected per operation with FailOn; every call is recorded
// (op plus its key argument) so tests can assert ordering such as
// "summary upsert before prune".
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeRemote struct {
	mu        sync.Mutex
	events    map[string]model.HydrationEvent // by event id
	summaries map[string]map[string]model.MonthlySummary
	profiles  map[string]remote.ProfileRow
	pushSubs  map[string]model.PushSubscription // by endpoint
	fail      map[string]error
	calls     []string
	subs      []*fakeSubscription
}

var _ remote.Store = (*FakeRemote)(nil)

// NewFakeRemote returns an empty remote.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		events:    make(map[string]model.HydrationEvent),
		summaries: make(map[string]map[string]model.MonthlySummary),
		profiles:  make(map[string]remote.ProfileRow),
		pushSubs:  make(map[string]model.PushSubscription),
		fail:      make(map[string]error),
	}
}

// FailOn makes every call to op return err until cleared with a nil err.
func (f *FakeRemote) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

// Calls returns the recorded calls as "Op:key" strings.
func (f *FakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallCount returns how many times op was called.
func (f *FakeRemote) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op || strings.HasPrefix(c, op+":") {
			n++
		}
	}
	return n
}

// record notes the call and returns the injected failure, if any.
// Caller must hold f.mu.
func (f *FakeRemote) record(op, key string) error {
	f.calls = append(f.calls, op+":"+key)
	if err, ok := f.fail[op]; ok {
		return fmt.Errorf("%s: %w: %w", op, remote.ErrTransient, err)
	}
	return nil
}

// Events returns the user's stored events, most recent first.
func (f *FakeRemote) Events(userID string) []model.HydrationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eventsFor(userID, func(model.HydrationEvent) bool { return true })
}

// Summaries returns the user's stored summaries, newest month first.
func (f *FakeRemote) Summaries(userID string) []model.MonthlySummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.MonthlySummary
	for _, s := range f.summaries[userID] {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b model.MonthlySummary) int { return strings.Compare(b.MonthKey, a.MonthKey) })
	return out
}

// Profile returns the stored profile row for the user.
func (f *FakeRemote) Profile(userID string) (remote.ProfileRow, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	return p, ok
}

// PushSubscriptions returns the user's stored subscriptions.
func (f *FakeRemote) PushSubscriptions(userID string) []model.PushSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PushSubscription
	for _, s := range f.pushSubs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b model.PushSubscription) int { return strings.Compare(a.Endpoint, b.Endpoint) })
	return out
}

// Seed stores events directly without recording a call or notifying
// subscribers.
func (f *FakeRemote) Seed(events ...model.HydrationEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range events {
		f.events[ev.EventID] = ev
	}
}

// SeedSummary stores a summary directly.
func (f *FakeRemote) SeedSummary(userID string, s model.MonthlySummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putSummary(userID, s)
}

// Emit delivers ev to every open subscription of ev.UserID, as a realtime
// insert from another device would. The event is also stored.
func (f *FakeRemote) Emit(ev model.HydrationEvent) {
	f.mu.Lock()
	f.events[ev.EventID] = ev
	var targets []*fakeSubscription
	for _, s := range f.subs {
		if s.userID == ev.UserID && !s.closed {
			targets = append(targets, s)
		}
	}
	f.mu.Unlock()

	for _, s := range targets {
		s.fn(ev)
	}
}

// OpenSubscriptions returns how many subscriptions are still open.
func (f *FakeRemote) OpenSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if !s.closed {
			n++
		}
	}
	return n
}

func (f *FakeRemote) eventsFor(userID string, keep func(model.HydrationEvent) bool) []model.HydrationEvent {
	var out []model.HydrationEvent
	for _, ev := range f.events {
		if ev.UserID == userID && keep(ev) {
			out = append(out, ev)
		}
	}
	slices.SortFunc(out, func(a, b model.HydrationEvent) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(b.EventID, a.EventID)
	})
	return out
}

func (f *FakeRemote) putSummary(userID string, s model.MonthlySummary) {
	if f.summaries[userID] == nil {
		f.summaries[userID] = make(map[string]model.MonthlySummary)
	}
	f.summaries[userID][s.MonthKey] = s
}

func (f *FakeRemote) UpsertEvent(_ context.Context, ev model.HydrationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpUpsertEvent, ev.EventID); err != nil {
		return err
	}
	if ev.UserID == "" {
		return fmt.Errorf("upsert event %s: missing user id", ev.EventID)
	}
	f.events[ev.EventID] = ev
	return nil
}

func (f *FakeRemote) QueryEventsForUser(_ context.Context, userID string, limit int) ([]model.HydrationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpQueryEvents, userID); err != nil {
		return nil, err
	}
	out := f.eventsFor(userID, func(model.HydrationEvent) bool { return true })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeRemote) QueryEventsInMonth(_ context.Context, userID, monthKey string) ([]model.HydrationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpQueryMonthEvents, monthKey); err != nil {
		return nil, err
	}
	return f.eventsFor(userID, func(ev model.HydrationEvent) bool {
		return strings.HasPrefix(ev.EffectiveDayKey, monthKey+"-")
	}), nil
}

func (f *FakeRemote) QuerySummariesForUser(_ context.Context, userID string) ([]model.MonthlySummary, error) {
	f.mu.Lock()
	if err := f.record(OpQuerySummaries, userID); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()
	return f.Summaries(userID), nil
}

func (f *FakeRemote) UpsertSummary(_ context.Context, userID string, s model.MonthlySummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpUpsertSummary, s.MonthKey); err != nil {
		return err
	}
	f.putSummary(userID, s)
	return nil
}

func (f *FakeRemote) DeleteEventsInMonth(_ context.Context, userID, monthKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpDeleteMonth, monthKey); err != nil {
		return err
	}
	for id, ev := range f.events {
		if ev.UserID == userID && strings.HasPrefix(ev.EffectiveDayKey, monthKey+"-") {
			delete(f.events, id)
		}
	}
	return nil
}

func (f *FakeRemote) DeleteAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpDeleteAll, userID); err != nil {
		return &remote.ResetError{Errs: []error{err}}
	}
	for id, ev := range f.events {
		if ev.UserID == userID {
			delete(f.events, id)
		}
	}
	delete(f.summaries, userID)
	for ep, s := range f.pushSubs {
		if s.UserID == userID {
			delete(f.pushSubs, ep)
		}
	}
	return nil
}

func (f *FakeRemote) SubscribeInserts(_ context.Context, userID string, fn func(model.HydrationEvent)) (remote.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpSubscribe, userID); err != nil {
		return nil, err
	}
	s := &fakeSubscription{owner: f, userID: userID, fn: fn}
	f.subs = append(f.subs, s)
	return s, nil
}

func (f *FakeRemote) UpsertProfile(_ context.Context, p remote.ProfileRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpUpsertProfile, p.UserID); err != nil {
		return err
	}
	f.profiles[p.UserID] = p
	return nil
}

func (f *FakeRemote) UpsertPushSubscription(_ context.Context, sub model.PushSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpUpsertPushSub, sub.Endpoint); err != nil {
		return err
	}
	f.pushSubs[sub.Endpoint] = sub
	return nil
}

type fakeSubscription struct {
	owner  *FakeRemote
	userID string
	fn     func(model.HydrationEvent)
	closed bool // guarded by owner.mu
}

func (s *fakeSubscription) Close() error {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	s.closed = true
	return nil
}
