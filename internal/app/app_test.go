package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/givemewater/internal/config"
	"github.com/roach88/givemewater/internal/engine"
	"github.com/roach88/givemewater/internal/model"
	"github.com/roach88/givemewater/internal/store"
	"github.com/roach88/givemewater/internal/testutil"
)

var start = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	app       *App
	remote    *testutil.FakeRemote
	queue     *store.Store
	clock     *testutil.ManualClock
	statePath string
}

func newFixture(t *testing.T, withRemote bool) *fixture {
	t.Helper()
	dir := t.TempDir()

	q, err := store.Open(filepath.Join(dir, "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })

	f := &fixture{
		queue:     q,
		clock:     testutil.NewManualClock(start),
		statePath: filepath.Join(dir, "state.json"),
	}
	opts := Options{
		StatePath: f.statePath,
		Queue:     q,
		Clock:     f.clock,
		IDs:       testutil.NewSequenceGenerator("evt"),
	}
	if withRemote {
		f.remote = testutil.NewFakeRemote()
		opts.Remote = f.remote
	}

	f.app, err = New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { f.app.Close() })
	return f
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, f.app.SignIn(context.Background(), engine.Session{UserID: "u1", Email: "u1@example.com"}))
	f.app.WaitIdle()
}

func readStateFile(t *testing.T, path string) model.AppState {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var st model.AppState
	require.NoError(t, json.Unmarshal(data, &st))
	return st
}

func TestNew_DefaultState(t *testing.T) {
	f := newFixture(t, false)
	st := f.app.State()

	assert.Equal(t, model.StateVersion, st.StateVersion)
	assert.Equal(t, "2026-10-15", st.LastEffectiveDayKey)
	assert.Equal(t, "2026-10", st.Retention.LastProcessedMonth)
	assert.FileExists(t, f.statePath)
}

func TestAddDrink_PersistsAndQueues(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	ev, err := f.app.AddDrink(ctx, "coffee", 250, "")
	require.NoError(t, err)
	assert.Equal(t, 150, ev.HydrationAmountML)
	assert.Equal(t, model.SourceManual, ev.Source)

	st := f.app.State()
	assert.Equal(t, 150, st.Current)
	assert.Equal(t, 1, st.Sync.PendingCount)

	onDisk := readStateFile(t, f.statePath)
	require.Len(t, onDisk.History, 1)
	assert.Equal(t, ev.EventID, onDisk.History[0].EventID)

	n, err := f.queue.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAddDrink_UnknownDrinkLeavesStateAlone(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.app.AddDrink(context.Background(), "lemonade", 250, "")
	assert.ErrorIs(t, err, model.ErrUnknownDrink)
	assert.Empty(t, f.app.State().History)
}

func TestQuickAdd(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	ev, err := f.app.QuickAdd(ctx, 200, "")
	require.NoError(t, err)
	assert.Equal(t, model.WaterDrinkID, ev.DrinkID)
	assert.Equal(t, model.SourcePushQuickAdd, ev.Source)

	ev, err = f.app.QuickAdd(ctx, 300, model.SourcePushAction)
	require.NoError(t, err)
	assert.Equal(t, model.SourcePushAction, ev.Source)

	_, err = f.app.QuickAdd(ctx, 0, "")
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
	assert.Equal(t, 500, f.app.State().Current)
}

func TestAddDrink_SignedInFlushes(t *testing.T) {
	f := newFixture(t, true)
	f.signIn(t)

	ev, err := f.app.AddDrink(context.Background(), "water", 300, "")
	require.NoError(t, err)

	remoteEvents := f.remote.Events("u1")
	require.Len(t, remoteEvents, 1)
	assert.Equal(t, ev.EventID, remoteEvents[0].EventID)

	st := f.app.State()
	assert.Equal(t, 0, st.Sync.PendingCount)
	require.NotNil(t, st.Sync.LastSyncedAt)
}

func TestAddDrink_RemoteFailureKeepsEventQueued(t *testing.T) {
	f := newFixture(t, true)
	f.signIn(t)
	f.remote.FailOn(testutil.OpUpsertEvent, errors.New("offline"))

	_, err := f.app.AddDrink(context.Background(), "water", 300, "")
	require.NoError(t, err, "remote failures are never surfaced to the caller")

	assert.Equal(t, 300, f.app.State().Current)
	assert.Equal(t, 1, f.app.State().Sync.PendingCount)
	assert.Empty(t, f.remote.Events("u1"))
}

func TestSetGoal(t *testing.T) {
	f := newFixture(t, false)

	assert.ErrorIs(t, f.app.SetGoal(0), model.ErrInvalidGoal)
	require.NoError(t, f.app.SetGoal(2500))
	assert.Equal(t, 2500, f.app.State().Goal)
	assert.Equal(t, 2500, readStateFile(t, f.statePath).Goal)
}

func TestSetProfile_SyncsDebounced(t *testing.T) {
	f := newFixture(t, true)
	f.signIn(t)

	goal := f.app.SetProfile(model.Profile{
		Gender:         "male",
		WeightKg:       80,
		HeightCm:       180,
		ActivityFactor: 1,
		ClimateFactor:  1,
	})
	f.app.WaitIdle()

	assert.Equal(t, goal, f.app.State().Goal)
	row, ok := f.remote.Profile("u1")
	require.True(t, ok)
	assert.Equal(t, goal, row.Goal)
	require.NotNil(t, row.Profile)
	assert.Equal(t, "male", row.Profile.Gender)
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t, false)

	bad := 0
	assert.Error(t, f.app.UpdateSettings(model.SettingsPatch{IntervalMinutes: &bad}))
	assert.Equal(t, 120, f.app.State().Settings.IntervalMinutes)

	cutoff := "04:30"
	require.NoError(t, f.app.UpdateSettings(model.SettingsPatch{EndOfDayTime: &cutoff}))
	assert.Equal(t, "04:30", readStateFile(t, f.statePath).Settings.EndOfDayTime)
}

func TestRefresh_DayRollover(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.app.AddDrink(context.Background(), "water", 500, "")
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	st := f.app.Refresh()

	assert.Equal(t, "2026-10-16", st.LastEffectiveDayKey)
	assert.Equal(t, 0, st.Current)
	assert.Len(t, st.History, 1)
}

func TestRefresh_MonthCompactionSyncsSummary(t *testing.T) {
	f := newFixture(t, true)
	f.signIn(t)
	ctx := context.Background()

	require.NoError(t, f.app.SetGoal(400))
	_, err := f.app.AddDrink(ctx, "water", 500, "")
	require.NoError(t, err)
	f.app.WaitIdle()
	require.Len(t, f.remote.Events("u1"), 1)

	f.clock.Set(time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC))
	st := f.app.Refresh()
	f.app.WaitIdle()

	assert.Empty(t, st.History)
	require.Len(t, st.MonthlySummaries, 1)
	assert.Equal(t, "2026-10", st.MonthlySummaries[0].MonthKey)
	assert.Equal(t, 100, st.MonthlySummaries[0].CompletionRate)

	require.Len(t, f.remote.Summaries("u1"), 1)
	assert.Empty(t, f.remote.Events("u1"), "october detail pruned after the summary upsert")
}

func TestResetAllData_LocalOnly(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	cutoff := "03:00"
	require.NoError(t, f.app.UpdateSettings(model.SettingsPatch{EndOfDayTime: &cutoff}))
	require.NoError(t, f.app.SetGoal(1800))
	_, err := f.app.AddDrink(ctx, "water", 250, "")
	require.NoError(t, err)

	res := f.app.ResetAllData(ctx)
	assert.True(t, res.Success)
	assert.Equal(t, "local data was reset", res.Message)

	st := f.app.State()
	assert.Empty(t, st.History)
	assert.Equal(t, 0, st.Goal)
	assert.Equal(t, "03:00", st.Settings.EndOfDayTime)
	assert.Equal(t, 0, st.Sync.PendingCount)

	n, err := f.queue.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestResetAllData_SignedIn(t *testing.T) {
	f := newFixture(t, true)
	f.signIn(t)
	ctx := context.Background()

	_, err := f.app.AddDrink(ctx, "water", 250, "")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	res := f.app.ResetAllData(ctx)
	assert.True(t, res.Success)
	assert.Equal(t, "local and cloud data were reset", res.Message)

	st := f.app.State()
	assert.Empty(t, st.History)
	assert.Equal(t, "u1", st.Sync.UserID)
	assert.Equal(t, 0, st.Sync.PendingCount)
	require.NotNil(t, st.Sync.LastSyncedAt)
	assert.True(t, st.Sync.LastSyncedAt.Equal(f.clock.Now()))
	assert.Empty(t, f.remote.Events("u1"))
}

func TestResetAllData_CloudFailureKeepsLocal(t *testing.T) {
	f := newFixture(t, true)
	f.signIn(t)
	ctx := context.Background()

	_, err := f.app.AddDrink(ctx, "water", 250, "")
	require.NoError(t, err)
	f.remote.FailOn(testutil.OpDeleteAll, errors.New("permission denied"))

	res := f.app.ResetAllData(ctx)
	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Message, "cloud reset failed"), res.Message)
	assert.Len(t, f.app.State().History, 1)
}

func TestResetAllData_ConcurrentAddsStayConsistent(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 40 {
			_, err := f.app.AddDrink(ctx, "water", 100, "")
			assert.NoError(t, err)
		}
	}()
	for range 10 {
		assert.True(t, f.app.ResetAllData(ctx).Success)
	}
	wg.Wait()

	st := f.app.State()
	inHistory := make(map[string]bool, len(st.History))
	for _, ev := range st.History {
		inHistory[ev.EventID] = true
	}
	queued, err := f.queue.ListAll(ctx)
	require.NoError(t, err)
	for _, ev := range queued {
		assert.True(t, inHistory[ev.EventID], "queued %s missing from history", ev.EventID)
	}
	assert.Equal(t, len(queued), st.Sync.PendingCount)
}

func TestNew_LoadsPersistedState(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.app.AddDrink(context.Background(), "milk", 200, "")
	require.NoError(t, err)
	require.NoError(t, f.app.Close())

	again, err := New(Options{
		StatePath: f.statePath,
		Queue:     f.queue,
		Clock:     f.clock,
	})
	require.NoError(t, err)
	defer again.Close()

	st := again.State()
	require.Len(t, st.History, 1)
	assert.Equal(t, 260, st.Current)
}

func TestRun_StopsOnClose(t *testing.T) {
	f := newFixture(t, false)

	done := make(chan error, 1)
	go func() { done <- f.app.Run(context.Background()) }()

	require.NoError(t, f.app.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})

	log.Info("hidden")
	log.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	runs := 0
	d := newDebouncer(10*time.Millisecond, func() { runs++ })

	d.Trigger()
	d.Trigger()
	d.Trigger()
	d.Wait()
	assert.Equal(t, 1, runs)

	d.Stop()
	d.Trigger()
	d.Wait()
	assert.Equal(t, 1, runs, "stopped debouncer ignores triggers")
}

func TestDebouncer_WaitWhileTriggering(t *testing.T) {
	var runs atomic.Int32
	d := newDebouncer(0, func() { runs.Add(1) })

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 200 {
			d.Trigger()
		}
	}()
	for range 200 {
		d.Wait()
	}
	wg.Wait()
	d.Wait()

	assert.Positive(t, runs.Load())
	d.Stop()
}

func TestResume(t *testing.T) {
	f := newFixture(t, true)

	ok, err := f.app.Resume()
	require.NoError(t, err)
	assert.False(t, ok)

	f.signIn(t)
	require.NoError(t, f.app.Close())

	again, err := New(Options{
		StatePath: f.statePath,
		Queue:     f.queue,
		Remote:    f.remote,
		Clock:     f.clock,
	})
	require.NoError(t, err)
	defer again.Close()

	s, signedIn := again.SignedInSession()
	require.True(t, signedIn)
	assert.Equal(t, "u1", s.UserID)

	ok, err = again.Resume()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u1", again.Engine().Session().UserID)
}
