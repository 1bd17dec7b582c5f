package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/givemewater/internal/model"
)

var testCalls = []string{
	"SubscribeInserts:u1",
	"UpsertEvent:evt-1",
	"UpsertSummary:2026-09",
	"DeleteEventsInMonth:2026-09",
	"UpsertEvent:evt-2",
}

func TestRemoteCallContains(t *testing.T) {
	assert.NoError(t, assertRemoteCallContains(testCalls, Assertion{Call: "UpsertSummary:2026-09"}))
	assert.NoError(t, assertRemoteCallContains(testCalls, Assertion{Call: "DeleteEventsInMonth"}))

	err := assertRemoteCallContains(testCalls, Assertion{Call: "UpsertEvent:evt-9"})
	require.Error(t, err)

	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertRemoteCallContains, aerr.Type)
	assert.Contains(t, err.Error(), "[2] UpsertEvent:evt-1")
}

func TestRemoteCallContains_OpIsNotAPrefixOfLongerOps(t *testing.T) {
	err := assertRemoteCallContains([]string{"UpsertEventBatch:x"}, Assertion{Call: "UpsertEvent"})
	assert.Error(t, err)
}

func TestRemoteCallOrder(t *testing.T) {
	tests := []struct {
		name    string
		calls   []string
		wantErr bool
	}{
		{"in order", []string{"UpsertSummary:2026-09", "DeleteEventsInMonth:2026-09"}, false},
		{"gaps allowed", []string{"SubscribeInserts:u1", "UpsertEvent:evt-2"}, false},
		{"bare ops", []string{"UpsertEvent", "UpsertSummary", "UpsertEvent"}, false},
		{"reversed", []string{"DeleteEventsInMonth:2026-09", "UpsertSummary:2026-09"}, true},
		{"missing", []string{"DeleteAllForUser"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertRemoteCallOrder(testCalls, Assertion{Calls: tt.calls})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRemoteCallCount(t *testing.T) {
	assert.NoError(t, assertRemoteCallCount(testCalls, Assertion{Op: "UpsertEvent", Count: 2}))
	assert.NoError(t, assertRemoteCallCount(testCalls, Assertion{Op: "DeleteAllForUser", Count: 0}))

	err := assertRemoteCallCount(testCalls, Assertion{Op: "UpsertEvent", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 calls")
}

func TestRemoteEvents(t *testing.T) {
	result := &Result{Remote: map[string][]string{"u1": {"evt-2", "evt-1"}}}

	assert.NoError(t, assertRemoteEvents(result, Assertion{User: "u1", Events: []string{"evt-2", "evt-1"}}))
	assert.NoError(t, assertRemoteEvents(result, Assertion{User: "u2"}))
	assert.Error(t, assertRemoteEvents(result, Assertion{User: "u1", Events: []string{"evt-1"}}))
}

func TestFinalState(t *testing.T) {
	snapshot := StateSnapshot{
		DayKey:  "2026-10-15",
		Goal:    2000,
		Current: -300,
		History: []string{"evt-2", "evt-1"},
		MonthlySummaries: []model.MonthlySummary{
			{MonthKey: "2026-09", AverageIntakeML: 1750, DaysTracked: 2},
		},
	}

	tests := []struct {
		name    string
		field   string
		expect  any
		wantErr bool
	}{
		{"int", "current", -300, false},
		{"string", "dayKey", "2026-10-15", false},
		{"list", "history", []any{"evt-2", "evt-1"}, false},
		{"list order matters", "history", []any{"evt-1", "evt-2"}, true},
		{"summary subset", "monthlySummaries", []any{map[string]any{"monthKey": "2026-09", "daysTracked": 2}}, false},
		{"summary mismatch", "monthlySummaries", []any{map[string]any{"averageIntakeMl": 2000}}, true},
		{"wrong value", "goal", 1800, true},
		{"unknown field", "streak", 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(snapshot, Assertion{Field: tt.field, Expect: tt.expect})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.RemoteCalls = testCalls
	result.State = StateSnapshot{Current: 500}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertFinalState, Field: "current", Expect: 500},
		{Type: AssertRemoteCallCount, Op: "UpsertSummary", Count: 1},
		{Type: AssertRemoteCallContains, Call: "DeleteAllForUser"},
		{Type: "bogus"},
	})

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "remote_call_contains")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}

func TestMarshalSnapshot(t *testing.T) {
	result := NewResult()
	result.AddTrace(0, ActionAdd, OutcomeOK, "evt-1")
	result.State = StateSnapshot{
		DayKey:           "2026-10-15",
		Goal:             2000,
		Current:          500,
		History:          []string{"evt-1"},
		MonthlySummaries: []model.MonthlySummary{},
	}

	data, err := MarshalSnapshot("one", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"name":"one","state":{"current":500,"dayKey":"2026-10-15","goal":2000,"history":["evt-1"],"lastProcessedMonth":"","pendingCount":0,"summaries":[],"userId":""},"trace":[{"action":"add","outcome":"ok","step":0}]}`+"\n",
		string(data))
}
