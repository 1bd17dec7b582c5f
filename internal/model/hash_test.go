package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarySignatureIgnoresOrderAndFigures(t *testing.T) {
	a := []MonthlySummary{
		{MonthKey: "2026-09", AverageIntakeML: 1800},
		{MonthKey: "2026-08", AverageIntakeML: 1500},
	}
	b := []MonthlySummary{
		{MonthKey: "2026-08", AverageIntakeML: 10},
		{MonthKey: "2026-09", AverageIntakeML: 20},
	}

	sigA, err := SummarySignature(a)
	require.NoError(t, err)
	sigB, err := SummarySignature(b)
	require.NoError(t, err)
	assert.Equal(t, sigA, sigB)
	assert.Len(t, sigA, 64, "SHA-256 hex is 64 characters")
}

func TestSummarySignatureChangesWithNewMonth(t *testing.T) {
	before := []MonthlySummary{{MonthKey: "2026-08"}}
	after := []MonthlySummary{{MonthKey: "2026-09"}, {MonthKey: "2026-08"}}

	sigBefore, err := SummarySignature(before)
	require.NoError(t, err)
	sigAfter, err := SummarySignature(after)
	require.NoError(t, err)
	sigEmpty, err := SummarySignature(nil)
	require.NoError(t, err)

	assert.NotEqual(t, sigBefore, sigAfter)
	assert.NotEqual(t, sigEmpty, sigBefore)
}

func TestProfileSignature(t *testing.T) {
	st := AppState{Goal: 2000, Settings: DefaultSettings()}

	sig1, err := ProfileSignature(st)
	require.NoError(t, err)
	sig2, err := ProfileSignature(st.Clone())
	require.NoError(t, err)
	assert.Equal(t, sig1, sig2, "signature must be deterministic")

	st.Goal = 2500
	sig3, err := ProfileSignature(st)
	require.NoError(t, err)
	assert.NotEqual(t, sig1, sig3, "goal change must change signature")

	st.Settings.EndOfDayTime = "04:00"
	sig4, err := ProfileSignature(st)
	require.NoError(t, err)
	assert.NotEqual(t, sig3, sig4, "settings change must change signature")

	st.Profile = &Profile{Gender: "female", WeightKg: 60, HeightCm: 165, ActivityFactor: 1, ClimateFactor: 1}
	sig5, err := ProfileSignature(st)
	require.NoError(t, err)
	assert.NotEqual(t, sig4, sig5, "profile must be covered")
}

func TestSnapshotIsCanonical(t *testing.T) {
	st := AppState{
		StateVersion: StateVersion,
		Goal:         2000,
		Current:      500,
		History: []HydrationEvent{{
			EventID:           "e1",
			Timestamp:         time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC),
			EffectiveDayKey:   "2026-10-15",
			DrinkID:           "water",
			RawAmountML:       500,
			HydrationAmountML: 500,
			Source:            SourceManual,
		}},
		LastEffectiveDayKey: "2026-10-15",
		Settings:            DefaultSettings(),
	}

	data, err := MarshalCanonical(Snapshot(st))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp":"2026-10-15T10:00:00Z"`)
	assert.NotContains(t, string(data), "userId", "empty user id is omitted")
	assert.NotContains(t, string(data), "retention", "empty watermark is omitted")
}

func TestCloneDoesNotAlias(t *testing.T) {
	now := time.Now()
	st := AppState{
		Profile:          &Profile{WeightKg: 70},
		History:          []HydrationEvent{{EventID: "a"}},
		MonthlySummaries: []MonthlySummary{{MonthKey: "2026-09"}},
		Sync:             SyncState{LastSyncedAt: &now},
	}

	cp := st.Clone()
	cp.Profile.WeightKg = 80
	cp.History[0].EventID = "b"
	cp.MonthlySummaries[0].MonthKey = "2026-08"
	*cp.Sync.LastSyncedAt = now.Add(time.Hour)

	assert.Equal(t, 70.0, st.Profile.WeightKg)
	assert.Equal(t, "a", st.History[0].EventID)
	assert.Equal(t, "2026-09", st.MonthlySummaries[0].MonthKey)
	assert.Equal(t, now, *st.Sync.LastSyncedAt)
}
