package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/givemewater/internal/model"
)

func event(id, dayKey string, amount int, ts time.Time) model.HydrationEvent {
	return model.HydrationEvent{
		EventID:           id,
		Timestamp:         ts,
		EffectiveDayKey:   dayKey,
		DrinkID:           "water",
		RawAmountML:       amount,
		HydrationAmountML: amount,
		Source:            model.SourceManual,
	}
}

func TestEnsureDailyStateSumsOnlyToday(t *testing.T) {
	today := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	st := NewState(yesterday)
	st.LastEffectiveDayKey = "2026-10-14"
	st.Current = 999
	st.History = []model.HydrationEvent{
		event("e5", "2026-10-15", 250, today.Add(-time.Hour)),
		event("e4", "2026-10-15", 300, today.Add(-2*time.Hour)),
		event("e3", "2026-10-14", 400, yesterday),
		event("e2", "2026-10-14", 500, yesterday.Add(-time.Hour)),
		event("e1", "2026-10-15", 100, today.Add(-3*time.Hour)),
	}

	changed := EnsureDailyState(&st, today)

	assert.True(t, changed)
	assert.Equal(t, 650, st.Current)
	assert.Equal(t, "2026-10-15", st.LastEffectiveDayKey)
}

func TestEnsureDailyStateNoopSameDay(t *testing.T) {
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	st := NewState(now)
	st.Current = 123

	assert.False(t, EnsureDailyState(&st, now.Add(time.Hour)))
	assert.Equal(t, 123, st.Current, "cached total is kept when the day did not change")
}

func TestRecompute(t *testing.T) {
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	st := NewState(now)
	st.History = []model.HydrationEvent{event("a", "2026-10-15", 700, now)}

	Recompute(&st, now)
	assert.Equal(t, 700, st.Current)
}

func TestProgressPercentage(t *testing.T) {
	tests := []struct {
		name    string
		goal    int
		current int
		want    float64
	}{
		{"no goal", 0, 500, 0},
		{"negative goal", -1, 500, 0},
		{"quarter", 2000, 500, 25},
		{"over goal clamps", 2000, 2500, 100},
		{"negative intake clamps", 2000, -400, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := model.AppState{Goal: tt.goal, Current: tt.current}
			assert.InDelta(t, tt.want, ProgressPercentage(st), 1e-9)
		})
	}
}

func TestTodayHistory(t *testing.T) {
	now := time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC)
	st := NewState(now)
	st.Settings.EndOfDayTime = "04:00"
	st.History = []model.HydrationEvent{
		event("b", "2026-10-14", 100, now),
		event("a", "2026-10-13", 100, now.Add(-24*time.Hour)),
	}

	got := TodayHistory(st, now)
	assert.Len(t, got, 1)
	assert.Equal(t, "b", got[0].EventID)
	assert.Empty(t, TodayHistory(NewState(now), now))
}
