package state

import (
	"time"

	"github.com/roach88/givemewater/internal/daykey"
	"github.com/roach88/givemewater/internal/model"
)

// DayIntake sums HydrationAmountML over events keyed to dayKey. The result
// may be negative.
func DayIntake(history []model.HydrationEvent, dayKey string) int {
	total := 0
	for _, ev := range history {
		if ev.EffectiveDayKey == dayKey {
			total += ev.HydrationAmountML
		}
	}
	return total
}

// EnsureDailyState is the rollover detector. When now falls on a different
// day key than the watermark, Current is recomputed for the new day and the
// watermark advances. It reports whether anything changed. It never
// triggers compaction.
func EnsureDailyState(st *model.AppState, now time.Time) bool {
	key := daykey.DayKey(now, st.Settings.EndOfDayTime)
	if st.LastEffectiveDayKey == key {
		return false
	}
	st.Current = DayIntake(st.History, key)
	st.LastEffectiveDayKey = key
	return true
}

// Recompute unconditionally refreshes Current and the day watermark against
// now. Used after merging remote events, which may touch today's total
// without a day change.
func Recompute(st *model.AppState, now time.Time) {
	key := daykey.DayKey(now, st.Settings.EndOfDayTime)
	st.Current = DayIntake(st.History, key)
	st.LastEffectiveDayKey = key
}

// ProgressPercentage returns Current/Goal*100 clamped to [0, 100]; 0 when
// no goal is set.
func ProgressPercentage(st model.AppState) float64 {
	if st.Goal <= 0 {
		return 0
	}
	pct := float64(st.Current) / float64(st.Goal) * 100
	return min(100, max(0, pct))
}

// TodayHistory returns the events keyed to now's effective day, in history
// order.
func TodayHistory(st model.AppState, now time.Time) []model.HydrationEvent {
	key := daykey.DayKey(now, st.Settings.EndOfDayTime)
	out := make([]model.HydrationEvent, 0)
	for _, ev := range st.History {
		if ev.EffectiveDayKey == key {
			out = append(out, ev)
		}
	}
	return out
}
