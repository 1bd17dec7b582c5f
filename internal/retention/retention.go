package retention

import (
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/givemewater/internal/clock"
	"github.com/roach88/givemewater/internal/daykey"
	"github.com/roach88/givemewater/internal/model"
	"github.com/roach88/givemewater/internal/state"
)

// Compactor runs monthly compaction against an injected clock.
type Compactor struct {
	clock clock.Clock
	log   *slog.Logger
}

// New creates a compactor. A nil logger discards output.
func New(c clock.Clock, log *slog.Logger) *Compactor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Compactor{clock: c, log: log.With("component", "retention")}
}

// Run compacts st when the current month differs from the watermark and
// reports whether st changed.
//
// The summary is computed with the goal in effect now, not the goal that
// was active during the compacted month.
func (c *Compactor) Run(st *model.AppState) bool {
	now := c.clock.Now()
	todayKey := daykey.DayKey(now, st.Settings.EndOfDayTime)
	currentMonth := daykey.MonthKey(todayKey)

	if st.Retention.LastProcessedMonth == currentMonth {
		return false
	}

	targetMonth, err := daykey.PreviousMonth(currentMonth)
	if err != nil {
		// Only reachable with a broken cutoff producing a malformed key.
		c.log.Error("compute previous month", "month", currentMonth, "error", err)
		return false
	}

	var target []model.HydrationEvent
	for _, ev := range st.History {
		if daykey.MonthKey(ev.EffectiveDayKey) == targetMonth {
			target = append(target, ev)
		}
	}

	if len(target) > 0 {
		summary := Summarize(target, st.Goal)
		summary.MonthKey = targetMonth
		summary.CreatedAt = now.UTC()
		st.MonthlySummaries = state.MergeSummaries(st.MonthlySummaries, []model.MonthlySummary{summary})
		c.log.Info("month compacted",
			"month", targetMonth,
			"days_tracked", summary.DaysTracked,
			"average_ml", summary.AverageIntakeML)
	}

	before := len(st.History)
	st.History = slices.DeleteFunc(slices.Clone(st.History), func(ev model.HydrationEvent) bool {
		return daykey.MonthKey(ev.EffectiveDayKey) != currentMonth
	})
	if dropped := before - len(st.History); dropped > 0 {
		c.log.Debug("history pruned", "dropped", dropped, "kept", len(st.History))
	}

	state.Recompute(st, now)
	st.Retention.LastProcessedMonth = currentMonth
	return true
}

// Summarize aggregates events into per-day totals. MonthKey and CreatedAt
// are left for the caller. Days met are only counted with a positive goal.
func Summarize(events []model.HydrationEvent, goal int) model.MonthlySummary {
	totals := make(map[string]int)
	for _, ev := range events {
		totals[ev.EffectiveDayKey] += ev.HydrationAmountML
	}

	var s model.MonthlySummary
	s.DaysTracked = len(totals)
	if s.DaysTracked == 0 {
		return s
	}

	sum := 0
	for _, total := range totals {
		sum += total
		if goal > 0 && total >= goal {
			s.DaysMetGoal++
		}
	}

	tracked := decimal.NewFromInt(int64(s.DaysTracked))
	s.AverageIntakeML = int(model.RoundHalfUp(decimal.NewFromInt(int64(sum)).Div(tracked)).IntPart())
	s.CompletionRate = int(model.RoundHalfUp(
		decimal.NewFromInt(int64(s.DaysMetGoal)).Mul(decimal.NewFromInt(100)).Div(tracked),
	).IntPart())
	return s
}
