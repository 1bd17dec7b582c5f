// Package analytics derives weekly and monthly views from the event history.
package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/givemewater/internal/daykey"
	"github.com/roach88/givemewater/internal/model"
)

// WeekDay is one day of the weekly view.
type WeekDay struct {
	DayKey  string `json:"dayKey"`
	Label   string `json:"dayLabel"` // "Sun".."Sat"
	Intake  int    `json:"intake"`
	GoalMet bool   `json:"isGoalMet"`
}

// Week is the seven days starting at the configured week start.
type Week struct {
	Days           []WeekDay `json:"days"`
	AverageIntake  int       `json:"averageIntake"`  // total / 7, rounded
	CompletionRate int       `json:"completionRate"` // 0 when no goal
}

// MonthPoint is one day of the monthly series. Intake is nil for days after
// the reference day.
type MonthPoint struct {
	Day    int    `json:"day"`
	DayKey string `json:"dayKey"`
	Intake *int   `json:"intake"`
}

func intakeByDay(history []model.HydrationEvent) map[string]int {
	out := make(map[string]int)
	for _, ev := range history {
		out[ev.EffectiveDayKey] += ev.HydrationAmountML
	}
	return out
}

// referenceDay is now's effective day as a UTC midnight, so calendar
// arithmetic is unaffected by DST.
func referenceDay(st model.AppState, now time.Time) time.Time {
	key := daykey.DayKey(now, st.Settings.EndOfDayTime)
	ref, err := daykey.ParseDayKey(key, time.UTC)
	if err != nil {
		// DayKey always yields a valid key
		panic(err)
	}
	return ref
}

// Weekly builds the week containing now's effective day.
func Weekly(st model.AppState, now time.Time) Week {
	totals := intakeByDay(st.History)
	ref := referenceDay(st, now)
	diff := (int(ref.Weekday()) - st.Settings.StartOfWeek + 7) % 7
	start := ref.AddDate(0, 0, -diff)

	w := Week{Days: make([]WeekDay, 0, 7)}
	total, met := 0, 0
	for i := range 7 {
		d := start.AddDate(0, 0, i)
		key := daykey.FormatDay(d)
		intake := totals[key]
		goalMet := st.Goal > 0 && intake >= st.Goal
		if goalMet {
			met++
		}
		total += intake
		w.Days = append(w.Days, WeekDay{
			DayKey:  key,
			Label:   d.Weekday().String()[:3],
			Intake:  intake,
			GoalMet: goalMet,
		})
	}

	seven := decimal.NewFromInt(7)
	w.AverageIntake = int(model.RoundHalfUp(decimal.NewFromInt(int64(total)).Div(seven)).IntPart())
	if st.Goal > 0 {
		w.CompletionRate = int(model.RoundHalfUp(
			decimal.NewFromInt(int64(met)).Mul(decimal.NewFromInt(100)).Div(seven),
		).IntPart())
	}
	return w
}

// MonthlySeries returns one point per day of now's effective month.
func MonthlySeries(st model.AppState, now time.Time) []MonthPoint {
	totals := intakeByDay(st.History)
	ref := referenceDay(st, now)
	first := ref.AddDate(0, 0, 1-ref.Day())
	daysInMonth := first.AddDate(0, 1, -1).Day()

	points := make([]MonthPoint, 0, daysInMonth)
	for day := 1; day <= daysInMonth; day++ {
		key := daykey.FormatDay(first.AddDate(0, 0, day-1))
		p := MonthPoint{Day: day, DayKey: key}
		if day <= ref.Day() {
			intake := totals[key]
			p.Intake = &intake
		}
		points = append(points, p)
	}
	return points
}
