package state

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/givemewater/internal/clock"
	"github.com/roach88/givemewater/internal/daykey"
	"github.com/roach88/givemewater/internal/model"
)

// Tracker creates events and loads persisted state. It carries the clock
// and id source so that the rest of the package stays pure.
type Tracker struct {
	clock clock.Clock
	ids   IDGenerator
}

// NewTracker creates a tracker. A nil generator defaults to UUIDv7.
func NewTracker(c clock.Clock, ids IDGenerator) *Tracker {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &Tracker{clock: c, ids: ids}
}

// Now returns the tracker clock's current time.
func (t *Tracker) Now() time.Time {
	return t.clock.Now()
}

// HydrationAmount returns round(raw * factor) with halves rounded toward
// positive infinity. The raw amount must be positive and the factor finite.
func HydrationAmount(rawAmountML int, factor float64) (int, error) {
	if rawAmountML <= 0 {
		return 0, fmt.Errorf("raw amount %d: %w", rawAmountML, model.ErrInvalidAmount)
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return 0, fmt.Errorf("hydration factor %v: %w", factor, model.ErrInvalidAmount)
	}

	amount := decimal.NewFromInt(int64(rawAmountML)).Mul(decimal.NewFromFloat(factor))
	return int(model.RoundHalfUp(amount).IntPart()), nil
}

// AddEvent records a drink. The event is stamped with the current time and
// the day key under the active cutoff, prepended to History, and Current is
// recomputed for that key. On error st is left untouched.
func (t *Tracker) AddEvent(st *model.AppState, drink model.Drink, rawAmountML int, source model.Source) (model.HydrationEvent, error) {
	amount, err := HydrationAmount(rawAmountML, drink.HydrationFactor)
	if err != nil {
		return model.HydrationEvent{}, err
	}
	if source == "" {
		source = model.SourceManual
	}

	now := t.clock.Now()
	ev := model.HydrationEvent{
		EventID:           t.ids.Generate(),
		UserID:            st.Sync.UserID,
		Timestamp:         now.UTC(),
		EffectiveDayKey:   daykey.DayKey(now, st.Settings.EndOfDayTime),
		DrinkID:           drink.ID,
		RawAmountML:       rawAmountML,
		HydrationAmountML: amount,
		Source:            source,
	}

	st.History = append([]model.HydrationEvent{ev}, st.History...)
	st.Current = DayIntake(st.History, ev.EffectiveDayKey)
	st.LastEffectiveDayKey = ev.EffectiveDayKey
	return ev, nil
}

// AddDrink looks the drink up in the catalog and records it.
func (t *Tracker) AddDrink(st *model.AppState, drinkID string, rawAmountML int, source model.Source) (model.HydrationEvent, error) {
	drink, ok := model.LookupDrink(drinkID)
	if !ok {
		return model.HydrationEvent{}, fmt.Errorf("drink %q: %w", drinkID, model.ErrUnknownDrink)
	}
	return t.AddEvent(st, drink, rawAmountML, source)
}
