package state

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/givemewater/internal/daykey"
	"github.com/roach88/givemewater/internal/model"
)

// NewState returns the default state for a fresh install.
func NewState(now time.Time) model.AppState {
	return model.AppState{
		StateVersion:        model.StateVersion,
		History:             []model.HydrationEvent{},
		MonthlySummaries:    []model.MonthlySummary{},
		LastEffectiveDayKey: daykey.DayKey(now, daykey.DefaultCutoff),
		Settings:            model.DefaultSettings(),
	}
}

// Migrate decodes persisted state. Versioned input is normalized field by
// field; unversioned (or older) input is treated as the legacy flat shape.
// Missing fields take their defaults and events that cannot produce finite
// amounts are dropped. Input that is not a JSON object yields NewState.
//
// Migrate is idempotent: feeding its own output back in changes nothing.
func (t *Tracker) Migrate(raw []byte) model.AppState {
	now := t.clock.Now()

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return NewState(now)
	}

	version, ok := toNumber(obj["stateVersion"])
	if !ok || version < model.StateVersion {
		return t.migrateLegacy(obj, now)
	}

	st := NewState(now)
	st.Profile = normalizeProfile(obj["profile"])
	st.Goal = numberOrZero(obj["goal"])
	st.Current = numberOrZero(obj["current"])
	st.Settings = normalizeSettings(asObject(obj["settings"]))
	st.Sync = normalizeSync(asObject(obj["sync"]))
	if ret := asObject(obj["retention"]); ret != nil {
		st.Retention.LastProcessedMonth, _ = ret["lastProcessedMonth"].(string)
	}
	st.History = t.normalizeHistory(obj["history"], st.Settings, now)
	st.MonthlySummaries = normalizeSummaries(obj["monthlySummaries"], now)
	if key, _ := obj["lastEffectiveDayKey"].(string); key != "" {
		st.LastEffectiveDayKey = key
	} else {
		st.LastEffectiveDayKey = daykey.DayKey(now, st.Settings.EndOfDayTime)
	}
	return st
}

// migrateLegacy lifts the unversioned flat layout, where the cutoff and
// week start lived at the top level, into the current shape.
func (t *Tracker) migrateLegacy(obj map[string]any, now time.Time) model.AppState {
	st := NewState(now)
	st.Settings = normalizeSettings(map[string]any{
		"endOfDayTime": obj["endOfDayTime"],
		"startOfWeek":  obj["startOfWeek"],
	})
	st.Goal = numberOrZero(obj["goal"])
	st.Current = numberOrZero(obj["current"])
	st.Profile = normalizeProfile(obj["profile"])
	st.History = t.normalizeHistory(obj["history"], st.Settings, now)
	if key, _ := obj["lastEffectiveDayKey"].(string); key != "" {
		st.LastEffectiveDayKey = key
	} else {
		st.LastEffectiveDayKey = daykey.DayKey(now, st.Settings.EndOfDayTime)
	}
	return st
}

func (t *Tracker) normalizeHistory(v any, settings model.Settings, now time.Time) []model.HydrationEvent {
	list, _ := v.([]any)
	out := make([]model.HydrationEvent, 0, len(list))
	for _, item := range list {
		ev, ok := t.normalizeEvent(asObject(item), settings, now)
		if ok {
			out = append(out, ev)
		}
	}
	return out
}

// normalizeEvent rebuilds one persisted event. Legacy rawAmount and
// hydrationAmount keys are accepted.
func (t *Tracker) normalizeEvent(obj map[string]any, settings model.Settings, now time.Time) (model.HydrationEvent, bool) {
	if obj == nil {
		return model.HydrationEvent{}, false
	}

	ts := now.UTC()
	if s, _ := obj["timestamp"].(string); s != "" {
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return model.HydrationEvent{}, false
		}
		ts = parsed.UTC()
	}

	hydration, ok := toNumber(firstPresent(obj, "hydrationAmountMl", "hydrationAmount"))
	if !ok {
		return model.HydrationEvent{}, false
	}
	rawAmount, ok := toNumber(firstPresent(obj, "rawAmountMl", "rawAmount"))
	if !ok {
		return model.HydrationEvent{}, false
	}

	ev := model.HydrationEvent{
		EventID:           stringOr(firstPresent(obj, "eventId", "id"), ""),
		Timestamp:         ts,
		DrinkID:           stringOr(obj["drinkId"], model.WaterDrinkID),
		RawAmountML:       roundInt(rawAmount),
		HydrationAmountML: roundInt(hydration),
		Source:            model.Source(stringOr(obj["source"], string(model.SourceManual))),
	}
	if ev.EventID == "" {
		ev.EventID = t.ids.Generate()
	}
	ev.UserID, _ = obj["userId"].(string)
	if key, _ := obj["effectiveDayKey"].(string); key != "" {
		ev.EffectiveDayKey = key
	} else {
		ev.EffectiveDayKey = daykey.DayKey(ts.In(now.Location()), settings.EndOfDayTime)
	}
	return ev, true
}

func normalizeSettings(obj map[string]any) model.Settings {
	s := model.DefaultSettings()
	if obj == nil {
		return s
	}
	if v, ok := obj["endOfDayTime"].(string); ok && v != "" {
		s.EndOfDayTime = v
	}
	if v, ok := toNumber(obj["startOfWeek"]); ok && obj["startOfWeek"] != nil {
		s.StartOfWeek = roundInt(v)
	}
	if v, ok := obj["notificationsEnabled"].(bool); ok {
		s.NotificationsEnabled = v
	}
	if v, ok := obj["reminderStartTime"].(string); ok && v != "" {
		s.ReminderStartTime = v
	}
	if v, ok := obj["reminderEndTime"].(string); ok && v != "" {
		s.ReminderEndTime = v
	}
	if v, ok := toNumber(obj["intervalMinutes"]); ok && obj["intervalMinutes"] != nil {
		s.IntervalMinutes = roundInt(v)
	}
	return s
}

func normalizeSync(obj map[string]any) model.SyncState {
	var s model.SyncState
	if obj == nil {
		return s
	}
	s.UserID, _ = obj["userId"].(string)
	s.Email, _ = obj["email"].(string)
	if v, _ := obj["lastSyncedAt"].(string); v != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			utc := parsed.UTC()
			s.LastSyncedAt = &utc
		}
	}
	s.PendingCount = numberOrZero(obj["pendingCount"])
	return s
}

func normalizeSummaries(v any, now time.Time) []model.MonthlySummary {
	list, _ := v.([]any)
	out := make([]model.MonthlySummary, 0, len(list))
	for _, item := range list {
		obj := asObject(item)
		if obj == nil {
			continue
		}
		s := model.MonthlySummary{
			MonthKey:        stringOr(obj["monthKey"], ""),
			AverageIntakeML: numberOrZero(obj["averageIntakeMl"]),
			DaysTracked:     numberOrZero(obj["daysTracked"]),
			DaysMetGoal:     numberOrZero(obj["daysMetGoal"]),
			CompletionRate:  numberOrZero(obj["completionRate"]),
			CreatedAt:       now.UTC(),
		}
		if c, _ := obj["createdAt"].(string); c != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, c); err == nil {
				s.CreatedAt = parsed.UTC()
			}
		}
		out = append(out, s)
	}
	return out
}

func normalizeProfile(v any) *model.Profile {
	obj := asObject(v)
	if obj == nil {
		return nil
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	return &p
}

func asObject(v any) map[string]any {
	obj, _ := v.(map[string]any)
	return obj
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringOr(v any, fallback string) string {
	switch val := v.(type) {
	case string:
		if val != "" {
			return val
		}
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return fallback
}

// toNumber converts a decoded JSON value the way a lenient numeric cast
// would: missing is 0, numeric strings parse, booleans are 0/1. The second
// result is false when no finite number can be produced.
func toNumber(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0, true
	case float64:
		f = val
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func numberOrZero(v any) int {
	f, ok := toNumber(v)
	if !ok {
		return 0
	}
	return roundInt(f)
}

func roundInt(f float64) int {
	return int(model.RoundHalfUp(decimal.NewFromFloat(f)).IntPart())
}
