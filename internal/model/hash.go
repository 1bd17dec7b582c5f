package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"time"
)

// Domain prefixes for signatures. The version suffix allows the algorithm
// to change without colliding with stored values.
const (
	DomainSummaries = "gmw/summaries/v1"
	DomainProfile   = "gmw/profile/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SummarySignature identifies the set of month keys with a local summary.
// It changes whenever compaction produces a new month, which is the trigger
// for pushing summaries and pruning remote detail.
func SummarySignature(summaries []MonthlySummary) (string, error) {
	keys := make([]string, 0, len(summaries))
	for _, s := range summaries {
		keys = append(keys, s.MonthKey)
	}
	slices.Sort(keys)

	data, err := MarshalCanonical(keys)
	if err != nil {
		return "", fmt.Errorf("SummarySignature: %w", err)
	}
	return hashWithDomain(DomainSummaries, data), nil
}

// ProfileSignature identifies the profile, goal and settings that are
// mirrored to the remote profile row.
func ProfileSignature(st AppState) (string, error) {
	obj := map[string]any{
		"goal":     st.Goal,
		"settings": SettingsMap(st.Settings),
	}
	if st.Profile != nil {
		obj["profile"] = ProfileMap(*st.Profile)
	}

	data, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ProfileSignature: %w", err)
	}
	return hashWithDomain(DomainProfile, data), nil
}

// SettingsMap converts settings to a canonical-JSON friendly map.
func SettingsMap(s Settings) map[string]any {
	return map[string]any{
		"endOfDayTime":         s.EndOfDayTime,
		"startOfWeek":          s.StartOfWeek,
		"notificationsEnabled": s.NotificationsEnabled,
		"reminderStartTime":    s.ReminderStartTime,
		"reminderEndTime":      s.ReminderEndTime,
		"intervalMinutes":      s.IntervalMinutes,
	}
}

// ProfileMap converts a profile to a canonical-JSON friendly map. Float
// answers are carried as their decimal text.
func ProfileMap(p Profile) map[string]any {
	return map[string]any{
		"gender":         p.Gender,
		"weightKg":       fmt.Sprint(p.WeightKg),
		"heightCm":       fmt.Sprint(p.HeightCm),
		"activityFactor": fmt.Sprint(p.ActivityFactor),
		"climateFactor":  fmt.Sprint(p.ClimateFactor),
	}
}

// EventMap converts an event to a canonical-JSON friendly map using the
// persisted key names. An empty user id is omitted.
func EventMap(ev HydrationEvent) map[string]any {
	m := map[string]any{
		"eventId":           ev.EventID,
		"timestamp":         ev.Timestamp.UTC().Format(time.RFC3339Nano),
		"effectiveDayKey":   ev.EffectiveDayKey,
		"drinkId":           ev.DrinkID,
		"rawAmountMl":       ev.RawAmountML,
		"hydrationAmountMl": ev.HydrationAmountML,
		"source":            string(ev.Source),
	}
	if ev.UserID != "" {
		m["userId"] = ev.UserID
	}
	return m
}

// Snapshot converts the state into a canonical-JSON friendly map. Null
// fields are omitted and timestamps are rendered in UTC.
func Snapshot(st AppState) map[string]any {
	history := make([]any, len(st.History))
	for i, ev := range st.History {
		history[i] = EventMap(ev)
	}

	summaries := make([]any, len(st.MonthlySummaries))
	for i, s := range st.MonthlySummaries {
		summaries[i] = map[string]any{
			"monthKey":        s.MonthKey,
			"averageIntakeMl": s.AverageIntakeML,
			"daysTracked":     s.DaysTracked,
			"daysMetGoal":     s.DaysMetGoal,
			"completionRate":  s.CompletionRate,
		}
	}

	sync := map[string]any{
		"pendingCount": st.Sync.PendingCount,
	}
	if st.Sync.UserID != "" {
		sync["userId"] = st.Sync.UserID
	}
	if st.Sync.Email != "" {
		sync["email"] = st.Sync.Email
	}

	out := map[string]any{
		"stateVersion":        st.StateVersion,
		"goal":                st.Goal,
		"current":             st.Current,
		"history":             history,
		"monthlySummaries":    summaries,
		"lastEffectiveDayKey": st.LastEffectiveDayKey,
		"settings":            SettingsMap(st.Settings),
		"sync":                sync,
	}
	if st.Retention.LastProcessedMonth != "" {
		out["retention"] = map[string]any{"lastProcessedMonth": st.Retention.LastProcessedMonth}
	}
	return out
}
