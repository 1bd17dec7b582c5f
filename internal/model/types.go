package model

import (
	"slices"
	"time"
)

// Source tags where a hydration event came from. Informational only; never
// used for dedup.
type Source string

const (
	SourceManual       Source = "manual"
	SourcePushAction   Source = "push_action"
	SourcePushQuickAdd Source = "push_quick_add"
	SourceSync         Source = "sync"
)

// HydrationEvent is one recorded drink.
type HydrationEvent struct {
	EventID           string    `json:"eventId"`
	UserID            string    `json:"userId,omitempty"` // empty for anonymous/local-only
	Timestamp         time.Time `json:"timestamp"`
	EffectiveDayKey   string    `json:"effectiveDayKey"`
	DrinkID           string    `json:"drinkId"`
	RawAmountML       int       `json:"rawAmountMl"`
	HydrationAmountML int       `json:"hydrationAmountMl"` // may be negative
	Source            Source    `json:"source"`
}

// MonthlySummary is one compacted month.
type MonthlySummary struct {
	MonthKey        string    `json:"monthKey"` // YYYY-MM
	AverageIntakeML int       `json:"averageIntakeMl"`
	DaysTracked     int       `json:"daysTracked"`
	DaysMetGoal     int       `json:"daysMetGoal"`
	CompletionRate  int       `json:"completionRate"` // 0-100
	CreatedAt       time.Time `json:"createdAt"`
}

// Settings are the user preferences persisted with the state.
type Settings struct {
	EndOfDayTime         string `json:"endOfDayTime"` // HH:MM local wall-clock cutoff
	StartOfWeek          int    `json:"startOfWeek"`  // 0 = Sunday
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	ReminderStartTime    string `json:"reminderStartTime"`
	ReminderEndTime      string `json:"reminderEndTime"`
	IntervalMinutes      int    `json:"intervalMinutes"`
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		EndOfDayTime:         "00:00",
		StartOfWeek:          0,
		NotificationsEnabled: false,
		ReminderStartTime:    "08:00",
		ReminderEndTime:      "22:00",
		IntervalMinutes:      120,
	}
}

// SettingsPatch is a partial settings update. Nil fields are left as-is.
type SettingsPatch struct {
	EndOfDayTime         *string `json:"endOfDayTime,omitempty"`
	StartOfWeek          *int    `json:"startOfWeek,omitempty"`
	NotificationsEnabled *bool   `json:"notificationsEnabled,omitempty"`
	ReminderStartTime    *string `json:"reminderStartTime,omitempty"`
	ReminderEndTime      *string `json:"reminderEndTime,omitempty"`
	IntervalMinutes      *int    `json:"intervalMinutes,omitempty"`
}

// SyncState carries the session identity and observable sync status.
type SyncState struct {
	UserID       string     `json:"userId"`
	Email        string     `json:"email"`
	LastSyncedAt *time.Time `json:"lastSyncedAt"`
	PendingCount int        `json:"pendingCount"`
}

// SignedIn reports whether a remote session is attached.
func (s SyncState) SignedIn() bool {
	return s.UserID != ""
}

// RetentionState is the compaction watermark.
type RetentionState struct {
	LastProcessedMonth string `json:"lastProcessedMonth"`
}

// AppState is the root aggregate. It is owned by the orchestrating caller;
// core components receive it and hand back a new or mutated version.
type AppState struct {
	StateVersion        int              `json:"stateVersion"`
	Profile             *Profile         `json:"profile"`
	Goal                int              `json:"goal"`    // ml/day, 0 = unset
	Current             int              `json:"current"` // cached total for the active effective day
	History             []HydrationEvent `json:"history"` // most-recent-first
	MonthlySummaries    []MonthlySummary `json:"monthlySummaries"`
	LastEffectiveDayKey string           `json:"lastEffectiveDayKey"`
	Settings            Settings         `json:"settings"`
	Sync                SyncState        `json:"sync"`
	Retention           RetentionState   `json:"retention"`
}

// Clone returns a deep copy so callers can mutate without aliasing the
// owner's slices.
func (s AppState) Clone() AppState {
	out := s
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	out.History = slices.Clone(s.History)
	out.MonthlySummaries = slices.Clone(s.MonthlySummaries)
	if s.Sync.LastSyncedAt != nil {
		t := *s.Sync.LastSyncedAt
		out.Sync.LastSyncedAt = &t
	}
	return out
}

// PushSubscription is a Web Push endpoint registered for reminders.
type PushSubscription struct {
	UserID    string `json:"userId"`
	Endpoint  string `json:"endpoint"`
	P256DH    string `json:"p256dh"`
	Auth      string `json:"auth"`
	UserAgent string `json:"userAgent"`
}
