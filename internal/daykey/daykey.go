package daykey

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DayLayout is the time layout of a day key.
	DayLayout = "2006-01-02"

	// MonthLayout is the time layout of a month key.
	MonthLayout = "2006-01"

	// DefaultCutoff rolls the day over at midnight.
	DefaultCutoff = "00:00"
)

// DayKey returns the effective day key of ts under the given cutoff.
func DayKey(ts time.Time, endOfDayTime string) string {
	h, m := ParseCutoff(endOfDayTime)

	y, mo, d := ts.Date()
	if ts.Hour() < h || (ts.Hour() == h && ts.Minute() < m) {
		// Date normalises day 0 into the last day of the previous month.
		d--
	}
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC).Format(DayLayout)
}

// DayKeyFromString parses an RFC 3339 timestamp, converts it into now's
// location and returns its day key. A malformed timestamp yields now's
// calendar date with no cutoff shift.
func DayKeyFromString(ts string, endOfDayTime string, now time.Time) string {
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return FormatDay(now)
	}
	return DayKey(parsed.In(now.Location()), endOfDayTime)
}

// ParseCutoff splits "HH:MM" into hours and minutes. Parts that are not
// numbers become 0.
func ParseCutoff(endOfDayTime string) (hours, minutes int) {
	hoursText, minutesText, _ := strings.Cut(endOfDayTime, ":")
	return atoiOrZero(hoursText), atoiOrZero(minutesText)
}

func atoiOrZero(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// FormatDay formats the calendar date of t without any cutoff shift.
func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDayKey returns midnight of the day key in loc.
func ParseDayKey(dayKey string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, dayKey, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day key %q: %w", dayKey, err)
	}
	return t, nil
}

// MonthKey returns the "YYYY-MM" prefix of a day key. Shorter input is
// returned unchanged.
func MonthKey(dayKey string) string {
	if len(dayKey) < len(MonthLayout) {
		return dayKey
	}
	return dayKey[:len(MonthLayout)]
}

// PreviousMonth returns the month key before monthKey, rolling the year
// back from January.
func PreviousMonth(monthKey string) (string, error) {
	t, err := time.Parse(MonthLayout, monthKey)
	if err != nil {
		return "", fmt.Errorf("parse month key %q: %w", monthKey, err)
	}
	return t.AddDate(0, -1, 0).Format(MonthLayout), nil
}

// CurrentMonth returns the month key of now's effective day.
func CurrentMonth(now time.Time, endOfDayTime string) string {
	return MonthKey(DayKey(now, endOfDayTime))
}

// InMonth reports whether dayKey falls in monthKey.
func InMonth(dayKey, monthKey string) bool {
	return strings.HasPrefix(dayKey, monthKey+"-")
}
