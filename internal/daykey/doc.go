// Package daykey maps timestamps to effective calendar-day keys.
//
// A day key is a "YYYY-MM-DD" string. The end-of-day cutoff ("HH:MM", local
// wall clock) lets a user roll the day over at, say, 04:00 instead of
// midnight: anything strictly before the cutoff belongs to the previous
// calendar date.
//
// Every function here is pure. The location of the time.Time passed in
// decides which wall-clock fields are read; callers pass local time.
package daykey
