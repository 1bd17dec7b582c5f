package state

import (
	"cmp"
	"slices"

	"github.com/roach88/givemewater/internal/model"
)

// MergeByKey returns the union of existing and incoming keyed by key.
// Incoming entries replace existing entries with the same key in place;
// new keys are appended in incoming order. Neither input is modified.
func MergeByKey[T any](existing, incoming []T, key func(T) string) []T {
	out := make([]T, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))

	for _, item := range existing {
		k := key(item)
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	for _, item := range incoming {
		k := key(item)
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}

func eventKey(ev model.HydrationEvent) string { return ev.EventID }

func summaryKey(s model.MonthlySummary) string { return s.MonthKey }

// MergeEvents is the last-write-wins-by-id merge used for both the pull
// snapshot and realtime inserts. The result is sorted by timestamp
// descending, ties broken by event id descending, so applying merges in any
// order converges on the same history.
func MergeEvents(history, remote []model.HydrationEvent) []model.HydrationEvent {
	merged := MergeByKey(history, remote, eventKey)
	SortEvents(merged)
	return merged
}

// SortEvents orders events most-recent-first.
func SortEvents(events []model.HydrationEvent) {
	slices.SortStableFunc(events, func(a, b model.HydrationEvent) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.EventID, a.EventID)
	})
}

// MergeSummaries upserts incoming summaries by month key and keeps the list
// sorted by month key descending.
func MergeSummaries(existing, incoming []model.MonthlySummary) []model.MonthlySummary {
	merged := MergeByKey(existing, incoming, summaryKey)
	slices.SortFunc(merged, func(a, b model.MonthlySummary) int {
		return cmp.Compare(b.MonthKey, a.MonthKey)
	})
	return merged
}
