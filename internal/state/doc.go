// Package state implements the in-memory event store over model.AppState.
//
// All functions operate on an AppState owned by the caller. They either
// mutate the pointer they are given or return a fresh value; nothing here
// retains a reference across calls.
//
// Key invariants:
//   - History is most-recent-first
//   - EventID is unique within History (merges are keyed by it)
//   - EffectiveDayKey is stamped once in AddEvent and never recomputed
//   - Current is the sum of HydrationAmountML for the active day key
package state
