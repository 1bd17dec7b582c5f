// Package model provides the hydration domain types shared by every other
// package: events, monthly summaries, settings and the AppState root
// aggregate.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - HydrationEvent.EventID is the natural key for dedup and upsert
//   - EffectiveDayKey is stamped once at creation and never recomputed
//   - JSON tags follow the persisted camelCase layout
package model
