// Package remote defines the cloud store capability used by the sync engine
// and implements it on PostgreSQL (the Supabase schema).
//
// Every remote failure is transient from the engine's point of view: errors
// are wrapped with ErrTransient (network, timeouts, server-side faults) or
// ErrUnauthorized (the role may not touch the rows) so callers can log and
// retry on the next trigger. A nil Store means the app runs local-only.
//
// Tables:
//   - hydration_events: one row per event, upserted by event_id
//   - monthly_summaries: one row per (user_id, month_key)
//   - push_subscriptions: one row per endpoint
//   - user_profiles: one row per user with goal, profile and settings
//
// Realtime inserts are delivered with LISTEN/NOTIFY on a per-user channel
// fed by a trigger (see migrations/).
package remote
