// Package engine implements the offline-first sync engine.
//
// The engine moves hydration events between the local durable queue and the
// remote store:
//
//  1. Local events are enqueued durably, then flushed (upsert by event id).
//     An entry leaves the queue only after the remote confirmed it.
//  2. On sign-in the engine subscribes to remote inserts, pulls a snapshot,
//     flushes and pushes monthly summaries.
//  3. Remote inserts arrive on the stream goroutine and are queued; Run
//     drains them and merges through the same id-keyed merge as the pull.
//  4. Monthly summaries are upserted before the matching remote detail is
//     pruned. Pruned months are remembered per process.
//
// The engine never owns AppState. It reads through GetState and mutates
// through UpdateState, which the caller runs under its own lock.
//
// Every remote failure is logged and treated as transient: the next
// trigger retries. Status fields (pendingCount, lastSyncedAt) change only on
// confirmed progress.
package engine
