// Package store provides the SQLite-backed durable outbound queue.
//
// An event is "safely captured" once it is in the queue, whatever the state
// of the network. Entries are removed only after the remote store has
// confirmed the upsert.
//
// # Invariants
//
// Idempotent enqueue
//   - UNIQUE(event_id); enqueueing the same event again replaces its payload
//     and keeps its original queue position
//
// Deterministic order
//   - All listings use ORDER BY seq ASC, event_id COLLATE BINARY ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Payloads are canonical JSON (see model.MarshalCanonical) so the same event
// always produces byte-identical rows.
package store
