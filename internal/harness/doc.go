// Package harness runs conformance scenarios against the tracker.
//
// A scenario drives a real app (in-memory queue, in-memory state) through a
// list of steps on a manual clock, optionally against a fake remote store,
// and then checks the final state and the remote call trace.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	start: 2026-10-15T10:00:00Z
//	remote: true
//	setup:
//	  - action: set_goal
//	    goal: 2000
//	flow:
//	  - action: add
//	    drink: water
//	    ml: 500
//	    expect:
//	      hydration_ml: 500
//	      current: 500
//	assertions:
//	  - type: final_state
//	    field: current
//	    expect: 500
//	  - type: remote_call_order
//	    calls: [UpsertSummary:2026-09, DeleteEventsInMonth:2026-09]
//
// # Actions
//
// App operations: add, quick_add, set_goal, settings, sign_in, sign_out,
// refresh, sync, flush, pull and reset. The clock action sets (at) or
// advances (advance) the manual clock and refreshes the day state.
//
// Remote actions need remote: true. fail_remote and recover_remote inject
// and clear failures for one operation; seed_remote stores an event as
// another device would; remote_insert delivers one through the realtime
// subscription and waits until it is merged.
//
// # Assertion Types
//
//   - final_state: compares one field of the state snapshot (maps use subset
//     semantics, lists compare in full)
//   - remote_call_contains: a remote call was made ("Op" or "Op:key")
//   - remote_call_order: remote calls appear in this order
//   - remote_call_count: an operation was called exactly N times
//   - remote_events: the remote holds exactly these event ids for a user
//
// # Deterministic Testing
//
// Event ids come from a sequence generator (evt-1, evt-2, ...) and time
// only moves through clock steps, so snapshots of local scenarios are
// byte-identical across runs and are compared with golden files under
// testdata/golden.
package harness
