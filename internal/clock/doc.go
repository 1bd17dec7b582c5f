// Package clock provides the wall-clock abstraction used by day-key,
// retention and sync code.
//
// Production code uses System. Tests inject testutil.ManualClock so day
// rollover and month transitions are deterministic.
package clock
