package app

import (
	"sync"
	"time"
)

// debouncer runs fn once after delay, restarting the delay on every
// Trigger. Wait blocks until no run is pending or in flight.
type debouncer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	idle    *sync.Cond // signalled when pending drops to zero
	timer   *time.Timer
	pending int // runs scheduled or in flight
	stopped bool
}

func newDebouncer(delay time.Duration, fn func()) *debouncer {
	d := &debouncer{delay: delay, fn: fn}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// Trigger schedules fn, replacing a pending run.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil && d.timer.Stop() {
		d.pending-- // the replaced run never fires
	}
	d.pending++
	d.timer = time.AfterFunc(d.delay, d.run)
}

func (d *debouncer) run() {
	d.fn()

	d.mu.Lock()
	d.done()
	d.mu.Unlock()
}

// done retires one run. Caller must hold d.mu.
func (d *debouncer) done() {
	d.pending--
	if d.pending == 0 {
		d.idle.Broadcast()
	}
}

// Wait blocks until every scheduled run has finished.
func (d *debouncer) Wait() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.pending > 0 {
		d.idle.Wait()
	}
}

// Stop cancels a pending run and rejects later triggers. A run already in
// flight completes before Stop returns.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil && d.timer.Stop() {
		d.done()
	}
	for d.pending > 0 {
		d.idle.Wait()
	}
}
