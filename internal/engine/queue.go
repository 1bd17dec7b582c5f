package engine

import (
	"sync"

	"github.com/roach88/givemewater/internal/model"
)

// inboundQueue is a thread-safe FIFO of remote inserts awaiting merge.
//
// The realtime stream goroutine enqueues; Engine.Run drains. The queue is
// unbounded so a slow merge never stalls the stream.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type inboundQueue struct {
	mu     sync.Mutex
	events []model.HydrationEvent
	closed bool
	signal chan struct{} // buffered, size 1
}

func newInboundQueue() *inboundQueue {
	return &inboundQueue{
		events: make([]model.HydrationEvent, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *inboundQueue) Enqueue(ev model.HydrationEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, ev)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// Drain removes and returns everything queued, oldest first.
// Returns nil if the queue is empty.
func (q *inboundQueue) Drain() []model.HydrationEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil
	}

	out := q.events
	q.events = make([]model.HydrationEvent, 0, cap(out))
	return out
}

// Wait returns a channel that signals when events may be available.
// It is closed by Close.
func (q *inboundQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *inboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued and wakes waiters.
func (q *inboundQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
