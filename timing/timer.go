package timing

import "sync"

// A Timer runs a callback once, after a delay, on the event loop. Stopping or
// resetting a Timer guarantees that the callback of the previous arm never
// runs, even though its event stays in the queue.
type Timer struct {
	engine Engine

	lock       sync.Mutex
	generation uint64
	pending    bool
}

// NewTimer creates a Timer that schedules on the given engine.
func NewTimer(engine Engine) *Timer {
	return &Timer{engine: engine}
}

// After arms a new Timer that runs fn after delay.
func After(engine Engine, delay VTimeInSec, fn func()) *Timer {
	t := NewTimer(engine)
	t.Reset(delay, fn)

	return t
}

// Reset arms the timer to run fn after delay, replacing any pending arm.
func (t *Timer) Reset(delay VTimeInSec, fn func()) {
	if delay < 0 {
		delay = 0
	}

	t.lock.Lock()
	t.generation++
	generation := t.generation
	t.pending = true
	t.lock.Unlock()

	at := t.engine.CurrentTime() + delay
	t.engine.Schedule(NewCallbackEvent(at, func() {
		if !t.fire(generation) {
			return
		}

		fn()
	}))
}

func (t *Timer) fire(generation uint64) bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.pending || generation != t.generation {
		return false
	}

	t.pending = false

	return true
}

// Stop disarms the timer. It returns true if a pending arm was cancelled.
func (t *Timer) Stop() bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	wasPending := t.pending
	t.pending = false
	t.generation++

	return wasPending
}

// Pending returns true if the timer is armed and has not fired yet.
func (t *Timer) Pending() bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.pending
}
