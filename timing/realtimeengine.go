package timing

import (
	"sync"
	"time"
)

// A RealTimeEngine handles events one after another at the wall-clock time
// they are scheduled for. It is the engine a live panel runs on.
//
// Schedule may be called from any goroutine; the event loop itself only runs
// on the goroutine that calls Run. Events scheduled in the past are handled
// as soon as possible.
type RealTimeEngine struct {
	HookableBase

	start time.Time
	clock func() time.Time

	timeLock sync.RWMutex
	now      VTimeInSec

	queue          EventQueue
	secondaryQueue EventQueue

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
}

// NewRealTimeEngine creates a RealTimeEngine whose time 0 is now.
func NewRealTimeEngine() *RealTimeEngine {
	e := &RealTimeEngine{
		clock:          time.Now,
		queue:          NewEventQueue(),
		secondaryQueue: NewEventQueue(),
		wake:           make(chan struct{}, 1),
		stop:           make(chan struct{}),
	}
	e.start = e.clock()

	return e
}

// Schedule registers an event. It wakes the event loop if it is sleeping.
func (e *RealTimeEngine) Schedule(evt Event) {
	if evt.IsSecondary() {
		e.secondaryQueue.Push(evt)
	} else {
		e.queue.Push(evt)
	}

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// CurrentTime returns the time elapsed since the engine was created.
func (e *RealTimeEngine) CurrentTime() VTimeInSec {
	return VTimeInSec(e.clock().Sub(e.start).Seconds())
}

// LastEventTime returns the scheduled time of the most recently handled
// event.
func (e *RealTimeEngine) LastEventTime() VTimeInSec {
	e.timeLock.RLock()
	defer e.timeLock.RUnlock()

	return e.now
}

// Run handles events until Stop is called.
func (e *RealTimeEngine) Run() error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for {
		select {
		case <-e.stop:
			return nil
		default:
		}

		evt, wait := e.dueEvent()
		if evt == nil {
			if !e.sleep(wait) {
				return nil
			}

			continue
		}

		e.pauseLock.Lock()
		e.handleEvent(evt)
		e.pauseLock.Unlock()
	}
}

// Stop makes Run return after the event being handled, if any. Events left
// in the queue are dropped.
func (e *RealTimeEngine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// dueEvent pops the next event if its time has come. Otherwise it returns how
// long the loop may sleep, or a negative duration if the queue is empty.
func (e *RealTimeEngine) dueEvent() (Event, time.Duration) {
	var q EventQueue

	primary := e.queue.Peek()
	secondary := e.secondaryQueue.Peek()

	switch {
	case primary == nil && secondary == nil:
		return nil, -1
	case primary == nil:
		q = e.secondaryQueue
	case secondary == nil:
		q = e.queue
	case primary.Time() <= secondary.Time():
		q = e.queue
	default:
		q = e.secondaryQueue
	}

	now := e.CurrentTime()
	if next := q.Peek(); next.Time() > now {
		return nil, (next.Time() - now).Duration()
	}

	return q.Pop(), 0
}

func (e *RealTimeEngine) sleep(d time.Duration) bool {
	if d < 0 {
		select {
		case <-e.wake:
			return true
		case <-e.stop:
			return false
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-e.wake:
		return true
	case <-e.stop:
		return false
	}
}

func (e *RealTimeEngine) handleEvent(evt Event) {
	e.timeLock.Lock()
	if evt.Time() > e.now {
		e.now = evt.Time()
	}
	e.timeLock.Unlock()

	hookCtx := HookCtx{
		Domain: e,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	e.InvokeHook(hookCtx)

	_ = evt.Handler().Handle(evt)

	hookCtx.Pos = HookPosAfterEvent
	e.InvokeHook(hookCtx)
}

// Pause prevents the RealTimeEngine from handling more events. Events that
// become due while paused are handled once Continue is called.
func (e *RealTimeEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue allows the RealTimeEngine to handle events again.
func (e *RealTimeEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}
