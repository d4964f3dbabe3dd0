// Package poll provides the fixed-interval poll loop that keeps widgets in
// step with the telemetry service, and the edit guard that holds the poll
// off while the user is typing.
package poll

import (
	"fmt"
	"log"
	"sync"

	"github.com/sarchlab/telepanel/timing"
)

// A Loop invokes a fetch-and-apply function immediately and then once every
// interval until it is cancelled.
//
// The function usually only starts an asynchronous fetch, so invocations may
// overlap. The Loop does not queue them and whichever response is applied
// last wins.
type Loop struct {
	name   string
	engine timing.Engine
	logger *log.Logger

	lock       sync.Mutex
	generation uint64
	running    bool
	interval   timing.VTimeInSec
	fn         func() error
	cycles     uint64
	failures   uint64
}

// NewLoop creates a stopped Loop.
func NewLoop(name string, engine timing.Engine, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.Default()
	}

	return &Loop{
		name:   name,
		engine: engine,
		logger: logger,
	}
}

// Name returns the name of the loop.
func (l *Loop) Name() string {
	return l.name
}

// Start begins polling. The first cycle runs at the current time of the
// engine. Starting a running loop restarts it with the new interval and
// function.
func (l *Loop) Start(interval timing.VTimeInSec, fn func() error) {
	if interval <= 0 {
		log.Panicf("poll loop %s: interval must be positive", l.name)
	}

	l.lock.Lock()
	l.generation++
	generation := l.generation
	l.running = true
	l.interval = interval
	l.fn = fn
	l.lock.Unlock()

	l.scheduleCycle(generation, l.engine.CurrentTime())
}

func (l *Loop) scheduleCycle(generation uint64, at timing.VTimeInSec) {
	l.engine.Schedule(timing.NewCallbackEvent(at, func() {
		l.cycle(generation)
	}))
}

func (l *Loop) cycle(generation uint64) {
	l.lock.Lock()
	if !l.running || generation != l.generation {
		l.lock.Unlock()
		return
	}
	fn := l.fn
	interval := l.interval
	l.cycles++
	l.lock.Unlock()

	// The next cycle is armed before running fn so that a panicking fn
	// cannot stop the loop.
	l.scheduleCycle(generation, l.engine.CurrentTime()+interval)

	if err := l.invoke(fn); err != nil {
		l.lock.Lock()
		l.failures++
		l.lock.Unlock()

		l.logger.Printf("%s: poll failed: %v", l.name, err)
	}
}

func (l *Loop) invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn()
}

// Cancel stops the loop. Called on the event loop, no cycle starts after
// Cancel returns. Called from another goroutine, a cycle that has already
// passed its check may still run fn once. Cancel is idempotent.
func (l *Loop) Cancel() {
	l.lock.Lock()
	defer l.lock.Unlock()

	if !l.running {
		return
	}

	l.running = false
	l.generation++
	l.fn = nil
}

// Running tells if the loop has been started and not cancelled.
func (l *Loop) Running() bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.running
}

// Cycles returns the number of cycles run so far.
func (l *Loop) Cycles() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.cycles
}

// Failures returns the number of cycles that returned an error or panicked.
func (l *Loop) Failures() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.failures
}
