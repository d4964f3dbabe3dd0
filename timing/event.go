package timing

import "time"

// VTimeInSec defines the time in the unit of second.
//
// In a SerialEngine the time is virtual. In a RealTimeEngine it is the
// wall-clock time elapsed since the engine was created.
type VTimeInSec float64

// FromDuration converts a time.Duration to a VTimeInSec.
func FromDuration(d time.Duration) VTimeInSec {
	return VTimeInSec(d.Seconds())
}

// Duration converts the time to a time.Duration.
func (t VTimeInSec) Duration() time.Duration {
	return time.Duration(float64(t) * float64(time.Second))
}

// An Event is something going to happen in the future.
type Event interface {
	// Return the time that the event should happen
	Time() VTimeInSec

	// Returns the handler that can should handle the event
	Handler() Handler

	// IsSecondary tells if the event is a secondary event. Secondary event are
	// handled after all same-time primary events are handled.
	IsSecondary() bool
}

// EventBase provides the basic fields and getters for other events
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// NewEventBase creates a new EventBase
func NewEventBase(t VTimeInSec, handler Handler) *EventBase {
	e := new(EventBase)
	e.ID = GetIDGenerator().Generate()
	e.time = t
	e.handler = handler
	e.secondary = false
	return e
}

// Time return the time that the event is going to happen
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// A Handler defines a domain for the events.
//
// One event is always constraint to one Handler, which means the event can
// only be scheduled by one handler and can only directly modify that handler.
type Handler interface {
	Handle(e Event) error
}

// A CallbackEvent runs a function when it is handled. Timers, fetch
// completions, and other one-off continuations are delivered to the event
// loop as CallbackEvents.
type CallbackEvent struct {
	*EventBase

	Fn func()
}

// NewCallbackEvent creates a CallbackEvent that runs fn at time t.
func NewCallbackEvent(t VTimeInSec, fn func()) *CallbackEvent {
	evt := &CallbackEvent{Fn: fn}
	evt.EventBase = NewEventBase(t, callbackHandler{})

	return evt
}

type callbackHandler struct{}

func (callbackHandler) Handle(e Event) error {
	evt := e.(*CallbackEvent)
	if evt.Fn != nil {
		evt.Fn()
	}

	return nil
}
