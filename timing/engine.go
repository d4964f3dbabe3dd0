package timing

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	Schedule(e Event)
}

// An Engine is the cooperative event loop that every widget runs on. All the
// events are handled one after another, so handlers never run concurrently.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run processes events until the engine has nothing left to do.
	Run() error

	// Pause will pause the engine until continue is called.
	Pause()

	// Continue will continue the paused engine.
	Continue()
}
