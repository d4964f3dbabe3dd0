package timing

// Async runs blocking work away from the event loop and delivers its
// completion back onto the loop. Work must not touch widget state; done runs
// on the loop and may.
type Async interface {
	Go(work func(), done func())
}

// GoroutineAsync runs work on a new goroutine and schedules done on the
// engine as soon as work returns.
type GoroutineAsync struct {
	Engine Engine
}

// NewGoroutineAsync creates a GoroutineAsync for the engine.
func NewGoroutineAsync(engine Engine) *GoroutineAsync {
	return &GoroutineAsync{Engine: engine}
}

// Go starts work in the background.
func (a *GoroutineAsync) Go(work func(), done func()) {
	go func() {
		work()
		a.Engine.Schedule(NewCallbackEvent(a.Engine.CurrentTime(), done))
	}()
}

// InlineAsync runs work immediately on the caller and schedules done after a
// fixed latency. With a SerialEngine it gives fully reproducible request
// timing.
type InlineAsync struct {
	Engine  Engine
	Latency VTimeInSec
}

// NewInlineAsync creates an InlineAsync.
func NewInlineAsync(engine Engine, latency VTimeInSec) *InlineAsync {
	return &InlineAsync{Engine: engine, Latency: latency}
}

// Go runs work and schedules done.
func (a *InlineAsync) Go(work func(), done func()) {
	work()
	a.Engine.Schedule(
		NewCallbackEvent(a.Engine.CurrentTime()+a.Latency, done))
}
