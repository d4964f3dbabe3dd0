// Package widget implements the panel widgets. Every widget reconciles the
// state it polls from the telemetry service with local transient state
// (edits, animations, debounce) and reflects the result on a render.Surface.
//
// All widget callbacks run on the event loop of a timing.Engine. Blocking
// requests run through a timing.Async and resume on the loop.
package widget

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/sarchlab/telepanel/poll"
	"github.com/sarchlab/telepanel/render"
	"github.com/sarchlab/telepanel/timing"
)

// A Widget is a live controller on a surface.
type Widget interface {
	Name() string
	Kind() string
	Alive() bool
	Destroy()
}

type binding struct {
	handle render.Handle
	kind   render.EventKind
}

type animation struct {
	handle   render.Handle
	property string
}

// Base owns the resources every widget acquires: the poll loop, one-shot
// timers, pointer listeners, animations, and top-level shapes. Destroy releases all of
// them. Callbacks registered through Base do nothing once the widget is
// destroyed.
type Base struct {
	name    string
	kind    string
	engine  timing.Engine
	surface render.Surface
	async   timing.Async
	logger  *log.Logger
	debug   *log.Logger
	clock   func() time.Time
	loc     *time.Location

	ctx    context.Context
	cancel context.CancelFunc
	loop   *poll.Loop

	lock     sync.Mutex
	alive    bool
	timers   []*timing.Timer
	bindings []binding
	anims    []animation
	shapes   []render.Handle
	inFlight int
}

func newBase(kind, name string, env environment) *Base {
	ctx, cancel := context.WithCancel(context.Background())

	debug := env.debug
	if debug == nil {
		debug = log.New(io.Discard, "", 0)
	}

	return &Base{
		name:    name,
		kind:    kind,
		engine:  env.engine,
		surface: env.surface,
		async:   env.async,
		logger:  env.logger,
		debug:   debug,
		clock:   env.clock,
		loc:     env.loc,
		ctx:     ctx,
		cancel:  cancel,
		loop:    poll.NewLoop(name, env.engine, env.logger),
		alive:   true,
	}
}

// Name returns the name of the widget.
func (b *Base) Name() string {
	return b.name
}

// Kind returns the kind of the widget, for example "elevator".
func (b *Base) Kind() string {
	return b.kind
}

// Alive tells if the widget has not been destroyed.
func (b *Base) Alive() bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.alive
}

// Loop returns the poll loop of the widget.
func (b *Base) Loop() *poll.Loop {
	return b.loop
}

// InFlight returns the number of requests that have not completed.
func (b *Base) InFlight() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.inFlight
}

func (b *Base) logf(format string, args ...any) {
	b.logger.Printf("%s: %s", b.name, fmt.Sprintf(format, args...))
}

func (b *Base) debugf(format string, args ...any) {
	b.debug.Printf("%s: %s", b.name, fmt.Sprintf(format, args...))
}

// own records a top-level shape to remove on Destroy.
func (b *Base) own(h render.Handle) render.Handle {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.shapes = append(b.shapes, h)

	return h
}

// listen registers cb for kind on h, replacing whatever this widget had
// registered there before.
func (b *Base) listen(h render.Handle, kind render.EventKind, cb render.Listener) {
	b.lock.Lock()
	if !b.alive {
		b.lock.Unlock()
		return
	}

	found := false
	for _, bd := range b.bindings {
		if bd.handle == h && bd.kind == kind {
			found = true
			break
		}
	}

	if !found {
		b.bindings = append(b.bindings, binding{handle: h, kind: kind})
	}
	b.lock.Unlock()

	b.surface.Off(h, kind)
	b.surface.On(h, kind, func(e render.PointerEvent) {
		if !b.Alive() {
			return
		}

		cb(e)
	})
}

// unlisten removes the listener for kind on h.
func (b *Base) unlisten(h render.Handle, kind render.EventKind) {
	b.lock.Lock()
	for i, bd := range b.bindings {
		if bd.handle == h && bd.kind == kind {
			b.bindings = append(b.bindings[:i], b.bindings[i+1:]...)
			break
		}
	}
	b.lock.Unlock()

	b.surface.Off(h, kind)
}

// after runs fn on the loop after delay, unless the widget is destroyed
// first.
func (b *Base) after(delay timing.VTimeInSec, fn func()) *timing.Timer {
	t := timing.NewTimer(b.engine)

	b.lock.Lock()
	if !b.alive {
		b.lock.Unlock()
		return t
	}
	b.pruneTimers()
	b.timers = append(b.timers, t)
	b.lock.Unlock()

	t.Reset(delay, func() {
		if !b.Alive() {
			return
		}

		b.guard("timer", fn)
	})

	return t
}

func (b *Base) pruneTimers() {
	live := b.timers[:0]
	for _, t := range b.timers {
		if t.Pending() {
			live = append(live, t)
		}
	}
	b.timers = live
}

// request runs work off the loop and done back on it. done is skipped if the
// widget was destroyed meanwhile.
func (b *Base) request(work func(ctx context.Context), done func()) {
	b.lock.Lock()
	if !b.alive {
		b.lock.Unlock()
		return
	}
	b.inFlight++
	b.lock.Unlock()

	ctx := b.ctx

	b.async.Go(
		func() { work(ctx) },
		func() {
			b.lock.Lock()
			b.inFlight--
			alive := b.alive
			b.lock.Unlock()

			if !alive || done == nil {
				return
			}

			b.guard("request", done)
		},
	)
}

// guard runs fn and logs a panic instead of letting it unwind the loop.
func (b *Base) guard(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logf("%s callback failed: %v", what, r)
		}
	}()

	fn()
}

// animate runs a property transition that Destroy retires. The callbacks
// are skipped once the widget is destroyed.
func (b *Base) animate(
	h render.Handle,
	property string,
	from, to float64,
	duration timing.VTimeInSec,
	easing func(float64) float64,
	onChange func(float64),
	onComplete func(),
) error {
	b.lock.Lock()
	if !b.alive {
		b.lock.Unlock()
		return nil
	}

	found := false
	for _, a := range b.anims {
		if a.handle == h && a.property == property {
			found = true
			break
		}
	}

	if !found {
		b.anims = append(b.anims, animation{handle: h, property: property})
	}
	b.lock.Unlock()

	change := func(v float64) {
		if onChange != nil && b.Alive() {
			onChange(v)
		}
	}

	complete := func() {
		if onComplete != nil && b.Alive() {
			b.guard("animation", onComplete)
		}
	}

	return b.surface.Animate(h, property, from, to, duration, easing,
		change, complete)
}

// redraw asks the surface to redraw.
func (b *Base) redraw() {
	b.surface.RequestRedraw()
}

// Destroy stops the poll loop, the timers, and the animations, detaches the
// listeners, cancels outstanding requests, and removes the shapes. Calling Destroy
// again does nothing.
func (b *Base) Destroy() {
	b.lock.Lock()
	if !b.alive {
		b.lock.Unlock()
		return
	}

	b.alive = false
	timers := b.timers
	bindings := b.bindings
	anims := b.anims
	shapes := b.shapes
	b.timers = nil
	b.bindings = nil
	b.anims = nil
	b.shapes = nil
	b.lock.Unlock()

	b.loop.Cancel()
	b.cancel()

	for _, t := range timers {
		t.Stop()
	}

	for _, a := range anims {
		b.surface.StopAnimation(a.handle, a.property)
	}

	for _, bd := range bindings {
		b.surface.Off(bd.handle, bd.kind)
	}

	for _, h := range shapes {
		b.surface.Remove(h)
	}

	b.redraw()
}

// LiveTimers returns the number of armed timers. It is zero after Destroy.
func (b *Base) LiveTimers() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	n := 0
	for _, t := range b.timers {
		if t.Pending() {
			n++
		}
	}

	return n
}
