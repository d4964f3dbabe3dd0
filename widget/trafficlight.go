package widget

import (
	"log"
	"sync"

	"github.com/sarchlab/telepanel/registry"
	"github.com/sarchlab/telepanel/render"
	"github.com/sarchlab/telepanel/timing"
)

// Color is a traffic light color.
type Color string

// Traffic light colors.
const (
	Red    Color = "red"
	Yellow Color = "yellow"
	Green  Color = "green"
)

var dimColors = map[Color]string{
	Red:    "#330000",
	Yellow: "#333300",
	Green:  "#003300",
}

// Cycle timing of the traffic lights.
const (
	AmberDelay timing.VTimeInSec = 8
	FinalDelay timing.VTimeInSec = 2
)

// A TrafficCoordinator runs the shared cycle of a set of traffic lights.
//
// A press on one light starts a cycle: every button stops listening, after
// AmberDelay all lights show yellow (lit only on the pressed one), and after
// a further FinalDelay the pressed light turns green and all others red. The
// buttons listen again once the cycle is over. Only one cycle runs at a
// time.
type TrafficCoordinator struct {
	engine   timing.Engine
	registry *registry.Registry
	logger   *log.Logger

	lock   sync.Mutex
	timers []*timing.Timer
}

// NewTrafficCoordinator creates a coordinator whose lights live in reg.
func NewTrafficCoordinator(
	engine timing.Engine,
	reg *registry.Registry,
	logger *log.Logger,
) *TrafficCoordinator {
	if logger == nil {
		logger = log.Default()
	}

	return &TrafficCoordinator{
		engine:   engine,
		registry: reg,
		logger:   logger,
	}
}

// Registry returns the registry of live lights.
func (c *TrafficCoordinator) Registry() *registry.Registry {
	return c.registry
}

func (c *TrafficCoordinator) lights() []*TrafficLight {
	members := c.registry.Members()
	lights := make([]*TrafficLight, 0, len(members))

	for _, m := range members {
		if l, ok := m.(*TrafficLight); ok {
			lights = append(lights, l)
		}
	}

	return lights
}

// Start begins a cycle initiated by light. It returns
// registry.ErrCycleInFlight if a cycle is running.
func (c *TrafficCoordinator) Start(light *TrafficLight) error {
	token, err := c.registry.BeginCycle(light, c.engine.CurrentTime())
	if err != nil {
		return err
	}

	for _, l := range c.lights() {
		l.disarm()
	}

	c.schedule(AmberDelay, func() {
		for _, l := range c.lights() {
			l.SetLight(Yellow, l == light)
		}

		c.schedule(FinalDelay, func() {
			for _, l := range c.lights() {
				if l == light {
					l.SetLight(Green, true)
				} else {
					l.SetLight(Red, true)
				}
			}

			c.registry.EndCycle(token)

			for _, l := range c.lights() {
				l.arm()
			}
		})
	})

	return nil
}

func (c *TrafficCoordinator) schedule(delay timing.VTimeInSec, fn func()) {
	t := timing.After(c.engine, delay, fn)

	c.lock.Lock()
	defer c.lock.Unlock()

	live := c.timers[:0]
	for _, old := range c.timers {
		if old.Pending() {
			live = append(live, old)
		}
	}
	c.timers = append(live, t)
}

// Stop abandons the cycle in flight, if any, and re-arms every light.
func (c *TrafficCoordinator) Stop() {
	c.lock.Lock()
	timers := c.timers
	c.timers = nil
	c.lock.Unlock()

	for _, t := range timers {
		t.Stop()
	}

	if token := c.registry.InFlight(); token != nil {
		c.registry.EndCycle(token)
	}

	for _, l := range c.lights() {
		l.arm()
	}
}

// TrafficLight is one light of a coordinated set.
type TrafficLight struct {
	*Base

	coordinator *TrafficCoordinator

	group  render.Handle
	button render.Handle
	bulbs  map[Color]render.Handle

	color  Color
	active bool
}

func newTrafficLight(
	name string,
	env environment,
	at Point,
	coordinator *TrafficCoordinator,
) *TrafficLight {
	t := &TrafficLight{
		Base:        newBase("traffic-light", name, env),
		coordinator: coordinator,
		bulbs:       make(map[Color]render.Handle),
	}

	s := env.surface
	shapes := []render.Handle{
		s.CreateShape(render.KindRect,
			render.Geometry{Left: at.X, Top: at.Y + 100, Width: 10, Height: 120},
			render.Style{"fill": "#333"}),
		s.CreateShape(render.KindRect,
			render.Geometry{Left: at.X - 20, Top: at.Y, Width: 50, Height: 100},
			render.Style{"fill": "#111"}),
	}

	for i, color := range []Color{Red, Yellow, Green} {
		bulb := s.CreateShape(render.KindCircle,
			render.Geometry{Left: at.X - 7, Top: at.Y + 8 + float64(i)*30, Radius: 12},
			render.Style{"fill": dimColors[color]})
		t.bulbs[color] = bulb
		shapes = append(shapes, bulb)
	}

	t.button = s.CreateShape(render.KindCircle,
		render.Geometry{Left: at.X - 5, Top: at.Y + 140, Radius: 10},
		render.Style{"fill": "#222", "stroke": "rgba(0,255,255,0.8)"})
	shapes = append(shapes, t.button)

	t.group = t.own(s.Group(shapes...))

	t.SetLight(Red, true)
	coordinator.registry.Join(t)

	if coordinator.registry.InFlight() == nil {
		t.arm()
	}

	return t
}

// SetLight shows color, lit if active and dimmed otherwise. The other bulbs
// are dimmed.
func (t *TrafficLight) SetLight(color Color, active bool) {
	for c, bulb := range t.bulbs {
		fill := dimColors[c]
		if c == color && active {
			fill = string(c)
		}

		t.surface.SetProperty(bulb, "fill", fill)
	}

	t.color = color
	t.active = active
	t.redraw()
}

// Shown returns the color shown and whether it is lit.
func (t *TrafficLight) Shown() (Color, bool) {
	return t.color, t.active
}

// Press starts a cycle from this light.
func (t *TrafficLight) Press() error {
	return t.coordinator.Start(t)
}

// Armed tells if the button listens for presses.
func (t *TrafficLight) Armed() bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	for _, bd := range t.bindings {
		if bd.handle == t.button && bd.kind == render.MouseDown {
			return true
		}
	}

	return false
}

// Button returns the handle of the button.
func (t *TrafficLight) Button() render.Handle {
	return t.button
}

func (t *TrafficLight) arm() {
	t.listen(t.button, render.MouseDown, func(render.PointerEvent) {
		if err := t.Press(); err != nil {
			t.debugf("press ignored: %v", err)
		}
	})
}

func (t *TrafficLight) disarm() {
	t.unlisten(t.button, render.MouseDown)
}

// Destroy leaves the coordinated set and releases the light.
func (t *TrafficLight) Destroy() {
	t.coordinator.registry.Leave(t)
	t.Base.Destroy()
}
