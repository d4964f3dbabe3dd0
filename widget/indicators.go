package widget

import (
	"context"
	"math"

	"github.com/sarchlab/telepanel/poll"
	"github.com/sarchlab/telepanel/remote"
	"github.com/sarchlab/telepanel/render"
	"github.com/sarchlab/telepanel/timing"
)

// Poll intervals of the simple indicators.
const (
	IndicatorInterval timing.VTimeInSec = 3
	displayDigits                       = 6
)

func fetchNumber(c remote.Channel) func(context.Context) (float64, error) {
	return func(ctx context.Context) (float64, error) {
		v, err := c.Fetch(ctx)
		if err != nil {
			return 0, err
		}

		n, ok := v.Number()
		if !ok {
			return 0, remote.ErrMalformedPayload
		}

		return n, nil
	}
}

func fetchFlag(c remote.Channel) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		v, err := c.Fetch(ctx)
		if err != nil {
			return false, err
		}

		b, ok := v.Bool()
		if !ok {
			return false, remote.ErrMalformedPayload
		}

		return b, nil
	}
}

// NumberDisplay shows the first six characters of the shared value.
type NumberDisplay struct {
	*Base
	*Reconciler[float64]

	group render.Handle
	text  render.Handle
	shown string
}

func newNumberDisplay(
	name string,
	env environment,
	at Point,
	channel remote.Channel,
) *NumberDisplay {
	d := &NumberDisplay{Base: newBase("number-display", name, env)}

	s := env.surface
	bg := s.CreateShape(render.KindRect,
		render.Geometry{Left: at.X, Top: at.Y, Width: 160, Height: 50},
		render.Style{"fill": "#111", "stroke": "#00ffcc"})
	d.text = s.CreateShape(render.KindText,
		render.Geometry{Left: at.X + 80, Top: at.Y + 25},
		render.Style{"text": "000000", "fill": "#00ffcc"})
	d.group = d.own(s.Group(bg, d.text))
	d.shown = "000000"

	d.Reconciler = newReconciler(d.Base, Capabilities[float64]{
		FetchState: fetchNumber(channel),
		ApplyState: func(v float64) bool {
			text := poll.FormatValue(v)
			if len(text) > displayDigits {
				text = text[:displayDigits]
			}

			d.shown = text

			return true
		},
		RenderState: func() {
			s.SetProperty(d.text, "text", d.shown)
		},
	})
	d.Start(IndicatorInterval)

	return d
}

// Text returns the displayed text.
func (d *NumberDisplay) Text() string {
	return d.shown
}

// Lamp colors.
const (
	lampOn  = "#00ff00"
	lampOff = "rgba(0,0,0,0.4)"
)

// StatusLamp lights up while the status indicator flag is set.
type StatusLamp struct {
	*Base
	*Reconciler[bool]

	lamp render.Handle
	on   bool
}

func newStatusLamp(
	name string,
	env environment,
	at Point,
	channel remote.Channel,
) *StatusLamp {
	l := &StatusLamp{Base: newBase("status-lamp", name, env)}

	s := env.surface
	housing := s.CreateShape(render.KindRect,
		render.Geometry{Left: at.X, Top: at.Y, Width: 60, Height: 60},
		render.Style{"fill": "rgba(30,30,30,0.9)"})
	l.lamp = s.CreateShape(render.KindCircle,
		render.Geometry{Left: at.X + 10, Top: at.Y + 10, Radius: 20},
		render.Style{"fill": lampOff})
	l.own(s.Group(housing, l.lamp))

	l.Reconciler = newReconciler(l.Base, Capabilities[bool]{
		FetchState: fetchFlag(channel),
		ApplyState: func(on bool) bool {
			l.on = on
			return true
		},
		RenderState: func() {
			fill := lampOff
			if l.on {
				fill = lampOn
			}

			s.SetProperty(l.lamp, "fill", fill)
		},
	})
	l.Start(IndicatorInterval)

	return l
}

// On tells if the lamp is lit.
func (l *StatusLamp) On() bool {
	return l.on
}

// Texts of the system status.
const (
	RunningText = "RUNNING"
	StandbyText = "STANDBY"
)

// SystemStatusText shows whether the system is running.
type SystemStatusText struct {
	*Base
	*Reconciler[bool]

	text    render.Handle
	running bool
}

func newSystemStatusText(
	name string,
	env environment,
	at Point,
	channel remote.Channel,
) *SystemStatusText {
	t := &SystemStatusText{Base: newBase("system-status", name, env)}

	s := env.surface
	bg := s.CreateShape(render.KindRect,
		render.Geometry{Left: at.X, Top: at.Y, Width: 200, Height: 50},
		render.Style{"fill": "#111"})
	t.text = s.CreateShape(render.KindText,
		render.Geometry{Left: at.X + 100, Top: at.Y + 25},
		render.Style{"text": StandbyText, "fill": "#ff0000"})
	t.own(s.Group(bg, t.text))

	t.Reconciler = newReconciler(t.Base, Capabilities[bool]{
		FetchState: fetchFlag(channel),
		ApplyState: func(running bool) bool {
			t.running = running
			return true
		},
		RenderState: func() {
			if t.running {
				s.SetProperty(t.text, "text", RunningText)
				s.SetProperty(t.text, "fill", "#00ff00")

				return
			}

			s.SetProperty(t.text, "text", StandbyText)
			s.SetProperty(t.text, "fill", "#ff0000")
		},
	})
	t.Start(IndicatorInterval)

	return t
}

// Running tells what the widget currently shows.
func (t *SystemStatusText) Running() bool {
	return t.running
}

// LevelIndicator is a vertical bar of the shared value. Dragging its slider
// sets the value.
type LevelIndicator struct {
	*Base
	*Reconciler[float64]

	channel  remote.Channel
	min, max float64
	height   float64

	group    render.Handle
	bar      render.Handle
	slider   render.Handle
	value    float64
	dragging bool
	pushes   int
}

const levelHeight = 200

func newLevelIndicator(
	name string,
	env environment,
	at Point,
	channel remote.Channel,
	min, max float64,
) *LevelIndicator {
	if max <= min {
		panic("widget: level indicator range is empty")
	}

	l := &LevelIndicator{
		Base:    newBase("level-indicator", name, env),
		channel: channel,
		min:     min,
		max:     max,
		height:  levelHeight,
		value:   min,
	}

	s := env.surface
	bg := s.CreateShape(render.KindRect,
		render.Geometry{Left: at.X, Top: at.Y, Width: 40, Height: levelHeight},
		render.Style{"fill": "#111", "stroke": "#00ffcc"})
	l.bar = s.CreateShape(render.KindRect,
		render.Geometry{Left: at.X + 5, Top: at.Y, Width: 30},
		render.Style{"fill": "#00ffcc", "height": 0.0})
	l.slider = s.CreateShape(render.KindRect,
		render.Geometry{Left: at.X - 5, Top: at.Y + levelHeight, Width: 50, Height: 6},
		render.Style{"fill": "#ffffff"})
	l.group = l.own(s.Group(bg, l.bar, l.slider))

	l.listen(l.slider, render.MouseDown, func(render.PointerEvent) {
		l.dragging = true
	})
	l.listen(l.slider, render.MouseMove, func(e render.PointerEvent) {
		if l.dragging {
			l.Drag(e.Y)
		}
	})
	l.listen(l.slider, render.MouseUp, func(render.PointerEvent) {
		l.dragging = false
	})

	l.Reconciler = newReconciler(l.Base, Capabilities[float64]{
		FetchState: fetchNumber(channel),
		ApplyState: func(v float64) bool {
			if l.dragging {
				return false
			}

			l.value = l.clamp(v)

			return true
		},
		RenderState: l.render,
	})
	l.render()
	l.Start(IndicatorInterval)

	return l
}

func (l *LevelIndicator) clamp(v float64) float64 {
	return math.Max(l.min, math.Min(l.max, v))
}

func (l *LevelIndicator) render() {
	s := l.surface
	barHeight := l.height * (l.value - l.min) / (l.max - l.min)

	s.SetProperty(l.bar, "height", barHeight)
	s.SetProperty(l.bar, "top", l.height-barHeight)
	s.SetProperty(l.slider, "top", l.height-barHeight)
}

// Drag moves the slider to the absolute pointer position y, updates the bar,
// and pushes the new value.
func (l *LevelIndicator) Drag(y float64) {
	top := render.Number(l.surface, l.group, "top")
	rel := math.Max(0, math.Min(l.height, y-top))

	l.value = l.max - rel/l.height*(l.max-l.min)
	l.render()
	l.redraw()

	v := l.value
	l.pushes++
	l.request(
		func(ctx context.Context) {
			if err := l.channel.Push(ctx, v); err != nil {
				l.logf("push failed: %v", err)
			}
		},
		nil,
	)
}

// Value returns the displayed value.
func (l *LevelIndicator) Value() float64 {
	return l.value
}

// Pushes returns the number of values pushed by dragging.
func (l *LevelIndicator) Pushes() int {
	return l.pushes
}

// Dragging tells if the slider is held.
func (l *LevelIndicator) Dragging() bool {
	return l.dragging
}
