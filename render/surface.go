// Package render defines the drawing surface the widgets render on and
// provides an in-memory scene graph that implements it.
package render

import "github.com/sarchlab/telepanel/timing"

// Handle identifies a shape or a group on a Surface.
type Handle string

// Kind is the kind of a shape.
type Kind string

// Shape kinds.
const (
	KindRect    Kind = "rect"
	KindCircle  Kind = "circle"
	KindText    Kind = "text"
	KindPolygon Kind = "polygon"
	KindLine    Kind = "line"
	KindGroup   Kind = "group"
)

// Geometry places a shape. Zero fields are left out of the shape's
// properties, except Left and Top.
type Geometry struct {
	Left, Top     float64
	Width, Height float64
	Radius        float64
	Points        [][2]float64
}

// Style holds presentation properties such as "fill" or "text".
type Style map[string]any

// EventKind names a pointer or editing event.
type EventKind string

// Event kinds dispatched by surfaces.
const (
	MouseDown     EventKind = "mousedown"
	MouseUp       EventKind = "mouseup"
	MouseMove     EventKind = "mousemove"
	DoubleClick   EventKind = "mousedblclick"
	EditingExited EventKind = "editing:exited"
	TextChanged   EventKind = "text:changed"
)

// PointerEvent is delivered to listeners.
type PointerEvent struct {
	Kind   EventKind
	Target Handle
	X, Y   float64

	// Text carries the edited text of editing events.
	Text string
}

// A Listener receives events.
type Listener func(e PointerEvent)

// Surface is the rendering collaborator the widgets draw through. The
// widgets never draw pixels themselves.
type Surface interface {
	CreateShape(kind Kind, geometry Geometry, style Style) Handle
	Group(handles ...Handle) Handle
	Remove(h Handle)

	On(h Handle, kind EventKind, cb Listener)
	Off(h Handle, kind EventKind)

	SetProperty(h Handle, key string, value any)
	Property(h Handle, key string) (any, bool)
	RequestRedraw()

	// Detach takes a shape out of its group and puts it on the top level at
	// the same absolute position.
	Detach(h Handle)

	// Attach puts a detached shape back into group at the group-relative
	// offset it had when detached, and recomputes the group bounds.
	Attach(h Handle, group Handle)

	BringToFront(h Handle)

	Animate(
		h Handle,
		property string,
		from, to float64,
		duration timing.VTimeInSec,
		easing func(float64) float64,
		onChange func(float64),
		onComplete func(),
	) error

	// StopAnimation retires the transition running on property of h. It
	// returns false if there is none.
	StopAnimation(h Handle, property string) bool
}

// A Tweener runs numeric transitions for a Surface.
type Tweener interface {
	Tween(
		target string,
		from, to float64,
		duration timing.VTimeInSec,
		easing func(float64) float64,
		onChange func(float64),
		onComplete func(),
	) error

	CancelTarget(target string) bool
}

// Number reads a numeric property of a shape, returning 0 if it is unset or
// not a number.
func Number(s Surface, h Handle, key string) float64 {
	v, ok := s.Property(h, key)
	if !ok {
		return 0
	}

	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// String reads a string property of a shape.
func String(s Surface, h Handle, key string) string {
	v, _ := s.Property(h, key)
	str, _ := v.(string)

	return str
}
