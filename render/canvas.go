package render

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/sarchlab/telepanel/timing"
)

type shape struct {
	id       Handle
	kind     Kind
	parent   Handle
	children []Handle
	props    map[string]any

	listeners map[EventKind][]Listener

	// offset is the group-relative position a detached shape returns to.
	detachedFrom Handle
	offsetLeft   float64
	offsetTop    float64
}

// Canvas is an in-memory Surface. It keeps a scene graph of shapes, groups,
// stacking order, listeners, and properties. Positions of grouped shapes are
// stored relative to their group.
type Canvas struct {
	lock    sync.Mutex
	tweener Tweener

	nextID  int
	shapes  map[Handle]*shape
	order   []Handle
	redraws uint64
}

// NewCanvas creates an empty Canvas. Animations run on tweener; with a nil
// tweener they jump to their end value.
func NewCanvas(tweener Tweener) *Canvas {
	return &Canvas{
		tweener: tweener,
		shapes:  make(map[Handle]*shape),
	}
}

// CreateShape adds a shape to the top level.
func (c *Canvas) CreateShape(kind Kind, geometry Geometry, style Style) Handle {
	c.lock.Lock()
	defer c.lock.Unlock()

	s := c.newShape(kind)
	s.props["left"] = geometry.Left
	s.props["top"] = geometry.Top

	if geometry.Width != 0 {
		s.props["width"] = geometry.Width
	}

	if geometry.Height != 0 {
		s.props["height"] = geometry.Height
	}

	if geometry.Radius != 0 {
		s.props["radius"] = geometry.Radius
	}

	if len(geometry.Points) > 0 {
		s.props["points"] = geometry.Points
	}

	for k, v := range style {
		s.props[k] = v
	}

	c.order = append(c.order, s.id)

	return s.id
}

func (c *Canvas) newShape(kind Kind) *shape {
	c.nextID++
	s := &shape{
		id:        Handle(fmt.Sprintf("%s-%d", kind, c.nextID)),
		kind:      kind,
		props:     make(map[string]any),
		listeners: make(map[EventKind][]Listener),
	}
	c.shapes[s.id] = s

	return s
}

// Group moves top-level shapes into a new group placed at their common
// top-left corner.
func (c *Canvas) Group(handles ...Handle) Handle {
	c.lock.Lock()
	defer c.lock.Unlock()

	g := c.newShape(KindGroup)

	left, top := math.Inf(1), math.Inf(1)
	for _, h := range handles {
		s, ok := c.shapes[h]
		if !ok {
			continue
		}

		left = math.Min(left, num(s.props["left"]))
		top = math.Min(top, num(s.props["top"]))
	}

	if math.IsInf(left, 1) {
		left, top = 0, 0
	}

	g.props["left"] = left
	g.props["top"] = top

	for _, h := range handles {
		s, ok := c.shapes[h]
		if !ok {
			continue
		}

		c.unstack(h)
		s.parent = g.id
		s.props["left"] = num(s.props["left"]) - left
		s.props["top"] = num(s.props["top"]) - top
		g.children = append(g.children, h)
	}

	c.updateBounds(g)
	c.order = append(c.order, g.id)

	return g.id
}

func (c *Canvas) updateBounds(g *shape) {
	width, height := 0.0, 0.0

	for _, h := range g.children {
		s := c.shapes[h]
		width = math.Max(width, num(s.props["left"])+extentX(s))
		height = math.Max(height, num(s.props["top"])+extentY(s))
	}

	g.props["width"] = width
	g.props["height"] = height
}

func extentX(s *shape) float64 {
	if r := num(s.props["radius"]); r != 0 {
		return 2 * r
	}

	return num(s.props["width"])
}

func extentY(s *shape) float64 {
	if r := num(s.props["radius"]); r != 0 {
		return 2 * r
	}

	return num(s.props["height"])
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func (c *Canvas) unstack(h Handle) {
	for i, id := range c.order {
		if id == h {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *Canvas) unparent(s *shape) {
	p, ok := c.shapes[s.parent]
	if !ok {
		return
	}

	for i, h := range p.children {
		if h == s.id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}

	s.parent = ""
}

// Remove deletes a shape together with its children and listeners.
func (c *Canvas) Remove(h Handle) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.remove(h)
}

func (c *Canvas) remove(h Handle) {
	s, ok := c.shapes[h]
	if !ok {
		return
	}

	for _, child := range append([]Handle(nil), s.children...) {
		c.remove(child)
	}

	c.unparent(s)
	c.unstack(h)
	delete(c.shapes, h)
}

// On adds a listener. Registering twice delivers twice; callers that rebind
// call Off first.
func (c *Canvas) On(h Handle, kind EventKind, cb Listener) {
	c.lock.Lock()
	defer c.lock.Unlock()

	s, ok := c.shapes[h]
	if !ok {
		return
	}

	s.listeners[kind] = append(s.listeners[kind], cb)
}

// Off removes every listener of kind from h.
func (c *Canvas) Off(h Handle, kind EventKind) {
	c.lock.Lock()
	defer c.lock.Unlock()

	s, ok := c.shapes[h]
	if !ok {
		return
	}

	delete(s.listeners, kind)
}

// ListenerCount returns the number of listeners of kind on h.
func (c *Canvas) ListenerCount(h Handle, kind EventKind) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	s, ok := c.shapes[h]
	if !ok {
		return 0
	}

	return len(s.listeners[kind])
}

// Dispatch delivers an event to the listeners of its target. Events a
// shape does not listen to bubble up to its group. It returns false if no
// listener received the event.
func (c *Canvas) Dispatch(e PointerEvent) bool {
	c.lock.Lock()

	var listeners []Listener

	h := e.Target
	for h != "" {
		s, ok := c.shapes[h]
		if !ok {
			break
		}

		if ls := s.listeners[e.Kind]; len(ls) > 0 {
			listeners = append(listeners, ls...)
			break
		}

		h = s.parent
	}

	c.lock.Unlock()

	for _, l := range listeners {
		l(e)
	}

	return len(listeners) > 0
}

// SetProperty sets a property. Unknown handles are ignored.
func (c *Canvas) SetProperty(h Handle, key string, value any) {
	c.lock.Lock()
	defer c.lock.Unlock()

	s, ok := c.shapes[h]
	if !ok {
		return
	}

	s.props[key] = value
}

// Property reads a property.
func (c *Canvas) Property(h Handle, key string) (any, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	s, ok := c.shapes[h]
	if !ok {
		return nil, false
	}

	v, ok := s.props[key]

	return v, ok
}

// RequestRedraw counts redraw requests.
func (c *Canvas) RequestRedraw() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.redraws++
}

// Redraws returns the number of redraw requests.
func (c *Canvas) Redraws() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.redraws
}

// Detach moves a grouped shape to the top level, keeping its absolute
// position. Top-level shapes are left alone.
func (c *Canvas) Detach(h Handle) {
	c.lock.Lock()
	defer c.lock.Unlock()

	s, ok := c.shapes[h]
	if !ok || s.parent == "" {
		return
	}

	g := c.shapes[s.parent]
	s.detachedFrom = g.id
	s.offsetLeft = num(s.props["left"])
	s.offsetTop = num(s.props["top"])

	s.props["left"] = num(g.props["left"]) + s.offsetLeft
	s.props["top"] = num(g.props["top"]) + s.offsetTop

	c.unparent(s)
	c.updateBounds(g)
	c.order = append(c.order, h)
}

// Attach puts a top-level shape into group. A shape detached from the same
// group returns to its original offset; any other shape keeps its absolute
// position.
func (c *Canvas) Attach(h Handle, group Handle) {
	c.lock.Lock()
	defer c.lock.Unlock()

	s, ok := c.shapes[h]
	if !ok || s.parent != "" {
		return
	}

	g, ok := c.shapes[group]
	if !ok || g.kind != KindGroup {
		return
	}

	if s.detachedFrom == group {
		s.props["left"] = s.offsetLeft
		s.props["top"] = s.offsetTop
	} else {
		s.props["left"] = num(s.props["left"]) - num(g.props["left"])
		s.props["top"] = num(s.props["top"]) - num(g.props["top"])
	}

	s.detachedFrom = ""
	c.unstack(h)
	s.parent = group
	g.children = append(g.children, h)
	c.updateBounds(g)
}

// Parent returns the group of h, or "" for top-level shapes.
func (c *Canvas) Parent(h Handle) Handle {
	c.lock.Lock()
	defer c.lock.Unlock()

	s, ok := c.shapes[h]
	if !ok {
		return ""
	}

	return s.parent
}

// BringToFront moves a top-level shape to the top of the stacking order.
func (c *Canvas) BringToFront(h Handle) {
	c.lock.Lock()
	defer c.lock.Unlock()

	s, ok := c.shapes[h]
	if !ok || s.parent != "" {
		return
	}

	c.unstack(h)
	c.order = append(c.order, h)
}

// ZIndex returns the stacking position of a top-level shape, or -1.
func (c *Canvas) ZIndex(h Handle) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	for i, id := range c.order {
		if id == h {
			return i
		}
	}

	return -1
}

// Contains tells if h is on the canvas.
func (c *Canvas) Contains(h Handle) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	_, ok := c.shapes[h]

	return ok
}

// Len returns the number of shapes and groups on the canvas.
func (c *Canvas) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return len(c.shapes)
}

// Animate runs a property transition through the tweener, writing the
// property on every frame.
func (c *Canvas) Animate(
	h Handle,
	property string,
	from, to float64,
	duration timing.VTimeInSec,
	easing func(float64) float64,
	onChange func(float64),
	onComplete func(),
) error {
	change := func(v float64) {
		c.SetProperty(h, property, v)

		if onChange != nil {
			onChange(v)
		}
	}

	if c.tweener == nil {
		change(to)

		if onComplete != nil {
			onComplete()
		}

		return nil
	}

	return c.tweener.Tween(tweenTarget(h, property),
		from, to, duration, easing, change, onComplete)
}

// StopAnimation retires the transition running on property of h. The
// property keeps the value of the last frame.
func (c *Canvas) StopAnimation(h Handle, property string) bool {
	if c.tweener == nil {
		return false
	}

	return c.tweener.CancelTarget(tweenTarget(h, property))
}

func tweenTarget(h Handle, property string) string {
	return string(h) + "." + property
}

// ShapeSnapshot is a copy of one shape.
type ShapeSnapshot struct {
	ID        Handle         `json:"id"`
	Kind      Kind           `json:"kind"`
	Parent    Handle         `json:"parent,omitempty"`
	Children  []Handle       `json:"children,omitempty"`
	Props     map[string]any `json:"props"`
	Listeners map[string]int `json:"listeners,omitempty"`
}

// Snapshot copies the scene, top level first in stacking order, followed by
// grouped shapes sorted by id.
func (c *Canvas) Snapshot() []ShapeSnapshot {
	c.lock.Lock()
	defer c.lock.Unlock()

	out := make([]ShapeSnapshot, 0, len(c.shapes))
	for _, h := range c.order {
		out = append(out, c.snapshot(c.shapes[h]))
	}

	var grouped []Handle
	for h, s := range c.shapes {
		if s.parent != "" {
			grouped = append(grouped, h)
		}
	}

	sort.Slice(grouped, func(i, j int) bool { return grouped[i] < grouped[j] })

	for _, h := range grouped {
		out = append(out, c.snapshot(c.shapes[h]))
	}

	return out
}

func (c *Canvas) snapshot(s *shape) ShapeSnapshot {
	snap := ShapeSnapshot{
		ID:       s.id,
		Kind:     s.kind,
		Parent:   s.parent,
		Children: append([]Handle(nil), s.children...),
		Props:    make(map[string]any, len(s.props)),
	}

	for k, v := range s.props {
		snap.Props[k] = v
	}

	if len(s.listeners) > 0 {
		snap.Listeners = make(map[string]int, len(s.listeners))
		for k, ls := range s.listeners {
			snap.Listeners[string(k)] = len(ls)
		}
	}

	return snap
}
