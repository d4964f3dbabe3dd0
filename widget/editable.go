package widget

import (
	"context"
	"math"
	"strconv"

	"github.com/sarchlab/telepanel/poll"
	"github.com/sarchlab/telepanel/remote"
	"github.com/sarchlab/telepanel/render"
)

type flavor struct {
	kind   string
	unit   string
	format func(v float64) string
}

var digitalFlavor = flavor{
	kind:   "digital-indicator",
	format: poll.FormatValue,
}

var speedFlavor = flavor{
	kind: "speed-indicator",
	unit: "km/h",
	format: func(v float64) string {
		return strconv.Itoa(int(math.Round(v)))
	},
}

// textOffset is where the value text sits inside the indicator group.
var textOffset = Point{X: 90, Y: 40}

// EditableIndicator shows a polled number that the user can edit in place.
//
// A double click opens an edit session: the text leaves its group so it can
// be edited on the top level, and polled values stop reaching the display.
// Leaving the session commits the typed text if it is a number and puts the
// text back into its group at its original offset.
type EditableIndicator struct {
	*Base
	*Reconciler[float64]

	flavor  flavor
	channel remote.Channel
	guard   *poll.EditGuard

	group  render.Handle
	text   render.Handle
	pushes int
}

func newEditableIndicator(
	name string,
	env environment,
	at Point,
	channel remote.Channel,
	f flavor,
) *EditableIndicator {
	i := &EditableIndicator{
		Base:    newBase(f.kind, name, env),
		flavor:  f,
		channel: channel,
	}
	i.guard = poll.NewEditGuard(0, i.push)

	s := env.surface
	shapes := []render.Handle{
		s.CreateShape(render.KindRect,
			render.Geometry{Left: at.X, Top: at.Y, Width: 180, Height: 80},
			render.Style{"fill": "#111", "stroke": "#00ff00"}),
	}

	i.text = s.CreateShape(render.KindText,
		render.Geometry{Left: at.X + textOffset.X, Top: at.Y + textOffset.Y},
		render.Style{"text": f.format(0), "fill": "#00ff00", "editable": false})
	shapes = append(shapes, i.text)

	if f.unit != "" {
		shapes = append(shapes, s.CreateShape(render.KindText,
			render.Geometry{Left: at.X + 140, Top: at.Y + 40},
			render.Style{"text": f.unit, "fill": "#00ff00"}))
	}

	i.group = i.own(s.Group(shapes...))

	i.listen(i.group, render.DoubleClick, func(render.PointerEvent) {
		i.BeginEdit()
	})
	i.listen(i.text, render.TextChanged, func(e render.PointerEvent) {
		i.Type(e.Text)
	})
	i.listen(i.text, render.EditingExited, func(e render.PointerEvent) {
		_ = i.CommitEdit(e.Text)
	})

	i.Reconciler = newReconciler(i.Base, Capabilities[float64]{
		FetchState:  fetchNumber(channel),
		ApplyState:  i.guard.Apply,
		RenderState: i.show,
	})
	i.Start(IndicatorInterval)

	return i
}

func (i *EditableIndicator) show() {
	i.surface.SetProperty(i.text, "text", i.flavor.format(i.guard.Current()))
}

func (i *EditableIndicator) push(v float64) {
	i.pushes++

	i.request(
		func(ctx context.Context) {
			if err := i.channel.Push(ctx, v); err != nil {
				i.logf("push %s failed: %v", i.channel.Attribute(), err)
			}
		},
		nil,
	)
}

// BeginEdit opens an edit session.
func (i *EditableIndicator) BeginEdit() {
	if !i.Alive() || i.guard.Editing() {
		return
	}

	i.surface.Detach(i.text)
	i.surface.SetProperty(i.text, "editable", true)
	i.guard.Enter()
	i.redraw()
}

// Type records the text typed so far.
func (i *EditableIndicator) Type(text string) {
	if !i.guard.Editing() {
		return
	}

	i.guard.SetText(text)
	i.surface.SetProperty(i.text, "text", text)
}

// CommitEdit closes the edit session with the final text. Text that is not a
// number is reported as a poll.ValidationError: the value is not changed,
// nothing is pushed, and the text stays as typed.
func (i *EditableIndicator) CommitEdit(text string) error {
	if !i.guard.Editing() {
		return nil
	}

	i.guard.SetText(text)

	err := i.guard.Exit(true)
	if err != nil {
		i.debugf("discarding edit: %v", err)
		i.surface.SetProperty(i.text, "text", text)
	} else {
		i.show()
	}

	i.reattach()

	return err
}

// CancelEdit closes the edit session and restores the last value confirmed
// by the service.
func (i *EditableIndicator) CancelEdit() {
	if !i.guard.Editing() {
		return
	}

	_ = i.guard.Exit(false)
	i.show()
	i.reattach()
}

func (i *EditableIndicator) reattach() {
	i.surface.SetProperty(i.text, "editable", false)
	i.surface.Attach(i.text, i.group)
	i.redraw()
}

// Destroy puts a detached text back into its group before releasing the
// widget, so that nothing is left on the surface.
func (i *EditableIndicator) Destroy() {
	if i.Alive() && i.guard.Editing() {
		_ = i.guard.Exit(false)
		i.surface.Attach(i.text, i.group)
	}

	i.Base.Destroy()
}

// Value returns the current value.
func (i *EditableIndicator) Value() float64 {
	return i.guard.Current()
}

// Editing tells if an edit session is open.
func (i *EditableIndicator) Editing() bool {
	return i.guard.Editing()
}

// Text returns the displayed text.
func (i *EditableIndicator) Text() string {
	return render.String(i.surface, i.text, "text")
}

// Pushes returns the number of committed values pushed.
func (i *EditableIndicator) Pushes() int {
	return i.pushes
}

// TextHandle returns the handle of the value text.
func (i *EditableIndicator) TextHandle() render.Handle {
	return i.text
}

// GroupHandle returns the handle of the indicator group.
func (i *EditableIndicator) GroupHandle() render.Handle {
	return i.group
}
