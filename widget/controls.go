package widget

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/sarchlab/telepanel/anim"
	"github.com/sarchlab/telepanel/poll"
	"github.com/sarchlab/telepanel/remote"
	"github.com/sarchlab/telepanel/render"
	"github.com/sarchlab/telepanel/timing"
)

// Toggle parameters.
const (
	knobOn                           = -21.0
	knobOff                          = 20.0
	ToggleDuration timing.VTimeInSec = 0.15
)

// Toggle is an on/off switch. With a channel it also pushes every flip and
// follows the remote flag while no push is outstanding.
type Toggle struct {
	*Base
	rec *Reconciler[bool]

	channel remote.Channel
	group   render.Handle
	knob    render.Handle
	on      bool
	pushing int
	pushes  int
}

func newToggle(
	name string,
	env environment,
	at Point,
	channel remote.Channel,
) *Toggle {
	t := &Toggle{
		Base:    newBase("toggle", name, env),
		channel: channel,
	}

	s := env.surface
	bg := s.CreateShape(render.KindRect,
		render.Geometry{Left: at.X, Top: at.Y, Width: 80, Height: 40},
		render.Style{"fill": "#222", "stroke": "#00ffcc"})
	t.knob = s.CreateShape(render.KindCircle,
		render.Geometry{Left: at.X + knobOff, Top: at.Y + 4, Radius: 16},
		render.Style{"fill": "#000", "stroke": "#ff3333"})
	t.group = t.own(s.Group(bg, t.knob))

	t.listen(t.group, render.MouseDown, func(render.PointerEvent) {
		t.Flip()
	})

	if channel != nil {
		t.rec = newReconciler(t.Base, Capabilities[bool]{
			FetchState: fetchFlag(channel),
			ApplyState: func(on bool) bool {
				if t.pushing > 0 || on == t.on {
					return false
				}

				t.on = on

				return true
			},
			RenderState: t.moveKnob,
		})
		t.rec.Start(IndicatorInterval)
	}

	return t
}

// Flip switches the toggle.
func (t *Toggle) Flip() {
	if !t.Alive() {
		return
	}

	t.on = !t.on
	t.moveKnob()
	t.redraw()

	if t.channel == nil {
		return
	}

	on := t.on
	t.pushing++
	t.pushes++
	t.request(
		func(ctx context.Context) {
			if err := t.channel.Push(ctx, on); err != nil {
				t.logf("push failed: %v", err)
			}
		},
		func() { t.pushing-- },
	)
}

func (t *Toggle) moveKnob() {
	offset, color := knobOff, "#ff3333"
	if t.on {
		offset, color = knobOn, "#00ff00"
	}

	t.surface.SetProperty(t.knob, "stroke", color)

	from := render.Number(t.surface, t.knob, "left")
	err := t.animate(t.knob, "left", from, offset,
		ToggleDuration, anim.EaseOutQuad, nil, nil)
	if err != nil && !errors.Is(err, anim.ErrConflict) {
		t.logf("cannot move knob: %v", err)
	}
}

// On tells if the toggle is on.
func (t *Toggle) On() bool {
	return t.on
}

// KnobOffset returns the knob position inside the toggle.
func (t *Toggle) KnobOffset() float64 {
	return render.Number(t.surface, t.knob, "left")
}

// Pushes returns the number of flips pushed.
func (t *Toggle) Pushes() int {
	return t.pushes
}

// Press animation of command buttons.
const (
	pressedScale                    = 0.95
	PressDuration timing.VTimeInSec = 0.15
)

// CommandButton sends a start or stop command when pressed.
type CommandButton struct {
	*Base

	commander remote.Commander
	command   string
	group     render.Handle
	sent      int
	failed    int
}

func newCommandButton(
	name string,
	env environment,
	at Point,
	commander remote.Commander,
	command string,
) *CommandButton {
	c := &CommandButton{
		Base:      newBase("command-button", name, env),
		commander: commander,
		command:   command,
	}

	s := env.surface
	glass := s.CreateShape(render.KindRect,
		render.Geometry{Left: at.X, Top: at.Y, Width: 150, Height: 60},
		render.Style{"fill": "rgba(0, 255, 128, 0.25)"})
	label := s.CreateShape(render.KindText,
		render.Geometry{Left: at.X + 75, Top: at.Y + 30},
		render.Style{"text": strings.ToUpper(command), "fill": "#ffffff"})
	c.group = c.own(s.Group(glass, label))
	s.SetProperty(c.group, "scale", 1.0)

	c.listen(c.group, render.MouseDown, func(render.PointerEvent) {
		c.Press()
	})

	return c
}

// Press plays the press animation and sends the command.
func (c *CommandButton) Press() {
	if !c.Alive() {
		return
	}

	c.surface.SetProperty(c.group, "scale", pressedScale)
	_ = c.animate(c.group, "scale", pressedScale, 1,
		PressDuration, anim.EaseOutQuad, nil, nil)
	c.redraw()

	cmd := remote.Command{Command: c.command, Time: c.clock()}

	var err error
	c.request(
		func(ctx context.Context) {
			err = c.commander.SendCommand(ctx, cmd)
		},
		func() {
			if err != nil {
				c.failed++
				c.logf("command %s failed: %v", cmd.Command, err)

				return
			}

			c.sent++
		},
	)
}

// Command returns the command the button sends.
func (c *CommandButton) Command() string {
	return c.command
}

// Sent returns the number of acknowledged commands.
func (c *CommandButton) Sent() int {
	return c.sent
}

// Failed returns the number of failed commands.
func (c *CommandButton) Failed() int {
	return c.failed
}

// NumberInput is a digits-only entry field. Pressing OK pushes the value.
type NumberInput struct {
	*Base

	channel remote.Channel
	text    render.Handle
	ok      render.Handle
	value   string
	pushes  int
}

func newNumberInput(
	name string,
	env environment,
	at Point,
	channel remote.Channel,
) *NumberInput {
	n := &NumberInput{
		Base:    newBase("number-input", name, env),
		channel: channel,
	}

	s := env.surface
	field := s.CreateShape(render.KindRect,
		render.Geometry{Left: at.X, Top: at.Y, Width: 160, Height: 50},
		render.Style{"fill": "#111", "stroke": "#00ffcc"})
	n.text = s.CreateShape(render.KindText,
		render.Geometry{Left: at.X + 10, Top: at.Y + 15},
		render.Style{"text": "", "fill": "#00ffcc", "editable": true})
	n.own(s.Group(field, n.text))
	n.ok = n.own(s.CreateShape(render.KindRect,
		render.Geometry{Left: at.X + 170, Top: at.Y, Width: 60, Height: 50},
		render.Style{"fill": "#003300", "text": "OK"}))

	n.listen(n.text, render.TextChanged, func(e render.PointerEvent) {
		n.Input(e.Text)
	})
	n.listen(n.ok, render.MouseDown, func(render.PointerEvent) {
		if err := n.Submit(); err != nil {
			n.debugf("not submitted: %v", err)
		}
	})

	return n
}

// SanitizeDigits keeps the digits of text, up to six of them.
func SanitizeDigits(text string) string {
	var sb strings.Builder

	for _, r := range text {
		if sb.Len() == displayDigits {
			break
		}

		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// Input replaces the entered text, keeping only digits.
func (n *NumberInput) Input(text string) {
	n.value = SanitizeDigits(text)
	n.surface.SetProperty(n.text, "text", n.value)
	n.redraw()
}

// Submit pushes the entered value.
func (n *NumberInput) Submit() error {
	if !n.Alive() {
		return nil
	}

	if n.value == "" {
		return &poll.ValidationError{Text: n.value, Reason: "empty"}
	}

	v, err := strconv.ParseFloat(n.value, 64)
	if err != nil {
		return &poll.ValidationError{Text: n.value, Reason: "not a number"}
	}

	n.pushes++
	n.request(
		func(ctx context.Context) {
			if err := n.channel.Push(ctx, v); err != nil {
				n.logf("push failed: %v", err)
			}
		},
		nil,
	)

	return nil
}

// Value returns the entered text.
func (n *NumberInput) Value() string {
	return n.value
}

// Pushes returns the number of submitted values.
func (n *NumberInput) Pushes() int {
	return n.pushes
}
