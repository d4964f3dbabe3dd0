package poll

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// ValidationError reports edited text that cannot become a value.
type ValidationError struct {
	Text   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Text, e.Reason)
}

// IsValidationError tells if err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FormatValue renders a value the way indicators display it.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// An EditGuard holds the value of an editable widget. While an edit session
// is open, server values are recorded but not applied, so a poll never
// overwrites what the user is typing.
type EditGuard struct {
	lock sync.Mutex

	push func(v float64)

	editing   bool
	text      string
	current   float64
	confirmed float64

	bounded  bool
	min, max float64
}

// NewEditGuard creates a guard whose current and confirmed values are
// initial. push is called with every committed value.
func NewEditGuard(initial float64, push func(v float64)) *EditGuard {
	return &EditGuard{
		push:      push,
		text:      FormatValue(initial),
		current:   initial,
		confirmed: initial,
	}
}

// WithRange makes commits outside [min, max] fail validation.
func (g *EditGuard) WithRange(min, max float64) *EditGuard {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.bounded = true
	g.min = min
	g.max = max

	return g
}

// Enter opens an edit session. The local text starts as the current value.
func (g *EditGuard) Enter() {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.editing {
		return
	}

	g.editing = true
	g.text = FormatValue(g.current)
}

// SetText records the locally edited text.
func (g *EditGuard) SetText(text string) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.text = text
}

// Text returns the text to display.
func (g *EditGuard) Text() string {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.text
}

// Editing tells if an edit session is open.
func (g *EditGuard) Editing() bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.editing
}

// Current returns the value currently shown.
func (g *EditGuard) Current() float64 {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.current
}

// Confirmed returns the last value received from the server.
func (g *EditGuard) Confirmed() float64 {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.confirmed
}

// Exit closes the edit session.
//
// With commit, the local text is parsed. A valid number becomes the current
// value and is pushed exactly once. Invalid text returns a ValidationError,
// leaves the current value alone, pushes nothing, and keeps the text as
// typed. Without commit, the last confirmed value is restored.
//
// Exit without an open session does nothing.
func (g *EditGuard) Exit(commit bool) error {
	g.lock.Lock()

	if !g.editing {
		g.lock.Unlock()
		return nil
	}

	g.editing = false

	if !commit {
		g.current = g.confirmed
		g.text = FormatValue(g.confirmed)
		g.lock.Unlock()

		return nil
	}

	v, err := g.parse(g.text)
	if err != nil {
		g.lock.Unlock()
		return err
	}

	g.current = v
	g.text = FormatValue(v)
	push := g.push
	g.lock.Unlock()

	if push != nil {
		push(v)
	}

	return nil
}

func (g *EditGuard) parse(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, &ValidationError{Text: text, Reason: "empty"}
	}

	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Text: text, Reason: "not a number"}
	}

	if g.bounded && (v < g.min || v > g.max) {
		return 0, &ValidationError{
			Text:   text,
			Reason: fmt.Sprintf("out of range [%g, %g]", g.min, g.max),
		}
	}

	return v, nil
}

// Apply offers a server value. The value is always recorded as confirmed.
// It becomes the current value only when no edit session is open, in which
// case Apply returns true.
func (g *EditGuard) Apply(server float64) bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.confirmed = server

	if g.editing {
		return false
	}

	g.current = server
	g.text = FormatValue(server)

	return true
}
