// Package layout describes a panel in YAML and builds the described widgets.
//
// A layout looks like this:
//
//	callFloor: 2
//	widgets:
//	  - kind: speedometer
//	    name: speed
//	    x: 20
//	    y: 20
//	  - kind: elevator
//	    name: left-car
//	    elevator: 1
//	    x: 300
//	    y: 20
package layout

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/telepanel/widget"
)

// The widget kinds a layout can name.
const (
	KindNumberDisplay    = "number-display"
	KindStatusLamp       = "status-lamp"
	KindSystemStatus     = "system-status"
	KindLevelIndicator   = "level-indicator"
	KindDigitalIndicator = "digital-indicator"
	KindSpeedIndicator   = "speed-indicator"
	KindSpeedometer      = "speedometer"
	KindToggle           = "toggle"
	KindStartButton      = "start-button"
	KindStopButton       = "stop-button"
	KindNumberInput      = "number-input"
	KindHistoryChart     = "history-chart"
	KindElevator         = "elevator"
	KindTrafficLight     = "traffic-light"
)

var kinds = map[string]func(b widget.Builder, e Placement) widget.Widget{
	KindNumberDisplay: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildNumberDisplay(e.Name)
	},
	KindStatusLamp: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildStatusLamp(e.Name)
	},
	KindSystemStatus: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildSystemStatus(e.Name)
	},
	KindLevelIndicator: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildLevelIndicator(e.Name)
	},
	KindDigitalIndicator: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildDigitalIndicator(e.Name)
	},
	KindSpeedIndicator: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildSpeedIndicator(e.Name)
	},
	KindSpeedometer: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildSpeedometer(e.Name)
	},
	KindToggle: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildToggle(e.Name)
	},
	KindStartButton: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildStartButton(e.Name)
	},
	KindStopButton: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildStopButton(e.Name)
	},
	KindNumberInput: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildNumberInput(e.Name)
	},
	KindHistoryChart: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildHistoryChart(e.Name)
	},
	KindElevator: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildElevator(e.Name, e.Elevator)
	},
	KindTrafficLight: func(b widget.Builder, e Placement) widget.Widget {
		return b.BuildTrafficLight(e.Name)
	},
}

// Placement is one widget of a panel.
type Placement struct {
	Kind string  `yaml:"kind"`
	Name string  `yaml:"name"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`

	// Elevator is the id of the elevator an elevator widget shows.
	Elevator int `yaml:"elevator,omitempty"`

	// CallFloor overrides the panel call floor for one elevator.
	CallFloor int `yaml:"callFloor,omitempty"`

	// Min and Max override the value range of a level indicator.
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

// Panel is a set of widgets.
type Panel struct {
	CallFloor int         `yaml:"callFloor,omitempty"`
	Widgets   []Placement `yaml:"widgets"`
}

// ErrInvalidLayout is wrapped by every validation error.
var ErrInvalidLayout = errors.New("invalid layout")

// Load reads the panel described in the file at path.
func Load(path string) (Panel, error) {
	file, err := os.Open(path)
	if err != nil {
		return Panel{}, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a panel description. Unknown fields are rejected.
func Parse(r io.Reader) (Panel, error) {
	p := Panel{}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&p); err != nil {
		return Panel{}, fmt.Errorf("decoding layout: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Panel{}, err
	}

	return p, nil
}

// Encode writes the panel in YAML.
func (p Panel) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(p); err != nil {
		return err
	}

	return enc.Close()
}

// Validate checks that every widget has a known kind and a unique name, and
// that every elevator names its car.
func (p Panel) Validate() error {
	names := make(map[string]bool, len(p.Widgets))

	for i, e := range p.Widgets {
		if _, ok := kinds[e.Kind]; !ok {
			return fmt.Errorf("%w: widget %d has unknown kind %q",
				ErrInvalidLayout, i, e.Kind)
		}

		if e.Name == "" {
			return fmt.Errorf("%w: widget %d has no name", ErrInvalidLayout, i)
		}

		if names[e.Name] {
			return fmt.Errorf("%w: duplicate widget name %q",
				ErrInvalidLayout, e.Name)
		}
		names[e.Name] = true

		if e.Kind == KindElevator && e.Elevator <= 0 {
			return fmt.Errorf("%w: elevator %q needs a positive elevator id",
				ErrInvalidLayout, e.Name)
		}

		if e.Min != nil && e.Max != nil && *e.Min >= *e.Max {
			return fmt.Errorf("%w: widget %q has an empty range",
				ErrInvalidLayout, e.Name)
		}
	}

	return nil
}

// Build builds the widgets of the panel with b. If a widget cannot be built,
// the widgets built so far are destroyed and an error is returned.
func (p Panel) Build(b widget.Builder) (widgets []widget.Widget, err error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		for _, w := range widgets {
			w.Destroy()
		}

		widgets = nil
		err = fmt.Errorf("building layout: %v", r)
	}()

	if p.CallFloor > 0 {
		b = b.WithCallFloor(p.CallFloor)
	}

	for _, e := range p.Widgets {
		widgets = append(widgets, buildPlacement(b, e))
	}

	return widgets, nil
}

func buildPlacement(b widget.Builder, e Placement) widget.Widget {
	b = b.At(e.X, e.Y)

	if e.CallFloor > 0 {
		b = b.WithCallFloor(e.CallFloor)
	}

	if e.Min != nil || e.Max != nil {
		min, max := 0.0, 100.0
		if e.Min != nil {
			min = *e.Min
		}

		if e.Max != nil {
			max = *e.Max
		}

		b = b.WithRange(min, max)
	}

	return kinds[e.Kind](b, e)
}

// DefaultPanel returns the full demonstration panel: every widget kind, two
// elevators, and a pair of traffic lights.
func DefaultPanel() Panel {
	return Panel{
		CallFloor: widget.DefaultCallFloor,
		Widgets: []Placement{
			{Kind: KindSystemStatus, Name: "system-status", X: 20, Y: 20},
			{Kind: KindStatusLamp, Name: "status-lamp", X: 200, Y: 20},
			{Kind: KindStartButton, Name: "start", X: 260, Y: 20},
			{Kind: KindStopButton, Name: "stop", X: 360, Y: 20},
			{Kind: KindToggle, Name: "toggle", X: 460, Y: 20},
			{Kind: KindNumberDisplay, Name: "value", X: 20, Y: 100},
			{Kind: KindDigitalIndicator, Name: "digital", X: 200, Y: 100},
			{Kind: KindNumberInput, Name: "input", X: 380, Y: 100},
			{Kind: KindLevelIndicator, Name: "level", X: 20, Y: 180},
			{Kind: KindSpeedometer, Name: "speedometer", X: 120, Y: 180},
			{Kind: KindSpeedIndicator, Name: "speed", X: 380, Y: 180},
			{Kind: KindHistoryChart, Name: "history", X: 20, Y: 420},
			{Kind: KindElevator, Name: "elevator-1", Elevator: 1, X: 600, Y: 20},
			{Kind: KindElevator, Name: "elevator-2", Elevator: 2, X: 760, Y: 20},
			{Kind: KindTrafficLight, Name: "light-a", X: 920, Y: 20},
			{Kind: KindTrafficLight, Name: "light-b", X: 1000, Y: 20},
		},
	}
}
