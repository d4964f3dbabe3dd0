package widget

import (
	"log"
	"time"

	"github.com/sarchlab/telepanel/remote"
	"github.com/sarchlab/telepanel/render"
	"github.com/sarchlab/telepanel/timing"
)

// Point is a position on the surface.
type Point struct {
	X, Y float64
}

type environment struct {
	engine  timing.Engine
	surface render.Surface
	async   timing.Async
	logger  *log.Logger
	debug   *log.Logger
	clock   func() time.Time
	loc     *time.Location
}

// Builder builds widgets. The builder is a value; every With method returns
// a modified copy.
type Builder struct {
	env environment
	at  Point

	value     remote.Channel
	speed     remote.Channel
	status    remote.Channel
	indicator remote.Channel
	elevators remote.ElevatorLink
	history   remote.HistorySource
	commander remote.Commander

	traffic *TrafficCoordinator

	callFloor int
	min, max  float64
}

// MakeBuilder creates a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		env: environment{
			logger: log.Default(),
			clock:  time.Now,
		},
		callFloor: DefaultCallFloor,
		min:       0,
		max:       100,
	}
}

// WithEngine sets the engine the widgets run on.
func (b Builder) WithEngine(engine timing.Engine) Builder {
	b.env.engine = engine
	return b
}

// WithSurface sets the surface the widgets draw on.
func (b Builder) WithSurface(surface render.Surface) Builder {
	b.env.surface = surface
	return b
}

// WithAsync sets how requests are run. By default they run on goroutines.
func (b Builder) WithAsync(async timing.Async) Builder {
	b.env.async = async
	return b
}

// WithLogger sets the logger for failures.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.env.logger = logger
	return b
}

// WithDebugLogger sets the logger for expected, uninteresting events such as
// status updates that belong to another elevator.
func (b Builder) WithDebugLogger(logger *log.Logger) Builder {
	b.env.debug = logger
	return b
}

// WithClock sets the wall clock used for command timestamps and chart
// labels.
func (b Builder) WithClock(clock func() time.Time) Builder {
	b.env.clock = clock
	return b
}

// WithLocation sets the time zone of chart labels. It defaults to the local
// time zone.
func (b Builder) WithLocation(loc *time.Location) Builder {
	b.env.loc = loc
	return b
}

// WithClient wires every channel to the telemetry service behind client.
func (b Builder) WithClient(client *remote.Client) Builder {
	b.value = remote.NewValueChannel(client)
	b.speed = remote.NewSpeedChannel(client)
	b.status = remote.NewSystemStatusChannel(client)
	b.indicator = remote.NewStatusIndicatorChannel(client)
	b.elevators = client
	b.history = client
	b.commander = client

	return b
}

// WithValueChannel sets the channel of the shared value.
func (b Builder) WithValueChannel(c remote.Channel) Builder {
	b.value = c
	return b
}

// WithSpeedChannel sets the channel of the speed.
func (b Builder) WithSpeedChannel(c remote.Channel) Builder {
	b.speed = c
	return b
}

// WithSystemStatusChannel sets the channel of the running flag.
func (b Builder) WithSystemStatusChannel(c remote.Channel) Builder {
	b.status = c
	return b
}

// WithIndicatorChannel sets the channel of the status indicator flag.
func (b Builder) WithIndicatorChannel(c remote.Channel) Builder {
	b.indicator = c
	return b
}

// WithElevatorLink sets the elevator endpoint.
func (b Builder) WithElevatorLink(l remote.ElevatorLink) Builder {
	b.elevators = l
	return b
}

// WithHistorySource sets the history endpoint.
func (b Builder) WithHistorySource(h remote.HistorySource) Builder {
	b.history = h
	return b
}

// WithCommander sets the start/stop endpoint.
func (b Builder) WithCommander(c remote.Commander) Builder {
	b.commander = c
	return b
}

// WithTrafficCoordinator sets the coordinator traffic lights join.
func (b Builder) WithTrafficCoordinator(c *TrafficCoordinator) Builder {
	b.traffic = c
	return b
}

// WithCallFloor sets the floor elevators are called to.
func (b Builder) WithCallFloor(floor int) Builder {
	b.callFloor = floor
	return b
}

// WithRange sets the value range of level indicators and editable
// indicators.
func (b Builder) WithRange(min, max float64) Builder {
	b.min = min
	b.max = max

	return b
}

// At sets the position of the next widget.
func (b Builder) At(x, y float64) Builder {
	b.at = Point{X: x, Y: y}
	return b
}

func (b Builder) environment() environment {
	if b.env.engine == nil {
		panic("widget: engine is not set")
	}

	if b.env.surface == nil {
		panic("widget: surface is not set")
	}

	env := b.env
	if env.async == nil {
		env.async = timing.NewGoroutineAsync(env.engine)
	}

	if env.logger == nil {
		env.logger = log.Default()
	}

	if env.clock == nil {
		env.clock = time.Now
	}

	if env.loc == nil {
		env.loc = time.Local
	}

	return env
}

func mustHave[T comparable](v T, what string) T {
	var zero T
	if v == zero {
		panic("widget: " + what + " is not set")
	}

	return v
}

// BuildNumberDisplay builds a read-only display of the shared value.
func (b Builder) BuildNumberDisplay(name string) *NumberDisplay {
	return newNumberDisplay(name, b.environment(), b.at,
		mustHave(b.value, "value channel"))
}

// BuildStatusLamp builds a lamp showing the status indicator flag.
func (b Builder) BuildStatusLamp(name string) *StatusLamp {
	return newStatusLamp(name, b.environment(), b.at,
		mustHave(b.indicator, "indicator channel"))
}

// BuildSystemStatus builds the RUNNING/STANDBY text.
func (b Builder) BuildSystemStatus(name string) *SystemStatusText {
	return newSystemStatusText(name, b.environment(), b.at,
		mustHave(b.status, "system status channel"))
}

// BuildLevelIndicator builds a vertical level bar of the shared value.
func (b Builder) BuildLevelIndicator(name string) *LevelIndicator {
	return newLevelIndicator(name, b.environment(), b.at,
		mustHave(b.value, "value channel"), b.min, b.max)
}

// BuildDigitalIndicator builds an editable display of the shared value.
func (b Builder) BuildDigitalIndicator(name string) *EditableIndicator {
	return newEditableIndicator(name, b.environment(), b.at,
		mustHave(b.value, "value channel"), digitalFlavor)
}

// BuildSpeedIndicator builds an editable display of the speed.
func (b Builder) BuildSpeedIndicator(name string) *EditableIndicator {
	return newEditableIndicator(name, b.environment(), b.at,
		mustHave(b.speed, "speed channel"), speedFlavor)
}

// BuildSpeedometer builds a needle gauge of the speed.
func (b Builder) BuildSpeedometer(name string) *Speedometer {
	return newSpeedometer(name, b.environment(), b.at,
		mustHave(b.speed, "speed channel"))
}

// BuildToggle builds an on/off switch. If an indicator channel is set, the
// switch follows and drives it.
func (b Builder) BuildToggle(name string) *Toggle {
	return newToggle(name, b.environment(), b.at, b.indicator)
}

// BuildStartButton builds the start command button.
func (b Builder) BuildStartButton(name string) *CommandButton {
	return newCommandButton(name, b.environment(), b.at,
		mustHave(b.commander, "commander"), remote.CommandStart)
}

// BuildStopButton builds the stop command button.
func (b Builder) BuildStopButton(name string) *CommandButton {
	return newCommandButton(name, b.environment(), b.at,
		mustHave(b.commander, "commander"), remote.CommandStop)
}

// BuildNumberInput builds a numeric entry field with an OK button.
func (b Builder) BuildNumberInput(name string) *NumberInput {
	return newNumberInput(name, b.environment(), b.at,
		mustHave(b.value, "value channel"))
}

// BuildHistoryChart builds the value history chart.
func (b Builder) BuildHistoryChart(name string) *HistoryChart {
	return newHistoryChart(name, b.environment(), b.at,
		mustHave(b.history, "history source"))
}

// BuildElevator builds the elevator with the given id.
func (b Builder) BuildElevator(name string, id int) *Elevator {
	return newElevator(name, b.environment(), b.at,
		mustHave(b.elevators, "elevator link"), id, b.callFloor)
}

// BuildTrafficLight builds a traffic light and joins it to the coordinator.
func (b Builder) BuildTrafficLight(name string) *TrafficLight {
	return newTrafficLight(name, b.environment(), b.at,
		mustHave(b.traffic, "traffic coordinator"))
}
