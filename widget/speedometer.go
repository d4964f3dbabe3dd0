package widget

import (
	"errors"
	"math"

	"github.com/sarchlab/telepanel/anim"
	"github.com/sarchlab/telepanel/remote"
	"github.com/sarchlab/telepanel/render"
	"github.com/sarchlab/telepanel/timing"
)

// Speedometer parameters.
const (
	SpeedometerInterval timing.VTimeInSec = 2
	NeedleDuration      timing.VTimeInSec = 0.8
	MaxSpeed                              = 240.0
	speedThreshold                        = 0.5
)

// SpeedToAngle maps a speed to the needle angle in degrees. The dial spans
// 270 degrees, from -135 at 0 to 135 at MaxSpeed.
func SpeedToAngle(speed float64) float64 {
	s := math.Max(0, math.Min(MaxSpeed, speed))
	return -135 + s/MaxSpeed*270
}

// Speedometer swings a needle to the polled speed.
type Speedometer struct {
	*Base
	*Reconciler[float64]

	needle       render.Handle
	currentSpeed float64
	targetSpeed  float64
	swings       int
}

func newSpeedometer(
	name string,
	env environment,
	at Point,
	channel remote.Channel,
) *Speedometer {
	m := &Speedometer{Base: newBase("speedometer", name, env)}

	s := env.surface
	dial := s.CreateShape(render.KindCircle,
		render.Geometry{Left: at.X, Top: at.Y, Radius: 100},
		render.Style{"fill": "#111", "stroke": "#00ffcc"})
	m.needle = s.CreateShape(render.KindLine,
		render.Geometry{Left: at.X + 100, Top: at.Y + 100, Width: 2, Height: 80},
		render.Style{"stroke": "#ff3333", "angle": SpeedToAngle(0)})
	m.own(s.Group(dial, m.needle))

	m.Reconciler = newReconciler(m.Base, Capabilities[float64]{
		FetchState: fetchNumber(channel),
		ApplyState: func(speed float64) bool {
			if math.Abs(m.currentSpeed-speed) <= speedThreshold {
				return false
			}

			m.targetSpeed = speed

			return true
		},
		RenderState: func() {
			m.swing(m.targetSpeed)
		},
	})
	m.Start(SpeedometerInterval)

	return m
}

func (m *Speedometer) swing(speed float64) {
	from := render.Number(m.surface, m.needle, "angle")
	to := SpeedToAngle(speed)

	err := m.animate(m.needle, "angle", from, to,
		NeedleDuration, anim.EaseOutQuad,
		func(float64) { m.redraw() },
		func() { m.currentSpeed = speed })

	switch {
	case errors.Is(err, anim.ErrConflict):
	case err != nil:
		m.logf("cannot move needle: %v", err)
	default:
		m.swings++
	}
}

// CurrentSpeed returns the speed the needle has settled at.
func (m *Speedometer) CurrentSpeed() float64 {
	return m.currentSpeed
}

// Angle returns the needle angle.
func (m *Speedometer) Angle() float64 {
	return render.Number(m.surface, m.needle, "angle")
}

// Swings returns the number of needle animations started.
func (m *Speedometer) Swings() int {
	return m.swings
}
