package widget

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sarchlab/telepanel/anim"
	"github.com/sarchlab/telepanel/remote"
	"github.com/sarchlab/telepanel/render"
	"github.com/sarchlab/telepanel/timing"
)

// Elevator timing.
const (
	ElevatorInterval   timing.VTimeInSec = 1
	ElevatorRetryDelay timing.VTimeInSec = 2
	CallSettleDelay    timing.VTimeInSec = 1
	PressFlash         timing.VTimeInSec = 0.2
	DoorDuration       timing.VTimeInSec = 0.5
)

// DefaultCallFloor is the floor the call button sends elevators to.
const DefaultCallFloor = 2

const (
	elevatorWidth   = 120.0
	elevatorHeight  = 200.0
	closedDoorWidth = elevatorWidth/2 - 10

	buttonIdle    = "rgba(255, 0, 0, 0.8)"
	buttonPressed = "rgba(255, 100, 100, 0.9)"
	callingText   = "calling..."
)

// ErrIdentityMismatch is returned by ApplyStatus for a status that belongs
// to another elevator. It is expected on a shared status stream.
var ErrIdentityMismatch = errors.New("status belongs to another elevator")

// ErrInvalidStatus is returned by ApplyStatus for an unknown phase.
var ErrInvalidStatus = errors.New("invalid elevator status")

// ElevatorState is the reconciled state of one elevator. DoorsOpen is only
// ever true while Status is remote.Arrived.
type ElevatorState struct {
	ID           int
	CurrentFloor int
	TargetFloor  *int
	Status       remote.Phase
	DoorsOpen    bool
}

// Elevator follows one elevator of a shared status stream and calls it on
// request.
//
// The state follows the service. The doors follow the state through a
// compound animation of both door widths; while the doors move, further door
// commands and calls are ignored, and once they settle the doors catch up
// with whatever the state says then.
type Elevator struct {
	*Base
	*Reconciler[remote.ElevatorStatus]

	link      remote.ElevatorLink
	id        int
	callFloor int

	state        ElevatorState
	isMoving     bool
	doors        anim.Compound
	doorTarget   bool
	displayFloor int
	calls        int

	group      render.Handle
	doorLeft   render.Handle
	doorRight  render.Handle
	display    render.Handle
	statusText render.Handle
	button     render.Handle

	retry *timing.Timer
}

func newElevator(
	name string,
	env environment,
	at Point,
	link remote.ElevatorLink,
	id int,
	callFloor int,
) *Elevator {
	e := &Elevator{
		Base:         newBase("elevator", name, env),
		link:         link,
		id:           id,
		callFloor:    callFloor,
		displayFloor: 1,
		state: ElevatorState{
			ID:           id,
			CurrentFloor: 1,
			Status:       remote.Idle,
		},
	}

	e.createShapes(at)
	e.listen(e.button, render.MouseDown, e.press)

	e.Reconciler = newReconciler(e.Base, Capabilities[remote.ElevatorStatus]{
		FetchState: func(ctx context.Context) (remote.ElevatorStatus, error) {
			return link.ElevatorStatus(ctx, id)
		},
		ApplyState: func(s remote.ElevatorStatus) bool {
			err := e.ApplyStatus(s)
			return !errors.Is(err, ErrInvalidStatus)
		},
		RenderState: e.rebindButton,
		OnFailure: func(error) {
			e.scheduleRetry()
		},
	})
	e.Start(ElevatorInterval)

	return e
}

func (e *Elevator) createShapes(at Point) {
	s := e.surface

	body := s.CreateShape(render.KindRect,
		render.Geometry{
			Left: at.X, Top: at.Y,
			Width: elevatorWidth, Height: elevatorHeight,
		},
		render.Style{"fill": "rgba(50, 50, 50, 0.95)", "stroke": "#00ff00"})
	e.doorLeft = s.CreateShape(render.KindRect,
		render.Geometry{
			Left: at.X + 5, Top: at.Y + 10,
			Width: closedDoorWidth, Height: elevatorHeight - 20,
		},
		render.Style{"fill": "rgba(70, 70, 70, 0.9)"})
	e.doorRight = s.CreateShape(render.KindRect,
		render.Geometry{
			Left: at.X + elevatorWidth - 5 - closedDoorWidth, Top: at.Y + 10,
			Width: closedDoorWidth, Height: elevatorHeight - 20,
		},
		render.Style{"fill": "rgba(70, 70, 70, 0.9)", "originX": "right"})
	e.display = s.CreateShape(render.KindText,
		render.Geometry{Left: at.X + elevatorWidth/2, Top: at.Y},
		render.Style{"text": "1", "fill": "#00ff00"})
	e.statusText = s.CreateShape(render.KindText,
		render.Geometry{Left: at.X + elevatorWidth/2, Top: at.Y + elevatorHeight + 10},
		render.Style{"text": string(remote.Idle), "fill": "#00ff00"})
	label := s.CreateShape(render.KindText,
		render.Geometry{Left: at.X, Top: at.Y + elevatorHeight/2},
		render.Style{"text": fmt.Sprintf("Elevator %d", e.id), "fill": "#00ff00"})

	e.group = e.own(s.Group(
		body, e.doorLeft, e.doorRight, e.display, e.statusText, label))

	e.button = e.own(s.CreateShape(render.KindPolygon,
		render.Geometry{
			Left: at.X + elevatorWidth + 75, Top: at.Y + elevatorHeight - 60,
			Points: [][2]float64{{9, 0}, {18, 20}, {9, 40}, {0, 20}},
		},
		render.Style{"fill": buttonIdle, "stroke": "#00ff00"}))
}

// ApplyStatus merges a status update into the elevator.
//
// The building floor of any update is shown, whichever elevator it belongs
// to. Everything else is discarded with ErrIdentityMismatch unless the
// update carries this elevator's id.
func (e *Elevator) ApplyStatus(u remote.ElevatorStatus) error {
	if !e.Alive() {
		return nil
	}

	if u.BuildingFloor != nil {
		e.setDisplayFloor(*u.BuildingFloor)
	}

	if u.ID != e.id {
		e.debugf("ignoring status of elevator %d", u.ID)
		e.redraw()

		return fmt.Errorf("%w: got %d, want %d", ErrIdentityMismatch, u.ID, e.id)
	}

	switch u.Status {
	case remote.Idle, remote.Moving, remote.Arrived:
	default:
		e.logf("ignoring status %q", u.Status)
		return fmt.Errorf("%w: %q", ErrInvalidStatus, u.Status)
	}

	e.state.CurrentFloor = u.CurrentFloor
	e.state.TargetFloor = nil
	if u.TargetFloor != nil {
		e.state.TargetFloor = remote.IntPtr(*u.TargetFloor)
	}
	e.state.Status = u.Status
	e.state.DoorsOpen = u.Status == remote.Arrived
	e.isMoving = u.Status == remote.Moving

	e.surface.SetProperty(e.statusText, "text", string(u.Status))
	e.setDisplayFloor(u.CurrentFloor)
	e.reconcileDoors()
	e.redraw()

	return nil
}

func (e *Elevator) setDisplayFloor(floor int) {
	if e.displayFloor == floor {
		return
	}

	e.displayFloor = floor
	e.surface.SetProperty(e.display, "text", strconv.Itoa(floor))
}

func (e *Elevator) reconcileDoors() {
	if e.doorTarget != e.state.DoorsOpen {
		e.AnimateDoors(e.state.DoorsOpen)
	}
}

// AnimateDoors moves both doors open or closed. It returns false, and does
// nothing, while the doors are already moving, when they already are where
// they are asked to go, or when asked to open while the elevator has not
// arrived.
func (e *Elevator) AnimateDoors(open bool) bool {
	if !e.Alive() {
		return false
	}

	if open && e.state.Status != remote.Arrived {
		return false
	}

	if e.doors.Animating() || e.doorTarget == open {
		return false
	}

	done, err := e.doors.Begin(2, e.doorsSettled)
	if err != nil {
		return false
	}

	e.doorTarget = open

	width := closedDoorWidth
	if open {
		width = 0
	}

	for _, door := range []render.Handle{e.doorLeft, e.doorRight} {
		from := render.Number(e.surface, door, "width")

		err := e.animate(door, "width", from, width,
			DoorDuration, anim.EaseInOutCubic,
			func(float64) { e.redraw() },
			done)
		if err != nil {
			done()
		}
	}

	return true
}

func (e *Elevator) doorsSettled() {
	if !e.Alive() {
		return
	}

	e.reconcileDoors()
}

func (e *Elevator) press(render.PointerEvent) {
	if e.isMoving || e.doors.Animating() {
		return
	}

	e.surface.SetProperty(e.button, "fill", buttonPressed)
	e.redraw()
	e.after(PressFlash, func() {
		e.surface.SetProperty(e.button, "fill", buttonIdle)
		e.redraw()
	})

	e.CallElevator()
}

// CallElevator calls the elevator to the call floor. The elevator is marked
// moving at once. When the service has accepted the call, a moving status is
// applied after a short settle delay, until the next poll says otherwise.
//
// Calls are ignored while the elevator moves or its doors do.
func (e *Elevator) CallElevator() bool {
	if !e.Alive() || e.isMoving || e.doors.Animating() {
		return false
	}

	e.isMoving = true
	e.calls++
	e.surface.SetProperty(e.statusText, "text", callingText)
	e.redraw()

	var err error
	e.request(
		func(ctx context.Context) {
			err = e.link.CallElevator(ctx, e.id, e.callFloor)
		},
		func() {
			if err != nil {
				e.logf("call failed: %v", err)
				return
			}

			e.after(CallSettleDelay, func() {
				_ = e.ApplyStatus(remote.ElevatorStatus{
					ID:           e.id,
					CurrentFloor: e.state.CurrentFloor,
					TargetFloor:  remote.IntPtr(e.callFloor),
					Status:       remote.Moving,
				})
			})
		},
	)

	return true
}

func (e *Elevator) rebindButton() {
	e.listen(e.button, render.MouseDown, e.press)
	e.surface.BringToFront(e.button)
}

func (e *Elevator) scheduleRetry() {
	if e.retry != nil && e.retry.Pending() {
		return
	}

	e.retry = e.after(ElevatorRetryDelay, func() {
		_ = e.Cycle()
	})
}

// ID returns the id of the elevator.
func (e *Elevator) ID() int {
	return e.id
}

// State returns a copy of the state.
func (e *Elevator) State() ElevatorState {
	s := e.state
	if s.TargetFloor != nil {
		s.TargetFloor = remote.IntPtr(*s.TargetFloor)
	}

	return s
}

// IsMoving tells if the elevator is moving or being called.
func (e *Elevator) IsMoving() bool {
	return e.isMoving
}

// Animating tells if the doors are moving.
func (e *Elevator) Animating() bool {
	return e.doors.Animating()
}

// DoorTransitions returns the number of completed door transitions.
func (e *Elevator) DoorTransitions() uint64 {
	return e.doors.Completed()
}

// DoorWidths returns the widths of the left and right doors.
func (e *Elevator) DoorWidths() (float64, float64) {
	return render.Number(e.surface, e.doorLeft, "width"),
		render.Number(e.surface, e.doorRight, "width")
}

// DisplayFloor returns the floor shown on the floor display.
func (e *Elevator) DisplayFloor() int {
	return e.displayFloor
}

// StatusText returns the status line under the elevator.
func (e *Elevator) StatusText() string {
	return render.String(e.surface, e.statusText, "text")
}

// Calls returns the number of calls placed.
func (e *Elevator) Calls() int {
	return e.calls
}

// Button returns the handle of the call button.
func (e *Elevator) Button() render.Handle {
	return e.button
}
