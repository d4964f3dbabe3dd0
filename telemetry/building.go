package telemetry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sarchlab/telepanel/remote"
)

// Errors of elevator calls.
var (
	ErrUnknownElevator = errors.New("unknown elevator")
	ErrInvalidFloor    = errors.New("invalid floor")
	ErrBusy            = errors.New("elevator is moving")
)

type car struct {
	id     int
	floor  int
	target *int

	// arrival is the floor of the latest call, reached at arriveAt.
	arrival int

	departed time.Time
	arriveAt time.Time
	idleAt   time.Time
}

// phase works out where the car is at now. A car whose dwell is over is
// settled at its target.
func (c *car) phase(now time.Time, travel time.Duration) (remote.Phase, int) {
	if c.target == nil {
		return remote.Idle, c.floor
	}

	target := *c.target

	switch {
	case now.Before(c.arriveAt):
		passed := int(now.Sub(c.departed) / travel)
		if target > c.floor {
			return remote.Moving, c.floor + passed
		}

		return remote.Moving, c.floor - passed
	case now.Before(c.idleAt):
		return remote.Arrived, target
	default:
		c.floor = target
		c.target = nil

		return remote.Idle, c.floor
	}
}

// A Building simulates a bank of elevators. A called elevator moves one floor
// per travel time, stays arrived with its doors open for the dwell time, and
// then goes idle. The building floor is the floor the most recent arrival
// happened at.
type Building struct {
	lock   sync.Mutex
	clock  func() time.Time
	floors int
	travel time.Duration
	dwell  time.Duration
	cars   map[int]*car
}

// NewBuilding creates a building with elevators numbered from 1, all idle
// at floor 1.
func NewBuilding(
	elevators, floors int,
	travel, dwell time.Duration,
	clock func() time.Time,
) *Building {
	if elevators <= 0 || floors <= 0 {
		panic("telemetry: a building needs elevators and floors")
	}

	if travel <= 0 {
		panic("telemetry: travel time must be positive")
	}

	if clock == nil {
		clock = time.Now
	}

	b := &Building{
		clock:  clock,
		floors: floors,
		travel: travel,
		dwell:  dwell,
		cars:   make(map[int]*car, elevators),
	}

	for id := 1; id <= elevators; id++ {
		b.cars[id] = &car{id: id, floor: 1}
	}

	return b
}

// Elevators returns the ids of the elevators.
func (b *Building) Elevators() []int {
	b.lock.Lock()
	defer b.lock.Unlock()

	ids := make([]int, 0, len(b.cars))
	for id := range b.cars {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids
}

// Floors returns the number of floors.
func (b *Building) Floors() int {
	return b.floors
}

// Status returns the status of elevator id.
func (b *Building) Status(id int) (remote.ElevatorStatus, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	c, ok := b.cars[id]
	if !ok {
		return remote.ElevatorStatus{}, fmt.Errorf("%w: %d", ErrUnknownElevator, id)
	}

	now := b.clock()
	phase, floor := c.phase(now, b.travel)

	status := remote.ElevatorStatus{
		ID:            id,
		CurrentFloor:  floor,
		Status:        phase,
		DoorsOpen:     phase == remote.Arrived,
		BuildingFloor: remote.IntPtr(b.buildingFloor(now)),
	}

	if c.target != nil {
		status.TargetFloor = remote.IntPtr(*c.target)
	}

	return status, nil
}

func (b *Building) buildingFloor(now time.Time) int {
	floor := 1

	var latest time.Time
	for _, c := range b.cars {
		if c.arriveAt.IsZero() || c.arriveAt.After(now) {
			continue
		}

		if c.arriveAt.After(latest) {
			latest = c.arriveAt
			floor = c.arrival
		}
	}

	return floor
}

// Call sends elevator id to floor. A moving elevator refuses calls.
func (b *Building) Call(id, floor int) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	c, ok := b.cars[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownElevator, id)
	}

	if floor < 1 || floor > b.floors {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidFloor, floor, b.floors)
	}

	now := b.clock()

	phase, current := c.phase(now, b.travel)
	if phase == remote.Moving {
		return fmt.Errorf("%w: elevator %d", ErrBusy, id)
	}

	distance := floor - current
	if distance < 0 {
		distance = -distance
	}

	c.floor = current
	c.target = remote.IntPtr(floor)
	c.arrival = floor
	c.departed = now
	c.arriveAt = now.Add(time.Duration(distance) * b.travel)
	c.idleAt = c.arriveAt.Add(b.dwell)

	return nil
}
