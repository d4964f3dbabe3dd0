// Package remote talks to the telemetry service that owns the authoritative
// state of every widget.
package remote

import (
	"fmt"
	"strconv"
	"time"
)

// Attribute names one telemetry attribute that a widget can observe.
type Attribute int

// The attributes served by the telemetry service.
const (
	AttributeValue Attribute = iota
	AttributeSpeed
	AttributeStatus
	AttributeOnOff
	AttributeFloor
)

func (a Attribute) String() string {
	switch a {
	case AttributeValue:
		return "value"
	case AttributeSpeed:
		return "speed"
	case AttributeStatus:
		return "status"
	case AttributeOnOff:
		return "onOff"
	case AttributeFloor:
		return "floor"
	default:
		return fmt.Sprintf("Attribute(%d)", int(a))
	}
}

// TelemetryValue is a single reading returned by a fetch. It only lives for
// the reconciliation cycle that fetched it.
type TelemetryValue struct {
	Attribute Attribute
	Payload   any
	Timestamp time.Time
}

// Number returns the payload as a float64. Numeric strings are accepted.
func (v TelemetryValue) Number() (float64, bool) {
	switch p := v.Payload.(type) {
	case float64:
		return p, true
	case int:
		return float64(p), true
	case string:
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

// Bool returns the payload as a bool.
func (v TelemetryValue) Bool() (bool, bool) {
	b, ok := v.Payload.(bool)
	return b, ok
}

// Phase is the movement phase an elevator reports.
type Phase string

// The phases of an elevator.
const (
	Idle    Phase = "idle"
	Moving  Phase = "moving"
	Arrived Phase = "arrived"
)

// ElevatorStatus is the payload of the elevator status endpoint.
//
// BuildingFloor is a building-wide readout. It is meaningful to every
// elevator, not only to the one named by ID.
type ElevatorStatus struct {
	ID            int   `json:"id"`
	CurrentFloor  int   `json:"currentFloor"`
	TargetFloor   *int  `json:"targetFloor"`
	Status        Phase `json:"status"`
	DoorsOpen     bool  `json:"doorsOpen"`
	BuildingFloor *int  `json:"buildingFloor,omitempty"`
}

// CallRequest asks an elevator to travel to a floor.
type CallRequest struct {
	Floor      int `json:"floor"`
	ElevatorID int `json:"elevatorId"`
}

// Sample is one point of the value history.
type Sample struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Command is a start or stop order sent to the service.
type Command struct {
	Command string    `json:"command"`
	Time    time.Time `json:"time"`
}

// The command names accepted by the service.
const (
	CommandStart = "start"
	CommandStop  = "stop"
)

// IntPtr returns a pointer to i. It is handy for the optional floor fields.
func IntPtr(i int) *int {
	return &i
}
