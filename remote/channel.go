package remote

import (
	"context"
	"fmt"
	"time"
)

// A Channel is a typed request/response wrapper around one telemetry
// attribute.
type Channel interface {
	// Attribute returns the attribute the channel carries.
	Attribute() Attribute

	// Fetch reads the current value from the service.
	Fetch(ctx context.Context) (TelemetryValue, error)

	// Push writes a value to the service.
	Push(ctx context.Context, payload any) error
}

// An ElevatorLink reads elevator status and places calls.
type ElevatorLink interface {
	ElevatorStatus(ctx context.Context, id int) (ElevatorStatus, error)
	CallElevator(ctx context.Context, id, floor int) error
}

// A HistorySource serves the recent value history.
type HistorySource interface {
	History(ctx context.Context) ([]Sample, error)
}

// A Commander sends start and stop commands.
type Commander interface {
	SendCommand(ctx context.Context, cmd Command) error
}

// NumberChannel carries a numeric attribute stored under a single JSON key.
type NumberChannel struct {
	client    *Client
	attribute Attribute
	path      string
	key       string
}

// NewValueChannel creates the channel of /api/value.
func NewValueChannel(client *Client) *NumberChannel {
	return &NumberChannel{
		client:    client,
		attribute: AttributeValue,
		path:      "/api/value",
		key:       "value",
	}
}

// NewSpeedChannel creates the channel of /api/speed.
func NewSpeedChannel(client *Client) *NumberChannel {
	return &NumberChannel{
		client:    client,
		attribute: AttributeSpeed,
		path:      "/api/speed",
		key:       "speed",
	}
}

// Attribute returns the attribute of the channel.
func (c *NumberChannel) Attribute() Attribute {
	return c.attribute
}

// Fetch reads the number. A missing or non-numeric field is reported as
// ErrMalformedPayload.
func (c *NumberChannel) Fetch(ctx context.Context) (TelemetryValue, error) {
	body := map[string]any{}
	if err := c.client.getJSON(ctx, c.path, &body); err != nil {
		return TelemetryValue{}, err
	}

	v := TelemetryValue{
		Attribute: c.attribute,
		Payload:   body[c.key],
		Timestamp: time.Now(),
	}

	n, ok := v.Number()
	if !ok {
		return TelemetryValue{}, fmt.Errorf("%s: field %q: %w",
			c.path, c.key, ErrMalformedPayload)
	}
	v.Payload = n

	return v, nil
}

// Push writes a number.
func (c *NumberChannel) Push(ctx context.Context, payload any) error {
	n, ok := TelemetryValue{Payload: payload}.Number()
	if !ok {
		return fmt.Errorf("%s: cannot push %T", c.path, payload)
	}

	return c.client.postJSON(ctx, c.path, map[string]float64{c.key: n}, nil)
}

// FlagChannel carries a boolean attribute stored under a single JSON key.
type FlagChannel struct {
	client    *Client
	attribute Attribute
	path      string
	key       string
}

// NewSystemStatusChannel creates the channel of /api/system-status.
func NewSystemStatusChannel(client *Client) *FlagChannel {
	return &FlagChannel{
		client:    client,
		attribute: AttributeStatus,
		path:      "/api/system-status",
		key:       "running",
	}
}

// NewStatusIndicatorChannel creates the channel of /api/status-indicator.
func NewStatusIndicatorChannel(client *Client) *FlagChannel {
	return &FlagChannel{
		client:    client,
		attribute: AttributeOnOff,
		path:      "/api/status-indicator",
		key:       "value",
	}
}

// Attribute returns the attribute of the channel.
func (c *FlagChannel) Attribute() Attribute {
	return c.attribute
}

// Fetch reads the flag.
func (c *FlagChannel) Fetch(ctx context.Context) (TelemetryValue, error) {
	body := map[string]any{}
	if err := c.client.getJSON(ctx, c.path, &body); err != nil {
		return TelemetryValue{}, err
	}

	b, ok := body[c.key].(bool)
	if !ok {
		return TelemetryValue{}, fmt.Errorf("%s: field %q: %w",
			c.path, c.key, ErrMalformedPayload)
	}

	return TelemetryValue{
		Attribute: c.attribute,
		Payload:   b,
		Timestamp: time.Now(),
	}, nil
}

// Push writes the flag.
func (c *FlagChannel) Push(ctx context.Context, payload any) error {
	b, ok := payload.(bool)
	if !ok {
		return fmt.Errorf("%s: cannot push %T", c.path, payload)
	}

	return c.client.postJSON(ctx, c.path, map[string]bool{c.key: b}, nil)
}
