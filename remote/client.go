package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single request to the telemetry service.
const DefaultTimeout = 5 * time.Second

// Client issues JSON requests against the telemetry service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the service at baseURL, for example
// "http://localhost:3000".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(
	ctx context.Context,
	path string,
	in any,
	out any,
) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) do(
	ctx context.Context,
	method, path string,
	in any,
	out any,
) error {
	url := c.baseURL + path

	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &FetchError{Op: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &FetchError{
			Op:         method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", url, err)
	}

	return nil
}

// ElevatorStatus fetches the status of one elevator.
func (c *Client) ElevatorStatus(
	ctx context.Context,
	id int,
) (ElevatorStatus, error) {
	var status ElevatorStatus

	err := c.getJSON(ctx, fmt.Sprintf("/api/elevators/%d", id), &status)
	if err != nil {
		return ElevatorStatus{}, err
	}

	return status, nil
}

// CallElevator asks elevator id to travel to floor.
func (c *Client) CallElevator(ctx context.Context, id, floor int) error {
	req := CallRequest{Floor: floor, ElevatorID: id}
	return c.postJSON(ctx, fmt.Sprintf("/api/elevators/%d/call", id), req, nil)
}

// History fetches the recent value samples.
func (c *Client) History(ctx context.Context) ([]Sample, error) {
	var samples []Sample

	if err := c.getJSON(ctx, "/api/history", &samples); err != nil {
		return nil, err
	}

	return samples, nil
}

// SendCommand posts a start or stop command.
func (c *Client) SendCommand(ctx context.Context, cmd Command) error {
	switch cmd.Command {
	case CommandStart, CommandStop:
	default:
		return fmt.Errorf("unknown command %q", cmd.Command)
	}

	return c.postJSON(ctx, "/api/"+cmd.Command, cmd, nil)
}
