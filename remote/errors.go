package remote

import (
	"errors"
	"fmt"
)

// FetchError reports a failed exchange with the telemetry service, either a
// network failure or a non-2xx response. It is always transient: the next
// poll cycle simply tries again.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %s",
			e.Op, e.URL, e.StatusCode, e.Body)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrMalformedPayload is returned when a response decodes but does not carry
// the expected field.
var ErrMalformedPayload = errors.New("malformed payload")

// IsTransient tells if err is a FetchError.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
