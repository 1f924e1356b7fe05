package census

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that the endpoint has no file for the requested
// ID. It is a terminal outcome for that ID, not a failure.
var ErrNotFound = errors.New("asset not found")

// TransientError wraps a failure that may succeed on a later attempt:
// network errors, timeouts, throttling, and 5xx responses.
type TransientError struct {
	ID  int64
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient lookup failure for asset %d: %v", e.ID, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ProtocolError reports a response that cannot be a valid asset: an
// unexpected status code, an empty body, or a payload that fails
// verification. A streak of these across consecutive IDs usually means
// the endpoint changed shape.
type ProtocolError struct {
	ID     int64
	Status int
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("protocol error for asset %d (status %d): %s", e.ID, e.Status, e.Reason)
	}
	return fmt.Sprintf("protocol error for asset %d: %s", e.ID, e.Reason)
}

// IsTransient reports whether err is or wraps a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsProtocol reports whether err is or wraps a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
