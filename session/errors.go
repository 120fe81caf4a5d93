package session

import (
	"errors"
	"fmt"
)

// Op names the stage of the stream at which a transport failure happened.
type Op string

// Transport failure stages.
const (
	// OpDial means the connection could not be opened.
	OpDial Op = "dial"
	// OpStatus means the endpoint refused the subscription (status or content type).
	OpStatus Op = "status"
	// OpRead means reading the open stream failed.
	OpRead Op = "read"
	// OpEOF means the server closed the stream before the final result.
	OpEOF Op = "eof"
)

// TransportError wraps a stream failure with the stage it happened at.
type TransportError struct {
	Op  Op
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport %s failed", e.Op)
	}
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if err is a *TransportError at the given stage.
func IsTransportError(err error, op Op) bool {
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return tErr.Op == op
	}
	return false
}

// ErrNoDialer is returned by NewController when Config.Dialer is nil.
var ErrNoDialer = errors.New("session requires a dialer")
