package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/benchwatch/types"
)

// PermanentError marks a delivery failure that another attempt cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so Deliver stops retrying. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, or anything it wraps, is permanent.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// Validate checks the fields subscribers key on. A completed event must not
// carry an error cause, and an error event must name one.
func (e *RunCompletedEvent) Validate() error {
	if e == nil {
		return errors.New("nil event")
	}
	if e.EventType != EventType {
		return fmt.Errorf("event_type %q, want %q", e.EventType, EventType)
	}
	if e.RunID == "" {
		return errors.New("event has no run_id")
	}
	switch types.Status(e.Outcome) {
	case types.StatusCompleted:
		if e.ErrorCause != "" {
			return fmt.Errorf("completed run carries error_cause %q", e.ErrorCause)
		}
	case types.StatusError:
		if e.ErrorCause == "" {
			return errors.New("failed run has no error_cause")
		}
	default:
		return fmt.Errorf("outcome %q is not terminal", e.Outcome)
	}
	return nil
}

// Backoff returns the wait before retry attempt n (n >= 1): 500ms doubling.
func Backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	return time.Duration(1<<uint(n-1)) * 500 * time.Millisecond
}

// Send makes one delivery attempt of an encoded event.
type Send func(ctx context.Context, body []byte) error

// Deliver validates and encodes event, then calls send up to 1+retries
// times with Backoff between attempts. It stops on success, on a permanent
// error, or when ctx ends. Errors are prefixed with name.
//
// An invalid event is never sent and yields a permanent error.
func Deliver(ctx context.Context, name string, event *RunCompletedEvent, enc Encoding, retries int, send Send) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%s: invalid event: %w", name, Permanent(err))
	}
	body, err := Marshal(event, enc)
	if err != nil {
		return fmt.Errorf("%s: marshal event: %w", name, Permanent(err))
	}

	attempts := 1 + max(retries, 0)
	var lastErr error
	for i := range attempts {
		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(Backoff(i)):
			}
		} else if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		lastErr = send(ctx, body)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", name, lastErr)
		}
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
