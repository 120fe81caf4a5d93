package session

import (
	"context"

	"github.com/pithecene-io/benchwatch/sse"
)

// EventStream is an open subscription.
// Close must unblock a pending Next and be safe to call more than once.
type EventStream interface {
	Next() (sse.Event, error)
	Close() error
}

// Dialer opens one subscription per run. Opening the subscription is what
// triggers the remote benchmark.
type Dialer interface {
	Dial(ctx context.Context) (EventStream, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (EventStream, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (EventStream, error) {
	return f(ctx)
}

// SSEDialer dials the client's endpoint over HTTP.
func SSEDialer(client *sse.Client) Dialer {
	return DialerFunc(func(ctx context.Context) (EventStream, error) {
		s, err := client.Open(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// FileDialer replays a captured transcript. Every run re-reads the file.
func FileDialer(path string) Dialer {
	return DialerFunc(func(context.Context) (EventStream, error) {
		s, err := sse.OpenFile(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
