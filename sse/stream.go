package sse

import (
	"errors"
	"io"
	"os"
	"sync"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("sse: stream closed")

// Stream is one open event stream connection.
// Next and Close may be called from different goroutines; Close unblocks a
// pending Next by closing the underlying body.
type Stream struct {
	body   io.ReadCloser
	reader *Reader

	closeOnce sync.Once
	closeErr  error
	mu        sync.Mutex
	closed    bool
}

// NewStream wraps an open body. The stream owns body and closes it.
func NewStream(body io.ReadCloser) *Stream {
	return &Stream{
		body:   body,
		reader: NewReader(body),
	}
}

// Next blocks until the next event is dispatched.
// Returns io.EOF when the server closed the stream cleanly.
func (s *Stream) Next() (Event, error) {
	if s.isClosed() {
		return Event{}, ErrClosed
	}
	ev, err := s.reader.ReadEvent()
	if err != nil && s.isClosed() {
		return Event{}, ErrClosed
	}
	return ev, err
}

// Close closes the connection. Closing an already closed stream is a no-op
// that returns the first close result.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

func (s *Stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// OpenFile opens a captured SSE transcript as a stream.
func OpenFile(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewStream(f), nil
}
