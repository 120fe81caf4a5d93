// Package sse reads server-sent event streams.
//
// Framing follows the EventSource wire format: UTF-8 lines of "field: value",
// data lines joined with "\n", an event dispatched on each blank line, and
// ":" comment lines ignored. Lines may end in LF, CRLF or CR. A leading
// byte-order mark is skipped.
package sse

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// MaxLineSize is the longest accepted line, terminator excluded.
const MaxLineSize = 1024 * 1024

// DefaultEventType is the event name used when a frame has no event field.
const DefaultEventType = "message"

// Event is one dispatched server-sent event.
type Event struct {
	// ID is the last event ID seen on the stream (sticky across events).
	ID string
	// Type is the event name; DefaultEventType when none was sent.
	Type string
	// Data is the joined data lines.
	Data []byte
	// Retry is the reconnection delay hint in milliseconds, 0 if not sent.
	Retry int
}

// IsMessage returns true for events an EventSource delivers to onmessage.
func (e Event) IsMessage() bool {
	return e.Type == "" || e.Type == DefaultEventType
}

// FrameErrorKind classifies stream reading errors.
type FrameErrorKind int

const (
	// FrameErrorRead indicates the underlying reader failed.
	FrameErrorRead FrameErrorKind = iota
	// FrameErrorTooLarge indicates a line exceeding MaxLineSize.
	FrameErrorTooLarge
	// FrameErrorTruncated indicates the stream ended inside an event.
	FrameErrorTruncated
)

// FrameError represents a stream reading error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFrameError returns true if err is a *FrameError of the given kind.
func IsFrameError(err error, kind FrameErrorKind) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.Kind == kind
	}
	return false
}

// utf8BOM is stripped once from the start of a stream.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader decodes events from an SSE byte stream.
type Reader struct {
	scanner    *bufio.Scanner
	lastID     string
	bomChecked bool
}

// NewReader creates a new event reader.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineSize+2)
	scanner.Split(scanLines)
	return &Reader{scanner: scanner}
}

// ReadEvent reads the next dispatched event.
//
// Errors:
//   - io.EOF: stream ended cleanly between events
//   - *FrameError with Kind=FrameErrorTruncated: stream ended mid-event
//   - *FrameError with Kind=FrameErrorTooLarge: line exceeds MaxLineSize
//   - *FrameError with Kind=FrameErrorRead: underlying read failed
func (r *Reader) ReadEvent() (Event, error) {
	var (
		data    bytes.Buffer
		hasData bool
		started bool
	)
	ev := Event{Type: DefaultEventType}

	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if !r.bomChecked {
			r.bomChecked = true
			line = bytes.TrimPrefix(line, utf8BOM)
		}

		if len(line) == 0 {
			// Blank line dispatches. Frames without data are dropped per
			// EventSource rules, but still reset the pending fields.
			if hasData {
				ev.ID = r.lastID
				ev.Data = bytes.Clone(data.Bytes())
				return ev, nil
			}
			data.Reset()
			started = false
			ev = Event{Type: DefaultEventType}
			continue
		}
		started = true

		if line[0] == ':' {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.Write(value)
			hasData = true
		case "event":
			if len(value) > 0 {
				ev.Type = string(value)
			}
		case "id":
			if !bytes.ContainsRune(value, 0) {
				r.lastID = string(value)
			}
		case "retry":
			if n, err := strconv.Atoi(string(value)); err == nil && n >= 0 {
				ev.Retry = n
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return Event{}, &FrameError{
				Kind: FrameErrorTooLarge,
				Msg:  fmt.Sprintf("line exceeds maximum %d bytes", MaxLineSize),
				Err:  err,
			}
		}
		return Event{}, &FrameError{
			Kind: FrameErrorRead,
			Msg:  "failed to read stream",
			Err:  err,
		}
	}

	if started {
		return Event{}, &FrameError{
			Kind: FrameErrorTruncated,
			Msg:  "stream ended before event was dispatched",
			Err:  io.ErrUnexpectedEOF,
		}
	}
	return Event{}, io.EOF
}

// splitField splits "field: value", stripping one leading space from value.
// A line with no colon is a field name with an empty value.
func splitField(line []byte) (string, []byte) {
	i := bytes.IndexByte(line, ':')
	if i < 0 {
		return string(line), nil
	}
	value := line[i+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return string(line[:i]), value
}

// scanLines is a bufio.SplitFunc accepting LF, CRLF and lone CR terminators.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// CR: swallow a following LF, which may not have arrived yet.
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if !atEOF {
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
