package sse

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// WriteEvent encodes ev in SSE wire format, including the terminating blank line.
// Multi-line data is split into one data line per line.
func WriteEvent(w io.Writer, ev Event) error {
	var b bytes.Buffer
	if ev.Type != "" && ev.Type != DefaultEventType {
		fmt.Fprintf(&b, "event: %s\n", ev.Type)
	}
	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	if ev.Retry > 0 {
		b.WriteString("retry: " + strconv.Itoa(ev.Retry) + "\n")
	}
	for _, line := range bytes.Split(ev.Data, []byte("\n")) {
		b.WriteString("data: ")
		b.Write(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	_, err := w.Write(b.Bytes())
	return err
}

// WriteData encodes a single unnamed message carrying data.
func WriteData(w io.Writer, data string) error {
	return WriteEvent(w, Event{Data: []byte(data)})
}
