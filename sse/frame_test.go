package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func readAll(t *testing.T, input string) []Event {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var events []Event
	for {
		ev, err := r.ReadEvent()
		if errors.Is(err, io.EOF) {
			return events
		}
		if err != nil {
			t.Fatalf("ReadEvent failed: %v", err)
		}
		events = append(events, ev)
	}
}

func TestReader_SingleEvent(t *testing.T) {
	events := readAll(t, "data: {\"phase\":\"running\"}\n\n")
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if string(events[0].Data) != `{"phase":"running"}` {
		t.Errorf("Data = %q", events[0].Data)
	}
	if events[0].Type != DefaultEventType {
		t.Errorf("Type = %q, want %q", events[0].Type, DefaultEventType)
	}
	if !events[0].IsMessage() {
		t.Error("unnamed event should be a message")
	}
}

func TestReader_MultipleEventsInOrder(t *testing.T) {
	var b bytes.Buffer
	for _, d := range []string{"one", "two", "three"} {
		if err := WriteData(&b, d); err != nil {
			t.Fatalf("WriteData: %v", err)
		}
	}

	events := readAll(t, b.String())
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, want := range []string{"one", "two", "three"} {
		if string(events[i].Data) != want {
			t.Errorf("event %d Data = %q, want %q", i, events[i].Data, want)
		}
	}
}

func TestReader_LeadingBOM(t *testing.T) {
	events := readAll(t, "\xef\xbb\xbfdata: {\"completed_units\":1}\n\ndata: {\"completed_units\":2}\n\n")
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if string(events[0].Data) != `{"completed_units":1}` {
		t.Errorf("first Data = %q", events[0].Data)
	}
	if string(events[1].Data) != `{"completed_units":2}` {
		t.Errorf("second Data = %q", events[1].Data)
	}
}

func TestReader_BOMOnlyStrippedAtStart(t *testing.T) {
	events := readAll(t, "data: one\n\n\xef\xbb\xbfdata: two\n\n")
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if string(events[0].Data) != "one" {
		t.Errorf("Data = %q, want one", events[0].Data)
	}
}

func TestReader_MultiLineData(t *testing.T) {
	events := readAll(t, "data: first\ndata: second\ndata:third\n\n")
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if string(events[0].Data) != "first\nsecond\nthird" {
		t.Errorf("Data = %q", events[0].Data)
	}
}

func TestReader_LineTerminators(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"LF", "data: a\n\ndata: b\n\n"},
		{"CRLF", "data: a\r\n\r\ndata: b\r\n\r\n"},
		{"CR", "data: a\r\rdata: b\r\r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := readAll(t, tt.input)
			if len(events) != 2 {
				t.Fatalf("got %d events, want 2", len(events))
			}
			if string(events[0].Data) != "a" || string(events[1].Data) != "b" {
				t.Errorf("unexpected data: %q, %q", events[0].Data, events[1].Data)
			}
		})
	}
}

func TestReader_FieldsAndComments(t *testing.T) {
	input := ": keep-alive\n" +
		"event: progress\n" +
		"id: 7\n" +
		"retry: 3000\n" +
		"data: x\n\n" +
		"data: y\n\n"

	events := readAll(t, input)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	if events[0].Type != "progress" || events[0].IsMessage() {
		t.Errorf("first event Type = %q, want progress", events[0].Type)
	}
	if events[0].ID != "7" || events[0].Retry != 3000 {
		t.Errorf("first event ID/Retry = %q/%d", events[0].ID, events[0].Retry)
	}

	// Event name resets between events; the last ID is sticky.
	if events[1].Type != DefaultEventType {
		t.Errorf("second event Type = %q, want %q", events[1].Type, DefaultEventType)
	}
	if events[1].ID != "7" {
		t.Errorf("second event ID = %q, want sticky 7", events[1].ID)
	}
}

func TestReader_BlankFramesWithoutDataAreSkipped(t *testing.T) {
	events := readAll(t, "\n\nevent: ping\n\n: comment\n\ndata: real\n\n")
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Type != DefaultEventType {
		t.Errorf("Type = %q; a dataless frame must not leak its event name", events[0].Type)
	}
}

func TestReader_EmptyStream(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	_, err := r.ReadEvent()
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_TruncatedEvent(t *testing.T) {
	r := NewReader(strings.NewReader("data: {\"phase\":"))
	_, err := r.ReadEvent()
	if !IsFrameError(err, FrameErrorTruncated) {
		t.Fatalf("expected truncated frame error, got %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("truncated error should wrap io.ErrUnexpectedEOF")
	}
}

func TestReader_OversizedLine(t *testing.T) {
	input := "data: " + strings.Repeat("x", MaxLineSize+10) + "\n\n"
	r := NewReader(strings.NewReader(input))
	_, err := r.ReadEvent()
	if !IsFrameError(err, FrameErrorTooLarge) {
		t.Fatalf("expected too-large frame error, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestReader_ReadError(t *testing.T) {
	r := NewReader(failingReader{})
	_, err := r.ReadEvent()
	if !IsFrameError(err, FrameErrorRead) {
		t.Fatalf("expected read frame error, got %v", err)
	}
}

func TestFrameError_ErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *FrameError
		want string
	}{
		{
			name: "with wrapped error",
			err:  &FrameError{Kind: FrameErrorRead, Msg: "failed to read stream", Err: io.ErrClosedPipe},
			want: "failed to read stream: io: read/write on closed pipe",
		},
		{
			name: "without wrapped error",
			err:  &FrameError{Kind: FrameErrorTooLarge, Msg: "line too long"},
			want: "line too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteEvent_RoundTrip(t *testing.T) {
	var b bytes.Buffer
	in := Event{Type: "progress", ID: "42", Retry: 500, Data: []byte("a\nb")}
	if err := WriteEvent(&b, in); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}

	events := readAll(t, b.String())
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	got := events[0]
	if got.Type != in.Type || got.ID != in.ID || got.Retry != in.Retry || string(got.Data) != "a\nb" {
		t.Errorf("round trip = %+v, want %+v", got, in)
	}
}
