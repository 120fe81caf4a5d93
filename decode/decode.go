// Package decode classifies and parses benchmark stream payloads.
//
// A payload is one SSE message body holding a JSON object. There is no type
// envelope: the terminal shape is recognized by its fields (phase "completed"
// or a units_executed count). Everything else is a progress snapshot.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/pithecene-io/benchwatch/types"
)

// Kind tags a decoded event.
type Kind int

const (
	// KindProgress is an intermediate progress snapshot.
	KindProgress Kind = iota + 1
	// KindTerminal is the final result closing the run.
	KindTerminal
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a decoded payload. Exactly one of Progress or Result is set,
// matching Kind.
type Event struct {
	Kind     Kind
	Progress *types.ProgressSnapshot
	Result   *types.FinalResult
}

// ErrNotObject is wrapped by DecodeError when the body is valid JSON but
// not an object.
var ErrNotObject = errors.New("payload is not a JSON object")

// DecodeError reports a payload that is not structurally parseable.
// Raw holds the body as received, for diagnostics.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode payload %q: %v", truncate(e.Raw, 64), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError returns true if err is a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// fields is a parsed payload object.
type fields map[string]json.RawMessage

// Decode parses one raw payload and classifies it.
// Numeric fields are decoded independently: an absent or non-numeric value
// becomes NaN (floats) or types.Unset (integers) rather than failing the
// message. Only a body that is not a JSON object yields a *DecodeError.
func Decode(raw []byte) (Event, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		var probe any
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return Event{}, &DecodeError{Raw: string(raw), Err: err}
		}
		return Event{}, &DecodeError{Raw: string(raw), Err: ErrNotObject}
	}

	var f fields
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return Event{}, &DecodeError{Raw: string(raw), Err: err}
	}

	if isTerminal(f) {
		return Event{Kind: KindTerminal, Result: f.finalResult()}, nil
	}
	return Event{Kind: KindProgress, Progress: f.progress()}, nil
}

// isTerminal applies the structural discriminator.
func isTerminal(f fields) bool {
	if phase, ok := f.str(keyPhase); ok && phase == types.PhaseCompleted {
		return true
	}
	_, ok := f.lookup(keyUnitsExecuted)
	return ok
}

func (f fields) progress() *types.ProgressSnapshot {
	phase, _ := f.str(keyPhase)
	return &types.ProgressSnapshot{
		CompletedUnits:    f.integer(keyCompletedUnits),
		TotalUnits:        f.integer(keyTotalUnits),
		Percentage:        f.float(keyPercentage),
		AverageTimeMs:     f.float(keyAverageTimeMs),
		CurrentUnitTimeMs: f.float(keyCurrentUnitTimeMs),
		ElapsedTimeMs:     f.float(keyElapsedTimeMs),
		CompletedCount:    f.integer(keyCompletedCount),
		Phase:             phase,
	}
}

func (f fields) finalResult() *types.FinalResult {
	phase, _ := f.str(keyPhase)
	return &types.FinalResult{
		Phase:                phase,
		TotalExecutionTimeMs: f.float(keyTotalExecutionTimeMs),
		P50Ms:                f.float(keyP50Ms),
		P95Ms:                f.float(keyP95Ms),
		P99Ms:                f.float(keyP99Ms),
		UnitsExecuted:        f.integer(keyUnitsExecuted),
		ResultsCount:         f.integer(keyResultsCount),
	}
}

// lookup returns the raw value for a key, trying its legacy aliases when the
// canonical name is missing. JSON null counts as missing.
func (f fields) lookup(k key) (json.RawMessage, bool) {
	for _, name := range k.names() {
		v, ok := f[name]
		if ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return v, true
		}
	}
	return nil, false
}

func (f fields) str(k key) (string, bool) {
	v, ok := f.lookup(k)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

func (f fields) float(k key) float64 {
	v, ok := f.lookup(k)
	if !ok {
		return math.NaN()
	}
	var n float64
	if err := json.Unmarshal(v, &n); err != nil {
		return math.NaN()
	}
	return n
}

// integer parses integer literals exactly. Other numbers are truncated, and
// values outside the int64 range are reported as Unset.
func (f fields) integer(k key) int64 {
	v, ok := f.lookup(k)
	if !ok {
		return types.Unset
	}
	if n, err := strconv.ParseInt(string(bytes.TrimSpace(v)), 10, 64); err == nil {
		return n
	}
	n := f.float(k)
	if math.IsNaN(n) || n < -(1<<63) || n >= 1<<63 {
		return types.Unset
	}
	return int64(n)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
