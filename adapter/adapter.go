// Package adapter defines the run-completion notification boundary.
//
// Adapters publish one notification per finished benchmark run to a
// downstream system. The CLI owns adapter lifecycle; users provide
// configuration only.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/benchwatch/types"
)

// EventType is the event_type of every published notification.
const EventType = "benchmark_completed"

// RunCompletedEvent is the payload published when a run reaches a terminal
// state. Result fields are nil when the run failed or the server omitted them.
type RunCompletedEvent struct {
	ContractVersion string `json:"contract_version" msgpack:"contract_version"`
	EventType       string `json:"event_type" msgpack:"event_type"` // always "benchmark_completed"
	RunID           string `json:"run_id" msgpack:"run_id"`
	Endpoint        string `json:"endpoint" msgpack:"endpoint"`
	Outcome         string `json:"outcome" msgpack:"outcome"` // completed or error
	ErrorCause      string `json:"error_cause,omitempty" msgpack:"error_cause,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty" msgpack:"error_message,omitempty"`
	Timestamp       string `json:"timestamp" msgpack:"timestamp"` // RFC 3339
	DurationMs      int64  `json:"duration_ms" msgpack:"duration_ms"`

	UnitsExecuted        *int64   `json:"units_executed,omitempty" msgpack:"units_executed,omitempty"`
	ResultsCount         *int64   `json:"results_count,omitempty" msgpack:"results_count,omitempty"`
	TotalExecutionTimeMs *float64 `json:"total_execution_time_ms,omitempty" msgpack:"total_execution_time_ms,omitempty"`
	P50Ms                *float64 `json:"p50_ms,omitempty" msgpack:"p50_ms,omitempty"`
	P95Ms                *float64 `json:"p95_ms,omitempty" msgpack:"p95_ms,omitempty"`
	P99Ms                *float64 `json:"p99_ms,omitempty" msgpack:"p99_ms,omitempty"`
}

// NewRunCompletedEvent builds the notification for a terminal state.
func NewRunCompletedEvent(runID, endpoint string, state types.RunState, duration time.Duration, at time.Time) *RunCompletedEvent {
	ev := &RunCompletedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       EventType,
		RunID:           runID,
		Endpoint:        endpoint,
		Outcome:         string(state.Status),
		Timestamp:       at.UTC().Format(time.RFC3339),
		DurationMs:      duration.Milliseconds(),
	}
	if state.Err != nil {
		ev.ErrorCause = string(state.Err.Cause)
		ev.ErrorMessage = state.Err.Message
	}
	if r := state.Result; r != nil {
		ev.UnitsExecuted = types.OptInt(r.UnitsExecuted)
		ev.ResultsCount = types.OptInt(r.ResultsCount)
		ev.TotalExecutionTimeMs = types.OptFloat(r.TotalExecutionTimeMs)
		ev.P50Ms = types.OptFloat(r.P50Ms)
		ev.P95Ms = types.OptFloat(r.P95Ms)
		ev.P99Ms = types.OptFloat(r.P99Ms)
	}
	return ev
}

// Encoding selects the wire format of a published payload.
type Encoding string

// Supported encodings.
const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// ParseEncoding validates an encoding name. The empty string maps to JSON.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingMsgpack:
		return EncodingMsgpack, nil
	default:
		return "", fmt.Errorf("invalid encoding %q: must be json or msgpack", s)
	}
}

// Marshal encodes event in the given encoding.
func Marshal(event *RunCompletedEvent, enc Encoding) ([]byte, error) {
	switch enc {
	case "", EncodingJSON:
		return json.Marshal(event)
	case EncodingMsgpack:
		return msgpack.Marshal(event)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
}

// Adapter publishes run completion events to a downstream system.
type Adapter interface {
	// Publish sends a run completion event to the downstream system.
	// Must respect context cancellation and deadlines. Implementations
	// deliver through Deliver so every transport shares validation and
	// retry behaviour.
	Publish(ctx context.Context, event *RunCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
