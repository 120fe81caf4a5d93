// Package types defines the domain types shared by the benchwatch client.
//
//nolint:revive // types is a common Go package naming convention
package types

import "math"

// Unset marks an integer field that was absent or non-numeric on the wire.
// Counters are never negative, so -1 is always detectable downstream.
const Unset int64 = -1

// Phase values carried by benchmark payloads.
const (
	PhaseRunning   = "running"
	PhaseCompleted = "completed"
)

// ProgressSnapshot is an intermediate measurement emitted while a run is active.
// Values are taken from the server as sent; Percentage is not recomputed.
type ProgressSnapshot struct {
	// CompletedUnits is the number of work units finished so far.
	CompletedUnits int64 `json:"completed_units" yaml:"completed_units"`
	// TotalUnits is the number of work units planned for the run.
	TotalUnits int64 `json:"total_units" yaml:"total_units"`
	// Percentage is the server-reported completion in [0,100].
	Percentage float64 `json:"percentage" yaml:"percentage"`
	// AverageTimeMs is the mean unit time so far.
	AverageTimeMs float64 `json:"average_time_ms" yaml:"average_time_ms"`
	// CurrentUnitTimeMs is the duration of the most recent unit.
	CurrentUnitTimeMs float64 `json:"current_unit_time_ms" yaml:"current_unit_time_ms"`
	// ElapsedTimeMs is the cumulative time spent in units.
	ElapsedTimeMs float64 `json:"elapsed_time_ms" yaml:"elapsed_time_ms"`
	// CompletedCount is the result row count of the most recent unit.
	CompletedCount int64 `json:"completed_count" yaml:"completed_count"`
	// Phase is always "running" for progress snapshots.
	Phase string `json:"phase" yaml:"phase"`
}

// InitialSnapshot returns the synthetic snapshot installed when a run starts,
// before the server has reported anything.
func InitialSnapshot() *ProgressSnapshot {
	return &ProgressSnapshot{Phase: PhaseRunning}
}

// FinalResult is the terminal record closing a successful run.
type FinalResult struct {
	// Phase is always "completed".
	Phase string `json:"phase" yaml:"phase"`
	// TotalExecutionTimeMs is the sum of all unit timings.
	TotalExecutionTimeMs float64 `json:"total_execution_time_ms" yaml:"total_execution_time_ms"`
	// P50Ms is the median unit latency.
	P50Ms float64 `json:"p50_ms" yaml:"p50_ms"`
	// P95Ms is the 95th percentile unit latency.
	P95Ms float64 `json:"p95_ms" yaml:"p95_ms"`
	// P99Ms is the 99th percentile unit latency.
	P99Ms float64 `json:"p99_ms" yaml:"p99_ms"`
	// UnitsExecuted is the number of units actually run.
	UnitsExecuted int64 `json:"units_executed" yaml:"units_executed"`
	// ResultsCount is the number of result rows produced across the run.
	ResultsCount int64 `json:"results_count" yaml:"results_count"`
}

// IsUnset reports whether an integer field was absent on the wire.
func IsUnset(v int64) bool {
	return v == Unset
}

// IsMissing reports whether a float field was absent or malformed on the wire.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// OptFloat returns nil for a missing float and a pointer to v otherwise.
// Use it before encoding to formats that cannot represent NaN.
func OptFloat(v float64) *float64 {
	if IsMissing(v) {
		return nil
	}
	return &v
}

// OptInt returns nil for an unset integer and a pointer to v otherwise.
func OptInt(v int64) *int64 {
	if IsUnset(v) {
		return nil
	}
	return &v
}
