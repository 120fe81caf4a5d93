package render

import (
	"time"

	"github.com/pithecene-io/benchwatch/metrics"
	"github.com/pithecene-io/benchwatch/types"
)

// Report is the rendered outcome of one run.
// Absent wire values are nil rather than NaN so every format can encode them.
type Report struct {
	RunID        string           `json:"run_id" yaml:"run_id"`
	Endpoint     string           `json:"endpoint" yaml:"endpoint"`
	Status       string           `json:"status" yaml:"status"`
	DurationMs   int64            `json:"duration_ms" yaml:"duration_ms"`
	Error        *types.RunError  `json:"error,omitempty" yaml:"error,omitempty"`
	Result       *ResultView      `json:"result,omitempty" yaml:"result,omitempty"`
	LastProgress *ProgressView    `json:"last_progress,omitempty" yaml:"last_progress,omitempty"`
	Metrics      metrics.Snapshot `json:"metrics" yaml:"metrics"`
}

// ResultView is a FinalResult with missing values as nil.
type ResultView struct {
	TotalExecutionTimeMs *float64 `json:"total_execution_time_ms" yaml:"total_execution_time_ms"`
	P50Ms                *float64 `json:"p50_ms" yaml:"p50_ms"`
	P95Ms                *float64 `json:"p95_ms" yaml:"p95_ms"`
	P99Ms                *float64 `json:"p99_ms" yaml:"p99_ms"`
	UnitsExecuted        *int64   `json:"units_executed" yaml:"units_executed"`
	ResultsCount         *int64   `json:"results_count" yaml:"results_count"`
}

// ProgressView is a ProgressSnapshot with missing values as nil.
type ProgressView struct {
	CompletedUnits    *int64   `json:"completed_units" yaml:"completed_units"`
	TotalUnits        *int64   `json:"total_units" yaml:"total_units"`
	Percentage        *float64 `json:"percentage" yaml:"percentage"`
	AverageTimeMs     *float64 `json:"average_time_ms" yaml:"average_time_ms"`
	CurrentUnitTimeMs *float64 `json:"current_unit_time_ms" yaml:"current_unit_time_ms"`
	ElapsedTimeMs     *float64 `json:"elapsed_time_ms" yaml:"elapsed_time_ms"`
	CompletedCount    *int64   `json:"completed_count" yaml:"completed_count"`
}

// NewReport builds the report for a finished run. last is the most recent
// progress snapshot seen, shown for runs that did not complete.
func NewReport(runID, endpoint string, state types.RunState, last *types.ProgressSnapshot, duration time.Duration, m metrics.Snapshot) *Report {
	rep := &Report{
		RunID:      runID,
		Endpoint:   endpoint,
		Status:     string(state.Status),
		DurationMs: duration.Milliseconds(),
		Error:      state.Err,
		Metrics:    m,
	}
	if state.Result != nil {
		rep.Result = NewResultView(state.Result)
	}
	if state.Status != types.StatusCompleted && last != nil {
		rep.LastProgress = NewProgressView(last)
	}
	return rep
}

// NewResultView converts a FinalResult.
func NewResultView(r *types.FinalResult) *ResultView {
	return &ResultView{
		TotalExecutionTimeMs: types.OptFloat(r.TotalExecutionTimeMs),
		P50Ms:                types.OptFloat(r.P50Ms),
		P95Ms:                types.OptFloat(r.P95Ms),
		P99Ms:                types.OptFloat(r.P99Ms),
		UnitsExecuted:        types.OptInt(r.UnitsExecuted),
		ResultsCount:         types.OptInt(r.ResultsCount),
	}
}

// NewProgressView converts a ProgressSnapshot.
func NewProgressView(p *types.ProgressSnapshot) *ProgressView {
	return &ProgressView{
		CompletedUnits:    types.OptInt(p.CompletedUnits),
		TotalUnits:        types.OptInt(p.TotalUnits),
		Percentage:        types.OptFloat(p.Percentage),
		AverageTimeMs:     types.OptFloat(p.AverageTimeMs),
		CurrentUnitTimeMs: types.OptFloat(p.CurrentUnitTimeMs),
		ElapsedTimeMs:     types.OptFloat(p.ElapsedTimeMs),
		CompletedCount:    types.OptInt(p.CompletedCount),
	}
}
