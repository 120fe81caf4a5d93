package decode

import (
	"github.com/invopop/jsonschema"
)

// ProgressPayload is the canonical wire shape of a progress message.
type ProgressPayload struct {
	CompletedUnits    int64   `json:"completed_units" jsonschema:"minimum=0,description=Work units finished so far"`
	TotalUnits        int64   `json:"total_units" jsonschema:"exclusiveMinimum=0,description=Work units planned for the run"`
	Percentage        float64 `json:"percentage" jsonschema:"minimum=0,maximum=100"`
	AverageTimeMs     float64 `json:"average_time_ms" jsonschema:"minimum=0"`
	CurrentUnitTimeMs float64 `json:"current_unit_time_ms" jsonschema:"minimum=0"`
	ElapsedTimeMs     float64 `json:"elapsed_time_ms" jsonschema:"minimum=0"`
	CompletedCount    int64   `json:"completed_count" jsonschema:"minimum=0,description=Result rows produced by the most recent unit"`
	Phase             string  `json:"phase" jsonschema:"enum=running"`
}

// TerminalPayload is the canonical wire shape of the terminal message.
type TerminalPayload struct {
	Phase                string  `json:"phase" jsonschema:"enum=completed"`
	TotalExecutionTimeMs float64 `json:"total_execution_time_ms" jsonschema:"minimum=0"`
	P50Ms                float64 `json:"p50_ms" jsonschema:"minimum=0"`
	P95Ms                float64 `json:"p95_ms" jsonschema:"minimum=0"`
	P99Ms                float64 `json:"p99_ms" jsonschema:"minimum=0"`
	UnitsExecuted        int64   `json:"units_executed" jsonschema:"minimum=0"`
	ResultsCount         int64   `json:"results_count" jsonschema:"minimum=0"`
}

// Schemas holds the JSON Schema of each payload shape.
type Schemas struct {
	Progress *jsonschema.Schema `json:"progress" yaml:"progress"`
	Terminal *jsonschema.Schema `json:"terminal" yaml:"terminal"`
}

// PayloadSchemas reflects the JSON Schema of both payload shapes.
func PayloadSchemas() Schemas {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return Schemas{
		Progress: reflector.Reflect(&ProgressPayload{}),
		Terminal: reflector.Reflect(&TerminalPayload{}),
	}
}
