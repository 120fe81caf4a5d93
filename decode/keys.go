package decode

// key is a canonical payload field name.
type key string

// Canonical payload field names.
const (
	keyPhase                key = "phase"
	keyCompletedUnits       key = "completed_units"
	keyTotalUnits           key = "total_units"
	keyPercentage           key = "percentage"
	keyAverageTimeMs        key = "average_time_ms"
	keyCurrentUnitTimeMs    key = "current_unit_time_ms"
	keyElapsedTimeMs        key = "elapsed_time_ms"
	keyCompletedCount       key = "completed_count"
	keyTotalExecutionTimeMs key = "total_execution_time_ms"
	keyP50Ms                key = "p50_ms"
	keyP95Ms                key = "p95_ms"
	keyP99Ms                key = "p99_ms"
	keyUnitsExecuted        key = "units_executed"
	keyResultsCount         key = "results_count"
)

// legacyAliases maps canonical names to the names used by the first
// version of the benchmark service. Aliases are consulted only when the
// canonical name is missing.
//
// The legacy progress shape used results_count for the per-unit row count,
// so it aliases completed_count. Terminal payloads read results_count directly.
var legacyAliases = map[key][]string{
	keyPhase:             {"status"},
	keyCompletedUnits:    {"progress"},
	keyTotalUnits:        {"total"},
	keyAverageTimeMs:     {"average_time"},
	keyCurrentUnitTimeMs: {"current_query_time"},
	keyElapsedTimeMs:     {"total_time"},
	keyCompletedCount:    {"results_count"},
	keyUnitsExecuted:     {"queries_executed"},
}

// names returns the canonical name followed by any aliases.
func (k key) names() []string {
	return append([]string{string(k)}, legacyAliases[k]...)
}
