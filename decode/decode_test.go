package decode

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/pithecene-io/benchwatch/types"
)

func TestDecode_Progress(t *testing.T) {
	raw := `{"completed_units":3,"total_units":10,"percentage":30,"average_time_ms":12.5,"current_unit_time_ms":11,"elapsed_time_ms":37.5,"completed_count":300,"phase":"running"}`

	ev, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindProgress {
		t.Fatalf("Kind = %s, want progress", ev.Kind)
	}
	if ev.Result != nil {
		t.Error("progress event must not carry a result")
	}

	want := types.ProgressSnapshot{
		CompletedUnits:    3,
		TotalUnits:        10,
		Percentage:        30,
		AverageTimeMs:     12.5,
		CurrentUnitTimeMs: 11,
		ElapsedTimeMs:     37.5,
		CompletedCount:    300,
		Phase:             "running",
	}
	if *ev.Progress != want {
		t.Errorf("progress = %+v, want %+v", *ev.Progress, want)
	}
}

func TestDecode_Terminal(t *testing.T) {
	raw := `{"phase":"completed","total_execution_time_ms":1500,"p50_ms":10,"p95_ms":45,"p99_ms":80,"units_executed":10,"results_count":1000000}`

	ev, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindTerminal {
		t.Fatalf("Kind = %s, want terminal", ev.Kind)
	}
	if ev.Progress != nil {
		t.Error("terminal event must not carry progress")
	}

	want := types.FinalResult{
		Phase:                "completed",
		TotalExecutionTimeMs: 1500,
		P50Ms:                10,
		P95Ms:                45,
		P99Ms:                80,
		UnitsExecuted:        10,
		ResultsCount:         1000000,
	}
	if *ev.Result != want {
		t.Errorf("result = %+v, want %+v", *ev.Result, want)
	}
}

func TestDecode_Classification(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		{"phase completed only", `{"phase":"completed"}`, KindTerminal},
		{"units_executed without phase", `{"units_executed":5}`, KindTerminal},
		{"running phase", `{"phase":"running","completed_units":1}`, KindProgress},
		{"empty object", `{}`, KindProgress},
		{"unknown phase", `{"phase":"warming_up"}`, KindProgress},
		{"units_executed null", `{"units_executed":null}`, KindProgress},
		{"legacy terminal", `{"status":"completed","queries_executed":100}`, KindTerminal},
		{"legacy progress", `{"status":"running","progress":1,"total":100}`, KindProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.raw))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if ev.Kind != tt.want {
				t.Errorf("Kind = %s, want %s", ev.Kind, tt.want)
			}
		})
	}
}

func TestDecode_MissingFieldsAreDetectable(t *testing.T) {
	ev, err := Decode([]byte(`{"phase":"running","percentage":"lots","completed_units":2}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := ev.Progress

	if p.CompletedUnits != 2 {
		t.Errorf("CompletedUnits = %d, want 2", p.CompletedUnits)
	}
	if !types.IsUnset(p.TotalUnits) {
		t.Errorf("TotalUnits = %d, want Unset", p.TotalUnits)
	}
	if !types.IsUnset(p.CompletedCount) {
		t.Errorf("CompletedCount = %d, want Unset", p.CompletedCount)
	}
	if !math.IsNaN(p.Percentage) {
		t.Errorf("Percentage = %v, want NaN for non-numeric value", p.Percentage)
	}
	if !math.IsNaN(p.ElapsedTimeMs) {
		t.Errorf("ElapsedTimeMs = %v, want NaN for absent value", p.ElapsedTimeMs)
	}
}

func TestDecode_NoRangeValidation(t *testing.T) {
	ev, err := Decode([]byte(`{"phase":"running","percentage":250,"completed_units":-4,"total_units":0}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Progress.Percentage != 250 {
		t.Errorf("Percentage = %v, want 250 as sent", ev.Progress.Percentage)
	}
	if ev.Progress.CompletedUnits != -4 {
		t.Errorf("CompletedUnits = %d, want -4 as sent", ev.Progress.CompletedUnits)
	}
}

func TestDecode_IntegerRange(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int64
	}{
		{"exact above 2^53", `9007199254740993`, 9007199254740993},
		{"max int64", `9223372036854775807`, math.MaxInt64},
		{"fractional truncates", `7.9`, 7},
		{"exponent in range", `1e3`, 1000},
		{"exponent overflow", `1e20`, types.Unset},
		{"negative overflow", `-1e20`, types.Unset},
		{"literal overflow", `9223372036854775808`, types.Unset},
		{"string", `"12"`, types.Unset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(`{"phase":"running","completed_units":` + tt.raw + `}`))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got := ev.Progress.CompletedUnits; got != tt.want {
				t.Errorf("CompletedUnits = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecode_LegacyFieldNames(t *testing.T) {
	ev, err := Decode([]byte(`{"progress":7,"total":100,"percentage":7.0,"current_query_time":1.25,"total_time":9.5,"results_count":12,"status":"running"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := ev.Progress
	if p.CompletedUnits != 7 || p.TotalUnits != 100 || p.CompletedCount != 12 {
		t.Errorf("unexpected counters: %+v", p)
	}
	if p.CurrentUnitTimeMs != 1.25 || p.ElapsedTimeMs != 9.5 {
		t.Errorf("unexpected timings: %+v", p)
	}
	if p.Phase != "running" {
		t.Errorf("Phase = %q", p.Phase)
	}
	if !math.IsNaN(p.AverageTimeMs) {
		t.Errorf("AverageTimeMs = %v, want NaN (legacy service never sent it)", p.AverageTimeMs)
	}

	ev, err = Decode([]byte(`{"status":"completed","total_execution_time_ms":20,"p50_ms":1,"p95_ms":2,"p99_ms":3,"queries_executed":100,"results_count":40}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Result.UnitsExecuted != 100 || ev.Result.ResultsCount != 40 || ev.Result.Phase != "completed" {
		t.Errorf("unexpected legacy result: %+v", ev.Result)
	}
}

func TestDecode_CanonicalNameWinsOverAlias(t *testing.T) {
	ev, err := Decode([]byte(`{"completed_units":3,"progress":99,"phase":"running","status":"completed"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindProgress {
		t.Fatalf("Kind = %s, want progress (phase takes precedence over status)", ev.Kind)
	}
	if ev.Progress.CompletedUnits != 3 {
		t.Errorf("CompletedUnits = %d, want 3", ev.Progress.CompletedUnits)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		notObject bool
	}{
		{"plain text", "not-json", false},
		{"empty", "", false},
		{"truncated object", `{"phase":"running"`, false},
		{"number", "42", true},
		{"array", `[{"phase":"completed"}]`, true},
		{"null", "null", true},
		{"string", `"completed"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}

			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if de.Raw != tt.raw {
				t.Errorf("Raw = %q, want %q", de.Raw, tt.raw)
			}
			if got := errors.Is(err, ErrNotObject); got != tt.notObject {
				t.Errorf("errors.Is(err, ErrNotObject) = %v, want %v", got, tt.notObject)
			}
			if !IsDecodeError(err) {
				t.Error("IsDecodeError should be true")
			}
		})
	}
}

func TestDecode_CanonicalPayloadRoundTrip(t *testing.T) {
	body, err := json.Marshal(TerminalPayload{Phase: "completed", UnitsExecuted: 3, P99Ms: 4.5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ev, err := Decode(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindTerminal || ev.Result.UnitsExecuted != 3 || ev.Result.P99Ms != 4.5 {
		t.Errorf("unexpected event: %+v", ev.Result)
	}
}

func TestPayloadSchemas(t *testing.T) {
	s := PayloadSchemas()
	if s.Progress == nil || s.Terminal == nil {
		t.Fatal("expected both schemas")
	}
	if _, ok := s.Progress.Properties.Get("completed_units"); !ok {
		t.Error("progress schema missing completed_units")
	}
	if _, ok := s.Terminal.Properties.Get("units_executed"); !ok {
		t.Error("terminal schema missing units_executed")
	}
}
