package session

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pithecene-io/benchwatch/types"
)

const scopeName = "github.com/pithecene-io/benchwatch/session"

var tracer = otel.Tracer(scopeName)

// annotateSpan records a transition on the run's span.
func annotateSpan(span trace.Span, next types.RunState) {
	switch next.Status {
	case types.StatusRunning:
		p := next.Progress
		span.AddEvent("progress", trace.WithAttributes(
			attribute.Int64("benchmark.completed_units", p.CompletedUnits),
			attribute.Int64("benchmark.total_units", p.TotalUnits),
		))
	case types.StatusCompleted:
		r := next.Result
		span.SetAttributes(
			attribute.Int64("benchmark.units_executed", r.UnitsExecuted),
			attribute.Int64("benchmark.results_count", r.ResultsCount),
		)
		span.SetStatus(codes.Ok, "")
	case types.StatusError:
		span.SetAttributes(attribute.String("benchmark.error_cause", string(next.Err.Cause)))
		span.SetStatus(codes.Error, next.Err.Message)
	}
}
