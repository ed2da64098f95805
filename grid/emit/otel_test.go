package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attributeMap(attrs []attribute.KeyValue) map[string]interface{} {
	m := make(map[string]interface{}, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}

func TestOTelEmitter_Emit(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	emitter := NewOTelEmitter(otel.Tracer("test"))
	emitter.Emit(Event{
		RunID: "run-001",
		Step:  2,
		Stage: "power_flow",
		Msg:   "solve_step",
		Meta: map[string]interface{}{
			"iterations": 5,
			"loading":    0.82,
		},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "solve_step" {
		t.Errorf("span name = %q, want %q", span.Name, "solve_step")
	}

	attrs := attributeMap(span.Attributes)
	if got := attrs["gridsim.run_id"]; got != "run-001" {
		t.Errorf("run_id = %v, want %q", got, "run-001")
	}
	if got := attrs["gridsim.step"]; got != int64(2) {
		t.Errorf("step = %v, want 2", got)
	}
	if got := attrs["gridsim.stage"]; got != "power_flow" {
		t.Errorf("stage = %v, want %q", got, "power_flow")
	}
	if got := attrs["iterations"]; got != int64(5) {
		t.Errorf("iterations = %v, want 5", got)
	}
	if got := attrs["loading"]; got != 0.82 {
		t.Errorf("loading = %v, want 0.82", got)
	}
	if !span.EndTime.After(span.StartTime) {
		t.Error("span was not ended")
	}
}

func TestOTelEmitter_EmitWithError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	emitter := NewOTelEmitter(otel.Tracer("test"))
	emitter.Emit(Event{
		RunID: "run-002",
		Step:  7,
		Stage: "power_flow",
		Msg:   "solve_step",
		Meta:  map[string]interface{}{"error": "did not converge"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Status.Code != codes.Error {
		t.Errorf("status code = %v, want Error", span.Status.Code)
	}
	if span.Status.Description != "did not converge" {
		t.Errorf("status description = %q, want %q", span.Status.Description, "did not converge")
	}
	if len(span.Events) == 0 {
		t.Error("expected a recorded error event on the span")
	}
}

func TestOTelEmitter_EmitBatch(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	emitter := NewOTelEmitter(otel.Tracer("test"))
	events := []Event{
		{RunID: "run-003", Step: 1, Stage: "tap_scan", Msg: "scenario_done"},
		{RunID: "run-003", Step: 2, Stage: "tap_scan", Msg: "scenario_done"},
		{RunID: "run-003", Step: 0, Stage: "tap_scan", Msg: "run_complete"},
	}
	if err := emitter.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
}
