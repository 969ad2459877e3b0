package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracingTestCluster = "prod-logs"
	tracingTestTool    = "SearchIndexTool"
)

func attrsToMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, attr := range attrs {
		m[attr.Key] = attr.Value
	}
	return m
}

func createTestSpanContext() (context.Context, trace.Span, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	tracer := tp.Tracer(TracerName)
	ctx, span := tracer.Start(context.Background(), "test-span")

	return ctx, span, exporter
}

// installTestTracer routes the global tracer provider to an in-memory
// exporter for the duration of the test.
func installTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestSpanAttributeBuilder(t *testing.T) {
	t.Run("empty builder", func(t *testing.T) {
		if attrs := NewSpanAttributeBuilder().Build(); len(attrs) != 0 {
			t.Errorf("Empty builder should return 0 attributes, got %d", len(attrs))
		}
	})

	t.Run("with cluster adds name and type", func(t *testing.T) {
		attrs := attrsToMap(NewSpanAttributeBuilder().WithCluster(tracingTestCluster).Build())
		if attrs[SpanAttrCluster].AsString() != tracingTestCluster {
			t.Errorf("cluster = %q", attrs[SpanAttrCluster].AsString())
		}
		if attrs[SpanAttrClusterType].AsString() != "production" {
			t.Errorf("cluster type = %q", attrs[SpanAttrClusterType].AsString())
		}
	})

	t.Run("with request ID", func(t *testing.T) {
		attrs := NewSpanAttributeBuilder().WithRequestID("req-1").Build()
		if len(attrs) != 1 || attrs[0].Key != SpanAttrRequestID || attrs[0].Value.AsString() != "req-1" {
			t.Errorf("unexpected attributes %v", attrs)
		}
	})

	t.Run("empty index is skipped", func(t *testing.T) {
		if attrs := NewSpanAttributeBuilder().WithIndex("").Build(); len(attrs) != 0 {
			t.Errorf("expected no attributes, got %v", attrs)
		}
	})

	t.Run("chained", func(t *testing.T) {
		attrs := attrsToMap(NewSpanAttributeBuilder().
			WithTool(tracingTestTool).
			WithOperation("SearchIndexTool").
			WithIndex("logs-*").
			WithAuthMechanism("basic").
			WithCacheHit(true).
			Build())

		if attrs[SpanAttrTool].AsString() != tracingTestTool {
			t.Errorf("tool = %q", attrs[SpanAttrTool].AsString())
		}
		if attrs[SpanAttrIndex].AsString() != "logs-*" {
			t.Errorf("index = %q", attrs[SpanAttrIndex].AsString())
		}
		if attrs[SpanAttrAuthMechanism].AsString() != "basic" {
			t.Errorf("mechanism = %q", attrs[SpanAttrAuthMechanism].AsString())
		}
		if !attrs[SpanAttrCacheHit].AsBool() {
			t.Error("cache hit should be true")
		}
	})
}

func TestStartToolSpan(t *testing.T) {
	exporter := installTestTracer(t)

	_, span := StartToolSpan(context.Background(), tracingTestTool)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "tool."+tracingTestTool {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if spans[0].SpanKind != trace.SpanKindServer {
		t.Errorf("span kind = %v, want server", spans[0].SpanKind)
	}
}

func TestStartDispatchSpan(t *testing.T) {
	tests := []struct {
		name        string
		selector    string
		wantCluster bool
	}{
		{name: "with selector", selector: tracingTestCluster, wantCluster: true},
		{name: "without selector", selector: "", wantCluster: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := installTestTracer(t)

			_, span := StartDispatchSpan(context.Background(), "CountTool", tt.selector)
			span.End()

			spans := exporter.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("Expected 1 span, got %d", len(spans))
			}
			if spans[0].Name != "dispatch.CountTool" {
				t.Errorf("span name = %q", spans[0].Name)
			}
			if spans[0].SpanKind != trace.SpanKindClient {
				t.Errorf("span kind = %v, want client", spans[0].SpanKind)
			}
			attrs := attrsToMap(spans[0].Attributes)
			if attrs[SpanAttrOperation].AsString() != "CountTool" {
				t.Errorf("operation = %q", attrs[SpanAttrOperation].AsString())
			}
			if _, ok := attrs[SpanAttrCluster]; ok != tt.wantCluster {
				t.Errorf("cluster attribute present = %v, want %v", ok, tt.wantCluster)
			}
		})
	}
}

func TestStartSpan(t *testing.T) {
	spanCtx, span := StartSpan(context.Background(), "test-operation", attribute.String("key", "value"))
	defer span.End()

	if spanCtx == nil {
		t.Error("StartSpan should return non-nil context")
	}
}

func TestSetSpanError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	_, span := tp.Tracer(TracerName).Start(context.Background(), "test-span")
	SetSpanError(span, errors.New("test error"))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("Expected error status code, got %v", spans[0].Status.Code)
	}
}

func TestSetSpanError_NilError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	_, span := tp.Tracer(TracerName).Start(context.Background(), "test-span")
	SetSpanError(span, nil)
	span.End()

	if code := exporter.GetSpans()[0].Status.Code; code != codes.Unset {
		t.Errorf("Expected unset status for nil error, got %v", code)
	}
}

func TestSetSpanSuccess(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	_, span := tp.Tracer(TracerName).Start(context.Background(), "test-span")
	SetSpanSuccess(span)
	span.End()

	if code := exporter.GetSpans()[0].Status.Code; code != codes.Ok {
		t.Errorf("Expected OK status code, got %v", code)
	}
}

func TestAddSpanEvent(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	_, span := tp.Tracer(TracerName).Start(context.Background(), "test-span")
	AddSpanEvent(span, "cache_miss", attribute.String(SpanAttrCluster, tracingTestCluster))
	span.End()

	events := exporter.GetSpans()[0].Events
	if len(events) != 1 || events[0].Name != "cache_miss" {
		t.Errorf("unexpected events %v", events)
	}
}

func TestTraceAndSpanIDs(t *testing.T) {
	if GetTraceID(context.Background()) != "" {
		t.Error("TraceID should be empty without a span")
	}
	if GetSpanID(context.Background()) != "" {
		t.Error("SpanID should be empty without a span")
	}

	ctx, span, _ := createTestSpanContext()
	defer span.End()

	if len(GetTraceID(ctx)) != 32 {
		t.Errorf("TraceID should be 32 chars, got %q", GetTraceID(ctx))
	}
	if len(GetSpanID(ctx)) != 16 {
		t.Errorf("SpanID should be 16 chars, got %q", GetSpanID(ctx))
	}
}
