package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the mcp-opensearch package.
const TracerName = "github.com/giantswarm/mcp-opensearch"

// Span attribute keys.
const (
	// SpanAttrCluster is the resolved cluster name attribute.
	SpanAttrCluster = "mcp.cluster"

	// SpanAttrClusterType is the classified cluster type attribute.
	SpanAttrClusterType = "mcp.cluster_type"

	// SpanAttrTool is the MCP tool name.
	SpanAttrTool = "mcp.tool"

	// SpanAttrOperation is the dispatched operation name.
	SpanAttrOperation = "mcp.operation"

	// SpanAttrRequestID is the dispatch request ID.
	SpanAttrRequestID = "mcp.request_id"

	// SpanAttrAuthMechanism is the authentication mechanism used for the cluster.
	SpanAttrAuthMechanism = "opensearch.auth_mechanism"

	// SpanAttrIndex is the target index or pattern.
	SpanAttrIndex = "opensearch.index"

	// SpanAttrFailureKind is the failure kind of an unsuccessful dispatch.
	SpanAttrFailureKind = "mcp.failure_kind"

	// SpanAttrCacheHit indicates whether a cached client handle was used.
	SpanAttrCacheHit = "mcp.cache_hit"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming and cardinality controls.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 8),
	}
}

// WithTool adds the MCP tool name attribute.
func (b *SpanAttributeBuilder) WithTool(tool string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrTool, tool))
	return b
}

// WithCluster adds both the cluster name and its classified type.
func (b *SpanAttributeBuilder) WithCluster(clusterName string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs,
		attribute.String(SpanAttrCluster, clusterName),
		attribute.String(SpanAttrClusterType, ClassifyClusterName(clusterName)),
	)
	return b
}

// WithRequestID adds the dispatch request ID attribute.
func (b *SpanAttributeBuilder) WithRequestID(id string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrRequestID, id))
	return b
}

// WithOperation adds the operation name attribute.
func (b *SpanAttributeBuilder) WithOperation(operation string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrOperation, operation))
	return b
}

// WithIndex adds the index attribute when non-empty.
func (b *SpanAttributeBuilder) WithIndex(index string) *SpanAttributeBuilder {
	if index != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrIndex, index))
	}
	return b
}

// WithAuthMechanism adds the authentication mechanism attribute.
func (b *SpanAttributeBuilder) WithAuthMechanism(mechanism string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrAuthMechanism, mechanism))
	return b
}

// WithCacheHit adds the cache hit indicator attribute.
func (b *SpanAttributeBuilder) WithCacheHit(hit bool) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Bool(SpanAttrCacheHit, hit))
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a server span for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append(NewSpanAttributeBuilder().WithTool(toolName).Build(), attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartDispatchSpan starts a client span for an operation routed to a cluster.
// The selector may be empty; the dispatcher sets the resolved cluster later.
func StartDispatchSpan(ctx context.Context, operation, selector string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	b := NewSpanAttributeBuilder().WithOperation(operation)
	if selector != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrCluster, selector))
	}
	allAttrs := append(b.Build(), attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "dispatch."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds an event to the span with optional attributes.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
// Returns empty string if no valid span is present.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
