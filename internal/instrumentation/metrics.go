package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod      = "method"
	attrPath        = "path"
	attrStatus      = "status"
	attrOperation   = "operation"
	attrCluster     = "cluster"
	attrClusterType = "cluster_type"
	attrOutcome     = "outcome"
	attrMechanism   = "mechanism"
	attrReason      = "reason"
)

// Status values used for outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var durationBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Dispatch metrics
	operationsTotal   metric.Int64Counter
	operationDuration metric.Float64Histogram

	// Authentication metrics
	authResolutionsTotal   metric.Int64Counter
	authResolutionDuration metric.Float64Histogram

	// Client cache metrics
	cacheHitsTotal      metric.Int64Counter
	cacheMissesTotal    metric.Int64Counter
	cacheEvictionsTotal metric.Int64Counter
	cacheSize           metric.Int64Gauge

	// detailedLabels adds the full cluster name next to the classified
	// cluster type. Leave disabled when clusters are created dynamically.
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Dispatch Metrics
	m.operationsTotal, err = meter.Int64Counter(
		"opensearch_operations_total",
		metric.WithDescription("Total number of dispatched OpenSearch operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch_operations_total counter: %w", err)
	}

	m.operationDuration, err = meter.Float64Histogram(
		"opensearch_operation_duration_seconds",
		metric.WithDescription("OpenSearch operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch_operation_duration_seconds histogram: %w", err)
	}

	// Authentication Metrics
	m.authResolutionsTotal, err = meter.Int64Counter(
		"opensearch_auth_resolutions_total",
		metric.WithDescription("Total number of cluster authentication resolutions"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch_auth_resolutions_total counter: %w", err)
	}

	m.authResolutionDuration, err = meter.Float64Histogram(
		"opensearch_auth_resolution_duration_seconds",
		metric.WithDescription("Cluster authentication resolution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch_auth_resolution_duration_seconds histogram: %w", err)
	}

	// Client Cache Metrics
	m.cacheHitsTotal, err = meter.Int64Counter(
		"opensearch_client_cache_hits_total",
		metric.WithDescription("Total number of client cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch_client_cache_hits_total counter: %w", err)
	}

	m.cacheMissesTotal, err = meter.Int64Counter(
		"opensearch_client_cache_misses_total",
		metric.WithDescription("Total number of client cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch_client_cache_misses_total counter: %w", err)
	}

	m.cacheEvictionsTotal, err = meter.Int64Counter(
		"opensearch_client_cache_evictions_total",
		metric.WithDescription("Total number of client cache evictions"),
		metric.WithUnit("{eviction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch_client_cache_evictions_total counter: %w", err)
	}

	m.cacheSize, err = meter.Int64Gauge(
		"opensearch_client_cache_size",
		metric.WithDescription("Number of cached OpenSearch client handles"),
		metric.WithUnit("{client}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch_client_cache_size gauge: %w", err)
	}

	return m, nil
}

func (m *Metrics) clusterAttrs(cluster string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(attrClusterType, ClassifyClusterName(cluster)),
	}
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrCluster, cluster))
	}
	return attrs
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordDispatch records one dispatched operation. Outcome is "success" or
// the failure kind.
//
// CARDINALITY NOTE: the cluster name is reduced to its classified type
// unless detailedLabels is enabled.
func (m *Metrics) RecordDispatch(ctx context.Context, operation, cluster, outcome string, duration time.Duration) {
	if m.operationsTotal == nil || m.operationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := append([]attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrOutcome, outcome),
	}, m.clusterAttrs(cluster)...)

	m.operationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAuthResolution records which authentication mechanism a cluster resolved to.
func (m *Metrics) RecordAuthResolution(ctx context.Context, mechanism string, duration time.Duration) {
	if m.authResolutionsTotal == nil || m.authResolutionDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(attribute.String(attrMechanism, mechanism))
	m.authResolutionsTotal.Add(ctx, 1, attrs)
	m.authResolutionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCacheHit records a client cache hit.
func (m *Metrics) RecordCacheHit(ctx context.Context, cluster string) {
	if m.cacheHitsTotal == nil {
		return // Instrumentation not initialized
	}
	m.cacheHitsTotal.Add(ctx, 1, metric.WithAttributes(m.clusterAttrs(cluster)...))
}

// RecordCacheMiss records a client cache miss.
func (m *Metrics) RecordCacheMiss(ctx context.Context, cluster string) {
	if m.cacheMissesTotal == nil {
		return // Instrumentation not initialized
	}
	m.cacheMissesTotal.Add(ctx, 1, metric.WithAttributes(m.clusterAttrs(cluster)...))
}

// RecordCacheEviction records a client cache eviction with its reason
// ("replaced", "invalidated", "expired").
func (m *Metrics) RecordCacheEviction(ctx context.Context, reason string) {
	if m.cacheEvictionsTotal == nil {
		return // Instrumentation not initialized
	}
	m.cacheEvictionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrReason, reason)))
}

// SetCacheSize sets the current number of cached client handles.
func (m *Metrics) SetCacheSize(ctx context.Context, size int) {
	if m.cacheSize == nil {
		return // Instrumentation not initialized
	}
	m.cacheSize.Record(ctx, int64(size))
}
