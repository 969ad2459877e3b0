// Package instrumentation provides OpenTelemetry metrics, tracing and the
// tool audit log for the mcp-opensearch server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Dispatch Metrics:
//   - opensearch_operations_total: Counter by operation, cluster_type and outcome
//   - opensearch_operation_duration_seconds: Histogram of operation durations
//
// Authentication Metrics:
//   - opensearch_auth_resolutions_total: Counter by resolved mechanism
//   - opensearch_auth_resolution_duration_seconds: Histogram of resolution durations
//
// Client Cache Metrics:
//   - opensearch_client_cache_hits_total / _misses_total: Counters by cluster_type
//   - opensearch_client_cache_evictions_total: Counter by reason
//   - opensearch_client_cache_size: Gauge of cached client handles
//
// # Cardinality Considerations
//
// Cluster names are reduced to a coarse type (production, staging,
// development, serverless, other) by ClassifyClusterName. Set
// METRICS_DETAILED_LABELS=true to also label metrics with the full cluster
// name when the set of configured clusters is small and fixed.
//
// # Tracing
//
// Spans are created for MCP tool invocations (StartToolSpan) and for each
// dispatched operation (StartDispatchSpan).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: prometheus, otlp, stdout or none (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_EXPORTER_OTLP_INSECURE: Use plain HTTP for OTLP (default: false)
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: mcp-opensearch)
//   - METRICS_DETAILED_LABELS: Add full cluster names to metric labels
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordDispatch(ctx, "SearchIndexTool", "prod-logs", "success", time.Since(start))
package instrumentation
