package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/instrumentation"
	"github.com/giantswarm/mcp-opensearch/internal/logging"
	"github.com/giantswarm/mcp-opensearch/internal/opensearch"
)

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) RecordDispatch(context.Context, string, string, string, time.Duration) {}

// Dispatcher executes requests against the registered clusters.
// It is safe for concurrent use.
type Dispatcher struct {
	registry ClusterResolver
	clients  ClientSource
	catalog  Catalog
	versions VersionSource

	logger  *slog.Logger
	metrics MetricsRecorder
}

// Option is a functional option for configuring a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for the dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(d *Dispatcher) {
		if metrics != nil {
			d.metrics = metrics
		}
	}
}

// WithVersionGate enables the per-operation backend version check.
func WithVersionGate(versions VersionSource) Option {
	return func(d *Dispatcher) {
		d.versions = versions
	}
}

// New creates a Dispatcher.
func New(registry ClusterResolver, clients ClientSource, catalog Catalog, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		clients:  clients,
		catalog:  catalog,
		logger:   slog.Default(),
		metrics:  noopMetricsRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs req to completion. It never panics and never returns an
// error: every failure is reported through Result.Failure.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	start := time.Now()
	res := Result{
		RequestID: uuid.NewString(),
		Operation: req.Operation,
		Cluster:   req.Cluster,
	}

	ctx, span := instrumentation.StartDispatchSpan(ctx, req.Operation, req.Cluster,
		instrumentation.NewSpanAttributeBuilder().
			WithRequestID(res.RequestID).
			WithIndex(req.Index()).
			Build()...)
	defer span.End()

	logger := d.logger.With(
		logging.RequestID(res.RequestID),
		logging.Operation(req.Operation))

	data, err := d.run(ctx, req, &res, span, logger)
	if err != nil {
		res.Failure = NewFailure(req.Operation, res.Cluster, err)
	} else {
		res.Data = data
	}

	d.finish(ctx, span, logger, res, time.Since(start))
	return res
}

func (d *Dispatcher) run(ctx context.Context, req Request, res *Result, span trace.Span, logger *slog.Logger) (any, error) {
	profile, err := d.registry.Resolve(req.Cluster)
	if err != nil {
		return nil, err
	}
	res.Cluster = profile.Name
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithCluster(profile.Name).Build()...)

	handle, err := d.clients.Acquire(ctx, profile)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithAuthMechanism(string(handle.Mechanism())).Build()...)

	op, ok := d.catalog.Operation(req.Operation)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, req.Operation)
	}

	if err := d.checkVersion(ctx, op, profile, handle, logger); err != nil {
		return nil, err
	}

	args, err := op.Bind(req.Arguments)
	if err != nil {
		return nil, err
	}

	return invoke(ctx, op, handle.Client, args)
}

// checkVersion rejects operations outside the cluster's supported version
// range. Serverless collections have no version and are never gated; a
// version that cannot be determined does not block the request.
func (d *Dispatcher) checkVersion(ctx context.Context, op Operation, profile cluster.Profile, handle *opensearch.Handle, logger *slog.Logger) error {
	constrained, ok := op.(VersionConstrained)
	if d.versions == nil || !ok || profile.Serverless {
		return nil
	}

	version, err := d.versions.Version(ctx, profile.Name, handle.Client)
	if err != nil {
		logger.Warn("Could not determine cluster version, skipping compatibility check",
			logging.Cluster(profile.Name),
			logging.SanitizedErr(err))
		return nil
	}

	if !constrained.SupportsVersion(version) {
		return &UnsupportedOperationError{Operation: op.Name(), Version: version.String()}
	}
	return nil
}

// invoke calls the operation, converting a panic into a PanicError.
func invoke(ctx context.Context, op Operation, client opensearch.Client, args any) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return op.Invoke(ctx, client, args)
}

func (d *Dispatcher) finish(ctx context.Context, span trace.Span, logger *slog.Logger, res Result, duration time.Duration) {
	outcome := logging.StatusSuccess
	if res.Failed() {
		outcome = string(res.Failure.Kind)
	}
	d.metrics.RecordDispatch(ctx, res.Operation, res.Cluster, outcome, duration)

	if !res.Failed() {
		instrumentation.SetSpanSuccess(span)
		logger.Info("Operation completed",
			logging.Cluster(res.Cluster),
			slog.Duration(logging.KeyDuration, duration),
			logging.Status(logging.StatusSuccess))
		return
	}

	instrumentation.SetSpanError(span, res.Failure)
	span.SetAttributes(attribute.String(instrumentation.SpanAttrFailureKind, string(res.Failure.Kind)))

	attrs := []any{
		logging.Cluster(res.Cluster),
		logging.Kind(string(res.Failure.Kind)),
		slog.Duration(logging.KeyDuration, duration),
		logging.Status(logging.StatusError),
		logging.SanitizedErr(res.Failure.Err),
	}
	if panicErr, ok := res.Failure.Err.(*PanicError); ok {
		logger.Error("Operation panicked", append(attrs, "stack", string(panicErr.Stack))...)
		return
	}
	logger.Warn("Operation failed", attrs...)
}
