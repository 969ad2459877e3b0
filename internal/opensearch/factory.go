package opensearch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/mcp-opensearch/internal/auth"
	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/instrumentation"
	"github.com/giantswarm/mcp-opensearch/internal/logging"
)

// FactoryConfig holds configuration options for the Factory.
type FactoryConfig struct {
	// ExpiryWindow is how long before credential expiry a handle is rebuilt.
	// Handles built from non-expiring material are unaffected, except
	// degraded ones, which are retried after one window.
	//
	// Default: 5 minutes.
	ExpiryWindow time.Duration

	// CleanupInterval is how often handles with expired credentials are swept.
	//
	// Default: 1 minute.
	CleanupInterval time.Duration
}

// DefaultFactoryConfig returns a FactoryConfig with sensible defaults.
func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{
		ExpiryWindow:    5 * time.Minute,
		CleanupInterval: 1 * time.Minute,
	}
}

// Builder constructs a client. It must not retain ctx.
type Builder func(ctx context.Context, p cluster.Profile, a auth.Context) (Client, error)

// defaultBuilder adapts NewClient to Builder.
func defaultBuilder(_ context.Context, p cluster.Profile, a auth.Context) (Client, error) {
	return NewClient(p, a)
}

// AuthResolver resolves the authentication context of a profile.
type AuthResolver interface {
	Resolve(ctx context.Context, p cluster.Profile) auth.Context
}

// CacheMetricsRecorder defines the interface for recording cache metrics.
// This allows decoupling from the concrete instrumentation implementation.
type CacheMetricsRecorder interface {
	// RecordCacheHit records a cache hit event.
	RecordCacheHit(ctx context.Context, clusterName string)

	// RecordCacheMiss records a cache miss event.
	RecordCacheMiss(ctx context.Context, clusterName string)

	// RecordCacheEviction records a cache eviction event.
	RecordCacheEviction(ctx context.Context, reason string)

	// SetCacheSize sets the current cache size gauge.
	SetCacheSize(ctx context.Context, size int)
}

// noopMetricsRecorder is a no-op implementation of CacheMetricsRecorder.
type noopMetricsRecorder struct{}

func (n *noopMetricsRecorder) RecordCacheHit(context.Context, string)      {}
func (n *noopMetricsRecorder) RecordCacheMiss(context.Context, string)     {}
func (n *noopMetricsRecorder) RecordCacheEviction(context.Context, string) {}
func (n *noopMetricsRecorder) SetCacheSize(context.Context, int)           {}

// Eviction reasons reported to CacheMetricsRecorder.
const (
	EvictionReplaced    = "replaced"
	EvictionInvalidated = "invalidated"
	EvictionExpired     = "expired"
)

// Handle is an owned client bound to one profile and auth context.
type Handle struct {
	Client Client

	cluster            string
	mechanism          auth.Mechanism
	fingerprint        string
	profileFingerprint string
	createdAt          time.Time
	expires            time.Time
	// retryAt is set when the handle fell back to a weaker mechanism than
	// the profile configures.
	retryAt time.Time

	// lastAccessedNanos stores the last accessed time as Unix nanoseconds.
	lastAccessedNanos atomic.Int64
}

// Cluster returns the profile name the handle was built for.
func (h *Handle) Cluster() string { return h.cluster }

// Mechanism returns the auth mechanism the client uses.
func (h *Handle) Mechanism() auth.Mechanism { return h.mechanism }

// Fingerprint returns the build-input fingerprint.
func (h *Handle) Fingerprint() string { return h.fingerprint }

// Expires returns the credential expiry, zero if none.
func (h *Handle) Expires() time.Time { return h.expires }

// expiring reports whether credentials expire within window of now.
func (h *Handle) expiring(now time.Time, window time.Duration) bool {
	return !h.expires.IsZero() && !now.Add(window).Before(h.expires)
}

// expired reports whether credentials have already expired.
func (h *Handle) expired(now time.Time) bool {
	return !h.expires.IsZero() && !now.Before(h.expires)
}

// Degraded reports whether the handle uses a weaker mechanism than its
// profile configures and will be rebuilt.
func (h *Handle) Degraded() bool { return !h.retryAt.IsZero() }

// retryDue reports whether a degraded handle should be rebuilt.
func (h *Handle) retryDue(now time.Time) bool {
	return !h.retryAt.IsZero() && !now.Before(h.retryAt)
}

func (h *Handle) touch(now time.Time) {
	h.lastAccessedNanos.Store(now.UnixNano())
}

// Factory creates and caches one client handle per cluster.
//
// A cached handle is reused while its fingerprint matches and its
// credentials are outside the expiry window. Concurrent requests for the
// same missing handle share a single construction.
type Factory struct {
	mu      sync.RWMutex
	handles map[string]*Handle

	resolver AuthResolver
	builder  Builder

	config  FactoryConfig
	logger  *slog.Logger
	metrics CacheMetricsRecorder

	// Singleflight to prevent duplicate client construction
	buildGroup singleflight.Group

	// Lifecycle
	stopCh chan struct{}
	wg     sync.WaitGroup
	closed bool

	// Clock abstraction for testing
	now func() time.Time
}

// FactoryOption is a functional option for configuring Factory.
type FactoryOption func(*Factory)

// WithFactoryConfig sets the factory configuration.
func WithFactoryConfig(config FactoryConfig) FactoryOption {
	return func(f *Factory) {
		f.config = config
	}
}

// WithFactoryLogger sets the logger for the factory.
func WithFactoryLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithFactoryMetrics sets the metrics recorder for the factory.
func WithFactoryMetrics(metrics CacheMetricsRecorder) FactoryOption {
	return func(f *Factory) {
		if metrics != nil {
			f.metrics = metrics
		}
	}
}

// WithBuilder replaces the client constructor.
func WithBuilder(builder Builder) FactoryOption {
	return func(f *Factory) {
		f.builder = builder
	}
}

// withFactoryClock sets the clock function for testing.
func withFactoryClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		f.now = now
	}
}

// NewFactory creates a Factory resolving credentials with resolver.
// The factory starts a background goroutine that sweeps expired handles.
func NewFactory(resolver AuthResolver, opts ...FactoryOption) *Factory {
	f := &Factory{
		handles:  make(map[string]*Handle),
		resolver: resolver,
		builder:  defaultBuilder,
		config:   DefaultFactoryConfig(),
		logger:   slog.Default(),
		metrics:  &noopMetricsRecorder{},
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.config.ExpiryWindow <= 0 {
		f.config.ExpiryWindow = DefaultFactoryConfig().ExpiryWindow
	}
	if f.config.CleanupInterval <= 0 {
		f.config.CleanupInterval = DefaultFactoryConfig().CleanupInterval
	}

	f.wg.Add(1)
	go f.cleanupLoop()

	f.logger.Debug("Client factory initialized",
		"expiry_window", f.config.ExpiryWindow,
		"cleanup_interval", f.config.CleanupInterval)

	return f
}

// Get returns the handle for p built with the already-resolved context a,
// building it if no handle with the same fingerprint is cached. A cached
// handle with a different fingerprint is replaced.
func (f *Factory) Get(ctx context.Context, p cluster.Profile, a auth.Context) (*Handle, error) {
	fp := Fingerprint(p, a)

	if h := f.lookup(p.Name, func(h *Handle) bool { return h.fingerprint == fp }); h != nil {
		f.metrics.RecordCacheHit(ctx, p.Name)
		return h, nil
	}
	f.metrics.RecordCacheMiss(ctx, p.Name)

	return f.share(ctx, p.Name, "get|"+p.Name+"|"+fp, func(bctx context.Context) (*Handle, error) {
		if h := f.lookup(p.Name, func(h *Handle) bool { return h.fingerprint == fp }); h != nil {
			return h, nil
		}
		return f.build(bctx, p, a, fp)
	})
}

// Acquire returns a usable handle for p, resolving authentication only when
// no reusable handle exists. This keeps credential discovery and role
// assumption out of the steady-state request path.
func (f *Factory) Acquire(ctx context.Context, p cluster.Profile) (*Handle, error) {
	pfp := ProfileFingerprint(p)
	match := func(h *Handle) bool { return h.profileFingerprint == pfp }

	span := trace.SpanFromContext(ctx)

	if h := f.lookup(p.Name, match); h != nil {
		f.metrics.RecordCacheHit(ctx, p.Name)
		span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithCacheHit(true).Build()...)
		return h, nil
	}
	f.metrics.RecordCacheMiss(ctx, p.Name)
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithCacheHit(false).Build()...)

	return f.share(ctx, p.Name, "acquire|"+p.Name+"|"+pfp, func(bctx context.Context) (*Handle, error) {
		if h := f.lookup(p.Name, match); h != nil {
			return h, nil
		}
		a := f.resolver.Resolve(bctx, p)
		instrumentation.AddSpanEvent(trace.SpanFromContext(bctx), "auth.resolved",
			attribute.String(instrumentation.SpanAttrAuthMechanism, string(a.Mechanism)))
		return f.build(bctx, p, a, Fingerprint(p, a))
	})
}

// degraded reports whether a resolved to a weaker mechanism than p
// configures: an IAM role that was not assumed, or AWS settings that
// yielded no credentials at all.
func degraded(p cluster.Profile, a auth.Context) bool {
	switch {
	case p.HasBasicAuth():
		return false
	case p.IAMRoleARN != "":
		return a.Mechanism != auth.MechanismIAM
	case p.AWSProfile != "" || p.Region != "":
		return a.Mechanism == auth.MechanismNone
	default:
		return false
	}
}

// lookup returns the usable cached handle for name if match accepts it.
func (f *Factory) lookup(name string, match func(*Handle) bool) *Handle {
	now := f.now()

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil
	}
	h, ok := f.handles[name]
	if !ok || !match(h) || h.expiring(now, f.config.ExpiryWindow) || h.retryDue(now) {
		return nil
	}
	h.touch(now)
	return h
}

// share runs fn at most once per key across concurrent callers. Each caller
// waits under its own context; when the shared build failed only because
// the leading caller was cancelled, a live caller retries once.
func (f *Factory) share(ctx context.Context, name, key string, fn func(context.Context) (*Handle, error)) (*Handle, error) {
	for attempt := 0; ; attempt++ {
		ch := f.buildGroup.DoChan(key, func() (interface{}, error) {
			return fn(ctx)
		})

		select {
		case <-ctx.Done():
			return nil, &ConnectionError{Cluster: name, Err: ctx.Err()}
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(*Handle), nil
			}
			if attempt == 0 && ctx.Err() == nil && isContextError(res.Err) {
				continue
			}
			return nil, res.Err
		}
	}
}

// build constructs and publishes a handle. A handle built after ctx was
// cancelled is closed and never published.
func (f *Factory) build(ctx context.Context, p cluster.Profile, a auth.Context, fp string) (*Handle, error) {
	if f.isClosed() {
		return nil, &ConnectionError{Cluster: p.Name, Err: ErrFactoryClosed}
	}
	start := f.now()

	client, err := f.builder(ctx, p, a)
	if err != nil {
		f.logger.Warn("Failed to build OpenSearch client",
			logging.Cluster(p.Name),
			logging.Host(p.URL),
			logging.SanitizedErr(err))
		return nil, &ConnectionError{Cluster: p.Name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		client.Close()
		return nil, &ConnectionError{Cluster: p.Name, Err: err}
	}

	h := &Handle{
		Client:             client,
		cluster:            p.Name,
		mechanism:          a.Mechanism,
		fingerprint:        fp,
		profileFingerprint: ProfileFingerprint(p),
		createdAt:          start,
		expires:            a.Expires(),
	}
	if degraded(p, a) {
		h.retryAt = start.Add(f.config.ExpiryWindow)
		f.logger.Warn("Cluster authentication degraded, will retry",
			logging.Cluster(p.Name),
			logging.Mechanism(string(a.Mechanism)),
			slog.Time("retry_at", h.retryAt))
	}
	h.touch(start)

	if err := f.publish(ctx, h); err != nil {
		client.Close()
		return nil, &ConnectionError{Cluster: p.Name, Err: err}
	}

	f.logger.Debug("Built OpenSearch client",
		logging.Cluster(p.Name),
		logging.Host(p.URL),
		logging.Mechanism(string(a.Mechanism)),
		slog.Duration(logging.KeyDuration, f.now().Sub(start)))

	return h, nil
}

// publish stores h, closing any handle it replaces.
func (f *Factory) publish(ctx context.Context, h *Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFactoryClosed
	}

	if old, ok := f.handles[h.cluster]; ok && old != h {
		old.Client.Close()
		f.metrics.RecordCacheEviction(ctx, EvictionReplaced)
	}
	f.handles[h.cluster] = h
	f.metrics.SetCacheSize(ctx, len(f.handles))
	return nil
}

// Invalidate drops and closes the handles of the named clusters.
func (f *Factory) Invalidate(ctx context.Context, names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}

	deleted := 0
	for _, name := range names {
		if h, ok := f.handles[name]; ok {
			delete(f.handles, name)
			h.Client.Close()
			f.metrics.RecordCacheEviction(ctx, EvictionInvalidated)
			deleted++
		}
	}

	if deleted > 0 {
		f.metrics.SetCacheSize(ctx, len(f.handles))
		f.logger.Debug("Invalidated cached clients",
			"clusters", names,
			"count", deleted)
	}
}

func (f *Factory) isClosed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}

// Size returns the current number of cached handles.
func (f *Factory) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.handles)
}

// Close stops the background sweep and closes every cached handle.
// After Close is called, Get and Acquire fail with ErrFactoryClosed.
func (f *Factory) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	close(f.stopCh)
	f.wg.Wait()

	f.mu.Lock()
	for _, h := range f.handles {
		h.Client.Close()
	}
	f.handles = make(map[string]*Handle)
	f.mu.Unlock()

	f.logger.Info("Client factory closed")
	return nil
}

// cleanupLoop periodically removes handles whose credentials expired.
func (f *Factory) cleanupLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.cleanup()
		}
	}
}

// cleanup removes all handles whose credentials have expired.
func (f *Factory) cleanup() {
	now := f.now()
	ctx := context.Background()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}

	expiredCount := 0
	for name, h := range f.handles {
		if h.expired(now) {
			delete(f.handles, name)
			h.Client.Close()
			f.metrics.RecordCacheEviction(ctx, EvictionExpired)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		f.metrics.SetCacheSize(ctx, len(f.handles))
		f.logger.Debug("Cleaned up expired clients",
			"expired_count", expiredCount,
			"remaining", len(f.handles))
	}
}

// FactoryStats holds current factory statistics.
type FactoryStats struct {
	// Size is the current number of cached handles.
	Size int

	// ExpiryWindow is the configured credential refresh window.
	ExpiryWindow time.Duration

	// OldestEntry is the age of the oldest handle (if any).
	OldestEntry time.Duration

	// NewestEntry is the age of the newest handle (if any).
	NewestEntry time.Duration
}

// Stats returns current factory statistics for monitoring.
func (f *Factory) Stats() FactoryStats {
	f.mu.RLock()
	defer f.mu.RUnlock()

	stats := FactoryStats{
		Size:         len(f.handles),
		ExpiryWindow: f.config.ExpiryWindow,
	}

	if len(f.handles) == 0 {
		return stats
	}

	now := f.now()
	var oldest, newest time.Time
	for _, h := range f.handles {
		if oldest.IsZero() || h.createdAt.Before(oldest) {
			oldest = h.createdAt
		}
		if newest.IsZero() || h.createdAt.After(newest) {
			newest = h.createdAt
		}
	}
	stats.OldestEntry = now.Sub(oldest)
	stats.NewestEntry = now.Sub(newest)

	return stats
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
