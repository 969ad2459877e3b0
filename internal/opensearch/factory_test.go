package opensearch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/giantswarm/mcp-opensearch/internal/auth"
	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/instrumentation"
)

// mockMetricsRecorder tracks cache metrics for testing.
type mockMetricsRecorder struct {
	mu          sync.Mutex
	hits        int
	misses      int
	evictions   map[string]int
	sizeUpdates []int
}

func newMockMetricsRecorder() *mockMetricsRecorder {
	return &mockMetricsRecorder{evictions: make(map[string]int)}
}

func (m *mockMetricsRecorder) RecordCacheHit(_ context.Context, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
}

func (m *mockMetricsRecorder) RecordCacheMiss(_ context.Context, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses++
}

func (m *mockMetricsRecorder) RecordCacheEviction(_ context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictions[reason]++
}

func (m *mockMetricsRecorder) SetCacheSize(_ context.Context, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizeUpdates = append(m.sizeUpdates, size)
}

func (m *mockMetricsRecorder) getEvictions(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictions[reason]
}

// stubClient is a Client that only tracks Close.
type stubClient struct {
	closed atomic.Bool
}

func (s *stubClient) ListIndices(context.Context, string) (json.RawMessage, error) { return nil, nil }
func (s *stubClient) GetMapping(context.Context, string) (json.RawMessage, error)  { return nil, nil }
func (s *stubClient) Search(context.Context, string, any) (json.RawMessage, error) { return nil, nil }
func (s *stubClient) Shards(context.Context, string) (json.RawMessage, error)      { return nil, nil }
func (s *stubClient) Health(context.Context, string) (json.RawMessage, error)      { return nil, nil }
func (s *stubClient) Count(context.Context, string, any) (json.RawMessage, error)  { return nil, nil }
func (s *stubClient) Explain(context.Context, string, string, any) (json.RawMessage, error) {
	return nil, nil
}
func (s *stubClient) MSearch(context.Context, string, []any) (json.RawMessage, error) {
	return nil, nil
}
func (s *stubClient) Info(context.Context) (ServerInfo, error) { return ServerInfo{}, nil }
func (s *stubClient) Close()                                   { s.closed.Store(true) }

// countingBuilder records builds and hands out stub clients.
type countingBuilder struct {
	builds  atomic.Int32
	delay   time.Duration
	err     error
	mu      sync.Mutex
	clients []*stubClient
}

func (b *countingBuilder) build(ctx context.Context, _ cluster.Profile, _ auth.Context) (Client, error) {
	b.builds.Add(1)
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if b.err != nil {
		return nil, b.err
	}
	c := &stubClient{}
	b.mu.Lock()
	b.clients = append(b.clients, c)
	b.mu.Unlock()
	return c, nil
}

// fakeResolver returns a fixed context and counts calls.
type fakeResolver struct {
	calls atomic.Int32
	ctx   auth.Context
}

func (r *fakeResolver) Resolve(_ context.Context, p cluster.Profile) auth.Context {
	r.calls.Add(1)
	c := r.ctx
	c.VerifyTLS = p.VerifyTLS.Resolve(true)
	return c
}

// flakyResolver fails IAM resolution on the first call only.
type flakyResolver struct {
	calls atomic.Int32
}

func (r *flakyResolver) Resolve(_ context.Context, p cluster.Profile) auth.Context {
	if r.calls.Add(1) == 1 {
		return auth.Context{Mechanism: auth.MechanismNone, Region: p.Region}
	}
	return auth.Context{
		Mechanism:   auth.MechanismIAM,
		Region:      p.Region,
		Credentials: aws.Credentials{AccessKeyID: "A", SecretAccessKey: "S"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var testProfile = cluster.Profile{Name: "prod", URL: "https://prod.example.com"}

func TestFactory_Acquire(t *testing.T) {
	t.Run("cache hit on unchanged inputs", func(t *testing.T) {
		builder := &countingBuilder{}
		resolver := &fakeResolver{ctx: auth.Context{Mechanism: auth.MechanismNone}}
		metrics := newMockMetricsRecorder()
		f := NewFactory(resolver, WithBuilder(builder.build), WithFactoryMetrics(metrics), WithFactoryLogger(testLogger()))
		defer f.Close()

		h1, err := f.Acquire(context.Background(), testProfile)
		require.NoError(t, err)
		h2, err := f.Acquire(context.Background(), testProfile)
		require.NoError(t, err)

		assert.Same(t, h1, h2)
		assert.Equal(t, int32(1), builder.builds.Load())
		assert.Equal(t, int32(1), resolver.calls.Load(), "auth is resolved only on construction")
		assert.Equal(t, 1, metrics.hits)
		assert.Equal(t, 1, metrics.misses)
		assert.Equal(t, "prod", h1.Cluster())
		assert.Equal(t, auth.MechanismNone, h1.Mechanism())
	})

	t.Run("TLS policy flip rebuilds and closes stale handle", func(t *testing.T) {
		builder := &countingBuilder{}
		metrics := newMockMetricsRecorder()
		f := NewFactory(&fakeResolver{ctx: auth.Context{Mechanism: auth.MechanismNone}},
			WithBuilder(builder.build), WithFactoryMetrics(metrics), WithFactoryLogger(testLogger()))
		defer f.Close()

		h1, err := f.Acquire(context.Background(), testProfile)
		require.NoError(t, err)

		flipped := testProfile
		flipped.VerifyTLS = cluster.TLSVerifyDisabled
		h2, err := f.Acquire(context.Background(), flipped)
		require.NoError(t, err)

		assert.NotSame(t, h1, h2)
		assert.NotEqual(t, h1.Fingerprint(), h2.Fingerprint())
		assert.True(t, h1.Client.(*stubClient).closed.Load())
		assert.Equal(t, 1, metrics.getEvictions(EvictionReplaced))
		assert.Equal(t, 1, f.Size())
	})

	t.Run("credentials inside expiry window force rebuild", func(t *testing.T) {
		now := time.Now()
		clock := &now
		builder := &countingBuilder{}
		resolver := &fakeResolver{ctx: auth.Context{
			Mechanism:   auth.MechanismIAM,
			Credentials: aws.Credentials{AccessKeyID: "A", SecretAccessKey: "S", CanExpire: true, Expires: now.Add(time.Hour)},
		}}
		f := NewFactory(resolver, WithBuilder(builder.build), WithFactoryLogger(testLogger()),
			WithFactoryConfig(FactoryConfig{ExpiryWindow: 5 * time.Minute, CleanupInterval: time.Hour}),
			withFactoryClock(func() time.Time { return *clock }))
		defer f.Close()

		_, err := f.Acquire(context.Background(), testProfile)
		require.NoError(t, err)

		later := now.Add(50 * time.Minute)
		clock = &later
		_, err = f.Acquire(context.Background(), testProfile)
		require.NoError(t, err)
		assert.Equal(t, int32(1), builder.builds.Load())

		later = now.Add(56 * time.Minute)
		_, err = f.Acquire(context.Background(), testProfile)
		require.NoError(t, err)
		assert.Equal(t, int32(2), builder.builds.Load())
		assert.Equal(t, int32(2), resolver.calls.Load())
	})

	t.Run("degraded IAM handle is retried after the expiry window", func(t *testing.T) {
		now := time.Now()
		clock := &now
		builder := &countingBuilder{}
		resolver := &flakyResolver{}
		f := NewFactory(resolver, WithBuilder(builder.build), WithFactoryLogger(testLogger()),
			WithFactoryConfig(FactoryConfig{ExpiryWindow: 5 * time.Minute, CleanupInterval: time.Hour}),
			withFactoryClock(func() time.Time { return *clock }))
		defer f.Close()

		iamProfile := testProfile
		iamProfile.Region = "eu-west-1"
		iamProfile.IAMRoleARN = "arn:aws:iam::123456789012:role/reader"

		h1, err := f.Acquire(context.Background(), iamProfile)
		require.NoError(t, err)
		assert.Equal(t, auth.MechanismNone, h1.Mechanism())
		assert.True(t, h1.Degraded())

		h2, err := f.Acquire(context.Background(), iamProfile)
		require.NoError(t, err)
		assert.Same(t, h1, h2, "degraded handle is reused inside the window")
		assert.Equal(t, int32(1), resolver.calls.Load())

		later := now.Add(5 * time.Minute)
		clock = &later
		h3, err := f.Acquire(context.Background(), iamProfile)
		require.NoError(t, err)
		assert.Equal(t, auth.MechanismIAM, h3.Mechanism())
		assert.False(t, h3.Degraded())
		assert.Equal(t, int32(2), resolver.calls.Load())
		assert.True(t, h1.Client.(*stubClient).closed.Load())

		h4, err := f.Acquire(context.Background(), iamProfile)
		require.NoError(t, err)
		assert.Same(t, h3, h4)
		assert.Equal(t, int32(2), resolver.calls.Load())
	})

	t.Run("profile without AWS settings is never degraded", func(t *testing.T) {
		f := NewFactory(&fakeResolver{ctx: auth.Context{Mechanism: auth.MechanismNone}},
			WithBuilder((&countingBuilder{}).build), WithFactoryLogger(testLogger()))
		defer f.Close()

		h, err := f.Acquire(context.Background(), testProfile)
		require.NoError(t, err)
		assert.False(t, h.Degraded())
	})

	t.Run("build failure is a connection error", func(t *testing.T) {
		builder := &countingBuilder{err: errors.New("dial tcp: connection refused")}
		f := NewFactory(&fakeResolver{}, WithBuilder(builder.build), WithFactoryLogger(testLogger()))
		defer f.Close()

		_, err := f.Acquire(context.Background(), testProfile)
		require.Error(t, err)

		var connErr *ConnectionError
		require.True(t, errors.As(err, &connErr))
		assert.Equal(t, "prod", connErr.Cluster)
		assert.Equal(t, 0, f.Size())
	})
}

func TestFactory_AcquireSpanAttributes(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	tracer := tp.Tracer("factory-test")

	f := NewFactory(&fakeResolver{ctx: auth.Context{Mechanism: auth.MechanismNone}},
		WithBuilder((&countingBuilder{}).build), WithFactoryLogger(testLogger()))
	defer f.Close()

	for i := 0; i < 2; i++ {
		ctx, span := tracer.Start(context.Background(), "acquire")
		_, err := f.Acquire(ctx, testProfile)
		require.NoError(t, err)
		span.End()
	}

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	cacheHit := func(s tracetest.SpanStub) bool {
		for _, kv := range s.Attributes {
			if string(kv.Key) == instrumentation.SpanAttrCacheHit {
				return kv.Value.AsBool()
			}
		}
		t.Fatalf("span %q has no cache hit attribute", s.Name)
		return false
	}
	assert.False(t, cacheHit(spans[0]))
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "auth.resolved", spans[0].Events[0].Name)
	assert.True(t, cacheHit(spans[1]))
	assert.Empty(t, spans[1].Events)
}

func TestFactory_ConcurrentFirstUse(t *testing.T) {
	builder := &countingBuilder{delay: 50 * time.Millisecond}
	resolver := &fakeResolver{ctx: auth.Context{Mechanism: auth.MechanismNone}}
	f := NewFactory(resolver, WithBuilder(builder.build), WithFactoryLogger(testLogger()))
	defer f.Close()

	const workers = 20
	handles := make([]*Handle, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := f.Acquire(context.Background(), testProfile)
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), builder.builds.Load())
	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
}

func TestFactory_Cancellation(t *testing.T) {
	t.Run("handle built on cancelled context is not published", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		builtCh := make(chan *stubClient, 1)
		builder := func(context.Context, cluster.Profile, auth.Context) (Client, error) {
			c := &stubClient{}
			builtCh <- c
			cancel()
			return c, nil
		}
		f := NewFactory(&fakeResolver{}, WithBuilder(builder), WithFactoryLogger(testLogger()))
		defer f.Close()

		_, err := f.Acquire(ctx, testProfile)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))

		built := <-builtCh
		assert.Eventually(t, built.closed.Load, time.Second, 5*time.Millisecond)
		assert.Equal(t, 0, f.Size())
	})

	t.Run("waiter honours its own context", func(t *testing.T) {
		release := make(chan struct{})
		builder := func(context.Context, cluster.Profile, auth.Context) (Client, error) {
			<-release
			return &stubClient{}, nil
		}
		f := NewFactory(&fakeResolver{}, WithBuilder(builder), WithFactoryLogger(testLogger()))
		defer f.Close()

		leaderDone := make(chan error, 1)
		go func() {
			_, err := f.Acquire(context.Background(), testProfile)
			leaderDone <- err
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := f.Acquire(ctx, testProfile)
		var connErr *ConnectionError
		require.True(t, errors.As(err, &connErr))
		assert.True(t, errors.Is(err, context.DeadlineExceeded))

		close(release)
		require.NoError(t, <-leaderDone)
		assert.Equal(t, 1, f.Size())
	})
}

func TestFactory_Get(t *testing.T) {
	builder := &countingBuilder{}
	f := NewFactory(&fakeResolver{}, WithBuilder(builder.build), WithFactoryLogger(testLogger()))
	defer f.Close()

	a := auth.Context{Mechanism: auth.MechanismBasic, Username: "admin", Password: "admin", VerifyTLS: true}
	h1, err := f.Get(context.Background(), testProfile, a)
	require.NoError(t, err)
	h2, err := f.Get(context.Background(), testProfile, a)
	require.NoError(t, err)
	assert.Same(t, h1, h2)

	a.Password = "rotated"
	h3, err := f.Get(context.Background(), testProfile, a)
	require.NoError(t, err)
	assert.NotSame(t, h1, h3)
	assert.Equal(t, int32(2), builder.builds.Load())
	assert.Equal(t, 1, f.Size())
}

func TestFactory_Invalidate(t *testing.T) {
	builder := &countingBuilder{}
	metrics := newMockMetricsRecorder()
	f := NewFactory(&fakeResolver{}, WithBuilder(builder.build), WithFactoryMetrics(metrics), WithFactoryLogger(testLogger()))
	defer f.Close()

	other := cluster.Profile{Name: "other", URL: "http://other:9200"}
	h, err := f.Acquire(context.Background(), testProfile)
	require.NoError(t, err)
	_, err = f.Acquire(context.Background(), other)
	require.NoError(t, err)

	f.Invalidate(context.Background(), "prod", "unknown")

	assert.Equal(t, 1, f.Size())
	assert.True(t, h.Client.(*stubClient).closed.Load())
	assert.Equal(t, 1, metrics.getEvictions(EvictionInvalidated))

	_, err = f.Acquire(context.Background(), testProfile)
	require.NoError(t, err)
	assert.Equal(t, int32(3), builder.builds.Load())
}

func TestFactory_Cleanup(t *testing.T) {
	now := time.Now()
	clock := now
	var mu sync.Mutex
	resolver := &fakeResolver{ctx: auth.Context{
		Mechanism:   auth.MechanismAmbient,
		Credentials: aws.Credentials{AccessKeyID: "A", SecretAccessKey: "S", CanExpire: true, Expires: now.Add(time.Minute)},
	}}
	metrics := newMockMetricsRecorder()
	f := NewFactory(resolver,
		WithBuilder((&countingBuilder{}).build),
		WithFactoryMetrics(metrics),
		WithFactoryLogger(testLogger()),
		WithFactoryConfig(FactoryConfig{ExpiryWindow: time.Second, CleanupInterval: time.Hour}),
		withFactoryClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return clock
		}))
	defer f.Close()

	_, err := f.Acquire(context.Background(), testProfile)
	require.NoError(t, err)
	_, err = f.Acquire(context.Background(), cluster.Profile{Name: "basic", URL: "http://b:9200", Username: "u", Password: "p"})
	require.NoError(t, err)

	mu.Lock()
	clock = now.Add(2 * time.Minute)
	mu.Unlock()
	f.cleanup()

	// Both handles come from the same resolver and expire together.
	assert.Equal(t, 0, f.Size())
	assert.Equal(t, 2, metrics.getEvictions(EvictionExpired))
}

func TestFactory_Close(t *testing.T) {
	builder := &countingBuilder{}
	f := NewFactory(&fakeResolver{}, WithBuilder(builder.build), WithFactoryLogger(testLogger()))

	h, err := f.Acquire(context.Background(), testProfile)
	require.NoError(t, err)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.True(t, h.Client.(*stubClient).closed.Load())
	assert.Equal(t, 0, f.Size())

	_, err = f.Acquire(context.Background(), testProfile)
	assert.True(t, errors.Is(err, ErrFactoryClosed))
}

func TestFactory_Stats(t *testing.T) {
	f := NewFactory(&fakeResolver{}, WithBuilder((&countingBuilder{}).build), WithFactoryLogger(testLogger()))
	defer f.Close()

	stats := f.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, DefaultFactoryConfig().ExpiryWindow, stats.ExpiryWindow)

	_, err := f.Acquire(context.Background(), testProfile)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Stats().Size)
}
