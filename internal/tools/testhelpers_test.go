package tools

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/dispatch"
	"github.com/giantswarm/mcp-opensearch/internal/instrumentation"
	"github.com/giantswarm/mcp-opensearch/internal/server"
)

// stubDispatcher returns a fixed result and records requests.
type stubDispatcher struct {
	mu       sync.Mutex
	result   dispatch.Result
	requests []dispatch.Request
}

func (s *stubDispatcher) Dispatch(_ context.Context, req dispatch.Request) dispatch.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	res := s.result
	res.Operation = req.Operation
	return res
}

func (s *stubDispatcher) lastRequest() dispatch.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func newTestServerContext(t *testing.T, d server.Dispatcher, logs *bytes.Buffer, opts ...server.Option) *server.ServerContext {
	t.Helper()

	registry := cluster.NewRegistry()
	require.NoError(t, registry.Register(cluster.Profile{Name: "prod", URL: "https://prod:9200"}))

	if logs == nil {
		logs = &bytes.Buffer{}
	}
	all := append([]server.Option{
		server.WithDispatcher(d),
		server.WithRegistry(registry),
		server.WithLogger(slog.New(slog.NewJSONHandler(logs, nil))),
	}, opts...)

	sc, err := server.NewServerContext(context.Background(), all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func createTestProvider(t *testing.T, logs *bytes.Buffer) *instrumentation.Provider {
	t.Helper()

	config := instrumentation.DefaultConfig()
	config.Enabled = true
	config.MetricsExporter = instrumentation.ExporterNone
	config.TracingExporter = instrumentation.ExporterNone

	provider, err := instrumentation.NewProvider(context.Background(), config)
	require.NoError(t, err)
	provider.SetAuditLogger(slog.New(slog.NewJSONHandler(logs, nil)))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func createTestRequest(name string, args map[string]any) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return text.Text
}
