package catalog

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/opensearch/opensearchtest"
	"github.com/giantswarm/mcp-opensearch/internal/server"
	"github.com/giantswarm/mcp-opensearch/internal/tools"
)

// startStreamableHTTP serves the full catalog over the streamable HTTP
// transport and returns an initialized client.
func startStreamableHTTP(t *testing.T, backend *opensearchtest.FakeClient) *client.Client {
	t.Helper()

	c, err := New()
	require.NoError(t, err)

	sc, err := server.NewServerContext(context.Background(),
		server.WithDispatcher(newDispatcher(t, backend)),
		server.WithRegistry(cluster.NewRegistry(cluster.WithRegistryLogger(quietLogger()))),
		server.WithLogger(quietLogger()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	descriptors, err := c.Exposed(cluster.ModeMulti, nil, false)
	require.NoError(t, err)

	mcpSrv := mcpserver.NewMCPServer("mcp-opensearch-test", "1.0.0",
		mcpserver.WithToolCapabilities(true),
	)
	tools.Register(mcpSrv, sc, descriptors, nil)

	ts := httptest.NewServer(mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
	))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	mcpClient, err := client.NewStreamableHttpClient(ts.URL + "/mcp")
	require.NoError(t, err)
	require.NoError(t, mcpClient.Start(ctx))
	t.Cleanup(func() { _ = mcpClient.Close() })

	_, err = mcpClient.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    "catalog-test",
				Version: "1.0.0",
			},
		},
	})
	require.NoError(t, err)
	return mcpClient
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := c.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	return result
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestStreamableHTTP_ListTools(t *testing.T) {
	mcpClient := startStreamableHTTP(t, &opensearchtest.FakeClient{})

	resp, err := mcpClient.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)

	names := make([]string, 0, len(resp.Tools))
	for _, tool := range resp.Tools {
		names = append(names, tool.Name)

		schema, err := json.Marshal(tool.InputSchema)
		require.NoError(t, err)
		assert.Contains(t, string(schema), tools.ClusterArgument, tool.Name)
	}
	assert.ElementsMatch(t, allTools, names)
}

func TestStreamableHTTP_CallTool(t *testing.T) {
	backend := &opensearchtest.FakeClient{
		Response: json.RawMessage(`{"hits":{"total":{"value":1},"hits":[{"_id":"1","_source":{"user":"alice","password":"hunter2"}}]}}`),
	}
	mcpClient := startStreamableHTTP(t, backend)

	t.Run("search", func(t *testing.T) {
		result := callTool(t, mcpClient, "SearchIndexTool", map[string]any{
			tools.ClusterArgument: "prod",
			"index":               "logs-*",
			"query":               map[string]any{"query": map[string]any{"match_all": map[string]any{}}},
		})

		assert.False(t, result.IsError)
		text := textOf(t, result)
		assert.Contains(t, text, "Search results from logs-*")
		assert.Contains(t, text, "alice")
		assert.NotContains(t, text, "hunter2")
	})

	t.Run("missing required argument", func(t *testing.T) {
		result := callTool(t, mcpClient, "SearchIndexTool", map[string]any{
			tools.ClusterArgument: "prod",
			"query":               map[string]any{},
		})

		assert.True(t, result.IsError)
		assert.Contains(t, textOf(t, result), "InvalidArguments")
	})

	t.Run("unknown cluster", func(t *testing.T) {
		result := callTool(t, mcpClient, "ListIndexTool", map[string]any{
			tools.ClusterArgument: "staging",
		})

		assert.True(t, result.IsError)
		assert.Contains(t, textOf(t, result), "ClusterNotFound")
	})

	t.Run("repeated calls", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			result := callTool(t, mcpClient, "ClusterHealthTool", map[string]any{
				tools.ClusterArgument: "prod",
			})
			assert.False(t, result.IsError, "iteration %d", i)
		}
	})
}
