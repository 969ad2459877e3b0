package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-opensearch/internal/dispatch"
	"github.com/giantswarm/mcp-opensearch/internal/server"
	"github.com/giantswarm/mcp-opensearch/internal/tools/output"
)

// Response is returned by tools whose result is a backend JSON body. It is
// shaped by the output processor before it reaches the client.
type Response struct {
	Title string
	Body  json.RawMessage
}

// Register adds every descriptor to the MCP server. Calls are routed through
// the server context's dispatcher and audited. A nil processor uses the
// default output limits.
func Register(s *mcpserver.MCPServer, sc *server.ServerContext, descriptors []Descriptor, processor *output.Processor) {
	if processor == nil {
		processor = output.NewProcessor(nil)
	}

	for _, d := range descriptors {
		tool := mcp.NewToolWithRawSchema(d.Name, d.Description, d.InputSchema)
		s.AddTool(tool, WrapWithAuditLogging(d.Name, dispatchHandler(d.Name, processor), sc))
	}

	sc.Logger().Debug("Registered tools", "count", len(descriptors))
}

func dispatchHandler(name string, processor *output.Processor) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		selector, _ := args[ClusterArgument].(string)

		res := sc.Dispatcher().Dispatch(ctx, dispatch.Request{
			Operation: name,
			Cluster:   selector,
			Arguments: args,
		})

		if inv := invocationFromContext(ctx); inv != nil {
			inv.WithRequestID(res.RequestID)
			if res.Cluster != "" {
				inv.WithCluster(res.Cluster)
			}
			if res.Failed() {
				inv.WithFailureKind(string(res.Failure.Kind))
			}
		}

		if res.Failed() {
			return mcp.NewToolResultError(res.Failure.Error()), nil
		}

		text, err := render(res.Data, processor)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to render result: %v", err)), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

func render(data any, processor *output.Processor) (string, error) {
	switch v := data.(type) {
	case *Response:
		return processor.Render(v.Title, v.Body), nil
	case Response:
		return processor.Render(v.Title, v.Body), nil
	case json.RawMessage:
		return processor.Render("", v), nil
	case string:
		return v, nil
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
