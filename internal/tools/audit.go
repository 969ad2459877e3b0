package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/codes"

	"github.com/giantswarm/mcp-opensearch/internal/instrumentation"
	"github.com/giantswarm/mcp-opensearch/internal/server"
)

// ToolHandler is the signature for MCP tool handler functions that take ServerContext.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error)

type invocationKey struct{}

// invocationFromContext returns the audit record of the current tool call,
// so handlers can add what only they know (resolved cluster, request ID).
func invocationFromContext(ctx context.Context) *instrumentation.ToolInvocation {
	inv, _ := ctx.Value(invocationKey{}).(*instrumentation.ToolInvocation)
	return inv
}

// WrapWithAuditLogging wraps a tool handler with a tool span and an audit
// record. The record captures timing, the selected cluster and index from
// the arguments, and success or error from the handler result.
//
// Without an instrumentation provider the audit record is written to the
// server logger.
func WrapWithAuditLogging(toolName string, handler ToolHandler, sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		index, _ := args["index"].(string)
		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().WithIndex(index).Build()...)
		defer span.End()

		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx)
		extractAuditInfoFromArgs(invocation, args)
		ctx = context.WithValue(ctx, invocationKey{}, invocation)

		result, err := handler(ctx, request, sc)

		switch {
		case err != nil:
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			// MCP tool errors are returned in the result, not as Go errors
			invocation.Complete(false, nil)
			if len(result.Content) > 0 {
				if textContent, ok := result.Content[0].(mcp.TextContent); ok {
					invocation.Error = textContent.Text
				}
			}
			span.SetStatus(codes.Error, invocation.Error)
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		auditLogger(sc).LogToolInvocation(ctx, invocation)

		return result, err
	}
}

func auditLogger(sc *server.ServerContext) *instrumentation.AuditLogger {
	if provider := sc.InstrumentationProvider(); provider != nil && provider.AuditLogger() != nil {
		return provider.AuditLogger()
	}
	return instrumentation.NewAuditLogger(sc.Logger())
}

// extractAuditInfoFromArgs copies the cluster selector and target index
// from tool arguments. The dispatcher later replaces the selector with the
// resolved cluster name.
func extractAuditInfoFromArgs(invocation *instrumentation.ToolInvocation, args map[string]any) {
	if cluster, ok := args[ClusterArgument].(string); ok && cluster != "" {
		invocation.WithCluster(cluster)
	}
	if index, ok := args["index"].(string); ok && index != "" {
		invocation.WithIndex(index)
	}
}
