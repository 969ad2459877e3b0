package health

import (
	"context"

	"github.com/giantswarm/mcp-opensearch/internal/opensearch"
	"github.com/giantswarm/mcp-opensearch/internal/tools"
)

// ClusterHealthArgs are the arguments of ClusterHealthTool.
type ClusterHealthArgs struct {
	tools.BaseArgs
	Index string `json:"index,omitempty" jsonschema_description:"Limit the health report to an index or pattern. Omit for the whole cluster."`
}

// Tools returns the cluster health tools.
func Tools() []tools.Tool {
	return []tools.Tool{
		tools.Define("ClusterHealthTool",
			"Returns cluster health: status (green, yellow, red), node count, and active, relocating and unassigned shards.",
			handleClusterHealth,
			tools.WithMinVersion("1.0.0"),
		),
	}
}

func handleClusterHealth(ctx context.Context, client opensearch.Client, args *ClusterHealthArgs) (any, error) {
	body, err := client.Health(ctx, args.Index)
	if err != nil {
		return nil, err
	}
	title := "Cluster health"
	if args.Index != "" {
		title = "Cluster health for " + args.Index
	}
	return &tools.Response{Title: title, Body: body}, nil
}
