package index

import (
	"github.com/giantswarm/mcp-opensearch/internal/tools"
)

// ListIndexArgs are the arguments of ListIndexTool.
type ListIndexArgs struct {
	tools.BaseArgs
	Index string `json:"index,omitempty" jsonschema_description:"Index name or pattern to filter by (e.g. logs-*). Omit to list every index."`
}

// IndexMappingArgs are the arguments of IndexMappingTool.
type IndexMappingArgs struct {
	tools.BaseArgs
	Index string `json:"index" jsonschema:"required" jsonschema_description:"Index name or pattern whose mapping to return" validate:"required"`
}

// GetShardsArgs are the arguments of GetShardsTool.
type GetShardsArgs struct {
	tools.BaseArgs
	Index string `json:"index" jsonschema:"required" jsonschema_description:"Index name or pattern whose shards to list" validate:"required"`
}

// Tools returns the index inspection tools.
func Tools() []tools.Tool {
	return []tools.Tool{
		tools.Define("ListIndexTool",
			"Lists all indices in the OpenSearch cluster with health, status, document count and size.",
			handleListIndices,
			tools.WithMinVersion("1.0.0"),
		),
		tools.Define("IndexMappingTool",
			"Retrieves the field mappings and settings of an index. Use it to learn field names and types before searching.",
			handleGetMapping,
			tools.WithMinVersion("1.0.0"),
		),
		tools.Define("GetShardsTool",
			"Gets shard information for an index: primary or replica, state, document count, size and node.",
			handleGetShards,
			tools.WithMinVersion("1.0.0"),
		),
	}
}
