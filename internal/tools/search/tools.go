package search

import (
	"github.com/giantswarm/mcp-opensearch/internal/tools"
)

// SearchIndexArgs are the arguments of SearchIndexTool.
type SearchIndexArgs struct {
	tools.BaseArgs
	Index string         `json:"index" jsonschema:"required" jsonschema_description:"Index name or pattern to search" validate:"required"`
	Query map[string]any `json:"query" jsonschema:"required" jsonschema_description:"Search request body in OpenSearch query DSL, e.g. {\"query\": {\"match\": {\"message\": \"error\"}}, \"size\": 10}" validate:"required"`
}

// CountArgs are the arguments of CountTool.
type CountArgs struct {
	tools.BaseArgs
	Index string         `json:"index,omitempty" jsonschema_description:"Index name or pattern to count in. Omit to count across all indices."`
	Body  map[string]any `json:"body,omitempty" jsonschema_description:"Optional query DSL body restricting the counted documents, e.g. {\"query\": {\"term\": {\"level\": \"error\"}}}"`
}

// ExplainArgs are the arguments of ExplainTool.
type ExplainArgs struct {
	tools.BaseArgs
	Index string         `json:"index" jsonschema:"required" jsonschema_description:"Index containing the document" validate:"required"`
	ID    string         `json:"id" jsonschema:"required" jsonschema_description:"Document ID to explain" validate:"required"`
	Body  map[string]any `json:"body" jsonschema:"required" jsonschema_description:"Query DSL body to explain the document against" validate:"required"`
}

// MsearchArgs are the arguments of MsearchTool.
type MsearchArgs struct {
	tools.BaseArgs
	Index string           `json:"index,omitempty" jsonschema_description:"Default index for searches whose header does not name one"`
	Body  []map[string]any `json:"body" jsonschema:"required" jsonschema_description:"Alternating header and query objects, e.g. [{\"index\": \"logs\"}, {\"query\": {\"match_all\": {}}}]" validate:"required,min=1,pairs"`
}

// Tools returns the search tools.
func Tools() []tools.Tool {
	return []tools.Tool{
		tools.Define("SearchIndexTool",
			"Searches an index using a query written in OpenSearch query DSL. Returns matching documents.",
			handleSearch,
			tools.WithMinVersion("1.0.0"),
		),
		tools.Define("CountTool",
			"Returns the number of documents matching a query, or all documents of an index when no query is given.",
			handleCount,
			tools.WithMinVersion("1.0.0"),
		),
		tools.Define("ExplainTool",
			"Explains how a specific document matches (or fails to match) a query, including its score computation.",
			handleExplain,
			tools.WithMinVersion("1.0.0"),
		),
		tools.Define("MsearchTool",
			"Runs several searches in a single request. The body alternates header and query objects.",
			handleMsearch,
			tools.WithMinVersion("1.0.0"),
		),
	}
}
