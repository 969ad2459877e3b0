// Package catalog assembles the tool catalog served by mcp-opensearch.
package catalog

import (
	"github.com/giantswarm/mcp-opensearch/internal/tools"
	"github.com/giantswarm/mcp-opensearch/internal/tools/health"
	"github.com/giantswarm/mcp-opensearch/internal/tools/index"
	"github.com/giantswarm/mcp-opensearch/internal/tools/search"
)

// New returns the catalog of every tool.
func New() (*tools.Catalog, error) {
	all := index.Tools()
	all = append(all, search.Tools()...)
	all = append(all, health.Tools()...)
	return tools.NewCatalog(all...)
}
