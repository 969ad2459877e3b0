package search

import (
	"context"
	"fmt"

	"github.com/giantswarm/mcp-opensearch/internal/opensearch"
	"github.com/giantswarm/mcp-opensearch/internal/tools"
)

func handleSearch(ctx context.Context, client opensearch.Client, args *SearchIndexArgs) (any, error) {
	body, err := client.Search(ctx, args.Index, args.Query)
	if err != nil {
		return nil, err
	}
	return &tools.Response{Title: "Search results from " + args.Index, Body: body}, nil
}

func handleCount(ctx context.Context, client opensearch.Client, args *CountArgs) (any, error) {
	var query any
	if len(args.Body) > 0 {
		query = args.Body
	}
	body, err := client.Count(ctx, args.Index, query)
	if err != nil {
		return nil, err
	}
	title := "Document count"
	if args.Index != "" {
		title = "Document count for " + args.Index
	}
	return &tools.Response{Title: title, Body: body}, nil
}

func handleExplain(ctx context.Context, client opensearch.Client, args *ExplainArgs) (any, error) {
	body, err := client.Explain(ctx, args.Index, args.ID, args.Body)
	if err != nil {
		return nil, err
	}
	return &tools.Response{Title: fmt.Sprintf("Explanation for document %s in %s", args.ID, args.Index), Body: body}, nil
}

func handleMsearch(ctx context.Context, client opensearch.Client, args *MsearchArgs) (any, error) {
	lines := make([]any, len(args.Body))
	for i, line := range args.Body {
		lines[i] = line
	}

	body, err := client.MSearch(ctx, args.Index, lines)
	if err != nil {
		return nil, err
	}
	return &tools.Response{Title: fmt.Sprintf("Multi-search results (%d searches)", len(args.Body)/2), Body: body}, nil
}
