package index

import (
	"context"

	"github.com/giantswarm/mcp-opensearch/internal/opensearch"
	"github.com/giantswarm/mcp-opensearch/internal/tools"
)

func handleListIndices(ctx context.Context, client opensearch.Client, args *ListIndexArgs) (any, error) {
	body, err := client.ListIndices(ctx, args.Index)
	if err != nil {
		return nil, err
	}
	title := "All indices"
	if args.Index != "" {
		title = "Indices matching " + args.Index
	}
	return &tools.Response{Title: title, Body: body}, nil
}

func handleGetMapping(ctx context.Context, client opensearch.Client, args *IndexMappingArgs) (any, error) {
	body, err := client.GetMapping(ctx, args.Index)
	if err != nil {
		return nil, err
	}
	return &tools.Response{Title: "Mapping for " + args.Index, Body: body}, nil
}

func handleGetShards(ctx context.Context, client opensearch.Client, args *GetShardsArgs) (any, error) {
	body, err := client.Shards(ctx, args.Index)
	if err != nil {
		return nil, err
	}
	return &tools.Response{Title: "Shards for " + args.Index, Body: body}, nil
}
