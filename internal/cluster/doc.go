// Package cluster holds the OpenSearch cluster profiles served by mcp-opensearch.
//
// A Profile names one backend cluster together with its endpoint, optional
// credentials (basic auth pair, IAM role, AWS profile), region, serverless flag
// and TLS verification policy. The Registry keeps profiles by name and applies
// the per-request selection policy:
//
//   - single-cluster mode: one implicit profile built from the environment
//     (OPENSEARCH_URL, OPENSEARCH_USERNAME, ...) serves every request;
//   - multi-cluster mode: profiles are loaded from a YAML clusters file and a
//     request without a cluster name uses the first one in file order.
//
// Registry.Reload replaces the whole set atomically and reports which clusters
// changed so that cached clients can be invalidated.
package cluster
