// Package opensearch builds and caches OpenSearch clients for cluster profiles.
//
// The Factory owns at most one client Handle per cluster name. A handle is
// reused while the inputs it was built from are unchanged and its credentials
// are outside the expiry window; any other change replaces it. Construction is
// deduplicated with singleflight so that concurrent first use of a cluster
// builds exactly one client.
//
// Clients are built with opensearch-go. Basic auth is passed through as-is,
// AWS credentials sign requests with SigV4 for the "es" or "aoss" service,
// and certificate verification follows the resolved auth.Context.
package opensearch
