// Package auth resolves how mcp-opensearch authenticates to a cluster.
//
// Resolver.Resolve turns a cluster.Profile into a Context by trying, in order:
//
//  1. basic auth, when the profile carries both username and password;
//  2. IAM role assumption through STS, when the profile names a role ARN;
//  3. ambient AWS credentials from the default provider chain;
//  4. no authentication.
//
// A strategy that fails is logged and the next one is tried, so resolution
// always yields a Context. The AWS SDK is reached through the ConfigLoader and
// RoleAssumer seams, which tests replace with in-memory fakes.
//
// The resolved Context also carries the SigV4 service name ("es" or "aoss"),
// the region and the effective TLS verification policy.
package auth
