// Package logging provides structured logging utilities for the mcp-opensearch application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction (JSON or text handler, leveled)
//   - Consistent attribute naming (cluster, operation, auth_mechanism, request_id)
//   - Host/URL sanitization for backend endpoints
//   - Secret and ARN masking
//
// # Usage Patterns
//
//	logger := logging.WithCluster(slog.Default(), "prod")
//	logger.Info("client built",
//	    logging.Mechanism("iam"),
//	    logging.Host(profile.URL))
//
// # Security Considerations
//
//   - Endpoint URLs have IP addresses and userinfo removed
//   - Passwords and secret keys are only ever logged as a length indicator
//   - IAM role ARNs are logged with the account ID redacted
package logging
