// Package middleware provides HTTP middleware for the streamable HTTP and SSE
// transports: request metrics, security headers, CORS and body size limits.
package middleware
