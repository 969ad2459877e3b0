// Package cmd provides the command-line interface for mcp-opensearch.
//
// This package implements a Cobra-based CLI with multiple subcommands:
//   - serve: Starts the MCP server (default behavior when no subcommand is provided)
//   - version: Displays the application version
//   - self-update: Updates the binary to the latest version from GitHub releases
//
// Command Structure:
//
//	mcp-opensearch [flags]                 # Starts the MCP server (default)
//	mcp-opensearch serve [flags]           # Explicitly starts the MCP server
//	mcp-opensearch version                 # Shows version information
//	mcp-opensearch self-update             # Updates to latest release
//
// Cluster configuration:
//
//	mcp-opensearch serve                                  # single mode, OPENSEARCH_URL etc.
//	mcp-opensearch serve --mode multi --config clusters.yml
//	mcp-opensearch serve --mode multi --config clusters.yml --profile analytics
//
// A .env file in the working directory (or --env-file) is loaded before the
// environment is read. In multi mode SIGHUP reloads the clusters file.
//
// The serve command supports multiple transport options:
//   - stdio: Standard input/output (default) - for command-line integration
//   - sse: Server-Sent Events over HTTP - for web-based clients
//   - streamable-http: Streamable HTTP transport - for HTTP-based integration
//
// HTTP transports also serve /healthz, /readyz and /healthz/detailed.
package cmd
