// Package search provides the query tools: SearchIndexTool, CountTool,
// ExplainTool and MsearchTool.
//
// Query bodies are passed to the backend unchanged. Responses are shaped by
// the output processor (hit truncation, field masking) when rendered.
package search
