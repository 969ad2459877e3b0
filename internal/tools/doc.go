// Package tools defines the typed tool catalog served over MCP.
//
// A tool is declared once with Define from an argument struct. The struct
// provides the JSON schema (reflected with invopop/jsonschema), the decoding
// target and the validation rules (go-playground/validator tags):
//
//	type SearchIndexArgs struct {
//		tools.BaseArgs
//		Index string         `json:"index" jsonschema:"required" validate:"required"`
//		Query map[string]any `json:"query" jsonschema:"required" validate:"required"`
//	}
//
//	tool := tools.Define("SearchIndexTool", "Searches an index", handleSearch,
//		tools.WithMinVersion("1.0.0"))
//
// Every argument struct embeds BaseArgs, which carries the cluster selector.
// A Catalog implements dispatch.Catalog. Exposed returns the descriptors to
// advertise for the server mode, and Register adds them to an MCP server
// with handlers that route through the dispatcher and the audit log.
package tools
