// Package output shapes OpenSearch responses before they are returned to
// MCP clients.
//
// Search and _cat responses can be far larger than an LLM context window.
// A Processor applies, in order:
//
//   - masking of credential-like fields in document sources (MaskFields)
//   - removal of shard bookkeeping fields (SlimOutput, ExcludedFields)
//   - truncation of search hits (MaxHits) and _cat rows (MaxRows), with a
//     RowSummary of the full row set when rows were cut
//   - a hard limit on the rendered size (MaxResponseBytes)
//
// Every truncation produces a TruncationWarning that is rendered after the
// body so the caller knows the answer is partial.
//
//	p := output.NewProcessor(output.DefaultConfig())
//	text := p.Render("Indices", raw)
package output
