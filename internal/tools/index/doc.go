// Package index provides the index inspection tools: ListIndexTool,
// IndexMappingTool and GetShardsTool.
package index
