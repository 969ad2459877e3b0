package output

import (
	"sort"
	"strconv"
)

// RowSummary aggregates the rows of a tabular (_cat) response. It is
// attached when rows were truncated so totals still reflect the full set.
type RowSummary struct {
	Total int `json:"total"`

	// ByHealth counts rows by "health" (green, yellow, red).
	ByHealth map[string]int `json:"byHealth,omitempty"`

	// ByStatus counts rows by "status" (open, close).
	ByStatus map[string]int `json:"byStatus,omitempty"`

	// ByState counts shard rows by "state" (STARTED, UNASSIGNED...).
	ByState map[string]int `json:"byState,omitempty"`

	// TotalDocs sums "docs.count" (indices) or "docs" (shards).
	TotalDocs int64 `json:"totalDocs,omitempty"`

	// Sample lists the first index names.
	Sample  []string `json:"sample,omitempty"`
	HasMore bool     `json:"hasMore,omitempty"`
}

// DefaultSampleSize is the number of index names kept in a summary sample.
const DefaultSampleSize = 10

// SummarizeRows builds a RowSummary from decoded _cat rows.
func SummarizeRows(rows []any, sampleSize int) *RowSummary {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	s := &RowSummary{Total: len(rows)}
	seen := make(map[string]struct{})
	var names []string

	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		s.ByHealth = countField(s.ByHealth, row, "health")
		s.ByStatus = countField(s.ByStatus, row, "status")
		s.ByState = countField(s.ByState, row, "state")

		for _, key := range []string{"docs.count", "docs"} {
			if n, ok := intField(row, key); ok {
				s.TotalDocs += n
				break
			}
		}

		if name, ok := row["index"].(string); ok && name != "" {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}

	sort.Strings(names)
	if len(names) > sampleSize {
		s.Sample = names[:sampleSize]
		s.HasMore = true
	} else {
		s.Sample = names
	}
	return s
}

func countField(counts map[string]int, row map[string]any, key string) map[string]int {
	v, ok := row[key].(string)
	if !ok || v == "" {
		return counts
	}
	if counts == nil {
		counts = make(map[string]int)
	}
	counts[v]++
	return counts
}

// intField reads a _cat numeric column, which arrives as a string, a JSON
// number or null.
func intField(row map[string]any, key string) (int64, bool) {
	switch v := row[key].(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	case float64:
		return int64(v), true
	case interface{ Int64() (int64, error) }:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}
