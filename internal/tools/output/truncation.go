package output

import (
	"fmt"
	"unicode/utf8"
)

// TruncateRows truncates a tabular response to maxRows.
func TruncateRows[T any](rows []T, maxRows int) ([]T, *TruncationWarning) {
	maxRows = EffectiveLimit(maxRows, DefaultMaxRows, AbsoluteMaxRows)

	total := len(rows)
	if total <= maxRows {
		return rows, nil
	}

	return rows[:maxRows], &TruncationWarning{
		Shown:   maxRows,
		Total:   total,
		Message: fmt.Sprintf("Output truncated. Showing %d of %d rows. Use a narrower index pattern for complete results.", maxRows, total),
	}
}

// TruncateHits truncates a hits array to maxHits.
func TruncateHits[T any](hits []T, maxHits int) ([]T, *TruncationWarning) {
	maxHits = EffectiveLimit(maxHits, DefaultMaxHits, AbsoluteMaxHits)

	total := len(hits)
	if total <= maxHits {
		return hits, nil
	}

	return hits[:maxHits], &TruncationWarning{
		Shown:   maxHits,
		Total:   total,
		Message: fmt.Sprintf("Search hits truncated. Showing %d of %d hits. Lower \"size\" or paginate with \"from\" or \"search_after\".", maxHits, total),
	}
}

// TruncateBytes cuts text to at most maxBytes without splitting a UTF-8
// sequence.
func TruncateBytes(text string, maxBytes int) (string, *TruncationWarning) {
	maxBytes = EffectiveLimit(maxBytes, DefaultMaxResponseBytes, AbsoluteMaxResponseBytes)

	total := len(text)
	if total <= maxBytes {
		return text, nil
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	return text[:cut], &TruncationWarning{
		Shown:   cut,
		Total:   total,
		Message: fmt.Sprintf("Response truncated at %d of %d bytes. Request fewer fields with \"_source\" or a smaller \"size\".", cut, total),
	}
}

// EffectiveLimit applies the default to a non-positive limit and caps the
// result at absoluteMax.
func EffectiveLimit(limit, defaultLimit, absoluteMax int) int {
	if limit <= 0 {
		limit = defaultLimit
	}
	return min(limit, absoluteMax)
}
