package output

import (
	"strings"
)

// RedactedValue is the placeholder used for masked field values.
const RedactedValue = "***REDACTED***"

// sensitiveKeyPatterns are substrings of field names whose values are
// treated as credentials.
var sensitiveKeyPatterns = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"private_key",
	"credential",
	"authorization",
}

// IsSensitiveKey reports whether a document field name looks like a credential.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, p := range sensitiveKeyPatterns {
		if strings.Contains(k, p) {
			return true
		}
	}
	return false
}

// MaskSensitiveFields replaces the values of credential-like keys anywhere
// in v with RedactedValue and reports how many values were masked. v is
// modified in place; pass a copy to keep the original.
func MaskSensitiveFields(v any) int {
	masked := 0
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			if IsSensitiveKey(k) {
				if _, isObject := child.(map[string]any); !isObject {
					val[k] = RedactedValue
					masked++
					continue
				}
			}
			masked += MaskSensitiveFields(child)
		}
	case []any:
		for _, child := range val {
			masked += MaskSensitiveFields(child)
		}
	}
	return masked
}

// maskHitSources masks document sources of every search hit in a response.
// Mapping and cluster-level responses are left alone: their keys are
// field names, not values.
func maskHitSources(doc map[string]any) int {
	masked := 0
	forEachHit(doc, func(hit map[string]any) {
		for _, key := range []string{"_source", "fields", "highlight"} {
			if src, ok := hit[key]; ok {
				masked += MaskSensitiveFields(src)
			}
		}
	})
	return masked
}

// forEachHit calls fn for every hit of a search or msearch response.
func forEachHit(doc map[string]any, fn func(hit map[string]any)) {
	visit := func(resp map[string]any) {
		hits, ok := resp["hits"].(map[string]any)
		if !ok {
			return
		}
		list, ok := hits["hits"].([]any)
		if !ok {
			return
		}
		for _, h := range list {
			if hit, ok := h.(map[string]any); ok {
				fn(hit)
			}
		}
	}

	visit(doc)
	if responses, ok := doc["responses"].([]any); ok {
		for _, r := range responses {
			if resp, ok := r.(map[string]any); ok {
				visit(resp)
			}
		}
	}
}
