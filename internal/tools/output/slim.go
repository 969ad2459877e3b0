package output

import (
	"strings"
)

// SlimDocument removes the excluded fields from a decoded JSON object.
// The input is not modified.
func SlimDocument(obj map[string]any, excludedFields []string) map[string]any {
	if obj == nil {
		return nil
	}

	result := deepCopyMap(obj)
	for _, field := range excludedFields {
		removeField(result, field)
	}
	return result
}

// removeField removes a field at the specified path from a map.
// Supports dot notation for nested fields and [*] for array wildcards, e.g.
// "hits.hits[*]._seq_no".
func removeField(obj map[string]any, path string) {
	if obj == nil || path == "" {
		return
	}
	removeFieldRecursive(obj, strings.Split(path, "."))
}

func removeFieldRecursive(obj map[string]any, parts []string) {
	if len(parts) == 0 || obj == nil {
		return
	}

	current := parts[0]
	remaining := parts[1:]

	if fieldName, ok := strings.CutSuffix(current, "[*]"); ok {
		array, ok := obj[fieldName].([]any)
		if !ok || len(remaining) == 0 {
			return
		}
		for _, elem := range array {
			if elemMap, ok := elem.(map[string]any); ok {
				removeFieldRecursive(elemMap, remaining)
			}
		}
		return
	}

	if len(remaining) == 0 {
		delete(obj, current)
		return
	}

	nextMap, ok := obj[current].(map[string]any)
	if !ok {
		return
	}
	removeFieldRecursive(nextMap, remaining)
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}
	return result
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = deepCopyValue(item)
		}
		return result
	default:
		return v
	}
}
