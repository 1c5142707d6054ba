package internal

import "fmt"

// Flatten turns a nested map into a single-level map whose keys are the
// dotted paths of the leaves. `{"a": {"b": 1}}` becomes `{"a.b": 1}`. Array
// elements get indexed keys (`commits[0].id`) and the array itself stays
// reachable under its own path, so rules can test both shapes.
func Flatten(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for key, value := range data {
		flattenValue(out, key, value)
	}
	return out
}

func flattenValue(out map[string]interface{}, path string, value interface{}) {
	switch typed := value.(type) {
	case map[string]interface{}:
		for key, child := range typed {
			flattenValue(out, fmt.Sprintf("%s.%s", path, key), child)
		}
	case []interface{}:
		out[path] = typed
		for i, child := range typed {
			flattenValue(out, fmt.Sprintf("%s[%d]", path, i), child)
		}
	default:
		out[path] = value
	}
}
