package detect

import (
	"fmt"
	"strings"
)

// stringValuesOf returns every value of tc.ToolInput that is itself a
// string, keyed by the top-level field name, plus the command-shaped
// fields spec §4.B.3 names explicitly. Unknown shapes are tolerated per
// spec §9: traversal never panics on an unexpected type.
func stringFields(input map[string]any, keys ...string) []string {
	var out []string
	for _, k := range keys {
		if v, ok := input[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// asString tolerantly stringifies a tagged-value-tree leaf for pattern
// scanning; non-scalar values are rendered with fmt.Sprint so traversal
// never panics on an unexpected shape.
func asString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case nil:
		return "", false
	case bool, int, int64, float64:
		return fmt.Sprint(x), true
	default:
		return "", false
	}
}

// flattenStrings walks a tagged value tree (map/slice/scalar) collecting
// every string leaf, tolerant of unknown shapes (spec §9).
func flattenStrings(v any) []string {
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch x := v.(type) {
		case string:
			if x != "" {
				out = append(out, x)
			}
		case map[string]any:
			for _, vv := range x {
				walk(vv)
			}
		case []any:
			for _, vv := range x {
				walk(vv)
			}
		}
	}
	walk(v)
	return out
}

// concatCommandText joins the fields spec §4.B.3's destructive detector
// scans (command/query/script/code/content/bash/path) into one string for
// regex matching.
func concatCommandText(input map[string]any) string {
	fields := stringFields(input, "command", "query", "script", "code", "content", "bash", "path")
	return strings.Join(fields, "\n")
}
