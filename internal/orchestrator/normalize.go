package orchestrator

import (
	"fmt"
	"sort"
	"strings"
)

// NormalizeContent coerces a raw team message payload to display text. Agents
// can hand back strings, lists, or maps depending on the tool that produced
// the message; everything becomes one string here so the rest of the pipeline
// deals only in text.
func NormalizeContent(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case []string:
		return strings.Join(c, "\n")
	case []any:
		parts := make([]string, len(c))
		for i, item := range c {
			parts[i] = NormalizeContent(item)
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + NormalizeContent(c[k])
		}
		return strings.Join(parts, "\n")
	case fmt.Stringer:
		return c.String()
	default:
		return fmt.Sprintf("%v", c)
	}
}
