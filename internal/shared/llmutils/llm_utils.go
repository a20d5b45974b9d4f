package llmutils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/crystaldolphin/toolagent/internal/schema"
)

var reThink = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Truncate shortens a string to at most n characters, adding "..." if it was truncated.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StripThink removes <think>…</think> blocks that some models embed.
func StripThink(s string) string {
	return reThink.ReplaceAllString(s, "")
}

// StringOrDefault returns s if it's not empty, or def if s is empty.
func StringOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ToolHint generates a short hint string for a list of tool requests,
// e.g. `power(base=2, exponent=10), web_fetch(url="https://…")`.
func ToolHint(reqs []schema.ToolRequest) string {
	parts := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if len(r.Arguments) == 0 {
			parts = append(parts, r.Name)
			continue
		}
		keys := make([]string, 0, len(r.Arguments))
		for k := range r.Arguments {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		args := make([]string, 0, len(keys))
		for _, k := range keys {
			args = append(args, k+"="+hintValue(r.Arguments[k]))
		}
		parts = append(parts, fmt.Sprintf("%s(%s)", r.Name, strings.Join(args, ", ")))
	}
	return strings.Join(parts, ", ")
}

func hintValue(v any) string {
	if s, ok := v.(string); ok {
		if len(s) > 40 {
			s = s[:40] + "…"
		}
		return fmt.Sprintf("%q", s)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return Truncate(string(b), 40)
}
