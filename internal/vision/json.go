package vision

import "strings"

// extractJSON pulls the first JSON object out of a model reply. Vision
// models wrap answers in markdown fences or prose often enough that strict
// parsing of the raw content would fail on a good answer.
func extractJSON(s string) (string, bool) {
	s = strings.TrimSpace(s)

	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = rest[:j]
		} else {
			s = rest
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
