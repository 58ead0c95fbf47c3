package browser

import (
	"regexp"
	"strings"
)

// selectorPart is one entry of a selector list. When Text is set the entry
// came from a `css:has-text('...')` form and matches elements of CSS whose
// text contains Text.
type selectorPart struct {
	CSS  string `json:"css"`
	Text string `json:"text,omitempty"`
}

var hasTextExpr = regexp.MustCompile(`^(.*?):has-text\((['"])(.*)['"]\)$`)

// parseSelector splits a comma-separated selector list, extracting the
// has-text extension that plain CSS engines reject.
func parseSelector(selector string) []selectorPart {
	var parts []selectorPart
	for _, raw := range splitSelectorList(selector) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if m := hasTextExpr.FindStringSubmatch(raw); m != nil {
			css := strings.TrimSpace(m[1])
			if css == "" {
				css = "*"
			}
			parts = append(parts, selectorPart{CSS: css, Text: m[3]})
			continue
		}
		parts = append(parts, selectorPart{CSS: raw})
	}
	return parts
}

// splitSelectorList splits on top-level commas, ignoring commas inside
// quotes, brackets and parentheses.
func splitSelectorList(s string) []string {
	var (
		out   []string
		depth int
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}
