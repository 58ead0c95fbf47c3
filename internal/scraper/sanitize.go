package scraper

import (
	"strings"
	"unicode"
)

// SanitizeLabel keeps letters, digits, spaces and periods of a judge label
// and trims trailing whitespace, making it usable inside a file name.
func SanitizeLabel(label string) string {
	kept := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '.' {
			return r
		}
		return -1
	}, label)
	return strings.TrimRightFunc(kept, unicode.IsSpace)
}
