// Package normalize builds comparable keys from free-text neighborhood
// names. Keys are only used for adjacency lookups, never for listing codes.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and removes combining marks, so "Independência"
// and "Independencia" produce the same key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key canonicalizes a free-text area name: diacritics stripped, every
// non-alphanumeric rune dropped, lowercased. Blank input yields "".
func Key(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		// Malformed input: fall back to filtering the raw string.
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
