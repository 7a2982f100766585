package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// apostrophes are removed outright so that "Joe's" and "Joes" compare equal.
const apostrophes = "'‘’`ʼ´"

// NormalizeName canonicalizes a venue name for comparison. It lowercases,
// folds accents ("é" -> "e"), drops apostrophes, drops every remaining rune
// that is not an ASCII letter, digit, or whitespace, and collapses whitespace.
// The result is idempotent: NormalizeName(NormalizeName(s)) == NormalizeName(s).
func NormalizeName(name string) string {
	// transform.Chain keeps internal buffers, so one is built per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(fold, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case strings.ContainsRune(apostrophes, r):
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
