package face

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeName normalizes a person name for use as a storage key and for
// comparison: trimmed, lowercase, no diacritics, spaces collapsed to dashes.
// "Jan Novák" and "jan-novak" normalize to the same key.
//
// Keys double as sample filenames, so only letters, digits and dashes
// survive; punctuation like dots or underscores is dropped ("J.R. Smith"
// -> "jr-smith"), never left to collide with filename separators.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.Join(strings.Fields(name), "-")

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		}
	}
	name = b.String()

	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	return strings.Trim(name, "-")
}
