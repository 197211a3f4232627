// Package textutil provides the text canonicalisation used by the reply
// cascade.
//
// Two distinct normalisation paths exist on purpose.  Normalize produces the
// lowercase comparison key used for catalog lookups and fuzzy matching.
// CleanCityName preserves letter case because city names are proper nouns and
// must survive into the weather provider query mostly intact.
package textutil

import (
	"strings"
	"unicode"
)

// Normalize strips text down to the canonical comparison key: lowercase,
// every character outside [a-z0-9 and whitespace] replaced by a space,
// whitespace runs collapsed to a single space, trimmed.
//
// Normalize is pure, total, and idempotent.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	space := true // collapse leading whitespace
	for _, r := range strings.ToLower(text) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			space = false
		default:
			// Anything else (punctuation, symbols, whitespace, non-ASCII)
			// acts as a separator.
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}

	return strings.TrimRight(b.String(), " ")
}

// Tokenize splits a normalized key on whitespace, dropping empty tokens.
func Tokenize(key string) []string {
	return strings.Fields(key)
}

// CleanCityName extracts a city name from a raw follow-up message. Only
// letters and spaces are kept (digits, emoji, and symbols are stripped),
// whitespace runs are collapsed, and the first letter of the result is
// upper-cased. The remainder keeps its original case.
func CleanCityName(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	space := true
	for _, r := range raw {
		switch {
		case unicode.IsLetter(r) && r <= unicode.MaxASCII:
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}

	city := strings.TrimRight(b.String(), " ")
	if city == "" {
		return ""
	}
	return strings.ToUpper(city[:1]) + city[1:]
}
