// Package match decides whether recognized text contains a keyword. The
// test is a whole-word one: the keyword must equal an entire token after
// diacritic folding and lowercasing, so "baton" never matches inside
// "batonowa". The same semantics apply to freshly recognized text and to
// cache hits; the cache's full-text search is only a prefilter.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold strips combining diacritics and lowercases, so "Świeża" folds to
// "swieza".
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Tokens splits text into word tokens on any non-letter, non-digit rune.
func Tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Matches reports whether keyword appears in text as a whole token.
func Matches(text, keyword string) bool {
	want := Fold(strings.TrimSpace(keyword))
	if want == "" {
		return false
	}
	for _, tok := range Tokens(text) {
		if Fold(tok) == want {
			return true
		}
	}
	return false
}
