package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// FoldDiacritics removes combining marks so accented and unaccented spellings
// compare equal.
func FoldDiacritics(text string) string {
	folded, _, err := transform.String(diacriticStripper, text)
	if err != nil {
		return text
	}
	return folded
}

// TitleKey reduces a headline to a normalized comparison key: diacritics
// folded, lowercased, punctuation collapsed to single spaces. Two headlines
// with the same key are treated as the same story.
func TitleKey(title string) string {
	folded := strings.ToLower(FoldDiacritics(title))
	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
