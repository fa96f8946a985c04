package nl2sql

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases text, folds accents and replaces punctuation with
// spaces. Digits are kept so thresholds and years survive.
func Normalize(text string) string {
	folded := FoldAccents(strings.ToLower(text))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func FoldAccents(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return folded
}

// ContainsPhrase reports whether phrase appears in normalized text on word
// boundaries.
func ContainsPhrase(normalized, phrase string) bool {
	return PhraseIndex(normalized, phrase) >= 0
}

func PhraseIndex(normalized, phrase string) int {
	if phrase == "" {
		return -1
	}
	padded := " " + normalized + " "
	idx := strings.Index(padded, " "+phrase+" ")
	if idx < 0 {
		return -1
	}
	return idx
}
