package translate

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxGlossLen is the exclusive upper bound, in runes, for a remote gloss.
const DefaultMaxGlossLen = 200

// ValidGloss reports whether a remote result is usable for input: non-empty
// after trimming, not an echo of the input and shorter than maxLen runes.
func ValidGloss(input, gloss string, maxLen int) bool {
	if maxLen <= 0 {
		maxLen = DefaultMaxGlossLen
	}
	g := strings.TrimSpace(gloss)
	if g == "" {
		return false
	}
	if strings.EqualFold(g, strings.TrimSpace(input)) {
		return false
	}
	return utf8.RuneCountInString(g) < maxLen
}
