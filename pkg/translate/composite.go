package translate

import (
	"strings"
	"unicode/utf8"

	"github.com/japaniel/zhreader/pkg/lexicon"
)

// Composite builds the last-resort gloss: the placeholder for empty or
// single-character tokens, otherwise "c: gloss" (or "c: ?") per character
// joined with "; ".
func Composite(lex *lexicon.Lexicon, token string) string {
	if utf8.RuneCountInString(token) <= 1 {
		return Placeholder
	}
	parts := make([]string, 0, utf8.RuneCountInString(token))
	for _, r := range token {
		c := string(r)
		if g, ok := lex.Lookup(c); ok {
			parts = append(parts, c+": "+g)
		} else {
			parts = append(parts, c+": ?")
		}
	}
	return strings.Join(parts, "; ")
}
