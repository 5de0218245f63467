// Package segment splits Chinese text into word spans by greedy longest match
// against a lexicon.
package segment

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/japaniel/zhreader/pkg/lexicon"
)

// Span is a contiguous run of the normalized input. Start and End are rune
// offsets; End-Start equals the rune length of Text.
type Span struct {
	Text  string `json:"text"`
	Start int    `json:"startOffset"`
	End   int    `json:"endOffset"`
}

// IsHan reports whether r is in the CJK Unified Ideographs block
// (U+4E00..U+9FFF).
func IsHan(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

func isHanString(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !IsHan(r) {
			return false
		}
	}
	return true
}

func isPunct(r rune) bool {
	switch r {
	case '，', '。', '！', '？', '；', '：', ',', '!', '?', ';', ':':
		return true
	}
	return false
}

// Preprocess normalizes text before segmentation: NFKC folding, removal of
// all whitespace, a single space on each side of sentence punctuation, and a
// final trim.
func Preprocess(text string) string {
	text = norm.NFKC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
		case isPunct(r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Segmenter performs greedy longest-match segmentation. It is immutable and
// safe for concurrent use.
type Segmenter struct {
	words     map[string]struct{}
	maxKeyLen int
}

// New builds a Segmenter from the lexicon keys made only of CJK ideographs.
// Keys carrying Latin letters or digits (common in CC-CEDICT) never match,
// so every span stays inside the ideograph subset of the input.
func New(lex *lexicon.Lexicon) *Segmenter {
	s := &Segmenter{words: make(map[string]struct{})}
	for _, k := range lex.Keys() {
		if !isHanString(k) {
			continue
		}
		s.words[k] = struct{}{}
		if n := len([]rune(k)); n > s.maxKeyLen {
			s.maxKeyLen = n
		}
	}
	return s
}

// MaxKeyLen returns the longest candidate length in runes.
func (s *Segmenter) MaxKeyLen() int { return s.maxKeyLen }

// Segment walks text left to right. At each position it tries candidate
// lengths from the longest key length down to 1 and emits the first lexicon
// hit; an unmatched ideograph becomes a one-rune span and anything else is
// skipped. Segment is total: it never panics and never fails.
func (s *Segmenter) Segment(text string) []Span {
	runes := []rune(text)
	var spans []Span

	for i := 0; i < len(runes); {
		matched := false
		if IsHan(runes[i]) {
			for l := min(s.maxKeyLen, len(runes)-i); l >= 2; l-- {
				cand := string(runes[i : i+l])
				if _, ok := s.words[cand]; ok {
					spans = append(spans, Span{Text: cand, Start: i, End: i + l})
					i += l
					matched = true
					break
				}
			}
		}
		if matched {
			continue
		}
		if IsHan(runes[i]) {
			spans = append(spans, Span{Text: string(runes[i]), Start: i, End: i + 1})
		}
		i++
	}
	return spans
}

// SegmentByCharacter emits one span per ideograph, ignoring the lexicon.
func SegmentByCharacter(text string) []Span {
	var spans []Span
	for i, r := range []rune(text) {
		if IsHan(r) {
			spans = append(spans, Span{Text: string(r), Start: i, End: i + 1})
		}
	}
	return spans
}

// Texts returns the span texts in order.
func Texts(spans []Span) []string {
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = sp.Text
	}
	return out
}
