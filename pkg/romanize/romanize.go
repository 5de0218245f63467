// Package romanize transcribes Chinese text into tone-marked pinyin.
package romanize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mozillazg/go-pinyin"

	"github.com/japaniel/zhreader/pkg/segment"
)

// ErrNoReading is returned when an ideograph has no known reading.
var ErrNoReading = errors.New("no pinyin reading")

// Romanizer turns Chinese text into a phonetic transcription.
type Romanizer interface {
	Transcribe(text string) (string, error)
}

// Pinyin transcribes with tone marks, one syllable per ideograph, separated
// by single spaces. Runs of non-Chinese characters are kept together as one
// item, e.g. "我有3个iPhone" -> "wǒ yǒu 3 gè iPhone".
type Pinyin struct {
	args pinyin.Args
}

// NewPinyin returns a tone-marked pinyin transcriber.
func NewPinyin() *Pinyin {
	a := pinyin.NewArgs()
	a.Style = pinyin.Tone
	a.Heteronym = false
	return &Pinyin{args: a}
}

// Transcribe implements Romanizer.
func (p *Pinyin) Transcribe(text string) (string, error) {
	var (
		items []string
		other strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(other.String()); s != "" {
			items = append(items, s)
		}
		other.Reset()
	}

	for _, r := range text {
		if !segment.IsHan(r) {
			other.WriteRune(r)
			continue
		}
		flush()
		py := pinyin.Pinyin(string(r), p.args)
		if len(py) == 0 || len(py[0]) == 0 || py[0][0] == "" {
			return "", fmt.Errorf("%w: %q", ErrNoReading, r)
		}
		items = append(items, py[0][0])
	}
	flush()
	return strings.Join(items, " "), nil
}

// Safe transcribes text with r and returns "" on any error or panic.
func Safe(r Romanizer, text string) (out string) {
	if r == nil {
		return ""
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = ""
		}
	}()
	s, err := r.Transcribe(text)
	if err != nil {
		return ""
	}
	return s
}
