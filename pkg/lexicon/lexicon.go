// Package lexicon holds the read-only word -> English gloss table used by the
// segmenter and the translation resolver.
package lexicon

import (
	"sort"
	"unicode/utf8"
)

// Lexicon is an immutable mapping from a Chinese token to an English gloss.
// It is safe for concurrent use; nothing mutates it after construction.
type Lexicon struct {
	entries   map[string]string
	maxKeyLen int
}

// New copies entries into a new Lexicon. Empty keys and empty glosses are
// ignored.
func New(entries map[string]string) *Lexicon {
	l := &Lexicon{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		l.put(k, v)
	}
	return l
}

func (l *Lexicon) put(key, gloss string) {
	if key == "" || gloss == "" {
		return
	}
	l.entries[key] = gloss
	if n := utf8.RuneCountInString(key); n > l.maxKeyLen {
		l.maxKeyLen = n
	}
}

// Lookup returns the gloss for an exact key match.
func (l *Lexicon) Lookup(token string) (string, bool) {
	if l == nil {
		return "", false
	}
	g, ok := l.entries[token]
	return g, ok
}

// Contains reports whether token is a key.
func (l *Lexicon) Contains(token string) bool {
	_, ok := l.Lookup(token)
	return ok
}

// Len returns the number of entries.
func (l *Lexicon) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// MaxKeyLen returns the length in runes of the longest key.
func (l *Lexicon) MaxKeyLen() int {
	if l == nil {
		return 0
	}
	return l.maxKeyLen
}

// Keys returns all keys in sorted order.
func (l *Lexicon) Keys() []string {
	if l == nil {
		return nil
	}
	keys := make([]string, 0, len(l.entries))
	for k := range l.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge returns a new Lexicon holding base's entries overlaid with overlay's.
// Neither input is modified.
func Merge(base, overlay *Lexicon) *Lexicon {
	out := &Lexicon{entries: make(map[string]string, base.Len()+overlay.Len())}
	for _, src := range []*Lexicon{base, overlay} {
		if src == nil {
			continue
		}
		for k, v := range src.entries {
			out.put(k, v)
		}
	}
	return out
}
