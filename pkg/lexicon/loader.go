package lexicon

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed data/default.json
var defaultJSON []byte

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
)

// Default returns the built-in reference lexicon. The embedded table is parsed
// once; every caller shares the same immutable value.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		lex, err := ParseJSON(bytes.NewReader(defaultJSON))
		if err != nil {
			panic(fmt.Sprintf("lexicon: embedded default table is invalid: %v", err))
		}
		defaultLex = lex
	})
	return defaultLex
}

// Entry is one row of the array form of a JSON lexicon file.
type Entry struct {
	Word  string `json:"word"`
	Gloss string `json:"gloss"`
}

// ParseJSON reads a lexicon either as an object {"词": "gloss", ...} or as an
// array [{"word": "词", "gloss": "..."}].
func ParseJSON(r io.ReadSeeker) (*Lexicon, error) {
	var obj map[string]string
	if err := json.NewDecoder(r).Decode(&obj); err == nil && len(obj) > 0 {
		return New(obj), nil
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon as object or array: %w", err)
	}
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[strings.TrimSpace(e.Word)] = strings.TrimSpace(e.Gloss)
	}
	return New(m), nil
}

// LoadJSON reads a JSON lexicon file.
func LoadJSON(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseJSON(f)
}

// LoadFile loads a lexicon from path, choosing the JSON parser for .json files
// and the CC-CEDICT parser for everything else.
func LoadFile(path string) (*Lexicon, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSON(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCEDICT(f)
}
