package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// CC-CEDICT glosses are capped per headword so tooltips stay readable.
const maxCEDICTGlosses = 4

// LoadCEDICT parses a CC-CEDICT file:
//
//	中國 中国 [Zhong1 guo2] /China/Middle Kingdom/
//
// Entries are keyed by the simplified form. Headwords that appear more than
// once (different readings) have their glosses merged.
func LoadCEDICT(r io.Reader) (*Lexicon, error) {
	glosses := make(map[string][]string)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		simp, senses, ok := parseCEDICTLine(text)
		if !ok {
			continue
		}
		glosses[simp] = appendUnique(glosses[simp], senses...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read cedict line %d: %w", line, err)
	}

	m := make(map[string]string, len(glosses))
	for k, v := range glosses {
		if len(v) > maxCEDICTGlosses {
			v = v[:maxCEDICTGlosses]
		}
		m[k] = strings.Join(v, "; ")
	}
	return New(m), nil
}

func parseCEDICTLine(line string) (simp string, senses []string, ok bool) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 3 {
		return "", nil, false
	}
	simp = fields[1]
	rest := fields[2]

	open := strings.Index(rest, "/")
	if open < 0 {
		return "", nil, false
	}
	for _, s := range strings.Split(rest[open:], "/") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		senses = append(senses, s)
	}
	return simp, senses, len(senses) > 0
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		dup := false
		for _, d := range dst {
			if d == it {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, it)
		}
	}
	return dst
}
