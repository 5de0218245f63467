package vocab

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxWordLen        = 255
	maxPinyinLen      = 255
	maxTranslationLen = 500
)

// Normalize trims the text fields of in.
func (in SaveInput) Normalize() SaveInput {
	in.Word = strings.TrimSpace(in.Word)
	in.Pinyin = strings.TrimSpace(in.Pinyin)
	in.Translation = strings.TrimSpace(in.Translation)
	return in
}

func (in SaveInput) fieldErrors(prefix string) []FieldError {
	var errs []FieldError
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: prefix + field, Message: msg})
	}

	switch n := utf8.RuneCountInString(in.Word); {
	case n == 0:
		add("word", "required")
	case n > maxWordLen:
		add("word", fmt.Sprintf("must be at most %d characters", maxWordLen))
	}
	if !in.Level.Valid() {
		add("level", "must be 1, 2 or 3")
	}
	if utf8.RuneCountInString(in.Pinyin) > maxPinyinLen {
		add("pinyin", fmt.Sprintf("must be at most %d characters", maxPinyinLen))
	}
	if utf8.RuneCountInString(in.Translation) > maxTranslationLen {
		add("translation", fmt.Sprintf("must be at most %d characters", maxTranslationLen))
	}
	return errs
}

// Validate checks a normalized SaveInput.
func (in SaveInput) Validate() error {
	if errs := in.fieldErrors(""); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ParseLevel parses "1", "2" or "3".
func ParseLevel(s string) (Level, error) {
	switch strings.TrimSpace(s) {
	case "1":
		return LevelNew, nil
	case "2":
		return LevelLearning, nil
	case "3":
		return LevelKnown, nil
	}
	return 0, NewValidationError("level", "must be 1, 2 or 3")
}
