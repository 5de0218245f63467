// Package vocab is the personal vocabulary: words a user has saved with a
// familiarity level from 1 (new) to 3 (known).
package vocab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors used by stores, the service and the transport layer.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// Level is a familiarity level.
type Level int

const (
	LevelNew      Level = 1
	LevelLearning Level = 2
	LevelKnown    Level = 3
)

// Valid reports whether l is 1, 2 or 3.
func (l Level) Valid() bool { return l >= LevelNew && l <= LevelKnown }

// Entry is one saved word.
type Entry struct {
	ID          string    `json:"id"`
	Word        string    `json:"word"`
	Level       Level     `json:"level"`
	Pinyin      string    `json:"pinyin"`
	Translation string    `json:"translation"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SaveInput is what a caller provides to save or update a word.
type SaveInput struct {
	Word        string `json:"word"`
	Level       Level  `json:"level"`
	Pinyin      string `json:"pinyin"`
	Translation string `json:"translation"`
}

// Stats counts saved words per level.
type Stats struct {
	Total  int `json:"total"`
	Level1 int `json:"level1"`
	Level2 int `json:"level2"`
	Level3 int `json:"level3"`
}

// Store persists vocabulary entries per user.
type Store interface {
	// Save inserts the word or, if the user already saved it, updates level,
	// pinyin, translation and updated_at in place.
	Save(ctx context.Context, userID uuid.UUID, in SaveInput) (*Entry, error)
	Get(ctx context.Context, userID uuid.UUID, word string) (*Entry, error)
	// List returns entries newest first; level 0 means all levels.
	List(ctx context.Context, userID uuid.UUID, level Level) ([]Entry, error)
	// Update changes an existing entry and returns ErrNotFound otherwise.
	Update(ctx context.Context, userID uuid.UUID, in SaveInput) (*Entry, error)
	Delete(ctx context.Context, userID uuid.UUID, word string) error
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
	Stats(ctx context.Context, userID uuid.UUID) (Stats, error)
	// Levels returns the saved level of each of words the user has saved.
	Levels(ctx context.Context, userID uuid.UUID, words []string) (map[string]Level, error)
	// Import upserts entries in bulk and returns how many were written.
	Import(ctx context.Context, userID uuid.UUID, entries []SaveInput) (int, error)
	Ping(ctx context.Context) error
	Close() error
}
