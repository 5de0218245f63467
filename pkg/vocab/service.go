package vocab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExportVersion is the format version written by Export.
const ExportVersion = 1

// Document is the JSON export/import format.
type Document struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	Entries    []Entry   `json:"entries"`
}

// Glosser supplies pinyin and a translation for a word.
type Glosser interface {
	Gloss(ctx context.Context, word string) (pinyin, translation string)
}

// Service validates requests and delegates to a Store.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewService creates a Service.
func NewService(logger *slog.Logger, store Store) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store: store,
		log:   logger.With("service", "vocab"),
		now:   time.Now,
	}
}

func checkUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrUnauthorized
	}
	return nil
}

// Save validates in and upserts it.
func (s *Service) Save(ctx context.Context, userID uuid.UUID, in SaveInput) (*Entry, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	e, err := s.store.Save(ctx, userID, in)
	if err != nil {
		return nil, fmt.Errorf("save word: %w", err)
	}
	s.log.InfoContext(ctx, "word saved",
		slog.String("user_id", userID.String()),
		slog.String("word", e.Word),
		slog.Int("level", int(e.Level)),
	)
	return e, nil
}

// Update changes an existing entry identified by word.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, word string, in SaveInput) (*Entry, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	in.Word = word
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	e, err := s.store.Update(ctx, userID, in)
	if err != nil {
		return nil, fmt.Errorf("update word: %w", err)
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID, word string) (*Entry, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, userID, strings.TrimSpace(word))
}

// Level returns the saved level of word, or 0 when the word is not saved.
func (s *Service) Level(ctx context.Context, userID uuid.UUID, word string) (Level, error) {
	if err := checkUser(userID); err != nil {
		return 0, err
	}
	word = strings.TrimSpace(word)
	if word == "" {
		return 0, NewValidationError("word", "required")
	}
	levels, err := s.store.Levels(ctx, userID, []string{word})
	if err != nil {
		return 0, err
	}
	return levels[word], nil
}

// Levels returns saved levels for words.
func (s *Service) Levels(ctx context.Context, userID uuid.UUID, words []string) (map[string]Level, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	words = dedupe(words)
	if len(words) == 0 {
		return map[string]Level{}, nil
	}
	return s.store.Levels(ctx, userID, words)
}

// List returns the user's entries; level 0 returns every level.
func (s *Service) List(ctx context.Context, userID uuid.UUID, level Level) ([]Entry, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	if level != 0 && !level.Valid() {
		return nil, NewValidationError("level", "must be 1, 2 or 3")
	}
	return s.store.List(ctx, userID, level)
}

func (s *Service) Delete(ctx context.Context, userID uuid.UUID, word string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userID, strings.TrimSpace(word)); err != nil {
		return fmt.Errorf("delete word: %w", err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := checkUser(userID); err != nil {
		return 0, err
	}
	n, err := s.store.Clear(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("clear vocabulary: %w", err)
	}
	s.log.InfoContext(ctx, "vocabulary cleared", slog.String("user_id", userID.String()), slog.Int64("removed", n))
	return n, nil
}

func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	if err := checkUser(userID); err != nil {
		return Stats{}, err
	}
	return s.store.Stats(ctx, userID)
}

// Export writes the user's whole vocabulary as a Document.
func (s *Service) Export(ctx context.Context, userID uuid.UUID, w io.Writer) error {
	entries, err := s.List(ctx, userID, 0)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{Version: ExportVersion, ExportedAt: s.now().UTC(), Entries: entries})
}

// Import reads a Document (or a bare array of entries) and upserts every
// entry. Nothing is written if any entry is invalid.
func (s *Service) Import(ctx context.Context, userID uuid.UUID, r io.Reader) (int, error) {
	if err := checkUser(userID); err != nil {
		return 0, err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read import: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		var entries []Entry
		if err2 := json.Unmarshal(raw, &entries); err2 != nil {
			return 0, NewValidationError("body", "must be an export document or an array of entries")
		}
		doc.Entries = entries
	}

	inputs := make([]SaveInput, 0, len(doc.Entries))
	var errs []FieldError
	for i, e := range doc.Entries {
		in := SaveInput{Word: e.Word, Level: e.Level, Pinyin: e.Pinyin, Translation: e.Translation}.Normalize()
		errs = append(errs, in.fieldErrors(fmt.Sprintf("entries[%d].", i))...)
		inputs = append(inputs, in)
	}
	if len(errs) > 0 {
		return 0, &ValidationError{Errors: errs}
	}
	if len(inputs) == 0 {
		return 0, nil
	}

	n, err := s.store.Import(ctx, userID, inputs)
	if err != nil {
		return n, fmt.Errorf("import vocabulary: %w", err)
	}
	s.log.InfoContext(ctx, "vocabulary imported", slog.String("user_id", userID.String()), slog.Int("entries", n))
	return n, nil
}

// Backfill fills in missing pinyin and translations for saved words and
// returns how many entries changed.
func (s *Service) Backfill(ctx context.Context, userID uuid.UUID, g Glosser) (int, error) {
	entries, err := s.List(ctx, userID, 0)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, e := range entries {
		if e.Pinyin != "" && e.Translation != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		py, tr := g.Gloss(ctx, e.Word)
		in := SaveInput{Word: e.Word, Level: e.Level, Pinyin: e.Pinyin, Translation: e.Translation}
		if in.Pinyin == "" {
			in.Pinyin = py
		}
		if in.Translation == "" {
			in.Translation = tr
		}
		if in.Pinyin == e.Pinyin && in.Translation == e.Translation {
			continue
		}
		if _, err := s.store.Update(ctx, userID, in.Normalize()); err != nil {
			return updated, fmt.Errorf("backfill %q: %w", e.Word, err)
		}
		updated++
	}
	return updated, nil
}

func dedupe(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
