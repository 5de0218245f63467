package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/japaniel/zhreader/pkg/vocab"
)

// DBExecutor is an interface that allows functions to accept either *sql.DB
// or *sql.Tx.
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite's default limit on bound parameters is 999 in older builds.
const maxLevelsBatch = 500

const entryColumns = `id, word, level, pinyin, translation, created_at, updated_at`

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func newID() string { return ulid.Make().String() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*vocab.Entry, error) {
	var (
		e                vocab.Entry
		level            int
		created, updated string
	)
	if err := row.Scan(&e.ID, &e.Word, &level, &e.Pinyin, &e.Translation, &created, &updated); err != nil {
		return nil, err
	}
	e.Level = vocab.Level(level)
	var err error
	if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if e.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &e, nil
}

// mapError converts sqlite errors to vocab sentinels.
func mapError(err error, word string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("word %q: %w", word, vocab.ErrNotFound)
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("word %q: %w", word, vocab.ErrAlreadyExists)
		case sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull:
			return fmt.Errorf("word %q: %w", word, vocab.ErrValidation)
		}
	}
	return fmt.Errorf("word %q: %w", word, err)
}

// UpsertVocabulary inserts a word for userID or, when the user already saved
// it, updates the level and any non-empty pinyin/translation in place.
func UpsertVocabulary(ctx context.Context, db DBExecutor, userID uuid.UUID, in vocab.SaveInput, now time.Time) (*vocab.Entry, error) {
	word := strings.TrimSpace(in.Word)
	if word == "" {
		return nil, vocab.NewValidationError("word", "required")
	}
	ts := formatTime(now)

	query := `INSERT INTO vocabulary (id, user_id, word, level, pinyin, translation, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(user_id, word)
			  DO UPDATE SET
			    level = excluded.level,
			    pinyin = COALESCE(NULLIF(excluded.pinyin, ''), vocabulary.pinyin),
			    translation = COALESCE(NULLIF(excluded.translation, ''), vocabulary.translation),
			    updated_at = excluded.updated_at
			  RETURNING ` + entryColumns

	e, err := scanEntry(db.QueryRowContext(ctx, query,
		newID(), userID.String(), word, int(in.Level), in.Pinyin, in.Translation, ts, ts))
	if err != nil {
		return nil, mapError(err, word)
	}
	return e, nil
}

// UpdateVocabulary changes an existing word. Empty pinyin/translation keep
// their stored values.
func UpdateVocabulary(ctx context.Context, db DBExecutor, userID uuid.UUID, in vocab.SaveInput, now time.Time) (*vocab.Entry, error) {
	query := `UPDATE vocabulary SET
			    level = ?,
			    pinyin = COALESCE(NULLIF(?, ''), pinyin),
			    translation = COALESCE(NULLIF(?, ''), translation),
			    updated_at = ?
			  WHERE user_id = ? AND word = ?
			  RETURNING ` + entryColumns

	e, err := scanEntry(db.QueryRowContext(ctx, query,
		int(in.Level), in.Pinyin, in.Translation, formatTime(now), userID.String(), in.Word))
	if err != nil {
		return nil, mapError(err, in.Word)
	}
	return e, nil
}

// GetVocabulary returns one saved word.
func GetVocabulary(ctx context.Context, db DBExecutor, userID uuid.UUID, word string) (*vocab.Entry, error) {
	e, err := scanEntry(db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM vocabulary WHERE user_id = ? AND word = ?`,
		userID.String(), word))
	if err != nil {
		return nil, mapError(err, word)
	}
	return e, nil
}

// ListVocabulary returns a user's words newest first, optionally filtered by level.
func ListVocabulary(ctx context.Context, db DBExecutor, userID uuid.UUID, level vocab.Level) ([]vocab.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM vocabulary WHERE user_id = ?`
	args := []any{userID.String()}
	if level != 0 {
		query += ` AND level = ?`
		args = append(args, int(level))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []vocab.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// DeleteVocabulary removes a word and returns ErrNotFound if it was not saved.
func DeleteVocabulary(ctx context.Context, db DBExecutor, userID uuid.UUID, word string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM vocabulary WHERE user_id = ? AND word = ?`, userID.String(), word)
	if err != nil {
		return mapError(err, word)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("word %q: %w", word, vocab.ErrNotFound)
	}
	return nil
}

// ClearVocabulary removes all of a user's words.
func ClearVocabulary(ctx context.Context, db DBExecutor, userID uuid.UUID) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM vocabulary WHERE user_id = ?`, userID.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// VocabularyStats counts a user's words per level.
func VocabularyStats(ctx context.Context, db DBExecutor, userID uuid.UUID) (vocab.Stats, error) {
	var s vocab.Stats
	err := db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN level = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN level = 2 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN level = 3 THEN 1 ELSE 0 END), 0)
		FROM vocabulary WHERE user_id = ?`, userID.String()).Scan(&s.Total, &s.Level1, &s.Level2, &s.Level3)
	return s, err
}

// VocabularyLevels returns the levels of those words the user has saved.
func VocabularyLevels(ctx context.Context, db DBExecutor, userID uuid.UUID, words []string) (map[string]vocab.Level, error) {
	out := make(map[string]vocab.Level, len(words))
	for start := 0; start < len(words); start += maxLevelsBatch {
		chunk := words[start:min(start+maxLevelsBatch, len(words))]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, userID.String())
		for _, w := range chunk {
			args = append(args, w)
		}
		query := `SELECT word, level FROM vocabulary WHERE user_id = ? AND word IN (?` +
			strings.Repeat(", ?", len(chunk)-1) + `)`

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var w string
			var level int
			if err := rows.Scan(&w, &level); err != nil {
				rows.Close()
				return nil, err
			}
			out[w] = vocab.Level(level)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Store implements vocab.Store on SQLite.
type Store struct {
	conn      *sql.DB
	log       *slog.Logger
	batchSize int
	now       func() time.Time
}

// NewStore wraps an open connection (see Open).
func NewStore(conn *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		conn:      conn,
		log:       logger.With("store", "sqlite"),
		batchSize: 100,
		now:       time.Now,
	}
}

func (s *Store) Save(ctx context.Context, userID uuid.UUID, in vocab.SaveInput) (*vocab.Entry, error) {
	return UpsertVocabulary(ctx, s.conn, userID, in, s.now())
}

func (s *Store) Get(ctx context.Context, userID uuid.UUID, word string) (*vocab.Entry, error) {
	return GetVocabulary(ctx, s.conn, userID, word)
}

func (s *Store) List(ctx context.Context, userID uuid.UUID, level vocab.Level) ([]vocab.Entry, error) {
	return ListVocabulary(ctx, s.conn, userID, level)
}

func (s *Store) Update(ctx context.Context, userID uuid.UUID, in vocab.SaveInput) (*vocab.Entry, error) {
	return UpdateVocabulary(ctx, s.conn, userID, in, s.now())
}

func (s *Store) Delete(ctx context.Context, userID uuid.UUID, word string) error {
	return DeleteVocabulary(ctx, s.conn, userID, word)
}

func (s *Store) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	return ClearVocabulary(ctx, s.conn, userID)
}

func (s *Store) Stats(ctx context.Context, userID uuid.UUID) (vocab.Stats, error) {
	return VocabularyStats(ctx, s.conn, userID)
}

func (s *Store) Levels(ctx context.Context, userID uuid.UUID, words []string) (map[string]vocab.Level, error) {
	return VocabularyLevels(ctx, s.conn, userID, words)
}

// Import upserts entries through a BatchWriter so large imports commit in a
// handful of transactions.
func (s *Store) Import(ctx context.Context, userID uuid.UUID, entries []vocab.SaveInput) (int, error) {
	bw := NewBatchWriter(s.conn, s.batchSize, 0)
	now := s.now()

	for _, in := range entries {
		in := in
		err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			_, err := UpsertVocabulary(ctx, tx, userID, in, now)
			return err
		})
		if err != nil {
			bw.Close()
			return 0, err
		}
	}
	if err := bw.Close(); err != nil {
		return 0, fmt.Errorf("import batch: %w", err)
	}
	s.log.DebugContext(ctx, "import committed", slog.Int("entries", len(entries)))
	return len(entries), nil
}

func (s *Store) Ping(ctx context.Context) error { return s.conn.PingContext(ctx) }

func (s *Store) Close() error { return s.conn.Close() }
