package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/japaniel/zhreader/pkg/vocab"
)

const table = "vocabulary"

// Postgres caps bound parameters at 65535.
const maxLevelsBatch = 1000

// user_id is bound as text; a uuid.UUID is a byte array, which squirrel
// would expand into an IN list.
var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	entryColumns = []string{"id", "word", "level", "pinyin", "translation", "created_at", "updated_at"}

	upsertSuffix = `ON CONFLICT (user_id, word) DO UPDATE SET
		level = EXCLUDED.level,
		pinyin = COALESCE(NULLIF(EXCLUDED.pinyin, ''), vocabulary.pinyin),
		translation = COALESCE(NULLIF(EXCLUDED.translation, ''), vocabulary.translation),
		updated_at = EXCLUDED.updated_at`
)

func returning() string { return "RETURNING " + strings.Join(entryColumns, ", ") }

// Store implements vocab.Store on PostgreSQL.
type Store struct {
	pool Pool
	log  *slog.Logger
	now  func() time.Time
}

// NewStore wraps a ready pool (see NewPool and Migrate).
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return newStore(pool, logger)
}

func newStore(pool Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool: pool,
		log:  logger.With("store", "postgres"),
		now:  time.Now,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*vocab.Entry, error) {
	var e vocab.Entry
	var level int
	if err := row.Scan(&e.ID, &e.Word, &level, &e.Pinyin, &e.Translation, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Level = vocab.Level(level)
	return &e, nil
}

func upsertQuery(userID uuid.UUID, in vocab.SaveInput, now time.Time) sq.InsertBuilder {
	return psql.Insert(table).
		Columns("id", "user_id", "word", "level", "pinyin", "translation", "created_at", "updated_at").
		Values(ulid.Make().String(), userID.String(), in.Word, int(in.Level), in.Pinyin, in.Translation, now, now).
		Suffix(upsertSuffix)
}

func (s *Store) Save(ctx context.Context, userID uuid.UUID, in vocab.SaveInput) (*vocab.Entry, error) {
	query, args, err := upsertQuery(userID, in, s.now().UTC()).Suffix(returning()).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert: %w", err)
	}
	e, err := scanEntry(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, in.Word)
	}
	return e, nil
}

func (s *Store) Get(ctx context.Context, userID uuid.UUID, word string) (*vocab.Entry, error) {
	query, args, err := psql.Select(entryColumns...).
		From(table).
		Where(sq.Eq{"user_id": userID.String(), "word": word}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	e, err := scanEntry(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, word)
	}
	return e, nil
}

// List returns entries newest first; level 0 means all levels.
func (s *Store) List(ctx context.Context, userID uuid.UUID, level vocab.Level) ([]vocab.Entry, error) {
	q := psql.Select(entryColumns...).
		From(table).
		Where(sq.Eq{"user_id": userID.String()}).
		OrderBy("created_at DESC", "id DESC")
	if level != 0 {
		q = q.Where(sq.Eq{"level": int(level)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vocabulary: %w", err)
	}
	defer rows.Close()

	out := []vocab.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vocabulary: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, userID uuid.UUID, in vocab.SaveInput) (*vocab.Entry, error) {
	query, args, err := psql.Update(table).
		Set("level", int(in.Level)).
		Set("pinyin", sq.Expr("COALESCE(NULLIF(?, ''), pinyin)", in.Pinyin)).
		Set("translation", sq.Expr("COALESCE(NULLIF(?, ''), translation)", in.Translation)).
		Set("updated_at", s.now().UTC()).
		Where(sq.Eq{"user_id": userID.String(), "word": in.Word}).
		Suffix(returning()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}
	e, err := scanEntry(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, in.Word)
	}
	return e, nil
}

func (s *Store) Delete(ctx context.Context, userID uuid.UUID, word string) error {
	query, args, err := psql.Delete(table).
		Where(sq.Eq{"user_id": userID.String(), "word": word}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, word)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("word %q: %w", word, vocab.ErrNotFound)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	query, args, err := psql.Delete(table).Where(sq.Eq{"user_id": userID.String()}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build clear: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear vocabulary: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Stats(ctx context.Context, userID uuid.UUID) (vocab.Stats, error) {
	query, args, err := psql.Select(
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE level = 1)",
		"COUNT(*) FILTER (WHERE level = 2)",
		"COUNT(*) FILTER (WHERE level = 3)",
	).From(table).Where(sq.Eq{"user_id": userID.String()}).ToSql()
	if err != nil {
		return vocab.Stats{}, fmt.Errorf("build stats: %w", err)
	}

	var st vocab.Stats
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&st.Total, &st.Level1, &st.Level2, &st.Level3); err != nil {
		return vocab.Stats{}, fmt.Errorf("vocabulary stats: %w", err)
	}
	return st, nil
}

// Levels returns the levels of those words the user has saved.
func (s *Store) Levels(ctx context.Context, userID uuid.UUID, words []string) (map[string]vocab.Level, error) {
	out := make(map[string]vocab.Level, len(words))
	for start := 0; start < len(words); start += maxLevelsBatch {
		chunk := words[start:min(start+maxLevelsBatch, len(words))]
		query, args, err := psql.Select("word", "level").
			From(table).
			Where(sq.Eq{"user_id": userID.String(), "word": chunk}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build levels: %w", err)
		}

		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("vocabulary levels: %w", err)
		}
		for rows.Next() {
			var w string
			var level int
			if err := rows.Scan(&w, &level); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan level: %w", err)
			}
			out[w] = vocab.Level(level)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("vocabulary levels: %w", err)
		}
	}
	return out, nil
}

// Import upserts every entry in one transaction.
func (s *Store) Import(ctx context.Context, userID uuid.UUID, entries []vocab.SaveInput) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}

	now := s.now().UTC()
	for _, in := range entries {
		query, args, err := upsertQuery(userID, in, now).ToSql()
		if err != nil {
			_ = tx.Rollback(ctx)
			return 0, fmt.Errorf("build upsert: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			_ = tx.Rollback(ctx)
			return 0, mapError(err, in.Word)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	s.log.DebugContext(ctx, "import committed", slog.Int("entries", len(entries)))
	return len(entries), nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
