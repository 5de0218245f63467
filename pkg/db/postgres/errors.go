package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/japaniel/zhreader/pkg/vocab"
)

// mapError converts pgx/pgconn errors to vocab errors.
// context.DeadlineExceeded and context.Canceled are NOT mapped; they pass through.
func mapError(err error, word string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("word %q: %w", word, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("word %q: %w", word, vocab.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("word %q: %w", word, vocab.ErrAlreadyExists)
		case "23514", "23502": // check_violation, not_null_violation
			return fmt.Errorf("word %q: %w", word, vocab.ErrValidation)
		}
	}

	return fmt.Errorf("word %q: %w", word, err)
}
