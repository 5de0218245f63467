package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/zhreader/pkg/vocab"
)

var entryCols = []string{"id", "word", "level", "pinyin", "translation", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s := newStore(mock, nil)
	fixed := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	return s, mock
}

func TestStore_Save(t *testing.T) {
	s, mock := newMockStore(t)
	user := uuid.New()
	now := s.now()

	mock.ExpectQuery(`INSERT INTO vocabulary`).
		WithArgs(pgxmock.AnyArg(), user.String(), "学习", 2, "xué xí", "study", now, now).
		WillReturnRows(pgxmock.NewRows(entryCols).
			AddRow("01HX", "学习", 2, "xué xí", "study", now, now))

	e, err := s.Save(context.Background(), user, vocab.SaveInput{Word: "学习", Level: 2, Pinyin: "xué xí", Translation: "study"})
	require.NoError(t, err)
	assert.Equal(t, "01HX", e.ID)
	assert.Equal(t, vocab.LevelLearning, e.Level)
	assert.Equal(t, now, e.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveCheckViolation(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO vocabulary`).
		WillReturnError(&pgconn.PgError{Code: "23514"})

	_, err := s.Save(context.Background(), uuid.New(), vocab.SaveInput{Word: "错", Level: 9})
	assert.ErrorIs(t, err, vocab.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get(t *testing.T) {
	user := uuid.New()
	now := time.Now().UTC()

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "found",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id, word, level, pinyin, translation, created_at, updated_at FROM vocabulary`).
					WithArgs(user.String(), "你好").
					WillReturnRows(pgxmock.NewRows(entryCols).AddRow("01HY", "你好", 1, "nǐ hǎo", "hello", now, now))
			},
		},
		{
			name: "not found",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT`).
					WithArgs(user.String(), "你好").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: vocab.ErrNotFound,
		},
		{
			name: "context canceled passes through",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT`).
					WithArgs(user.String(), "你好").
					WillReturnError(context.Canceled)
			},
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			tt.setup(mock)

			e, err := s.Get(context.Background(), user, "你好")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "hello", e.Translation)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_ListFiltersByLevel(t *testing.T) {
	s, mock := newMockStore(t)
	user := uuid.New()
	now := s.now()

	mock.ExpectQuery(`FROM vocabulary WHERE user_id = \$1 AND level = \$2 ORDER BY created_at DESC, id DESC`).
		WithArgs(user.String(), 3).
		WillReturnRows(pgxmock.NewRows(entryCols).
			AddRow("b", "二", 3, "", "", now, now).
			AddRow("a", "一", 3, "", "", now, now))

	got, err := s.List(context.Background(), user, vocab.LevelKnown)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "二", got[0].Word)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListEmpty(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM vocabulary`).WillReturnRows(pgxmock.NewRows(entryCols))

	got, err := s.List(context.Background(), uuid.New(), 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_UpdateMissing(t *testing.T) {
	s, mock := newMockStore(t)
	user := uuid.New()

	mock.ExpectQuery(`UPDATE vocabulary SET level = \$1`).
		WithArgs(3, "", "", s.now(), user.String(), "无").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Update(context.Background(), user, vocab.SaveInput{Word: "无", Level: 3})
	assert.ErrorIs(t, err, vocab.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Delete(t *testing.T) {
	s, mock := newMockStore(t)
	user := uuid.New()

	mock.ExpectExec(`DELETE FROM vocabulary`).
		WithArgs(user.String(), "猫").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM vocabulary`).
		WithArgs(user.String(), "狗").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.Delete(context.Background(), user, "猫"))
	assert.ErrorIs(t, s.Delete(context.Background(), user, "狗"), vocab.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Clear(t *testing.T) {
	s, mock := newMockStore(t)
	user := uuid.New()

	mock.ExpectExec(`DELETE FROM vocabulary WHERE user_id = \$1`).
		WithArgs(user.String()).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	n, err := s.Clear(context.Background(), user)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}

func TestStore_Stats(t *testing.T) {
	s, mock := newMockStore(t)
	user := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs(user.String()).
		WillReturnRows(pgxmock.NewRows([]string{"total", "l1", "l2", "l3"}).AddRow(6, 3, 2, 1))

	st, err := s.Stats(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, vocab.Stats{Total: 6, Level1: 3, Level2: 2, Level3: 1}, st)
}

func TestStore_Levels(t *testing.T) {
	s, mock := newMockStore(t)
	user := uuid.New()

	mock.ExpectQuery(`SELECT word, level FROM vocabulary WHERE user_id = \$1 AND word IN`).
		WithArgs(user.String(), "你好", "世界").
		WillReturnRows(pgxmock.NewRows([]string{"word", "level"}).AddRow("世界", 2))

	got, err := s.Levels(context.Background(), user, []string{"你好", "世界"})
	require.NoError(t, err)
	assert.Equal(t, map[string]vocab.Level{"世界": vocab.LevelLearning}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ImportCommits(t *testing.T) {
	s, mock := newMockStore(t)
	user := uuid.New()

	mock.ExpectBegin()
	for i := 0; i < 2; i++ {
		mock.ExpectExec(`INSERT INTO vocabulary`).
			WithArgs(pgxmock.AnyArg(), user.String(), pgxmock.AnyArg(), 1, "", "", s.now(), s.now()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	n, err := s.Import(context.Background(), user, []vocab.SaveInput{
		{Word: "一", Level: 1},
		{Word: "二", Level: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ImportRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO vocabulary`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.Import(context.Background(), uuid.New(), []vocab.SaveInput{{Word: "一", Level: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil, "x"))
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23505"}, "x"), vocab.ErrAlreadyExists)
	assert.ErrorIs(t, mapError(context.DeadlineExceeded, "x"), context.DeadlineExceeded)
	assert.NotErrorIs(t, mapError(errors.New("boom"), "x"), vocab.ErrNotFound)
}
