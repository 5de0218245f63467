package vocab_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/zhreader/pkg/db"
	"github.com/japaniel/zhreader/pkg/vocab"
)

func newService(t *testing.T) *vocab.Service {
	t.Helper()
	conn, err := db.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	store := db.NewStore(conn, nil)
	t.Cleanup(func() { store.Close() })
	return vocab.NewService(nil, store)
}

type glossFunc func(ctx context.Context, word string) (string, string)

func (f glossFunc) Gloss(ctx context.Context, word string) (string, string) { return f(ctx, word) }

func TestService_SaveValidates(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := uuid.New()

	tests := []struct {
		name  string
		in    vocab.SaveInput
		field string
	}{
		{name: "empty word", in: vocab.SaveInput{Word: "   ", Level: 1}, field: "word"},
		{name: "level zero", in: vocab.SaveInput{Word: "好", Level: 0}, field: "level"},
		{name: "level four", in: vocab.SaveInput{Word: "好", Level: 4}, field: "level"},
		{name: "long word", in: vocab.SaveInput{Word: strings.Repeat("字", 256), Level: 1}, field: "word"},
		{name: "long translation", in: vocab.SaveInput{Word: "好", Level: 1, Translation: strings.Repeat("a", 501)}, field: "translation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(ctx, user, tt.in)
			require.ErrorIs(t, err, vocab.ErrValidation)
			var ve *vocab.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Errors[0].Field)
		})
	}
}

func TestService_RejectsAnonymous(t *testing.T) {
	svc := newService(t)
	_, err := svc.Save(context.Background(), uuid.Nil, vocab.SaveInput{Word: "好", Level: 1})
	assert.ErrorIs(t, err, vocab.ErrUnauthorized)
	_, err = svc.Stats(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, vocab.ErrUnauthorized)
}

func TestService_SaveTrimsAndUpserts(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := uuid.New()

	e, err := svc.Save(ctx, user, vocab.SaveInput{Word: " 朋友 ", Level: 1, Pinyin: " péng you ", Translation: "friend"})
	require.NoError(t, err)
	assert.Equal(t, "朋友", e.Word)
	assert.Equal(t, "péng you", e.Pinyin)

	e, err = svc.Save(ctx, user, vocab.SaveInput{Word: "朋友", Level: 2})
	require.NoError(t, err)
	assert.Equal(t, vocab.LevelLearning, e.Level)
	assert.Equal(t, "friend", e.Translation)

	lvl, err := svc.Level(ctx, user, "朋友")
	require.NoError(t, err)
	assert.Equal(t, vocab.LevelLearning, lvl)

	lvl, err = svc.Level(ctx, user, "敌人")
	require.NoError(t, err)
	assert.Equal(t, vocab.Level(0), lvl)
}

func TestService_LevelsDedupes(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Save(ctx, user, vocab.SaveInput{Word: "中国", Level: 3})
	require.NoError(t, err)

	got, err := svc.Levels(ctx, user, []string{"中国", "中国", " ", "美国"})
	require.NoError(t, err)
	assert.Equal(t, map[string]vocab.Level{"中国": vocab.LevelKnown}, got)

	got, err = svc.Levels(ctx, user, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_ListRejectsBadLevel(t *testing.T) {
	svc := newService(t)
	_, err := svc.List(context.Background(), uuid.New(), 5)
	assert.ErrorIs(t, err, vocab.ErrValidation)
}

func TestService_DeleteMissing(t *testing.T) {
	svc := newService(t)
	err := svc.Delete(context.Background(), uuid.New(), "没有")
	assert.ErrorIs(t, err, vocab.ErrNotFound)
}

func TestService_ExportImportRoundTrip(t *testing.T) {
	src := newService(t)
	ctx := context.Background()
	alice := uuid.New()

	for _, in := range []vocab.SaveInput{
		{Word: "你好", Level: 1, Pinyin: "nǐ hǎo", Translation: "hello"},
		{Word: "谢谢", Level: 3, Translation: "thank you"},
	} {
		_, err := src.Save(ctx, alice, in)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, src.Export(ctx, alice, &buf))

	var doc vocab.Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, vocab.ExportVersion, doc.Version)
	assert.Len(t, doc.Entries, 2)

	dst := newService(t)
	bob := uuid.New()
	n, err := dst.Import(ctx, bob, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	e, err := dst.Get(ctx, bob, "谢谢")
	require.NoError(t, err)
	assert.Equal(t, vocab.LevelKnown, e.Level)
	assert.Equal(t, "thank you", e.Translation)
}

func TestService_ImportBareArray(t *testing.T) {
	svc := newService(t)
	user := uuid.New()

	n, err := svc.Import(context.Background(), user, strings.NewReader(`[{"word":"书","level":2}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_ImportIsAllOrNothing(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := uuid.New()

	body := `{"version":1,"entries":[{"word":"书","level":2},{"word":"","level":9}]}`
	_, err := svc.Import(ctx, user, strings.NewReader(body))
	require.ErrorIs(t, err, vocab.ErrValidation)

	var ve *vocab.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors, 2)
	assert.Equal(t, "entries[1].word", ve.Errors[0].Field)

	st, err := svc.Stats(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, st.Total)

	_, err = svc.Import(ctx, user, strings.NewReader(`not json`))
	assert.ErrorIs(t, err, vocab.ErrValidation)
}

func TestService_Backfill(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Save(ctx, user, vocab.SaveInput{Word: "猫", Level: 1})
	require.NoError(t, err)
	_, err = svc.Save(ctx, user, vocab.SaveInput{Word: "狗", Level: 1, Pinyin: "gǒu", Translation: "dog"})
	require.NoError(t, err)
	_, err = svc.Save(ctx, user, vocab.SaveInput{Word: "鱼", Level: 1})
	require.NoError(t, err)

	var asked []string
	g := glossFunc(func(_ context.Context, word string) (string, string) {
		asked = append(asked, word)
		if word == "猫" {
			return "māo", "cat"
		}
		return "", ""
	})

	n, err := svc.Backfill(ctx, user, g)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.ElementsMatch(t, []string{"猫", "鱼"}, asked)

	e, err := svc.Get(ctx, user, "猫")
	require.NoError(t, err)
	assert.Equal(t, "māo", e.Pinyin)
	assert.Equal(t, "cat", e.Translation)
}

func TestParseLevel(t *testing.T) {
	lvl, err := vocab.ParseLevel(" 2 ")
	require.NoError(t, err)
	assert.Equal(t, vocab.LevelLearning, lvl)

	_, err = vocab.ParseLevel("high")
	assert.ErrorIs(t, err, vocab.ErrValidation)
}
