package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/zhreader/pkg/config"
	"github.com/japaniel/zhreader/pkg/generate"
	"github.com/japaniel/zhreader/pkg/vocab"
)

func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database:  config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "zh.db")},
		Translate: config.TranslateConfig{MaxGlossLen: 200},
		Annotate:  config.AnnotateConfig{Workers: 4},
		Log:       config.LogConfig{Level: "info", Format: "text"},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "info", Format: "json"}, &buf)
	logger.Info("test message", slog.String("word", "你好"))

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m), "JSON handler should produce valid JSON")
	assert.Equal(t, "你好", m["word"])
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.level))
		})
	}
}

func TestNewLogger_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(config.LogConfig{Level: "info", Format: "json"})
	assert.Equal(t, logger.Handler(), slog.Default().Handler())
}

func TestNewPipelineAnnotatesOffline(t *testing.T) {
	p, err := NewPipeline(offlineConfig(t), quietLogger())
	require.NoError(t, err)

	toks, err := p.Annotator.Annotate(context.Background(), "你好，世界")
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, "你好", toks[0].Text)
	assert.Equal(t, "nǐ hǎo", toks[0].Pinyin)
	assert.NotEmpty(t, toks[1].Translation)
}

func TestNewPipelineMergesLexiconFile(t *testing.T) {
	cfg := offlineConfig(t)
	path := filepath.Join(t.TempDir(), "extra.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"熊猫":"panda"}`), 0o644))
	cfg.Lexicon.Path = path

	p, err := NewPipeline(cfg, quietLogger())
	require.NoError(t, err)

	gloss, ok := p.Lexicon.Lookup("熊猫")
	require.True(t, ok)
	assert.Equal(t, "panda", gloss)
	_, ok = p.Lexicon.Lookup("你好")
	assert.True(t, ok, "built-in entries survive the merge")
}

func TestNewPipelineRejectsLLMWithoutKey(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Translate.Providers = config.ProviderLLM
	_, err := NewPipeline(cfg, quietLogger())
	assert.Error(t, err)
}

func TestNewPipelineGenerator(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	withKey := func(templatesOnly bool) *config.Config {
		cfg := offlineConfig(t)
		cfg.Translate.LLM = config.LLMConfig{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: -1}
		cfg.Generate.TemplatesOnly = templatesOnly
		return cfg
	}

	p, err := NewPipeline(withKey(true), quietLogger())
	require.NoError(t, err)
	passage, err := p.Generator.Generate(context.Background(), "golf")
	require.NoError(t, err)
	assert.Equal(t, generate.SourceTemplate, passage.Source)
	assert.EqualValues(t, 0, hits.Load(), "templates only must not call the llm")

	p, err = NewPipeline(withKey(false), quietLogger())
	require.NoError(t, err)
	passage, err = p.Generator.Generate(context.Background(), "golf")
	require.NoError(t, err)
	assert.Equal(t, generate.SourceTemplate, passage.Source)
	assert.Equal(t, generate.Template("golf"), passage.Text)
	assert.EqualValues(t, 1, hits.Load())
}

func TestGlosserDropsPlaceholder(t *testing.T) {
	p, err := NewPipeline(offlineConfig(t), quietLogger())
	require.NoError(t, err)
	g := p.Glosser()

	py, tr := g.Gloss(context.Background(), "你好")
	assert.Equal(t, "nǐ hǎo", py)
	assert.NotEmpty(t, tr)

	// rare single character with no lexicon entry and no provider configured
	_, tr = g.Gloss(context.Background(), "龘")
	assert.Empty(t, tr)
}

func TestNewAppWithSQLite(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, offlineConfig(t), quietLogger())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Store.Ping(ctx))

	user := uuid.New()
	_, err = a.Vocab.Save(ctx, user, vocab.SaveInput{Word: "你好", Level: vocab.LevelNew})
	require.NoError(t, err)

	n, err := a.Vocab.Backfill(ctx, user, a.Pipeline.Glosser())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	e, err := a.Vocab.Get(ctx, user, "你好")
	require.NoError(t, err)
	assert.Equal(t, "nǐ hǎo", e.Pinyin)
	assert.False(t, strings.Contains(e.Translation, "No translation"))
}

func TestBuildVersion(t *testing.T) {
	assert.Contains(t, BuildVersion(), Version)
}
