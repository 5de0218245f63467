// Package app wires configuration into the annotation pipeline and the
// vocabulary store.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/japaniel/zhreader/pkg/annotate"
	"github.com/japaniel/zhreader/pkg/config"
	"github.com/japaniel/zhreader/pkg/db"
	"github.com/japaniel/zhreader/pkg/db/postgres"
	"github.com/japaniel/zhreader/pkg/generate"
	"github.com/japaniel/zhreader/pkg/lexicon"
	"github.com/japaniel/zhreader/pkg/romanize"
	"github.com/japaniel/zhreader/pkg/segment"
	"github.com/japaniel/zhreader/pkg/translate"
	"github.com/japaniel/zhreader/pkg/translate/llm"
	"github.com/japaniel/zhreader/pkg/translate/mymemory"
	"github.com/japaniel/zhreader/pkg/vocab"
)

// Pipeline holds the components that turn text into annotated tokens.
type Pipeline struct {
	Lexicon   *lexicon.Lexicon
	Segmenter *segment.Segmenter
	Romanizer romanize.Romanizer
	Resolver  *translate.Resolver
	Annotator *annotate.Annotator
	Generator *generate.Generator
}

// NewPipeline builds the lexicon, segmenter, romanizer, resolver, annotator
// and passage generator from cfg. A configured lexicon file is merged over
// the built-in lexicon.
func NewPipeline(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	lex := lexicon.Default()
	if cfg.Lexicon.Path != "" {
		extra, err := lexicon.LoadFile(cfg.Lexicon.Path)
		if err != nil {
			return nil, fmt.Errorf("load lexicon %s: %w", cfg.Lexicon.Path, err)
		}
		lex = lexicon.Merge(lex, extra)
		logger.Info("lexicon loaded", slog.String("path", cfg.Lexicon.Path), slog.Int("entries", lex.Len()))
	}

	opts := []translate.Option{
		translate.WithCache(translate.NewCache(cfg.Translate.CacheSize)),
		translate.WithGate(translate.NewGate(cfg.Translate.Spacing)),
		translate.WithTimeout(cfg.Translate.Timeout),
		translate.WithMaxGlossLen(cfg.Translate.MaxGlossLen),
		translate.WithLogger(logger),
	}
	llms := &llmSource{cfg: cfg.Translate.LLM, logger: logger}
	remotes, err := newRemotes(cfg.Translate, llms, logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, remotes...)

	genOpts := []generate.Option{
		generate.WithTimeout(cfg.Generate.Timeout),
		generate.WithMaxTopicLength(cfg.Generate.MaxTopicLength),
		generate.WithLogger(logger),
	}
	if !cfg.Generate.TemplatesOnly && cfg.Translate.LLM.APIKey != "" {
		w, err := llms.get()
		if err != nil {
			return nil, err
		}
		genOpts = append(genOpts, generate.WithWriter(w))
	}

	seg := segment.New(lex)
	rom := romanize.NewPinyin()
	res := translate.New(lex, opts...)

	return &Pipeline{
		Lexicon:   lex,
		Segmenter: seg,
		Romanizer: rom,
		Resolver:  res,
		Annotator: annotate.New(seg, rom, res,
			annotate.WithWorkers(cfg.Annotate.Workers),
			annotate.WithLogger(logger),
		),
		Generator: generate.New(genOpts...),
	}, nil
}

// llmSource builds the LLM client on first use so glossing and passage
// generation share one client.
type llmSource struct {
	cfg    config.LLMConfig
	logger *slog.Logger
	p      *llm.Provider
}

func (s *llmSource) get() (*llm.Provider, error) {
	if s.p != nil {
		return s.p, nil
	}
	p, err := llm.NewProvider(llm.Config{
		APIKey:     s.cfg.APIKey,
		Model:      s.cfg.Model,
		BaseURL:    s.cfg.BaseURL,
		MaxRetries: s.cfg.MaxRetries,
	}, s.logger)
	if err != nil {
		return nil, err
	}
	s.p = p
	return p, nil
}

func newRemotes(cfg config.TranslateConfig, llms *llmSource, logger *slog.Logger) ([]translate.Option, error) {
	var opts []translate.Option
	for _, name := range cfg.ProviderList() {
		switch name {
		case config.ProviderMyMemory:
			opts = append(opts, translate.WithRemote(name,
				mymemory.NewProviderWithURL(cfg.MyMemory.BaseURL, cfg.MyMemory.Email, logger)))
		case config.ProviderLLM:
			p, err := llms.get()
			if err != nil {
				return nil, err
			}
			opts = append(opts, translate.WithRemote(name, p))
		default:
			return nil, fmt.Errorf("unknown translation provider %q", name)
		}
	}
	return opts, nil
}

// Glosser returns a vocab.Glosser backed by the pipeline. A word the resolver
// can only answer with the placeholder gets an empty translation.
func (p *Pipeline) Glosser() vocab.Glosser {
	return pipelineGlosser{p}
}

type pipelineGlosser struct{ p *Pipeline }

func (g pipelineGlosser) Gloss(ctx context.Context, word string) (string, string) {
	py := romanize.Safe(g.p.Romanizer, word)
	tr := g.p.Resolver.Resolve(ctx, word)
	if tr == translate.Placeholder {
		tr = ""
	}
	return py, tr
}

// OpenStore opens the configured vocabulary store and applies migrations.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (vocab.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		conn, err := db.Open(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite store ready", slog.String("path", cfg.Path))
		return db.NewStore(conn, logger), nil
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("postgres store ready", slog.Int("max_conns", int(cfg.MaxConns)))
		return postgres.NewStore(pool, logger), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// App is the full set of long-lived components used by the server and the
// vocabulary commands.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Pipeline *Pipeline
	Store    vocab.Store
	Vocab    *vocab.Service
}

// New builds the pipeline and opens the store.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	p, err := NewPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &App{
		Config:   cfg,
		Logger:   logger,
		Pipeline: p,
		Store:    store,
		Vocab:    vocab.NewService(logger, store),
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
