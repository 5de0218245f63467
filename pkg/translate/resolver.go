package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/japaniel/zhreader/pkg/lexicon"
)

// DefaultTimeout bounds a single remote call.
const DefaultTimeout = 5 * time.Second

type remoteSpec struct {
	name       string
	translator Translator
}

type step struct {
	tier     Tier
	strategy Strategy
}

// Resolver owns the resolution chain together with its cache and rate gate.
// It is safe for concurrent use.
type Resolver struct {
	lex         *lexicon.Lexicon
	cache       *Cache
	gate        *Gate
	timeout     time.Duration
	maxGlossLen int
	logger      *slog.Logger

	remotes []remoteSpec
	chain   []step
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRemote appends a remote provider. Providers are tried in the order they
// are added.
func WithRemote(name string, t Translator) Option {
	return func(r *Resolver) {
		if t != nil {
			r.remotes = append(r.remotes, remoteSpec{name: name, translator: t})
		}
	}
}

func WithCache(c *Cache) Option {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
	}
}

func WithGate(g *Gate) Option {
	return func(r *Resolver) {
		if g != nil {
			r.gate = g
		}
	}
}

// WithTimeout sets the per-call remote timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

func WithMaxGlossLen(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxGlossLen = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New builds a Resolver over lex.
func New(lex *lexicon.Lexicon, opts ...Option) *Resolver {
	r := &Resolver{
		lex:         lex,
		timeout:     DefaultTimeout,
		maxGlossLen: DefaultMaxGlossLen,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewCache(DefaultCacheSize)
	}
	if r.gate == nil {
		r.gate = NewGate(DefaultSpacing)
	}
	r.logger = r.logger.With("component", "resolver")

	r.chain = []step{
		{TierLexicon, StrategyFunc{ID: "lexicon", Fn: func(_ context.Context, tok string) (string, bool) {
			return r.lex.Lookup(tok)
		}}},
		{TierCache, StrategyFunc{ID: "cache", Fn: func(_ context.Context, tok string) (string, bool) {
			return r.cache.Get(tok)
		}}},
	}
	for _, rs := range r.remotes {
		r.chain = append(r.chain, step{TierRemote, &remoteStrategy{
			name:        rs.name,
			translator:  rs.translator,
			cache:       r.cache,
			gate:        r.gate,
			timeout:     r.timeout,
			maxGlossLen: r.maxGlossLen,
			logger:      r.logger.With("provider", rs.name),
		}})
	}
	return r
}

// Gate returns the rate gate shared by the remote providers.
func (r *Resolver) Gate() *Gate { return r.gate }

// Cache returns the remote result cache.
func (r *Resolver) Cache() *Cache { return r.cache }

// Resolve returns a gloss for token. It never fails and never returns "".
func (r *Resolver) Resolve(ctx context.Context, token string) string {
	return r.ResolveDetailed(ctx, token).Gloss
}

// ResolveDetailed is Resolve plus the tier and strategy that answered.
func (r *Resolver) ResolveDetailed(ctx context.Context, token string) Result {
	if strings.TrimSpace(token) == "" {
		return Result{Gloss: Placeholder, Tier: TierComposite, Source: "composite"}
	}
	for _, st := range r.chain {
		if g, ok := r.try(ctx, st.strategy, token); ok {
			return Result{Gloss: g, Tier: st.tier, Source: st.strategy.Name()}
		}
	}
	return Result{Gloss: Composite(r.lex, token), Tier: TierComposite, Source: "composite"}
}

func (r *Resolver) try(ctx context.Context, s Strategy, token string) (gloss string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("strategy panicked",
				slog.String("strategy", s.Name()),
				slog.String("token", token),
				slog.String("panic", fmt.Sprint(rec)),
			)
			gloss, ok = "", false
		}
	}()
	gloss, ok = s.Lookup(ctx, token)
	if gloss == "" {
		return "", false
	}
	return gloss, ok
}
