// Package translate resolves Chinese tokens to English glosses through an
// ordered chain of strategies: lexicon, cache, remote providers and finally a
// per-character composite.
package translate

import (
	"context"
	"errors"
)

// Placeholder is returned when nothing better is known about a token.
const Placeholder = "No translation available"

// Tier identifies which strategy produced a gloss.
type Tier int

const (
	TierLexicon Tier = iota + 1
	TierCache
	TierRemote
	TierComposite
)

func (t Tier) String() string {
	switch t {
	case TierLexicon:
		return "lexicon"
	case TierCache:
		return "cache"
	case TierRemote:
		return "remote"
	case TierComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// Result is a resolved gloss with its provenance.
type Result struct {
	Gloss  string `json:"gloss"`
	Tier   Tier   `json:"-"`
	Source string `json:"source"`
}

// Strategy is one step of the resolution chain. A miss returns ok=false.
type Strategy interface {
	Name() string
	Lookup(ctx context.Context, token string) (string, bool)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc struct {
	ID string
	Fn func(ctx context.Context, token string) (string, bool)
}

func (f StrategyFunc) Name() string { return f.ID }

func (f StrategyFunc) Lookup(ctx context.Context, token string) (string, bool) {
	return f.Fn(ctx, token)
}

// Translator is a remote machine translation capability.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// ErrNotConfigured is returned by Noop.
var ErrNotConfigured = errors.New("translator not configured")

// Noop is a Translator that always misses.
type Noop struct{}

func (Noop) Translate(context.Context, string, string, string) (string, error) {
	return "", ErrNotConfigured
}
