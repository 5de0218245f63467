// Package annotate runs the full pipeline over a piece of text: normalize,
// segment, then attach pinyin and an English gloss to every token.
package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/japaniel/zhreader/pkg/romanize"
	"github.com/japaniel/zhreader/pkg/segment"
	"github.com/japaniel/zhreader/pkg/translate"
)

// DefaultWorkers is the default fan-out width per document.
const DefaultWorkers = 8

// Token is a segmented span with its transcription and gloss.
type Token struct {
	segment.Span
	Pinyin      string `json:"pinyin"`
	Translation string `json:"translation"`
}

// Sentence is one sentence of a document and its tokens.
type Sentence struct {
	Text   string  `json:"text"`
	Tokens []Token `json:"tokens"`
}

// Segmenter splits normalized text into spans.
type Segmenter interface {
	Segment(text string) []segment.Span
}

// Resolver produces a gloss for a token. It must not return "".
type Resolver interface {
	Resolve(ctx context.Context, token string) string
}

// Annotator ties the segmenter, romanizer and resolver together.
type Annotator struct {
	seg     Segmenter
	rom     romanize.Romanizer
	res     Resolver
	workers int
	log     *slog.Logger
}

type Option func(*Annotator)

// WithWorkers sets how many tokens are resolved concurrently.
func WithWorkers(n int) Option {
	return func(a *Annotator) {
		if n > 0 {
			a.workers = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Annotator) {
		if l != nil {
			a.log = l
		}
	}
}

// New creates an Annotator.
func New(seg Segmenter, rom romanize.Romanizer, res Resolver, opts ...Option) *Annotator {
	a := &Annotator{
		seg:     seg,
		rom:     rom,
		res:     res,
		workers: DefaultWorkers,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With("component", "annotator")
	return a
}

// Annotate returns one Token per segmented span, in input order. Every token
// carries a non-empty translation; per-token failures degrade to empty pinyin
// or the placeholder gloss. The error is non-nil only if segmentation itself
// fails.
func (a *Annotator) Annotate(ctx context.Context, text string) ([]Token, error) {
	start := time.Now()

	spans, err := a.segment(text)
	if err != nil {
		return nil, err
	}
	out := make([]Token, len(spans))
	if len(spans) == 0 {
		return out, nil
	}

	for i, sp := range spans {
		out[i] = Token{Span: sp, Translation: translate.Placeholder}
	}

	pool := NewWorkerPool(min(a.workers, len(spans)), len(spans))
	pool.OnError = func(err error) {
		a.log.WarnContext(ctx, "token job failed", slog.String("error", err.Error()))
	}
	// Workers must drain every token even if the caller gives up; cancellation
	// reaches the resolver through ctx instead.
	pool.Start(context.WithoutCancel(ctx))

	for i := range out {
		tok := &out[i]
		job := func(context.Context) error {
			a.annotateOne(ctx, tok)
			return nil
		}
		if err := pool.Submit(job); err != nil {
			a.annotateOne(ctx, tok)
		}
	}
	pool.Close()

	a.log.DebugContext(ctx, "annotated text",
		slog.Int("tokens", len(out)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// Words returns the distinct words Annotate would produce for text, in
// first-seen order, without resolving them. With sentences set, text is split
// the way AnnotateSentences splits it.
func (a *Annotator) Words(text string, sentences bool) ([]string, error) {
	parts := []string{text}
	if sentences {
		parts = splitSentences(text)
	}
	seen := make(map[string]bool)
	var words []string
	for _, p := range parts {
		spans, err := a.segment(p)
		if err != nil {
			return nil, err
		}
		for _, sp := range spans {
			if !seen[sp.Text] {
				seen[sp.Text] = true
				words = append(words, sp.Text)
			}
		}
	}
	return words, nil
}

func (a *Annotator) segment(text string) (spans []segment.Span, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("segment: %v", rec)
		}
	}()
	return a.seg.Segment(segment.Preprocess(text)), nil
}

func (a *Annotator) annotateOne(ctx context.Context, tok *Token) {
	defer func() {
		if rec := recover(); rec != nil {
			a.log.ErrorContext(ctx, "token annotation panicked",
				slog.String("token", tok.Text),
				slog.String("panic", fmt.Sprint(rec)),
			)
			if tok.Translation == "" {
				tok.Translation = translate.Placeholder
			}
		}
	}()

	tok.Pinyin = romanize.Safe(a.rom, tok.Text)
	if g := a.res.Resolve(ctx, tok.Text); g != "" {
		tok.Translation = g
	}
}

// AnnotateSentences splits text into sentences and annotates each one.
// Offsets are relative to the normalized sentence.
func (a *Annotator) AnnotateSentences(ctx context.Context, text string) ([]Sentence, error) {
	var result []Sentence
	for _, s := range splitSentences(text) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		tokens, err := a.Annotate(ctx, s)
		if err != nil {
			return nil, err
		}
		if len(tokens) == 0 {
			continue
		}
		result = append(result, Sentence{Text: s, Tokens: tokens})
	}
	return result, nil
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		// 。(3002), ！(FF01), ？(FF1F)
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
