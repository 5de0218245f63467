// Package generate writes short Chinese reading passages on a topic, asking
// an LLM first and falling back to built-in templates.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/japaniel/zhreader/pkg/segment"
)

// Sources reported in Passage.Source.
const (
	SourceLLM      = "llm"
	SourceTemplate = "template"
)

// ErrEmptyTopic is returned for a blank topic.
var ErrEmptyTopic = &TopicError{Reason: "required"}

// Writer writes a passage about a topic. *llm.Provider satisfies it.
type Writer interface {
	Write(ctx context.Context, topic string) (string, error)
}

// Passage is a generated reading text.
type Passage struct {
	Topic  string `json:"topic"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Generator produces passages. With no Writer it only uses templates.
type Generator struct {
	writer   Writer
	timeout  time.Duration
	maxTopic int
	log      *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithWriter sets the LLM writer tried before the templates.
func WithWriter(w Writer) Option {
	return func(g *Generator) { g.writer = w }
}

// WithTimeout bounds a single Writer call. Zero means no bound beyond ctx.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

// WithMaxTopicLength rejects topics longer than n runes. Zero disables the
// check.
func WithMaxTopicLength(n int) Option {
	return func(g *Generator) { g.maxTopic = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{log: slog.Default()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// TopicError reports an unusable topic.
type TopicError struct {
	Reason string
}

func (e *TopicError) Error() string { return "topic " + e.Reason }

// Generate returns a passage about topic. A Writer failure, or a reply with
// no Chinese in it, falls back to Template; only a bad topic is an error.
func (g *Generator) Generate(ctx context.Context, topic string) (Passage, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Passage{}, ErrEmptyTopic
	}
	if g.maxTopic > 0 && utf8.RuneCountInString(topic) > g.maxTopic {
		return Passage{}, &TopicError{Reason: fmt.Sprintf("must be at most %d characters", g.maxTopic)}
	}

	if g.writer != nil {
		text, err := g.write(ctx, topic)
		switch {
		case err != nil:
			g.log.WarnContext(ctx, "llm passage failed, using template",
				slog.String("topic", topic),
				slog.String("error", err.Error()),
			)
		case !hasHan(text):
			g.log.WarnContext(ctx, "llm passage has no Chinese, using template", slog.String("topic", topic))
		default:
			return Passage{Topic: topic, Text: text, Source: SourceLLM}, nil
		}
	}
	return Passage{Topic: topic, Text: Template(topic), Source: SourceTemplate}, nil
}

func (g *Generator) write(ctx context.Context, topic string) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("writer panic: %v", rec)
		}
	}()
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	text, err = g.writer.Write(ctx, topic)
	return strings.TrimSpace(text), err
}

func hasHan(s string) bool {
	for _, r := range s {
		if segment.IsHan(r) {
			return true
		}
	}
	return false
}
