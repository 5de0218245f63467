package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/japaniel/zhreader/pkg/annotate"
	"github.com/japaniel/zhreader/pkg/ctxutil"
	"github.com/japaniel/zhreader/pkg/vocab"
)

type annotateRequest struct {
	Text      string `json:"text"`
	Sentences bool   `json:"sentences"`
}

// Token is an annotated token plus the caller's saved level for it, if any.
type Token struct {
	annotate.Token
	SavedLevel *vocab.Level `json:"savedLevel,omitempty"`
}

// Sentence groups tokens by sentence.
type Sentence struct {
	Text   string  `json:"text"`
	Tokens []Token `json:"tokens"`
}

// AnnotateResponse is the body of POST /api/annotate.
type AnnotateResponse struct {
	Tokens []Token `json:"tokens"`
}

// SentencesResponse is the body of POST /api/annotate when the request asked
// for sentences.
type SentencesResponse struct {
	Sentences []Sentence `json:"sentences"`
}

// AnnotateHandler serves POST /api/annotate.
type AnnotateHandler struct {
	annotator *annotate.Annotator
	vocab     *vocab.Service
	maxText   int
	log       *slog.Logger
}

// NewAnnotateHandler creates an AnnotateHandler. Requests longer than
// maxText runes are rejected; maxText <= 0 disables the check.
func NewAnnotateHandler(a *annotate.Annotator, svc *vocab.Service, maxText int, logger *slog.Logger) *AnnotateHandler {
	return &AnnotateHandler{annotator: a, vocab: svc, maxText: maxText, log: logger}
}

func (h *AnnotateHandler) bodyLimit() int64 {
	if h.maxText <= 0 {
		return 64 << 20
	}
	// worst case is a \uXXXX escape per rune
	return int64(h.maxText)*6 + 4096
}

// Annotate segments and annotates the request text. The caller's saved
// levels are looked up alongside; a failed lookup leaves them out rather than
// failing the request.
func (h *AnnotateHandler) Annotate(w http.ResponseWriter, r *http.Request) {
	var req annotateRequest
	if err := decodeJSON(w, r, h.bodyLimit(), &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if h.maxText > 0 && utf8.RuneCountInString(req.Text) > h.maxText {
		writeError(w, r, h.log, vocab.NewValidationError("text", fmt.Sprintf("must be at most %d characters", h.maxText)))
		return
	}

	ctx := r.Context()
	userID, _ := ctxutil.UserIDFromCtx(ctx)

	var (
		tokens    []annotate.Token
		sentences []annotate.Sentence
		levels    map[string]vocab.Level
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		if req.Sentences {
			sentences, err = h.annotator.AnnotateSentences(ctx, req.Text)
		} else {
			tokens, err = h.annotator.Annotate(ctx, req.Text)
		}
		return err
	})
	if userID != uuid.Nil {
		g.Go(func() error {
			var err error
			levels, err = h.savedLevels(ctx, userID, req.Text, req.Sentences)
			if err != nil {
				h.log.WarnContext(ctx, "saved level lookup failed",
					slog.String("user_id", userID.String()),
					slog.String("error", err.Error()),
				)
				levels = nil
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if req.Sentences {
		resp := SentencesResponse{Sentences: make([]Sentence, len(sentences))}
		for i, s := range sentences {
			resp.Sentences[i] = Sentence{Text: s.Text, Tokens: withLevels(s.Tokens, levels)}
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusOK, AnnotateResponse{Tokens: withLevels(tokens, levels)})
}

func (h *AnnotateHandler) savedLevels(ctx context.Context, userID uuid.UUID, text string, sentences bool) (map[string]vocab.Level, error) {
	words, err := h.annotator.Words(text, sentences)
	if err != nil || len(words) == 0 {
		return nil, err
	}
	return h.vocab.Levels(ctx, userID, words)
}
func withLevels(tokens []annotate.Token, levels map[string]vocab.Level) []Token {
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		out[i] = Token{Token: t}
		if l, ok := levels[t.Text]; ok {
			out[i].SavedLevel = &l
		}
	}
	return out
}
