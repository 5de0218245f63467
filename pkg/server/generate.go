package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/japaniel/zhreader/pkg/annotate"
	"github.com/japaniel/zhreader/pkg/generate"
	"github.com/japaniel/zhreader/pkg/vocab"
)

type generateRequest struct {
	Topic    string `json:"topic"`
	Annotate bool   `json:"annotate"`
}

// GenerateResponse is the body of POST /api/generate. Tokens is present only
// when the request asked for annotation.
type GenerateResponse struct {
	generate.Passage
	Tokens []annotate.Token `json:"tokens,omitempty"`
}

// GenerateHandler serves POST /api/generate.
type GenerateHandler struct {
	generator *generate.Generator
	annotator *annotate.Annotator
	log       *slog.Logger
}

// NewGenerateHandler creates a GenerateHandler.
func NewGenerateHandler(g *generate.Generator, a *annotate.Annotator, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{generator: g, annotator: a, log: logger}
}

// Generate writes a passage on the requested topic and optionally annotates
// it.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	passage, err := h.generator.Generate(r.Context(), req.Topic)
	if err != nil {
		var te *generate.TopicError
		if errors.As(err, &te) {
			err = vocab.NewValidationError("topic", te.Reason)
		}
		writeError(w, r, h.log, err)
		return
	}

	resp := GenerateResponse{Passage: passage}
	if req.Annotate {
		resp.Tokens, err = h.annotator.Annotate(r.Context(), passage.Text)
		if err != nil {
			writeError(w, r, h.log, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Topics lists suggested topics.
func (h *GenerateHandler) Topics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"topics": generate.QuickTopics})
}
