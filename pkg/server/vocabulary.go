package server

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/japaniel/zhreader/pkg/ctxutil"
	"github.com/japaniel/zhreader/pkg/vocab"
)

// maxImportBody caps POST /api/vocabulary/import.
const maxImportBody = 10 << 20

// VocabularyHandler serves /api/vocabulary. Every route requires X-User-ID.
type VocabularyHandler struct {
	svc *vocab.Service
	log *slog.Logger
}

func NewVocabularyHandler(svc *vocab.Service, logger *slog.Logger) *VocabularyHandler {
	return &VocabularyHandler{svc: svc, log: logger}
}

type listResponse struct {
	Level      *vocab.Level  `json:"level,omitempty"`
	Vocabulary []vocab.Entry `json:"vocabulary"`
}

type wordResponse struct {
	Message string       `json:"message"`
	Word    *vocab.Entry `json:"word"`
}

// wordLevelResponse has a null level when the word is not saved.
type wordLevelResponse struct {
	Level       *vocab.Level `json:"level"`
	Pinyin      string       `json:"pinyin,omitempty"`
	Translation string       `json:"translation,omitempty"`
}

func userID(r *http.Request) uuid.UUID {
	id, _ := ctxutil.UserIDFromCtx(r.Context())
	return id
}

// List handles GET /api/vocabulary with an optional ?level= filter.
func (h *VocabularyHandler) List(w http.ResponseWriter, r *http.Request) {
	var level vocab.Level
	if raw := r.URL.Query().Get("level"); raw != "" {
		l, err := vocab.ParseLevel(raw)
		if err != nil {
			writeError(w, r, h.log, err)
			return
		}
		level = l
	}
	entries, err := h.svc.List(r.Context(), userID(r), level)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	resp := listResponse{Vocabulary: entries}
	if level != 0 {
		resp.Level = &level
	}
	writeJSON(w, http.StatusOK, resp)
}

// ByLevel handles GET /api/vocabulary/level/{level}.
func (h *VocabularyHandler) ByLevel(w http.ResponseWriter, r *http.Request) {
	level, err := vocab.ParseLevel(r.PathValue("level"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	entries, err := h.svc.List(r.Context(), userID(r), level)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Level: &level, Vocabulary: entries})
}

func (h *VocabularyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]vocab.Stats{"stats": stats})
}

// Word handles GET /api/vocabulary/word/{word}.
func (h *VocabularyHandler) Word(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Get(r.Context(), userID(r), r.PathValue("word"))
	if errors.Is(err, vocab.ErrNotFound) {
		writeJSON(w, http.StatusOK, wordLevelResponse{})
		return
	}
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, wordLevelResponse{Level: &e.Level, Pinyin: e.Pinyin, Translation: e.Translation})
}

// Save handles POST /api/vocabulary.
func (h *VocabularyHandler) Save(w http.ResponseWriter, r *http.Request) {
	var in vocab.SaveInput
	if err := decodeJSON(w, r, maxJSONBody, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	e, err := h.svc.Save(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, wordResponse{Message: "word saved", Word: e})
}

// Update handles PUT /api/vocabulary/{word}.
func (h *VocabularyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in vocab.SaveInput
	if err := decodeJSON(w, r, maxJSONBody, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	e, err := h.svc.Update(r.Context(), userID(r), r.PathValue("word"), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, wordResponse{Message: "word updated", Word: e})
}

// Delete handles DELETE /api/vocabulary/{word}.
func (h *VocabularyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), userID(r), r.PathValue("word")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "word removed"})
}

// Clear handles DELETE /api/vocabulary.
func (h *VocabularyHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Clear(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "vocabulary cleared", "deletedCount": n})
}

// Export handles GET /api/vocabulary/export as a JSON attachment.
func (h *VocabularyHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), userID(r), &buf); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="vocabulary.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// Import handles POST /api/vocabulary/import.
func (h *VocabularyHandler) Import(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Import(r.Context(), userID(r), http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "vocabulary imported", "imported": n})
}
