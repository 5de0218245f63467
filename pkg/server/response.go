package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/japaniel/zhreader/pkg/vocab"
)

// maxJSONBody caps request bodies other than imports and annotation text.
const maxJSONBody = 1 << 20

type errorResponse struct {
	Error   string             `json:"error"`
	Details []vocab.FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *vocab.ValidationError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Details: ve.Errors})
	case errors.As(err, &mbe):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: fmt.Sprintf("request body exceeds %d bytes", mbe.Limit)})
	case errors.Is(err, vocab.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "X-User-ID header required"})
	case errors.Is(err, vocab.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "word not found in your vocabulary"})
	case errors.Is(err, vocab.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "word already saved"})
	default:
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// decodeJSON reads a single JSON value from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return vocab.NewValidationError("body", "required")
		}
		return vocab.NewValidationError("body", "invalid JSON")
	}
	return nil
}
