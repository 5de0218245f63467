package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/japaniel/zhreader/pkg/vocab"
)

// errorBody matches the error shape returned by the API handlers.
type errorBody struct {
	Error   string             `json:"error"`
	Details []vocab.FieldError `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}
