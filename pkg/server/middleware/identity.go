package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/japaniel/zhreader/pkg/ctxutil"
	"github.com/japaniel/zhreader/pkg/vocab"
)

// UserIDHeader names the caller. There is no authentication: the header is
// trusted as given.
const UserIDHeader = "X-User-ID"

// Identity puts the X-User-ID header into the request context. A request
// without the header proceeds anonymously; a malformed one is rejected.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			writeError(w, http.StatusBadRequest, errorBody{
				Error:   "validation failed",
				Details: []vocab.FieldError{{Field: UserIDHeader, Message: "must be a UUID"}},
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(ctxutil.WithUserID(r.Context(), id)))
	})
}
