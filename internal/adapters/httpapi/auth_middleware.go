package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/eilgug/profile-api/internal/platform/auth"
)

// NewAuthMiddleware enforces Authorization: Bearer <JWT> on the routes it wraps.
//
// On success, it stores the verified identity in request context. On failure
// the request is answered 401 and the handler (and its body) is never reached.
func NewAuthMiddleware(ex *auth.Extractor, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := ex.FromHeader(r.Header)
			if err != nil {
				writeError(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.NewContext(r.Context(), id)))
		})
	}
}
