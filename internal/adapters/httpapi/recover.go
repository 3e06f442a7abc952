package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/eilgug/profile-api/internal/apperr"
)

// recoverer turns a panic into the standard 500 error body. The Sentry
// middleware, when mounted inside it, has already reported the panic and
// re-panicked, so reported skips a second capture.
func recoverer(log *slog.Logger, reported bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				err := apperr.Internal("panic", fmt.Errorf("panic: %v\n%s", rec, debug.Stack()))
				if reported {
					resp := apperr.ToResponse(err)
					logError(r, log, resp, err)
					renderError(w, r, resp)
					return
				}
				writeError(w, r, log, err)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
