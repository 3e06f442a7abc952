package httpapi

import "net/http"

// handlerFunc is an endpoint that reports failure by returning an error.
// It must not write to w before returning a non-nil error.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts h to net/http, rendering any returned error through the
// error taxonomy.
func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, r, s.Log, err)
		}
	}
}
