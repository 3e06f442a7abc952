package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eilgug/profile-api/internal/apperr"
)

// writeError renders err through the error taxonomy. Server-side causes go to
// the log and to Sentry, never to the client.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	resp := apperr.ToResponse(err)
	logError(r, log, resp, err)
	if resp.Status >= http.StatusInternalServerError {
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		}
	}
	renderError(w, r, resp)
}

func logError(r *http.Request, log *slog.Logger, resp apperr.Response, err error) {
	if log == nil {
		return
	}
	attrs := []any{
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", resp.Status),
	}
	if resp.Status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed", append(attrs, slog.Any("err", err))...)
		return
	}
	log.WarnContext(r.Context(), "request rejected", append(attrs, slog.String("message", resp.Message))...)
}

func renderError(w http.ResponseWriter, r *http.Request, resp apperr.Response) {
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		w.Header().Set("X-Request-Id", rid)
	}
	writeJSON(w, resp.Status, resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
