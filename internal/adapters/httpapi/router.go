package httpapi

import (
	"log/slog"
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	slogchi "github.com/samber/slog-chi"

	"github.com/eilgug/profile-api/internal/apperr"
)

type RouterOptions struct {
	// AuthMiddleware guards every route except /health. Required.
	AuthMiddleware func(http.Handler) http.Handler

	// Logger is used for access logs. Nil disables them.
	Logger *slog.Logger

	// CORSAllowedOrigins defaults to "*".
	CORSAllowedOrigins []string

	// Sentry installs the sentry-go HTTP middleware (panics and per-request hubs).
	Sentry bool
}

// NewRouter constructs the API HTTP router.
//
// Routes that need an identity sit behind opts.AuthMiddleware, so a request
// without a valid token is answered before its body is read.
func NewRouter(api *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Logger != nil {
		r.Use(slogchi.NewWithConfig(opts.Logger, slogchi.Config{
			DefaultLevel:     slog.LevelInfo,
			ClientErrorLevel: slog.LevelWarn,
			ServerErrorLevel: slog.LevelError,
			WithRequestID:    true,
		}))
	}
	r.Use(recoverer(api.Log, opts.Sentry))
	if opts.Sentry {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	r.Use(cors.Handler(corsOptions(opts.CORSAllowedOrigins)))

	r.NotFound(api.handle(func(http.ResponseWriter, *http.Request) error {
		return apperr.NotFound("route not found")
	}))
	r.MethodNotAllowed(api.handle(func(http.ResponseWriter, *http.Request) error {
		return apperr.BadRequest("method not allowed")
	}))

	r.Get("/health", api.handle(api.Health))

	r.Group(func(r chi.Router) {
		r.Use(opts.AuthMiddleware)

		r.Post("/auth/callback", api.handle(api.AuthCallback))

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", api.handle(api.GetMyProfile))
			r.Put("/me", api.handle(api.UpdateMyProfile))
			r.Delete("/me", api.handle(api.DeleteMyProfile))
			r.Get("/{id}", api.handle(api.GetProfile))
		})
	})

	return r
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-Id", idempotentReplayedHeader},
		MaxAge:         300,
	}
}
