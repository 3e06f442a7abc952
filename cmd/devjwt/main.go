package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/eilgug/profile-api/internal/platform/auth/tokentest"
	"github.com/eilgug/profile-api/internal/platform/config"
	"github.com/eilgug/profile-api/internal/platform/logging"
)

// Tiny dev-only token minter.
//
// It signs HS256 tokens with the same JWT_SECRET / JWT_AUDIENCE / JWT_ISSUER the
// API reads, so local runs go through the real verifier. Never expose it.

type tokenResponse struct {
	Token string `json:"token"`
	Sub   string `json:"sub"`
	Aud   string `json:"aud"`
	Iss   string `json:"iss,omitempty"`
	Exp   int64  `json:"exp"`
}

func main() {
	log := logging.New(config.LogConfig{Level: getenv("LOG_LEVEL", "info"), Format: "text"})

	authCfg, err := config.LoadAuthConfigFromEnv()
	if err != nil {
		log.Error("invalid auth config", slog.Any("err", err))
		os.Exit(1)
	}
	port := getenv("PORT", "5556")
	ttl := getenvDuration("TTL", 30*time.Minute)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newMux(authCfg, ttl, time.Now),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("devjwt listening",
		slog.String("addr", srv.Addr),
		slog.String("aud", authCfg.Audience),
		slog.String("iss", authCfg.Issuer),
		slog.Duration("ttl", ttl),
	)
	if err := srv.ListenAndServe(); err != nil {
		log.Error("listen", slog.Any("err", err))
		os.Exit(1)
	}
}

func newMux(cfg config.AuthConfig, ttl time.Duration, now func() time.Time) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Mint a JWT:
	//   GET /token?sub=dev-alice&email=alice@example.com&role=authenticated
	mux.HandleFunc("GET /token", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sub := strings.TrimSpace(q.Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}

		iat := now().UTC()
		exp := iat.Add(ttl)
		token, err := tokentest.MintHS256(cfg.Secret, tokentest.Options{
			Subject:  sub,
			Email:    strings.TrimSpace(q.Get("email")),
			Role:     strings.TrimSpace(q.Get("role")),
			Audience: []string{cfg.Audience},
			Issuer:   cfg.Issuer,
			IssuedAt: iat,
			Expires:  exp,
		})
		if err != nil {
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tokenResponse{
			Token: token,
			Sub:   sub,
			Aud:   cfg.Audience,
			Iss:   cfg.Issuer,
			Exp:   exp.Unix(),
		})
	})

	return mux
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
