package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/eilgug/profile-api/internal/adapters/httpapi"
	memidempotency "github.com/eilgug/profile-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/eilgug/profile-api/internal/adapters/memory/profilerepo"
	"github.com/eilgug/profile-api/internal/adapters/postgres"
	pgidempotency "github.com/eilgug/profile-api/internal/adapters/postgres/idempotency"
	"github.com/eilgug/profile-api/internal/adapters/postgres/migrations"
	pgprofilerepo "github.com/eilgug/profile-api/internal/adapters/postgres/profilerepo"
	"github.com/eilgug/profile-api/internal/adapters/redis"
	"github.com/eilgug/profile-api/internal/adapters/redis/profilecache"
	idempotencyapp "github.com/eilgug/profile-api/internal/app/idempotency"
	"github.com/eilgug/profile-api/internal/app/profiles"
	"github.com/eilgug/profile-api/internal/platform/auth"
	"github.com/eilgug/profile-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/eilgug/profile-api/internal/platform/clock"
	"github.com/eilgug/profile-api/internal/platform/config"
	"github.com/eilgug/profile-api/internal/platform/logging"
	"github.com/eilgug/profile-api/internal/platform/validation"
	idempotencyport "github.com/eilgug/profile-api/internal/ports/out/idempotency"
	profilerepoport "github.com/eilgug/profile-api/internal/ports/out/profilerepo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid config", slog.Any("err", err))
		os.Exit(1)
	}
	log := logging.New(cfg.Log)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("api exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sentryEnabled := cfg.Sentry.DSN != ""
	if sentryEnabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			AttachStacktrace: true,
		}); err != nil {
			return fmt.Errorf("sentry init: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
		log.Info("sentry enabled", slog.String("environment", cfg.Sentry.Environment))
	}

	clk := platformclock.NewSystemClock()

	repo, idem, cleanup, err := openStorage(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer cleanup()

	sweeper := idempotencyapp.NewSweeper(idem, clk, log, cfg.Storage.IdempotencyTTL, time.Hour)
	go func() { _ = sweeper.Run(ctx) }()

	verifier := jwtverifier.NewWithClock(cfg.Auth, clk)
	extractor := auth.NewExtractor(verifier, cfg.Auth.DefaultRole)

	api := httpapi.NewServer(profiles.NewService(repo, clk), idem, validation.New(), clk, log)
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware:     httpapi.NewAuthMiddleware(extractor, log),
		Logger:             log,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Sentry:             sentryEnabled,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening",
			slog.String("addr", srv.Addr),
			slog.String("storage", string(cfg.Storage.Backend)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStorage(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (profilerepoport.Repository, idempotencyport.Store, func(), error) {
	if cfg.Backend != config.StoragePostgres {
		return memprofilerepo.NewRepo(), memidempotency.NewStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("postgres: %w", err)
	}
	closers := []func(){pool.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.AutoMigrate {
		m, err := migrations.New(pool, log)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("load migrations: %w", err)
		}
		n, err := m.Up(ctx)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied", slog.Int("count", n))
	}

	var repo profilerepoport.Repository = pgprofilerepo.NewRepo(pool)
	if cfg.RedisURL != "" {
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		repo = profilecache.New(repo, client, cfg.ProfileCacheTTL, log)
		log.Info("profile cache enabled", slog.Duration("ttl", cfg.ProfileCacheTTL))
	}

	return repo, pgidempotency.NewStore(pool), cleanup, nil
}
