package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, k := range []string{
		"JWT_SECRET", "SUPABASE_JWT_SECRET", "JWT_AUDIENCE", "JWT_ISSUER", "SUPABASE_URL",
		"JWT_DEFAULT_ROLE", "JWT_CLOCK_SKEW", "SERVER_HOST", "SERVER_PORT", "SHUTDOWN_TIMEOUT",
		"CORS_ALLOWED_ORIGINS", "STORAGE_BACKEND", "DATABASE_URL", "DB_MAX_CONNS", "AUTO_MIGRATE",
		"REDIS_URL", "PROFILE_CACHE_TTL", "IDEMPOTENCY_TTL", "LOG_LEVEL", "LOG_FORMAT", "SENTRY_DSN",
		"SENTRY_ENVIRONMENT", "CONFIG_FILE",
	} {
		t.Setenv(k, "")
	}
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{"JWT_SECRET": "s3cret"})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(cfg.Auth.Secret) != "s3cret" {
		t.Fatalf("secret mismatch")
	}
	if cfg.Auth.Audience != "authenticated" || cfg.Auth.DefaultRole != "authenticated" {
		t.Fatalf("auth defaults: %+v", cfg.Auth)
	}
	if cfg.Auth.ClockSkew != 60*time.Second {
		t.Fatalf("clock skew: %v", cfg.Auth.ClockSkew)
	}
	if cfg.Server.Addr() != "0.0.0.0:3000" {
		t.Fatalf("addr: %s", cfg.Server.Addr())
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Fatalf("backend: %s", cfg.Storage.Backend)
	}
	if !cfg.Storage.AutoMigrate || cfg.Storage.ProfileCacheTTL != 5*time.Minute || cfg.Storage.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("storage defaults: %+v", cfg.Storage)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	setEnv(t, nil)

	if _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad_SupabaseFallbacks(t *testing.T) {
	setEnv(t, map[string]string{
		"SUPABASE_JWT_SECRET": "legacy",
		"SUPABASE_URL":        "https://abc.supabase.co/",
		"DATABASE_URL":        "postgres://localhost/profiles",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(cfg.Auth.Secret) != "legacy" {
		t.Fatalf("secret fallback not used")
	}
	if cfg.Auth.Issuer != "https://abc.supabase.co/auth/v1" {
		t.Fatalf("issuer: %q", cfg.Auth.Issuer)
	}
	if cfg.Storage.Backend != StoragePostgres {
		t.Fatalf("backend should follow DATABASE_URL, got %s", cfg.Storage.Backend)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  host: 127.0.0.1
  port: 8081
  cors_allowed_origins: ["https://app.example"]
auth:
  audience: profiles
  clock_skew: 5s
storage:
  auto_migrate: false
  profile_cache_ttl: 1m
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	setEnv(t, map[string]string{
		"CONFIG_FILE": path,
		"JWT_SECRET":  "s",
		"SERVER_PORT": "9090",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Fatalf("env should override file port: %s", cfg.Server.Addr())
	}
	if cfg.Auth.Audience != "profiles" || cfg.Auth.ClockSkew != 5*time.Second {
		t.Fatalf("auth from file: %+v", cfg.Auth)
	}
	if cfg.Storage.AutoMigrate || cfg.Storage.ProfileCacheTTL != time.Minute {
		t.Fatalf("storage from file: %+v", cfg.Storage)
	}
	if len(cfg.Server.CORSAllowedOrigins) != 1 || cfg.Server.CORSAllowedOrigins[0] != "https://app.example" {
		t.Fatalf("cors: %v", cfg.Server.CORSAllowedOrigins)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level: %s", cfg.Log.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad port":            {"SERVER_PORT": "http"},
		"port out of range":   {"SERVER_PORT": "70000"},
		"bad skew":            {"JWT_CLOCK_SKEW": "soon"},
		"negative skew":       {"JWT_CLOCK_SKEW": "-1s"},
		"unknown backend":     {"STORAGE_BACKEND": "sqlite"},
		"postgres no url":     {"STORAGE_BACKEND": "postgres"},
		"bad auto migrate":    {"AUTO_MIGRATE": "maybe"},
		"bad max conns":       {"DB_MAX_CONNS": "0"},
		"zero cache ttl":      {"PROFILE_CACHE_TTL": "0s"},
		"bad idempotency ttl": {"IDEMPOTENCY_TTL": "forever"},
		"bad shutdown":        {"SHUTDOWN_TIMEOUT": "later"},
		"missing config file": {"CONFIG_FILE": "/does/not/exist.yaml"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			kv := map[string]string{"JWT_SECRET": "s"}
			for k, v := range env {
				kv[k] = v
			}
			setEnv(t, kv)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadAuthConfigFromEnv(t *testing.T) {
	setEnv(t, map[string]string{"JWT_SECRET": "s", "JWT_DEFAULT_ROLE": "member", "JWT_ISSUER": "iss"})

	cfg, err := LoadAuthConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadAuthConfigFromEnv: %v", err)
	}
	if cfg.DefaultRole != "member" || cfg.Issuer != "iss" {
		t.Fatalf("unexpected: %+v", cfg)
	}
}
