package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StoragePostgres StorageBackend = "postgres"
)

// Config is the process configuration. Load it once in main and pass the pieces down.
type Config struct {
	Auth    AuthConfig
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	Sentry  SentryConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type StorageConfig struct {
	Backend     StorageBackend
	DatabaseURL string
	MaxDBConns  int32
	AutoMigrate bool

	// RedisURL enables the profile cache when set.
	RedisURL        string
	ProfileCacheTTL time.Duration

	// IdempotencyTTL is how long a stored response stays replayable.
	IdempotencyTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type SentryConfig struct {
	DSN         string
	Environment string
}

type configFile struct {
	Server struct {
		Host               string   `yaml:"host"`
		Port               int      `yaml:"port"`
		ShutdownTimeout    string   `yaml:"shutdown_timeout"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`
	Auth struct {
		Audience    string `yaml:"audience"`
		Issuer      string `yaml:"issuer"`
		DefaultRole string `yaml:"default_role"`
		ClockSkew   string `yaml:"clock_skew"`
	} `yaml:"auth"`
	Storage struct {
		Backend         string `yaml:"backend"`
		DatabaseURL     string `yaml:"database_url"`
		MaxDBConns      int32  `yaml:"max_db_conns"`
		AutoMigrate     *bool  `yaml:"auto_migrate"`
		RedisURL        string `yaml:"redis_url"`
		ProfileCacheTTL string `yaml:"profile_cache_ttl"`
		IdempotencyTTL  string `yaml:"idempotency_ttl"`
	} `yaml:"storage"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func defaults() Config {
	return Config{
		Auth: defaultAuthConfig(),
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               3000,
			ShutdownTimeout:    10 * time.Second,
			CORSAllowedOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			MaxDBConns:      10,
			AutoMigrate:     true,
			ProfileCacheTTL: 5 * time.Minute,
			IdempotencyTTL:  24 * time.Hour,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from an optional YAML file (CONFIG_FILE) with
// environment variables taking precedence. Secrets are only read from the environment.
func Load() (Config, error) {
	cfg := defaults()

	if path := firstEnv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := applyFile(&cfg, raw); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if f.Server.Host != "" {
		cfg.Server.Host = f.Server.Host
	}
	if f.Server.Port != 0 {
		cfg.Server.Port = f.Server.Port
	}
	if f.Server.ShutdownTimeout != "" {
		d, err := time.ParseDuration(f.Server.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("server.shutdown_timeout: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}
	if len(f.Server.CORSAllowedOrigins) > 0 {
		cfg.Server.CORSAllowedOrigins = trimNonEmpty(f.Server.CORSAllowedOrigins)
	}

	if f.Auth.Audience != "" {
		cfg.Auth.Audience = f.Auth.Audience
	}
	if f.Auth.Issuer != "" {
		cfg.Auth.Issuer = f.Auth.Issuer
	}
	if f.Auth.DefaultRole != "" {
		cfg.Auth.DefaultRole = f.Auth.DefaultRole
	}
	if f.Auth.ClockSkew != "" {
		d, err := time.ParseDuration(f.Auth.ClockSkew)
		if err != nil {
			return fmt.Errorf("auth.clock_skew: %w", err)
		}
		cfg.Auth.ClockSkew = d
	}

	if f.Storage.Backend != "" {
		cfg.Storage.Backend = StorageBackend(strings.ToLower(f.Storage.Backend))
	}
	if f.Storage.DatabaseURL != "" {
		cfg.Storage.DatabaseURL = f.Storage.DatabaseURL
	}
	if f.Storage.MaxDBConns > 0 {
		cfg.Storage.MaxDBConns = f.Storage.MaxDBConns
	}
	if f.Storage.AutoMigrate != nil {
		cfg.Storage.AutoMigrate = *f.Storage.AutoMigrate
	}
	if f.Storage.RedisURL != "" {
		cfg.Storage.RedisURL = f.Storage.RedisURL
	}
	if f.Storage.ProfileCacheTTL != "" {
		d, err := time.ParseDuration(f.Storage.ProfileCacheTTL)
		if err != nil {
			return fmt.Errorf("storage.profile_cache_ttl: %w", err)
		}
		cfg.Storage.ProfileCacheTTL = d
	}
	if f.Storage.IdempotencyTTL != "" {
		d, err := time.ParseDuration(f.Storage.IdempotencyTTL)
		if err != nil {
			return fmt.Errorf("storage.idempotency_ttl: %w", err)
		}
		cfg.Storage.IdempotencyTTL = d
	}

	if f.Log.Level != "" {
		cfg.Log.Level = f.Log.Level
	}
	if f.Log.Format != "" {
		cfg.Log.Format = f.Log.Format
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if err := applyAuthEnv(&cfg.Auth); err != nil {
		return err
	}

	cfg.Server.Host = envOrDefault("SERVER_HOST", cfg.Server.Host)
	if v := firstEnv("SERVER_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT must be a valid port: %w", err)
		}
		cfg.Server.Port = p
	}
	if v := firstEnv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT must be a duration (e.g. 10s): %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}
	cfg.Server.CORSAllowedOrigins = envCSV("CORS_ALLOWED_ORIGINS", cfg.Server.CORSAllowedOrigins)

	cfg.Storage.DatabaseURL = envOrDefault("DATABASE_URL", cfg.Storage.DatabaseURL)
	if v := firstEnv("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = StorageBackend(strings.ToLower(v))
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageMemory
		if cfg.Storage.DatabaseURL != "" {
			cfg.Storage.Backend = StoragePostgres
		}
	}
	if v := firstEnv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("DB_MAX_CONNS must be a positive integer")
		}
		cfg.Storage.MaxDBConns = int32(n)
	}
	if v := firstEnv("AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AUTO_MIGRATE must be a boolean: %w", err)
		}
		cfg.Storage.AutoMigrate = b
	}
	cfg.Storage.RedisURL = envOrDefault("REDIS_URL", cfg.Storage.RedisURL)
	if v := firstEnv("PROFILE_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PROFILE_CACHE_TTL must be a duration (e.g. 5m): %w", err)
		}
		cfg.Storage.ProfileCacheTTL = d
	}
	if v := firstEnv("IDEMPOTENCY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("IDEMPOTENCY_TTL must be a duration (e.g. 24h): %w", err)
		}
		cfg.Storage.IdempotencyTTL = d
	}

	cfg.Log.Level = envOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOrDefault("LOG_FORMAT", cfg.Log.Format)

	cfg.Sentry.DSN = envOrDefault("SENTRY_DSN", cfg.Sentry.DSN)
	cfg.Sentry.Environment = envOrDefault("SENTRY_ENVIRONMENT", cfg.Sentry.Environment)
	return nil
}

func (c Config) validate() error {
	if err := c.Auth.validate(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be a valid port, got %d", c.Server.Port)
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("missing required env var for postgres storage: DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (expected memory|postgres)", c.Storage.Backend)
	}
	if c.Storage.ProfileCacheTTL <= 0 {
		return fmt.Errorf("PROFILE_CACHE_TTL must be positive")
	}
	if c.Storage.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive")
	}
	return nil
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

func envOrDefault(name, fallback string) string {
	if v := firstEnv(name); v != "" {
		return v
	}
	return fallback
}

func envCSV(name string, fallback []string) []string {
	raw := firstEnv(name)
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
