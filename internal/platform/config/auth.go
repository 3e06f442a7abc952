package config

import (
	"fmt"
	"strings"
	"time"
)

// DefaultRole is assigned to identities whose token carries no role claim.
const DefaultRole = "authenticated"

// AuthConfig configures verification of bearer tokens signed with a shared HS256 secret.
//
// It is built once at startup and treated as read-only afterwards.
type AuthConfig struct {
	Secret   []byte
	Audience string
	// Issuer is optional; when set the iss claim must match exactly.
	Issuer string

	DefaultRole string
	ClockSkew   time.Duration
}

func defaultAuthConfig() AuthConfig {
	return AuthConfig{
		Audience:    "authenticated",
		DefaultRole: DefaultRole,
		// Matches the leeway most HS256 issuers assume.
		ClockSkew: 60 * time.Second,
	}
}

// LoadAuthConfigFromEnv reads auth settings from the environment only.
func LoadAuthConfigFromEnv() (AuthConfig, error) {
	cfg := defaultAuthConfig()
	if err := applyAuthEnv(&cfg); err != nil {
		return AuthConfig{}, err
	}
	return cfg, cfg.validate()
}

func applyAuthEnv(cfg *AuthConfig) error {
	if v := firstEnv("JWT_SECRET", "SUPABASE_JWT_SECRET"); v != "" {
		cfg.Secret = []byte(v)
	}
	if v := firstEnv("JWT_AUDIENCE"); v != "" {
		cfg.Audience = v
	}
	if v := firstEnv("JWT_ISSUER"); v != "" {
		cfg.Issuer = v
	} else if base := firstEnv("SUPABASE_URL"); base != "" && cfg.Issuer == "" {
		cfg.Issuer = strings.TrimRight(base, "/") + "/auth/v1"
	}
	if v := firstEnv("JWT_DEFAULT_ROLE"); v != "" {
		cfg.DefaultRole = v
	}
	if v := firstEnv("JWT_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JWT_CLOCK_SKEW must be a duration (e.g. 60s): %w", err)
		}
		cfg.ClockSkew = d
	}
	return nil
}

func (c AuthConfig) validate() error {
	if len(c.Secret) == 0 {
		return fmt.Errorf("missing required env var: JWT_SECRET (or SUPABASE_JWT_SECRET)")
	}
	if c.Audience == "" {
		return fmt.Errorf("jwt audience must not be empty")
	}
	if c.DefaultRole == "" {
		return fmt.Errorf("jwt default role must not be empty")
	}
	if c.ClockSkew < 0 {
		return fmt.Errorf("JWT_CLOCK_SKEW must not be negative")
	}
	return nil
}
