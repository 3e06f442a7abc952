package jwtverifier

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eilgug/profile-api/internal/apperr"
	"github.com/eilgug/profile-api/internal/platform/config"
)

// Algorithm is the only signing algorithm accepted.
const Algorithm = "HS256"

// InvalidTokenDetail is the detail returned for every verification failure.
// Callers cannot tell an expired token from a forged one.
const InvalidTokenDetail = "invalid token"

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Claims is the decoded payload of a verified token.
type Claims struct {
	jwt.RegisteredClaims

	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

// Verifier checks HS256 tokens against a shared secret. It holds no mutable
// state and is safe for concurrent use.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func New(cfg config.AuthConfig) *Verifier {
	return NewWithClock(cfg, nil)
}

func NewWithClock(cfg config.AuthConfig, clock Clock) *Verifier {
	if clock == nil {
		clock = realClock{}
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.ClockSkew),
		jwt.WithTimeFunc(clock.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &Verifier{
		secret: secret,
		parser: jwt.NewParser(opts...),
	}
}

// Verify validates signature, exp, nbf, aud (and iss when configured) and
// returns the claims. A token without a subject is rejected.
func (v *Verifier) Verify(token string) (Claims, error) {
	claims, err := v.verify(token)
	if err != nil {
		return Claims{}, apperr.Unauthorized(InvalidTokenDetail)
	}
	return claims, nil
}

func (v *Verifier) verify(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, errors.New("empty token")
	}

	var claims Claims
	tok, err := v.parser.ParseWithClaims(raw, &claims, v.key)
	if err != nil {
		return Claims{}, err
	}
	if !tok.Valid {
		return Claims{}, errors.New("token not valid")
	}
	if claims.Subject == "" {
		return Claims{}, errors.New("missing sub")
	}
	return claims, nil
}

func (v *Verifier) key(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return v.secret, nil
}
