// Package auth turns a request's Authorization header into a verified Identity.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/eilgug/profile-api/internal/apperr"
	"github.com/eilgug/profile-api/internal/platform/auth/jwtverifier"
)

const (
	bearerPrefix = "Bearer "

	MissingHeaderDetail = "missing authorization header"
	BadFormatDetail     = "invalid authorization format"
)

// Identity is the authenticated caller. The only way to obtain a non-zero
// Identity is through Extractor.FromHeader with a token that verified.
type Identity struct {
	id    string
	email string
	role  string
}

// ID is the token's sub claim.
func (i Identity) ID() string { return i.id }

// Email is empty when the token carries none.
func (i Identity) Email() string { return i.email }

func (i Identity) Role() string { return i.role }

// IsZero reports whether i was never populated by the extractor.
func (i Identity) IsZero() bool { return i.id == "" }

// TokenVerifier is implemented by *jwtverifier.Verifier.
type TokenVerifier interface {
	Verify(token string) (jwtverifier.Claims, error)
}

// Extractor reads bearer tokens and projects verified claims into an Identity.
type Extractor struct {
	verifier    TokenVerifier
	defaultRole string
}

func NewExtractor(v TokenVerifier, defaultRole string) *Extractor {
	return &Extractor{verifier: v, defaultRole: defaultRole}
}

// FromHeader requires "Authorization: Bearer <token>" and verifies the token.
// Every failure is an apperr Unauthorized error.
func (e *Extractor) FromHeader(h http.Header) (Identity, error) {
	vals := h.Values("Authorization")
	if len(vals) == 0 {
		return Identity{}, apperr.Unauthorized(MissingHeaderDetail)
	}
	raw := vals[0]
	if !strings.HasPrefix(raw, bearerPrefix) {
		return Identity{}, apperr.Unauthorized(BadFormatDetail)
	}

	claims, err := e.verifier.Verify(strings.TrimPrefix(raw, bearerPrefix))
	if err != nil {
		if apperr.Is(err, apperr.KindUnauthorized) {
			return Identity{}, err
		}
		return Identity{}, apperr.Unauthorized(jwtverifier.InvalidTokenDetail)
	}
	return e.project(claims)
}

func (e *Extractor) project(c jwtverifier.Claims) (Identity, error) {
	if c.Subject == "" {
		return Identity{}, apperr.Unauthorized(jwtverifier.InvalidTokenDetail)
	}
	id := Identity{id: c.Subject, role: e.defaultRole}
	if c.Email != nil {
		id.email = *c.Email
	}
	if c.Role != nil {
		id.role = *c.Role
	}
	return id, nil
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by NewContext. A zero Identity is
// reported as absent.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.IsZero() {
		return Identity{}, false
	}
	return id, true
}
