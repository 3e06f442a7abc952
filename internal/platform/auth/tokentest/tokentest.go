// Package tokentest mints signed tokens for tests and local tooling.
package tokentest

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Options describes a token to mint. Zero values omit the matching claim,
// except Expires which defaults to one hour after IssuedAt.
type Options struct {
	Subject  string
	Email    string
	Role     string
	Audience []string
	Issuer   string

	IssuedAt  time.Time
	Expires   time.Time
	NotBefore time.Time
	NoExpiry  bool

	// Extra claims are merged last and can override any of the above.
	Extra map[string]any
}

// Claims builds the claim set for opts.
func Claims(opts Options) jwt.MapClaims {
	iat := opts.IssuedAt
	if iat.IsZero() {
		iat = time.Now()
	}
	c := jwt.MapClaims{"iat": iat.Unix()}

	if opts.Subject != "" {
		c["sub"] = opts.Subject
	}
	if opts.Email != "" {
		c["email"] = opts.Email
	}
	if opts.Role != "" {
		c["role"] = opts.Role
	}
	switch len(opts.Audience) {
	case 0:
	case 1:
		c["aud"] = opts.Audience[0]
	default:
		c["aud"] = opts.Audience
	}
	if opts.Issuer != "" {
		c["iss"] = opts.Issuer
	}
	if !opts.NoExpiry {
		exp := opts.Expires
		if exp.IsZero() {
			exp = iat.Add(time.Hour)
		}
		c["exp"] = exp.Unix()
	}
	if !opts.NotBefore.IsZero() {
		c["nbf"] = opts.NotBefore.Unix()
	}
	for k, v := range opts.Extra {
		c[k] = v
	}
	return c
}

// MintHS256 signs the claims described by opts with secret.
func MintHS256(secret []byte, opts Options) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims(opts)).SignedString(secret)
}

// MintWithMethod signs with an arbitrary method and key. jwt.SigningMethodNone
// requires jwt.UnsafeAllowNoneSignatureType as the key.
func MintWithMethod(method jwt.SigningMethod, key any, opts Options) (string, error) {
	return jwt.NewWithClaims(method, Claims(opts)).SignedString(key)
}
