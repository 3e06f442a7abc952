package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eilgug/profile-api/internal/platform/auth/jwtverifier"
	"github.com/eilgug/profile-api/internal/platform/config"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestToken_VerifiesAgainstTheAPIVerifier(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	cfg := config.AuthConfig{
		Secret:      []byte("devjwt-test-secret-0123456789abcd"),
		Audience:    "authenticated",
		Issuer:      "http://localhost:54321/auth/v1",
		DefaultRole: config.DefaultRole,
	}
	mux := newMux(cfg, 10*time.Minute, func() time.Time { return now })

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/token?sub=dev-alice&email=alice@example.com&role=admin", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, now.Add(10*time.Minute).Unix(), resp.Exp)

	claims, err := jwtverifier.NewWithClock(cfg, fixedClock{t: now.Add(time.Minute)}).Verify(resp.Token)
	require.NoError(t, err)
	require.Equal(t, "dev-alice", claims.Subject)
	require.Equal(t, "alice@example.com", *claims.Email)
	require.Equal(t, "admin", *claims.Role)
}

func TestToken_RequiresSub(t *testing.T) {
	t.Parallel()

	mux := newMux(config.AuthConfig{Secret: []byte("x-secret-0123456789abcdef01234567"), Audience: "authenticated"}, time.Minute, time.Now)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/token", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
