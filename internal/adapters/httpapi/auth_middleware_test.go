package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eilgug/profile-api/internal/platform/auth/tokentest"
)

func TestAuthMiddleware_Rejections(t *testing.T) {
	t.Parallel()

	h := newTestAPI(t)

	expired, err := tokentest.MintHS256(testSecret, tokentest.Options{
		Subject:  "user-1",
		Audience: []string{testAudience},
		IssuedAt: testNow.Add(-2 * time.Hour),
		Expires:  testNow.Add(-time.Hour),
	})
	require.NoError(t, err)
	foreign, err := tokentest.MintHS256([]byte("someone-elses-secret-0123456789"), tokentest.Options{
		Subject:  "user-1",
		Audience: []string{testAudience},
		IssuedAt: testNow,
	})
	require.NoError(t, err)

	cases := []struct {
		name    string
		authz   string
		wantMsg string
	}{
		{name: "missing header", authz: "", wantMsg: "missing authorization header"},
		{name: "basic scheme", authz: "Basic dXNlcjpwYXNz", wantMsg: "invalid authorization format"},
		{name: "lowercase bearer", authz: "bearer " + h.mint(t, "user-1", ""), wantMsg: "invalid authorization format"},
		{name: "garbage token", authz: "Bearer not-a-jwt", wantMsg: "invalid token"},
		{name: "expired", authz: "Bearer " + expired, wantMsg: "invalid token"},
		{name: "wrong secret", authz: "Bearer " + foreign, wantMsg: "invalid token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tc.authz != "" {
				req.Header.Set("Authorization", tc.authz)
			}
			rr := httptest.NewRecorder()
			h.router.ServeHTTP(rr, req)

			require.Equal(t, http.StatusUnauthorized, rr.Code)
			require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			require.JSONEq(t, `{"error":{"status":401,"message":"`+tc.wantMsg+`"}}`, rr.Body.String())
		})
	}
}

func TestAuthMiddleware_MissingHeaderBodyIsExact(t *testing.T) {
	t.Parallel()

	h := newTestAPI(t)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/me", nil))

	require.Equal(t, `{"error":{"status":401,"message":"missing authorization header"}}`+"\n", rr.Body.String())
}

func TestAuthMiddleware_RejectsBeforeBodyIsRead(t *testing.T) {
	t.Parallel()

	h := newTestAPI(t)
	body := &trackingReader{r: strings.NewReader(`{"display_name":`)}
	req := httptest.NewRequest(http.MethodPut, "/users/me", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.False(t, body.read, "body must not be read for an unauthenticated request")
}

func TestAuthMiddleware_HealthIsPublic(t *testing.T) {
	t.Parallel()

	h := newTestAPI(t)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestAuthMiddleware_StoresIdentity(t *testing.T) {
	t.Parallel()

	h := newTestAPI(t)
	rr := h.do(t, http.MethodPost, "/auth/callback", h.mint(t, "user-42", "u42@example.com"), "")

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decodeProfile(t, rr)
	require.Equal(t, "user-42", got.AuthID)
	require.Equal(t, "u42@example.com", got.Email)
}

type trackingReader struct {
	r    *strings.Reader
	read bool
}

func (t *trackingReader) Read(p []byte) (int, error) {
	t.read = true
	return t.r.Read(p)
}
