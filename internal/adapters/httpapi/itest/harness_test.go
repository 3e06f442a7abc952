package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/eilgug/profile-api/internal/adapters/httpapi"
	memclock "github.com/eilgug/profile-api/internal/adapters/memory/clock"
	memidempotency "github.com/eilgug/profile-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/eilgug/profile-api/internal/adapters/memory/profilerepo"
	pgidempotency "github.com/eilgug/profile-api/internal/adapters/postgres/idempotency"
	pgprofilerepo "github.com/eilgug/profile-api/internal/adapters/postgres/profilerepo"
	postgres_testutil "github.com/eilgug/profile-api/internal/adapters/postgres/testutil"
	"github.com/eilgug/profile-api/internal/app/profiles"
	"github.com/eilgug/profile-api/internal/platform/auth"
	"github.com/eilgug/profile-api/internal/platform/auth/jwtverifier"
	"github.com/eilgug/profile-api/internal/platform/auth/tokentest"
	"github.com/eilgug/profile-api/internal/platform/config"
	"github.com/eilgug/profile-api/internal/platform/validation"
	idempotencyport "github.com/eilgug/profile-api/internal/ports/out/idempotency"
	profilerepoport "github.com/eilgug/profile-api/internal/ports/out/profilerepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

var itestSecret = []byte("itest-secret-0123456789abcdef0123")

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	auth    config.AuthConfig
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		profileRepo profilerepoport.Repository
		idemStore   idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		profileRepo = pgprofilerepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendMemory:
		profileRepo = memprofilerepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	authCfg := config.AuthConfig{
		Secret:      itestSecret,
		Audience:    "authenticated",
		DefaultRole: config.DefaultRole,
		ClockSkew:   time.Minute,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Tokens are minted against the wall clock, so the verifier uses it too.
	verifier := jwtverifier.New(authCfg)
	api := httpapi.NewServer(profiles.NewService(profileRepo, clk), idemStore, validation.New(), clk, log)
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: httpapi.NewAuthMiddleware(auth.NewExtractor(verifier, authCfg.DefaultRole), log),
		Logger:         log,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		auth:    authCfg,
	}
}

// token mints a valid HS256 token for subject. An empty subject yields "".
func (s *testServer) token(t *testing.T, subject, email string) string {
	t.Helper()
	if subject == "" {
		return ""
	}
	tok, err := tokentest.MintHS256(s.auth.Secret, tokentest.Options{
		Subject:  subject,
		Email:    email,
		Audience: []string{s.auth.Audience},
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return tok
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, token string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

type profileResponse struct {
	ID          string  `json:"id"`
	AuthID      string  `json:"auth_id"`
	DisplayName *string `json:"display_name"`
	Email       string  `json:"email"`
	AvatarURL   *string `json:"avatar_url"`
	Bio         *string `json:"bio"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorMessage(t *testing.T, status int, body []byte, wantStatus int, wantMessage string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Status != wantStatus {
		t.Fatalf("error.status=%d want=%d body=%s", got.Error.Status, wantStatus, string(body))
	}
	if got.Error.Message != wantMessage {
		t.Fatalf("error.message=%q want=%q body=%s", got.Error.Message, wantMessage, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
