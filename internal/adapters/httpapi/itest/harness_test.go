package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/transitops/user-service/internal/adapters/httpapi"
	memclock "github.com/transitops/user-service/internal/adapters/memory/clock"
	memidempotency "github.com/transitops/user-service/internal/adapters/memory/idempotency"
	memuserstore "github.com/transitops/user-service/internal/adapters/memory/userstore"
	pgidempotency "github.com/transitops/user-service/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/transitops/user-service/internal/adapters/postgres/testutil"
	pguserstore "github.com/transitops/user-service/internal/adapters/postgres/userstore"
	"github.com/transitops/user-service/internal/app/auth"
	"github.com/transitops/user-service/internal/app/bootstrap"
	"github.com/transitops/user-service/internal/app/users"
	"github.com/transitops/user-service/internal/domain"
	"github.com/transitops/user-service/internal/platform/auth/jwtverifier"
	"github.com/transitops/user-service/internal/platform/config"
	"github.com/transitops/user-service/internal/platform/password"
	idempotencyport "github.com/transitops/user-service/internal/ports/out/idempotency"
	userstoreport "github.com/transitops/user-service/internal/ports/out/userstore"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

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
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	hasher, err := password.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	lockout := userstoreport.DefaultLockoutPolicy()

	var (
		store     userstoreport.Store
		idemStore idempotencyport.Store
	)
	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		store = pguserstore.NewRepo(pool, hasher, clk, lockout)
		idemStore = pgidempotency.NewStore(pool)
	case backendMemory:
		store = memuserstore.NewRepo(hasher, clk, lockout)
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	seeder := bootstrap.NewSeeder(store, hasher, clk, log)
	if _, err := seeder.EnsureRoles(context.Background(), domain.DefaultRoles()...); err != nil {
		t.Fatalf("EnsureRoles: %v", err)
	}

	tokenCfg := config.TokenConfig{
		Secret:   "itest-secret-itest-secret-itest-secret",
		Issuer:   "itest-issuer",
		Audience: "itest-audience",
		TTL:      time.Hour,
	}
	issuer, err := auth.NewIssuer(tokenCfg, store, clk)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	authSvc := auth.NewService(auth.NewVerifier(store, store, log), issuer, log)
	usersSvc := users.NewService(store, hasher, clk, log)

	handler := httpapi.NewRouter(httpapi.NewServer(authSvc, usersSvc, idemStore, log), httpapi.RouterOptions{
		AuthMiddleware: httpapi.NewAuthMiddleware(jwtverifier.NewWithOptions(tokenCfg, clk)),
		Logger:         log,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
	}
}

// request is a single call against the running server.
type request struct {
	method  string
	path    string
	body    any
	headers map[string]string
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

type response struct {
	status int
	body   []byte
	header http.Header
}

func (s *testServer) send(t *testing.T, r request) response {
	t.Helper()

	var rd io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(r.method, s.baseURL+r.path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", r.method, r.path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return response{status: resp.StatusCode, body: out, header: resp.Header}
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, resp response, want int) {
	t.Helper()
	if resp.status != want {
		t.Fatalf("status=%d want=%d body=%s", resp.status, want, string(resp.body))
	}
}

func requireErrorCode(t *testing.T, resp response, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, resp, wantStatus)
	got := mustUnmarshal[errorResponse](t, resp.body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(resp.body))
	}
}
