package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	memclock "github.com/transitops/user-service/internal/adapters/memory/clock"
	memidempotency "github.com/transitops/user-service/internal/adapters/memory/idempotency"
	memuserstore "github.com/transitops/user-service/internal/adapters/memory/userstore"
	"github.com/transitops/user-service/internal/app/auth"
	"github.com/transitops/user-service/internal/app/bootstrap"
	"github.com/transitops/user-service/internal/app/users"
	"github.com/transitops/user-service/internal/domain"
	"github.com/transitops/user-service/internal/platform/auth/jwtverifier"
	"github.com/transitops/user-service/internal/platform/config"
	"github.com/transitops/user-service/internal/platform/password"
	"github.com/transitops/user-service/internal/ports/out/userstore"
)

type testAPI struct {
	handler http.Handler
	repo    *memuserstore.Repo
	clk     *memclock.ManualClock
	cfg     config.TokenConfig
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()

	hasher, err := password.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	clk := memclock.NewManualClock(time.Unix(1700000000, 0).UTC())
	repo := memuserstore.NewRepo(hasher, clk, userstore.DefaultLockoutPolicy())

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	seeder := bootstrap.NewSeeder(repo, hasher, clk, log)
	if _, err := seeder.EnsureRoles(context.Background(), domain.DefaultRoles()...); err != nil {
		t.Fatalf("EnsureRoles: %v", err)
	}

	cfg := config.TokenConfig{
		Secret:   "0123456789abcdef0123456789abcdef",
		Issuer:   "user-service",
		Audience: "transitops",
		TTL:      time.Hour,
	}
	issuer, err := auth.NewIssuer(cfg, repo, clk)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	authSvc := auth.NewService(auth.NewVerifier(repo, repo, log), issuer, log)
	usersSvc := users.NewService(repo, hasher, clk, log)

	verifier := jwtverifier.NewWithOptions(cfg, clk)
	h := NewRouter(NewServer(authSvc, usersSvc, memidempotency.NewStore(), log), RouterOptions{
		AuthMiddleware: NewAuthMiddleware(verifier),
		Logger:         log,
	})
	return testAPI{handler: h, repo: repo, clk: clk, cfg: cfg}
}

func (a testAPI) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a testAPI) register(t *testing.T, email, pw, role string) string {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"EmailAddress":    email,
		"Password":        pw,
		"ConfirmPassword": pw,
		"FullName":        "Test User",
		"Role":            role,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", rec.Code, rec.Body.String())
	}
	var out RegisterResponse
	mustDecode(t, rec, &out)
	return out.ID
}

func mustDecode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode: %v\nbody=%s", err, rec.Body.String())
	}
}
