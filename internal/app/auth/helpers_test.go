package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	memclock "github.com/transitops/user-service/internal/adapters/memory/clock"
	memuserstore "github.com/transitops/user-service/internal/adapters/memory/userstore"
	"github.com/transitops/user-service/internal/domain"
	"github.com/transitops/user-service/internal/platform/config"
	"github.com/transitops/user-service/internal/platform/password"
	"github.com/transitops/user-service/internal/ports/out/userstore"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var errStoreDown = errors.New("store unavailable")

func testTokenConfig() config.TokenConfig {
	return config.TokenConfig{
		Secret:    testSecret,
		Issuer:    "user-service",
		Audience:  "transitops",
		TTL:       time.Hour,
		ClockSkew: 0,
	}
}

type harness struct {
	repo    *memuserstore.Repo
	clk     *memclock.ManualClock
	hasher  *password.Hasher
	svc     *Service
	issuer  *Issuer
	verif   *Verifier
	cfg     config.TokenConfig
	lockout userstore.LockoutPolicy
}

func newHarness(t *testing.T) harness {
	t.Helper()

	hasher, err := password.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	clk := memclock.NewManualClock(time.Unix(1700000000, 0).UTC())
	lockout := userstore.LockoutPolicy{MaxFailedAttempts: 3, Duration: 5 * time.Minute}
	repo := memuserstore.NewRepo(hasher, clk, lockout)

	cfg := testTokenConfig()
	issuer, err := NewIssuer(cfg, repo, clk)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	verif := NewVerifier(repo, repo, nil)
	return harness{
		repo:    repo,
		clk:     clk,
		hasher:  hasher,
		svc:     NewService(verif, issuer, nil),
		issuer:  issuer,
		verif:   verif,
		cfg:     cfg,
		lockout: lockout,
	}
}

func (h harness) seed(t *testing.T, id, email, pw string, roles ...domain.RoleName) {
	t.Helper()
	ctx := context.Background()

	hash, err := h.hasher.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := h.repo.CreateUser(ctx, userstore.User{
		ID:           domain.UserID(id),
		Email:        email,
		PasswordHash: hash,
		FullName:     "Test User",
		CreatedAt:    h.clk.Now(),
		UpdatedAt:    h.clk.Now(),
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	for _, r := range roles {
		if err := h.repo.CreateRole(ctx, r); err != nil && !errors.Is(err, userstore.ErrRoleAlreadyExists) {
			t.Fatalf("CreateRole: %v", err)
		}
		if err := h.repo.AddToRole(ctx, domain.UserID(id), r); err != nil {
			t.Fatalf("AddToRole: %v", err)
		}
	}
}

// faultyStore fails every call with err.
type faultyStore struct {
	err error
}

func (f faultyStore) FindByEmail(context.Context, string) (domain.UserIdentity, error) {
	return domain.UserIdentity{}, f.err
}

func (f faultyStore) CheckPassword(context.Context, string, string, userstore.CheckOptions) (userstore.CheckResult, error) {
	return userstore.CheckResult{}, f.err
}

func (f faultyStore) GetRoles(context.Context, domain.UserID) ([]domain.RoleName, error) {
	return nil, f.err
}

// recordingCheck records the options of the last password check.
type recordingCheck struct {
	last userstore.CheckOptions
	res  userstore.CheckResult
}

func (r *recordingCheck) CheckPassword(_ context.Context, _, _ string, opts userstore.CheckOptions) (userstore.CheckResult, error) {
	r.last = opts
	return r.res, nil
}
