package contracttest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	memclock "github.com/transitops/user-service/internal/adapters/memory/clock"
	"github.com/transitops/user-service/internal/domain"
	"github.com/transitops/user-service/internal/platform/password"
	clockport "github.com/transitops/user-service/internal/ports/out/clock"
	userstoreport "github.com/transitops/user-service/internal/ports/out/userstore"
)

type CleanupFunc = func()

// UserStoreDeps are the collaborators a store under test must be built with.
type UserStoreDeps struct {
	Hasher  userstoreport.PasswordComparer
	Clock   clockport.Clock
	Lockout userstoreport.LockoutPolicy
}

type UserStoreFactory func(t *testing.T, deps UserStoreDeps) (userstoreport.Store, CleanupFunc)

type userStoreFixture struct {
	store    userstoreport.Store
	clk      *memclock.ManualClock
	hasher   *password.Hasher
	comparer *countingComparer
}

// countingComparer counts every comparison a store performs, real or dummy.
type countingComparer struct {
	inner *password.Hasher
	calls atomic.Int64
}

func (c *countingComparer) Compare(hash, pw string) (bool, error) {
	c.calls.Add(1)
	return c.inner.Compare(hash, pw)
}

func (c *countingComparer) CompareDummy(pw string) {
	c.calls.Add(1)
	c.inner.CompareDummy(pw)
}

func newUserStoreFixture(t *testing.T, newStore UserStoreFactory) userStoreFixture {
	t.Helper()

	hasher, err := password.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	clk := memclock.NewManualClock(time.Unix(1700000000, 0).UTC())
	comparer := &countingComparer{inner: hasher}
	store, cleanup := newStore(t, UserStoreDeps{
		Hasher:  comparer,
		Clock:   clk,
		Lockout: userstoreport.LockoutPolicy{MaxFailedAttempts: 3, Duration: 5 * time.Minute},
	})
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	return userStoreFixture{store: store, clk: clk, hasher: hasher, comparer: comparer}
}

// seedUser creates a user with a unique email (stores may be shared across tests) and returns it.
func (f userStoreFixture) seedUser(t *testing.T, pw string, roles ...domain.RoleName) userstoreport.User {
	t.Helper()
	ctx := context.Background()

	hash, err := f.hasher.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	u := userstoreport.User{
		ID:           domain.UserID(uuid.NewString()),
		Email:        "User." + uuid.NewString()[:8] + "@Example.com",
		PasswordHash: hash,
		FullName:     "Test User",
		CreatedAt:    f.clk.Now(),
		UpdatedAt:    f.clk.Now(),
	}
	if err := f.store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	for _, r := range roles {
		if err := f.store.CreateRole(ctx, r); err != nil && !errors.Is(err, userstoreport.ErrRoleAlreadyExists) {
			t.Fatalf("CreateRole(%s): %v", r, err)
		}
		if err := f.store.AddToRole(ctx, u.ID, r); err != nil {
			t.Fatalf("AddToRole(%s): %v", r, err)
		}
	}
	return u
}

func uniqueRole(prefix string) domain.RoleName {
	return domain.RoleName(prefix + "-" + uuid.NewString()[:8])
}

// RunUserStore exercises the userstore.Store contract against the store built by newStore.
func RunUserStore(t *testing.T, newStore UserStoreFactory) {
	t.Helper()

	t.Run("FindByEmail is case-insensitive and returns roles", func(t *testing.T) {
		f := newUserStoreFixture(t, newStore)
		driver := uniqueRole("Driver")
		u := f.seedUser(t, "Secret@1", driver)

		got, err := f.store.FindByEmail(context.Background(), strings.ToUpper(u.Email))
		if err != nil {
			t.Fatalf("FindByEmail: %v", err)
		}
		if got.ID != u.ID || got.Email != u.Email || got.FullName != u.FullName {
			t.Fatalf("FindByEmail=%+v, want id=%q email=%q", got, u.ID, u.Email)
		}
		if got.PasswordHash == "" || got.PasswordHash == "Secret@1" {
			t.Fatalf("expected stored hash, got %q", got.PasswordHash)
		}
		if len(got.Roles) != 1 || got.Roles[0] != driver {
			t.Fatalf("Roles=%v, want [%s]", got.Roles, driver)
		}
	})

	t.Run("FindByEmail unknown email", func(t *testing.T) {
		f := newUserStoreFixture(t, newStore)
		_, err := f.store.FindByEmail(context.Background(), "nobody-"+uuid.NewString()+"@b.com")
		if !errors.Is(err, userstoreport.ErrNotFound) {
			t.Fatalf("err=%v, want %v", err, userstoreport.ErrNotFound)
		}
	})

	t.Run("CreateUser rejects duplicate email ignoring case", func(t *testing.T) {
		f := newUserStoreFixture(t, newStore)
		u := f.seedUser(t, "Secret@1")

		dup := u
		dup.ID = domain.UserID(uuid.NewString())
		dup.Email = strings.ToLower(u.Email)
		if err := f.store.CreateUser(context.Background(), dup); !errors.Is(err, userstoreport.ErrAlreadyExists) {
			t.Fatalf("CreateUser(dup) err=%v, want %v", err, userstoreport.ErrAlreadyExists)
		}
	})

	t.Run("CheckPassword", func(t *testing.T) {
		f := newUserStoreFixture(t, newStore)
		u := f.seedUser(t, "Secret@1")
		ctx := context.Background()

		res, err := f.store.CheckPassword(ctx, u.Email, "Secret@1", userstoreport.CheckOptions{})
		if err != nil || !res.Succeeded {
			t.Fatalf("CheckPassword(correct)=%+v,%v", res, err)
		}
		res, err = f.store.CheckPassword(ctx, strings.ToUpper(u.Email), "Secret@1", userstoreport.CheckOptions{})
		if err != nil || !res.Succeeded {
			t.Fatalf("CheckPassword(upper-case email)=%+v,%v", res, err)
		}
		res, err = f.store.CheckPassword(ctx, u.Email, "wrong", userstoreport.CheckOptions{})
		if err != nil || res.Succeeded {
			t.Fatalf("CheckPassword(wrong)=%+v,%v", res, err)
		}
		res, err = f.store.CheckPassword(ctx, "nobody-"+uuid.NewString()+"@b.com", "x", userstoreport.CheckOptions{})
		if err != nil || res.Succeeded || res.LockedOut {
			t.Fatalf("CheckPassword(unknown)=%+v,%v, want plain failure", res, err)
		}
	})

	t.Run("CheckPassword without lockout never locks", func(t *testing.T) {
		f := newUserStoreFixture(t, newStore)
		u := f.seedUser(t, "Secret@1")
		ctx := context.Background()

		for i := 0; i < 10; i++ {
			res, err := f.store.CheckPassword(ctx, u.Email, "wrong", userstoreport.CheckOptions{LockoutOnFailure: false})
			if err != nil || res.Succeeded || res.LockedOut {
				t.Fatalf("attempt %d: %+v,%v", i, res, err)
			}
		}
		res, err := f.store.CheckPassword(ctx, u.Email, "Secret@1", userstoreport.CheckOptions{})
		if err != nil || !res.Succeeded {
			t.Fatalf("CheckPassword after failures=%+v,%v, want success", res, err)
		}
	})

	t.Run("CheckPassword with lockout locks and expires", func(t *testing.T) {
		f := newUserStoreFixture(t, newStore)
		u := f.seedUser(t, "Secret@1")
		ctx := context.Background()
		opts := userstoreport.CheckOptions{LockoutOnFailure: true}

		for i := 0; i < 2; i++ {
			res, err := f.store.CheckPassword(ctx, u.Email, "wrong", opts)
			if err != nil || res.LockedOut {
				t.Fatalf("attempt %d: %+v,%v", i, res, err)
			}
		}
		res, err := f.store.CheckPassword(ctx, u.Email, "wrong", opts)
		if err != nil || !res.LockedOut {
			t.Fatalf("third failure=%+v,%v, want locked out", res, err)
		}

		// Even the correct password is refused while locked out.
		res, err = f.store.CheckPassword(ctx, u.Email, "Secret@1", opts)
		if err != nil || res.Succeeded || !res.LockedOut {
			t.Fatalf("locked CheckPassword=%+v,%v", res, err)
		}

		f.clk.Advance(5*time.Minute + time.Second)
		res, err = f.store.CheckPassword(ctx, u.Email, "Secret@1", opts)
		if err != nil || !res.Succeeded {
			t.Fatalf("CheckPassword after lockout expiry=%+v,%v", res, err)
		}
	})

	t.Run("every rejection path spends one comparison", func(t *testing.T) {
		f := newUserStoreFixture(t, newStore)
		u := f.seedUser(t, "Secret@1")
		ctx := context.Background()
		opts := userstoreport.CheckOptions{LockoutOnFailure: true}

		check := func(name, email, pw string) userstoreport.CheckResult {
			t.Helper()
			before := f.comparer.calls.Load()
			res, err := f.store.CheckPassword(ctx, email, pw, opts)
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if n := f.comparer.calls.Load() - before; n != 1 {
				t.Fatalf("%s: %d comparisons, want 1", name, n)
			}
			return res
		}

		check("unknown email", "nobody-"+uuid.NewString()+"@b.com", "Secret@1")
		for i := 0; i < 3; i++ {
			check("wrong password", u.Email, "wrong")
		}
		if res := check("locked out", u.Email, "Secret@1"); !res.LockedOut || res.Succeeded {
			t.Fatalf("locked CheckPassword=%+v, want locked out", res)
		}
	})

	t.Run("roles assigned at the same instant keep assignment order", func(t *testing.T) {
		f := newUserStoreFixture(t, newStore)
		ctx := context.Background()
		first, second := uniqueRole("Zulu"), uniqueRole("Alpha")
		u := f.seedUser(t, "Secret@1", first, second)

		got, err := f.store.GetRoles(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetRoles: %v", err)
		}
		if len(got) != 2 || got[0] != first || got[1] != second {
			t.Fatalf("GetRoles=%v, want [%s %s]", got, first, second)
		}
	})

	t.Run("roles keep assignment order and ignore duplicates", func(t *testing.T) {
		f := newUserStoreFixture(t, newStore)
		ctx := context.Background()
		first, second := uniqueRole("Dispatcher"), uniqueRole("Customer")
		u := f.seedUser(t, "Secret@1", first)

		if err := f.store.CreateRole(ctx, second); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
		f.clk.Advance(time.Second)
		if err := f.store.AddToRole(ctx, u.ID, second); err != nil {
			t.Fatalf("AddToRole: %v", err)
		}
		if err := f.store.AddToRole(ctx, u.ID, first); err != nil {
			t.Fatalf("AddToRole(again): %v", err)
		}

		got, err := f.store.GetRoles(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetRoles: %v", err)
		}
		if len(got) != 2 || got[0] != first || got[1] != second {
			t.Fatalf("GetRoles=%v, want [%s %s]", got, first, second)
		}
	})

	t.Run("role names are unique case-insensitively", func(t *testing.T) {
		f := newUserStoreFixture(t, newStore)
		ctx := context.Background()
		name := uniqueRole("Auditor")

		if ok, err := f.store.RoleExists(ctx, name); err != nil || ok {
			t.Fatalf("RoleExists(before)=%v,%v", ok, err)
		}
		if err := f.store.CreateRole(ctx, name); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
		lower := domain.RoleName(strings.ToLower(string(name)))
		if ok, err := f.store.RoleExists(ctx, lower); err != nil || !ok {
			t.Fatalf("RoleExists(lower)=%v,%v", ok, err)
		}
		if err := f.store.CreateRole(ctx, lower); !errors.Is(err, userstoreport.ErrRoleAlreadyExists) {
			t.Fatalf("CreateRole(dup) err=%v, want %v", err, userstoreport.ErrRoleAlreadyExists)
		}
	})

	t.Run("AddToRole unknown role or user", func(t *testing.T) {
		f := newUserStoreFixture(t, newStore)
		ctx := context.Background()
		u := f.seedUser(t, "Secret@1")

		if err := f.store.AddToRole(ctx, u.ID, uniqueRole("Ghost")); !errors.Is(err, userstoreport.ErrRoleNotFound) {
			t.Fatalf("AddToRole(unknown role) err=%v, want %v", err, userstoreport.ErrRoleNotFound)
		}
		role := uniqueRole("Real")
		_ = f.store.CreateRole(ctx, role)
		if err := f.store.AddToRole(ctx, domain.UserID(uuid.NewString()), role); !errors.Is(err, userstoreport.ErrNotFound) {
			t.Fatalf("AddToRole(unknown user) err=%v, want %v", err, userstoreport.ErrNotFound)
		}
	})

	t.Run("concurrent checks are safe", func(t *testing.T) {
		f := newUserStoreFixture(t, newStore)
		u := f.seedUser(t, "Secret@1")
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				pw := "Secret@1"
				if i%2 == 1 {
					pw = "wrong"
				}
				res, err := f.store.CheckPassword(ctx, u.Email, pw, userstoreport.CheckOptions{})
				if err != nil {
					errs <- err
					return
				}
				if res.Succeeded != (i%2 == 0) {
					errs <- errors.New("unexpected check result")
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent CheckPassword: %v", err)
		}
	})
}
