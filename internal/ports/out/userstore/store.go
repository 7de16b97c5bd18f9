package userstore

import (
	"context"
	"time"

	"github.com/transitops/user-service/internal/domain"
)

// User is the persistence shape used by user stores.
type User struct {
	ID             domain.UserID
	Email          string
	PasswordHash   string
	FullName       string
	EmailConfirmed bool

	// AccessFailedCount and LockoutEnd back the lockout policy; stores own them.
	AccessFailedCount int
	LockoutEnd        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CheckOptions controls a single password check.
type CheckOptions struct {
	// Persistent requests a remembered session. The service is stateless and always passes false.
	Persistent bool
	// LockoutOnFailure counts a failed check towards the account lockout threshold.
	LockoutOnFailure bool
}

// CheckResult reports the outcome of a password check.
// A zero value means the check failed.
type CheckResult struct {
	Succeeded bool
	LockedOut bool
}

// LockoutPolicy is the store-side lockout threshold applied when CheckOptions.LockoutOnFailure is set.
type LockoutPolicy struct {
	MaxFailedAttempts int
	Duration          time.Duration
}

// DefaultLockoutPolicy matches the thresholds the service has always been configured with.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxFailedAttempts: 5, Duration: 5 * time.Minute}
}

// PasswordComparer is the hashing primitive stores check passwords with.
//
// CompareDummy must cost about as much as Compare. Stores call it on every path that rejects a
// password without comparing it to the stored hash.
type PasswordComparer interface {
	Compare(hash, password string) (bool, error)
	CompareDummy(password string)
}

// UserLookup resolves users by email. Lookups are case-insensitive.
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (domain.UserIdentity, error)
}

// PasswordCheck verifies a password against the stored hash for an email.
//
// An unknown email is reported as a failed CheckResult, not as ErrNotFound, and must cost
// about as much as a wrong password so callers cannot tell the two apart.
type PasswordCheck interface {
	CheckPassword(ctx context.Context, email, password string, opts CheckOptions) (CheckResult, error)
}

// RoleLookup lists the roles assigned to a user.
//
// Result ordering expectations:
// - roles are returned in assignment order so issued claims are stable.
type RoleLookup interface {
	GetRoles(ctx context.Context, userID domain.UserID) ([]domain.RoleName, error)
}

// Writer is the mutating side of the store, used by registration and the admin bootstrap.
type Writer interface {
	CreateUser(ctx context.Context, u User) error
	RoleExists(ctx context.Context, name domain.RoleName) (bool, error)
	CreateRole(ctx context.Context, name domain.RoleName) error
	AddToRole(ctx context.Context, userID domain.UserID, name domain.RoleName) error
}

// Store is implemented by every user store adapter.
type Store interface {
	UserLookup
	PasswordCheck
	RoleLookup
	Writer
}
