package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/transitops/user-service/internal/domain"
	"github.com/transitops/user-service/internal/ports/out/userstore"
)

// Verifier checks submitted credentials against the user store.
type Verifier struct {
	users     userstore.UserLookup
	passwords userstore.PasswordCheck
	log       *slog.Logger

	// LockoutOnFailure counts failed checks towards the store's lockout threshold.
	LockoutOnFailure bool
}

func NewVerifier(users userstore.UserLookup, passwords userstore.PasswordCheck, log *slog.Logger) *Verifier {
	if log == nil {
		log = slog.Default()
	}
	return &Verifier{users: users, passwords: passwords, log: log}
}

// Authenticate returns the stored identity when email and password match.
// Every authentication failure is reported as ErrInvalidCredentials; store faults are returned wrapped.
func (v *Verifier) Authenticate(ctx context.Context, email, password string) (domain.UserIdentity, error) {
	if email == "" || password == "" {
		return domain.UserIdentity{}, ErrInvalidCredentials
	}

	res, err := v.passwords.CheckPassword(ctx, email, password, userstore.CheckOptions{
		Persistent:       false,
		LockoutOnFailure: v.LockoutOnFailure,
	})
	if err != nil {
		return domain.UserIdentity{}, fmt.Errorf("check password: %w", err)
	}
	if res.LockedOut {
		v.log.WarnContext(ctx, "sign-in refused for locked out account")
	}
	if !res.Succeeded {
		return domain.UserIdentity{}, ErrInvalidCredentials
	}

	u, err := v.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return domain.UserIdentity{}, ErrInvalidCredentials
		}
		return domain.UserIdentity{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}
