package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/transitops/user-service/internal/domain"
	"github.com/transitops/user-service/internal/platform/password"
	clockport "github.com/transitops/user-service/internal/ports/out/clock"
	"github.com/transitops/user-service/internal/ports/out/userstore"
)

// Store is what the bootstrap needs from a user store.
type Store interface {
	userstore.UserLookup
	userstore.Writer
}

// AdminConfig describes the seeded administrator.
type AdminConfig struct {
	Role     domain.RoleName
	Email    string
	Password string
	FullName string
}

// Result reports what a bootstrap run changed.
type Result struct {
	RolesCreated []domain.RoleName
	AdminCreated bool
	AdminID      domain.UserID
}

type Seeder struct {
	store  Store
	hasher *password.Hasher
	clk    clockport.Clock
	log    *slog.Logger
}

func NewSeeder(store Store, hasher *password.Hasher, clk clockport.Clock, log *slog.Logger) *Seeder {
	if log == nil {
		log = slog.Default()
	}
	return &Seeder{store: store, hasher: hasher, clk: clk, log: log}
}

// EnsureRoles creates every role in names that does not exist yet and returns the ones it created.
func (s *Seeder) EnsureRoles(ctx context.Context, names ...domain.RoleName) ([]domain.RoleName, error) {
	var created []domain.RoleName
	for _, name := range names {
		ok, err := s.store.RoleExists(ctx, name)
		if err != nil {
			return created, fmt.Errorf("check role %s: %w", name, err)
		}
		if ok {
			continue
		}
		if err := s.store.CreateRole(ctx, name); err != nil {
			// Another instance may have seeded it between the check and the insert.
			if errors.Is(err, userstore.ErrRoleAlreadyExists) {
				continue
			}
			return created, fmt.Errorf("create role %s: %w", name, err)
		}
		s.log.InfoContext(ctx, "role created", slog.String("role", string(name)))
		created = append(created, name)
	}
	return created, nil
}

// EnsureAdmin creates the admin role and user when missing.
// An existing user with the admin email is left untouched.
func (s *Seeder) EnsureAdmin(ctx context.Context, cfg AdminConfig) (Result, error) {
	if cfg.Role == "" || cfg.Email == "" || cfg.Password == "" {
		return Result{}, errors.New("admin bootstrap requires role, email and password")
	}

	created, err := s.EnsureRoles(ctx, cfg.Role)
	if err != nil {
		return Result{}, err
	}
	res := Result{RolesCreated: created}

	existing, err := s.store.FindByEmail(ctx, cfg.Email)
	switch {
	case err == nil:
		s.log.InfoContext(ctx, "admin user already exists - skipping", slog.String("user_id", string(existing.ID)))
		res.AdminID = existing.ID
		return res, nil
	case !errors.Is(err, userstore.ErrNotFound):
		return res, fmt.Errorf("find admin user: %w", err)
	}

	hash, err := s.hasher.Hash(cfg.Password)
	if err != nil {
		return res, fmt.Errorf("hash admin password: %w", err)
	}
	now := s.clk.Now()
	id := domain.UserID(uuid.NewString())
	if err := s.store.CreateUser(ctx, userstore.User{
		ID:             id,
		Email:          cfg.Email,
		PasswordHash:   hash,
		FullName:       domain.NormalizeHumanName(cfg.FullName),
		EmailConfirmed: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		if errors.Is(err, userstore.ErrAlreadyExists) {
			return res, nil
		}
		return res, fmt.Errorf("create admin user: %w", err)
	}
	if err := s.store.AddToRole(ctx, id, cfg.Role); err != nil {
		return res, fmt.Errorf("assign admin role: %w", err)
	}

	s.log.InfoContext(ctx, "admin user created",
		slog.String("user_id", string(id)),
		slog.String("role", string(cfg.Role)),
	)
	res.AdminCreated = true
	res.AdminID = id
	return res, nil
}
