package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/transitops/user-service/internal/adapters/postgres"
	"github.com/transitops/user-service/internal/domain"
	clockport "github.com/transitops/user-service/internal/ports/out/clock"
	"github.com/transitops/user-service/internal/ports/out/userstore"
)

// Repo is a Postgres implementation of userstore.Store.
type Repo struct {
	pool    *pgxpool.Pool
	hasher  userstore.PasswordComparer
	clk     clockport.Clock
	lockout userstore.LockoutPolicy
}

func NewRepo(pool *pgxpool.Pool, hasher userstore.PasswordComparer, clk clockport.Clock, lockout userstore.LockoutPolicy) *Repo {
	return &Repo{pool: pool, hasher: hasher, clk: clk, lockout: lockout}
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (domain.UserIdentity, error) {
	if r.pool == nil {
		return domain.UserIdentity{}, errors.New("nil postgres pool")
	}
	var u domain.UserIdentity
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, full_name
		FROM users
		WHERE normalized_email = $1
	`, domain.NormalizeEmail(email)).Scan(&id, &u.Email, &u.PasswordHash, &u.FullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserIdentity{}, userstore.ErrNotFound
		}
		return domain.UserIdentity{}, err
	}
	u.ID = domain.UserID(id.String())

	roles, err := listRoles(ctx, r.pool, id)
	if err != nil {
		return domain.UserIdentity{}, err
	}
	u.Roles = roles
	return u, nil
}

func (r *Repo) CheckPassword(ctx context.Context, email, pw string, opts userstore.CheckOptions) (userstore.CheckResult, error) {
	if r.pool == nil {
		return userstore.CheckResult{}, errors.New("nil postgres pool")
	}
	var (
		id         uuid.UUID
		hash       string
		failed     int
		lockoutEnd *time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, password_hash, access_failed_count, lockout_end
		FROM users
		WHERE normalized_email = $1
	`, domain.NormalizeEmail(email)).Scan(&id, &hash, &failed, &lockoutEnd)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.hasher.CompareDummy(pw)
			return userstore.CheckResult{}, nil
		}
		return userstore.CheckResult{}, err
	}

	now := r.clk.Now().UTC()
	if lockoutEnd != nil && now.Before(*lockoutEnd) {
		r.hasher.CompareDummy(pw)
		return userstore.CheckResult{LockedOut: true}, nil
	}

	match, err := r.hasher.Compare(hash, pw)
	if err != nil {
		return userstore.CheckResult{}, err
	}
	if match {
		if failed != 0 || lockoutEnd != nil {
			if _, err := r.pool.Exec(ctx, `
				UPDATE users
				SET access_failed_count = 0,
				    lockout_end = NULL,
				    updated_at = $2
				WHERE id = $1
			`, id, now); err != nil {
				return userstore.CheckResult{}, err
			}
		}
		return userstore.CheckResult{Succeeded: true}, nil
	}
	if !opts.LockoutOnFailure {
		return userstore.CheckResult{}, nil
	}

	lockedOut := false
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx, `
			UPDATE users
			SET access_failed_count = access_failed_count + 1,
			    updated_at = $2
			WHERE id = $1
			RETURNING access_failed_count
		`, id, now).Scan(&count); err != nil {
			return err
		}
		if count < r.lockout.MaxFailedAttempts {
			return nil
		}
		lockedOut = true
		_, err := tx.Exec(ctx, `
			UPDATE users
			SET access_failed_count = 0,
			    lockout_end = $2
			WHERE id = $1
		`, id, now.Add(r.lockout.Duration))
		return err
	})
	if err != nil {
		return userstore.CheckResult{}, fmt.Errorf("record failed sign-in: %w", err)
	}
	return userstore.CheckResult{LockedOut: lockedOut}, nil
}

func (r *Repo) GetRoles(ctx context.Context, userID domain.UserID) ([]domain.RoleName, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(userID))
	if err != nil {
		return nil, userstore.ErrNotFound
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, uid).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, userstore.ErrNotFound
	}
	return listRoles(ctx, r.pool, uid)
}

func (r *Repo) CreateUser(ctx context.Context, u userstore.User) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.clk.Now()
		u.UpdatedAt = u.CreatedAt
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (
			id,
			email,
			normalized_email,
			password_hash,
			full_name,
			email_confirmed,
			access_failed_count,
			lockout_end,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		id,
		u.Email,
		domain.NormalizeEmail(u.Email),
		u.PasswordHash,
		u.FullName,
		u.EmailConfirmed,
		u.AccessFailedCount,
		u.LockoutEnd,
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return userstore.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) RoleExists(ctx context.Context, name domain.RoleName) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM roles WHERE normalized_name = $1)
	`, domain.NormalizeRoleName(name)).Scan(&exists)
	return exists, err
}

func (r *Repo) CreateRole(ctx context.Context, name domain.RoleName) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	key := domain.NormalizeRoleName(name)
	if key == "" {
		return userstore.ErrRoleNotFound
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO roles (id, name, normalized_name)
		VALUES ($1, $2, $3)
	`, uuid.New(), string(name), key)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return userstore.ErrRoleAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) AddToRole(ctx context.Context, userID domain.UserID, name domain.RoleName) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(userID))
	if err != nil {
		return userstore.ErrNotFound
	}

	var roleID uuid.UUID
	err = r.pool.QueryRow(ctx, `
		SELECT id FROM roles WHERE normalized_name = $1
	`, domain.NormalizeRoleName(name)).Scan(&roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return userstore.ErrRoleNotFound
		}
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, assigned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, role_id) DO NOTHING
	`, uid, roleID, r.clk.Now().UTC())
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.ForeignKeyViolationCode {
			return userstore.ErrNotFound
		}
		return err
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listRoles(ctx context.Context, q querier, userID uuid.UUID) ([]domain.RoleName, error) {
	rows, err := q.Query(ctx, `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY ur.seq
	`, userID)
	if err != nil {
		return nil, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	out := make([]domain.RoleName, 0, len(names))
	for _, n := range names {
		out = append(out, domain.RoleName(n))
	}
	return out, nil
}

var _ userstore.Store = (*Repo)(nil)
