package userstore

import (
	"context"
	"sync"

	"github.com/transitops/user-service/internal/domain"
	clockport "github.com/transitops/user-service/internal/ports/out/clock"
	"github.com/transitops/user-service/internal/ports/out/userstore"
)

// Repo is an in-memory implementation of userstore.Store.
// It is safe for concurrent use.
type Repo struct {
	hasher  userstore.PasswordComparer
	clk     clockport.Clock
	lockout userstore.LockoutPolicy

	mu sync.RWMutex

	byID       map[domain.UserID]userstore.User
	idByEmail  map[string]domain.UserID
	roles      map[string]domain.RoleName // normalized name -> display name
	rolesByUID map[domain.UserID][]domain.RoleName
}

func NewRepo(hasher userstore.PasswordComparer, clk clockport.Clock, lockout userstore.LockoutPolicy) *Repo {
	return &Repo{
		hasher:     hasher,
		clk:        clk,
		lockout:    lockout,
		byID:       make(map[domain.UserID]userstore.User),
		idByEmail:  make(map[string]domain.UserID),
		roles:      make(map[string]domain.RoleName),
		rolesByUID: make(map[domain.UserID][]domain.RoleName),
	}
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (domain.UserIdentity, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idByEmail[domain.NormalizeEmail(email)]
	if !ok {
		return domain.UserIdentity{}, userstore.ErrNotFound
	}
	u, ok := r.byID[id]
	if !ok {
		return domain.UserIdentity{}, userstore.ErrNotFound
	}
	return domain.UserIdentity{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FullName:     u.FullName,
		Roles:        cloneRoles(r.rolesByUID[u.ID]),
	}, nil
}

func (r *Repo) CheckPassword(ctx context.Context, email, pw string, opts userstore.CheckOptions) (userstore.CheckResult, error) {
	_ = ctx
	key := domain.NormalizeEmail(email)

	r.mu.RLock()
	id, ok := r.idByEmail[key]
	u := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		r.hasher.CompareDummy(pw)
		return userstore.CheckResult{}, nil
	}

	now := r.clk.Now()
	if u.LockoutEnd != nil && now.Before(*u.LockoutEnd) {
		r.hasher.CompareDummy(pw)
		return userstore.CheckResult{LockedOut: true}, nil
	}

	match, err := r.hasher.Compare(u.PasswordHash, pw)
	if err != nil {
		return userstore.CheckResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-read under the write lock: concurrent checks for the same user may have updated counters.
	cur, ok := r.byID[id]
	if !ok {
		return userstore.CheckResult{}, nil
	}
	if match {
		if cur.AccessFailedCount != 0 || cur.LockoutEnd != nil {
			cur.AccessFailedCount = 0
			cur.LockoutEnd = nil
			cur.UpdatedAt = now
			r.byID[id] = cur
		}
		return userstore.CheckResult{Succeeded: true}, nil
	}
	if !opts.LockoutOnFailure {
		return userstore.CheckResult{}, nil
	}

	cur.AccessFailedCount++
	cur.UpdatedAt = now
	lockedOut := false
	if cur.AccessFailedCount >= r.lockout.MaxFailedAttempts {
		end := now.Add(r.lockout.Duration)
		cur.LockoutEnd = &end
		cur.AccessFailedCount = 0
		lockedOut = true
	}
	r.byID[id] = cur
	return userstore.CheckResult{LockedOut: lockedOut}, nil
}

func (r *Repo) GetRoles(ctx context.Context, userID domain.UserID) ([]domain.RoleName, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byID[userID]; !ok {
		return nil, userstore.ErrNotFound
	}
	return cloneRoles(r.rolesByUID[userID]), nil
}

func (r *Repo) CreateUser(ctx context.Context, u userstore.User) error {
	_ = ctx
	if u.ID == "" {
		return userstore.ErrAlreadyExists // treat empty ID as invalid; app layer assigns ids
	}
	key := domain.NormalizeEmail(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[u.ID]; ok {
		return userstore.ErrAlreadyExists
	}
	if _, ok := r.idByEmail[key]; ok {
		return userstore.ErrAlreadyExists
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.clk.Now()
		u.UpdatedAt = u.CreatedAt
	}
	r.byID[u.ID] = cloneUser(u)
	r.idByEmail[key] = u.ID
	return nil
}

func (r *Repo) RoleExists(ctx context.Context, name domain.RoleName) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roles[domain.NormalizeRoleName(name)]
	return ok, nil
}

func (r *Repo) CreateRole(ctx context.Context, name domain.RoleName) error {
	_ = ctx
	key := domain.NormalizeRoleName(name)
	if key == "" {
		return userstore.ErrRoleNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[key]; ok {
		return userstore.ErrRoleAlreadyExists
	}
	r.roles[key] = name
	return nil
}

func (r *Repo) AddToRole(ctx context.Context, userID domain.UserID, name domain.RoleName) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[userID]; !ok {
		return userstore.ErrNotFound
	}
	stored, ok := r.roles[domain.NormalizeRoleName(name)]
	if !ok {
		return userstore.ErrRoleNotFound
	}
	for _, existing := range r.rolesByUID[userID] {
		if existing == stored {
			return nil
		}
	}
	r.rolesByUID[userID] = append(r.rolesByUID[userID], stored)
	return nil
}

func cloneUser(u userstore.User) userstore.User {
	out := u
	if u.LockoutEnd != nil {
		v := *u.LockoutEnd
		out.LockoutEnd = &v
	}
	return out
}

func cloneRoles(rs []domain.RoleName) []domain.RoleName {
	out := make([]domain.RoleName, len(rs))
	copy(out, rs)
	return out
}

var _ userstore.Store = (*Repo)(nil)

