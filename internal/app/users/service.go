package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/transitops/user-service/internal/domain"
	"github.com/transitops/user-service/internal/platform/password"
	clockport "github.com/transitops/user-service/internal/ports/out/clock"
	"github.com/transitops/user-service/internal/ports/out/userstore"
)

type Service struct {
	store  userstore.Writer
	hasher *password.Hasher
	clk    clockport.Clock
	log    *slog.Logger

	newUserID func() domain.UserID
}

func NewService(store userstore.Writer, hasher *password.Hasher, clk clockport.Clock, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		hasher: hasher,
		clk:    clk,
		log:    log,
		newUserID: func() domain.UserID {
			return domain.UserID(uuid.NewString())
		},
	}
}

// SetNewUserIDForTest overrides user ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewUserIDForTest(fn func() domain.UserID) {
	if fn != nil {
		s.newUserID = fn
	}
}

// Register creates a user and assigns the requested role.
// Field format is validated by the transport; this checks what needs the store.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.UserID, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return "", &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "email and password are required",
		}
	}

	role := domain.RoleName(strings.TrimSpace(string(in.Role)))
	ok, err := s.store.RoleExists(ctx, role)
	if err != nil {
		return "", fmt.Errorf("check role: %w", err)
	}
	if !ok {
		return "", unknownRole(role)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	now := s.clk.Now()
	id := s.newUserID()
	u := userstore.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		FullName:     domain.NormalizeHumanName(in.FullName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, userstore.ErrAlreadyExists) {
			return "", &Error{
				Status:  409,
				Code:    "EMAIL_ALREADY_REGISTERED",
				Message: "A user with this email address already exists.",
			}
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	if err := s.store.AddToRole(ctx, id, role); err != nil {
		if errors.Is(err, userstore.ErrRoleNotFound) {
			return "", unknownRole(role)
		}
		return "", fmt.Errorf("assign role: %w", err)
	}

	s.log.InfoContext(ctx, "user registered",
		slog.String("user_id", string(id)),
		slog.String("role", string(role)),
	)
	return id, nil
}

func unknownRole(role domain.RoleName) *Error {
	return &Error{
		Status:  422,
		Code:    "UNKNOWN_ROLE",
		Message: "The requested role does not exist.",
		Details: map[string]any{"Role": string(role)},
	}
}
