package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/transitops/user-service/internal/domain"
)

// Service runs the login flow: verify credentials, then issue a token.
type Service struct {
	verifier *Verifier
	issuer   *Issuer
	log      *slog.Logger
}

func NewService(verifier *Verifier, issuer *Issuer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{verifier: verifier, issuer: issuer, log: log}
}

// Login returns a signed token for a valid email/password pair.
// A bad pair yields ErrInvalidCredentials; store faults propagate unchanged in kind.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (domain.AccessToken, error) {
	user, err := s.verifier.Authenticate(ctx, creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.log.InfoContext(ctx, "login rejected")
		}
		return domain.AccessToken{}, err
	}

	tok, err := s.issuer.IssueToken(ctx, user)
	if err != nil {
		return domain.AccessToken{}, err
	}
	s.log.InfoContext(ctx, "token issued",
		slog.String("user_id", string(user.ID)),
		slog.Time("expires_at", tok.ExpiresAt),
	)
	return tok, nil
}
