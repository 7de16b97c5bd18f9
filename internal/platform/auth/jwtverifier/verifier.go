package jwtverifier

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/transitops/user-service/internal/platform/config"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Principal is the authenticated caller recovered from a verified token.
type Principal struct {
	Subject string
	Email   string
	Roles   []string
}

// HasRole reports whether the principal carries role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Verifier struct {
	cfg    config.TokenConfig
	secret []byte
	parser *jwt.Parser
}

func New(cfg config.TokenConfig) *Verifier {
	return NewWithOptions(cfg, nil)
}

func NewWithOptions(cfg config.TokenConfig, clock Clock) *Verifier {
	if clock == nil {
		clock = realClock{}
	}
	return &Verifier{
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(cfg.ClockSkew),
			jwt.WithTimeFunc(clock.Now),
			jwt.WithStrictDecoding(),
		),
	}
}

type claims struct {
	Email string           `json:"email"`
	Roles jwt.ClaimStrings `json:"role"`
	jwt.RegisteredClaims
}

// Verify verifies an access token and returns the principal it was issued to.
//
// Verification:
// - HS256 signature with the shared secret
// - iss, aud, exp (required) and nbf (when present), with the configured clock skew
func (v *Verifier) Verify(_ context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrUnauthorized
	}
	var c claims
	if _, err := v.parser.ParseWithClaims(token, &c, v.keyFunc); err != nil {
		return Principal{}, ErrUnauthorized
	}
	if c.Subject == "" {
		return Principal{}, ErrUnauthorized
	}
	roles := make([]string, 0, len(c.Roles))
	roles = append(roles, c.Roles...)
	return Principal{Subject: c.Subject, Email: c.Email, Roles: roles}, nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrUnauthorized
	}
	return v.secret, nil
}
