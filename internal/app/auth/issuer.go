package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/transitops/user-service/internal/domain"
	"github.com/transitops/user-service/internal/platform/config"
	clockport "github.com/transitops/user-service/internal/ports/out/clock"
	"github.com/transitops/user-service/internal/ports/out/userstore"
)

// TokenClaims is the JWT payload of an access token.
type TokenClaims struct {
	Email  string           `json:"email"`
	NameID string           `json:"nameid"`
	Roles  jwt.ClaimStrings `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Issuer builds signed, expiring HS256 access tokens.
type Issuer struct {
	cfg    config.TokenConfig
	secret []byte
	roles  userstore.RoleLookup
	clk    clockport.Clock

	newTokenID func() string
}

// NewIssuer validates cfg and returns an Issuer. A configuration fault is returned as an error.
func NewIssuer(cfg config.TokenConfig, roles userstore.RoleLookup, clk clockport.Clock) (*Issuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if roles == nil || clk == nil {
		return nil, fmt.Errorf("issuer requires a role lookup and a clock")
	}
	return &Issuer{
		cfg:        cfg,
		secret:     []byte(cfg.Secret),
		roles:      roles,
		clk:        clk,
		newTokenID: uuid.NewString,
	}, nil
}

// SetNewTokenIDForTest overrides jti generation for deterministic tests.
// It should not be used in production code.
func (i *Issuer) SetNewTokenIDForTest(fn func() string) {
	if fn != nil {
		i.newTokenID = fn
	}
}

// IssueToken signs a token for user. The only failure is a role lookup fault.
func (i *Issuer) IssueToken(ctx context.Context, user domain.UserIdentity) (domain.AccessToken, error) {
	roles, err := i.roles.GetRoles(ctx, user.ID)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("get roles: %w", err)
	}

	id := string(user.ID)
	claims := make([]domain.Claim, 0, 3+len(roles))
	claims = append(claims,
		domain.Claim{Type: domain.ClaimSubject, Value: id},
		domain.Claim{Type: domain.ClaimEmail, Value: user.Email},
		domain.Claim{Type: domain.ClaimNameIdentifier, Value: id},
	)
	roleValues := make(jwt.ClaimStrings, 0, len(roles))
	for _, r := range roles {
		claims = append(claims, domain.Claim{Type: domain.ClaimRole, Value: string(r)})
		roleValues = append(roleValues, string(r))
	}

	issuedAt := i.clk.Now().UTC().Truncate(jwt.TimePrecision)
	expiresAt := issuedAt.Add(i.cfg.TTL)

	payload := TokenClaims{
		Email:  user.Email,
		NameID: id,
		Roles:  roleValues,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        i.newTokenID(),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(i.secret)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("sign token: %w", err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(raw[strings.LastIndexByte(raw, '.')+1:])
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("decode signature: %w", err)
	}

	return domain.AccessToken{
		Claims:    claims,
		Issuer:    i.cfg.Issuer,
		Audience:  i.cfg.Audience,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Signature: sig,
		Raw:       raw,
	}, nil
}
