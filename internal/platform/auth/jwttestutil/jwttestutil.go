package jwttestutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Params describes a token to mint. Zero-valued fields are left out of the payload.
type Params struct {
	Issuer   string
	Audience string
	Subject  string
	Email    string
	Roles    []string

	IssuedAt time.Time
	TTL      time.Duration
	// OmitExpiry leaves exp out regardless of TTL.
	OmitExpiry bool
}

// MintHS256 signs p with secret.
func MintHS256(secret string, p Params) (string, error) {
	return Mint(jwt.SigningMethodHS256, []byte(secret), p)
}

// Mint signs p with an arbitrary method and key so tests can exercise algorithm checks.
func Mint(method jwt.SigningMethod, key any, p Params) (string, error) {
	c := jwt.MapClaims{}
	if p.Issuer != "" {
		c["iss"] = p.Issuer
	}
	if p.Audience != "" {
		c["aud"] = p.Audience
	}
	if p.Subject != "" {
		c["sub"] = p.Subject
	}
	if p.Email != "" {
		c["email"] = p.Email
	}
	if len(p.Roles) > 0 {
		c["role"] = p.Roles
	}
	if !p.IssuedAt.IsZero() {
		c["iat"] = p.IssuedAt.Unix()
		c["nbf"] = p.IssuedAt.Unix()
		if !p.OmitExpiry {
			c["exp"] = p.IssuedAt.Add(p.TTL).Unix()
		}
	}
	return jwt.NewWithClaims(method, c).SignedString(key)
}
