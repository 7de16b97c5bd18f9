package domain

import "time"

// ClaimType identifies what a Claim asserts about the token subject.
type ClaimType string

const (
	ClaimSubject        ClaimType = "sub"
	ClaimEmail          ClaimType = "email"
	ClaimNameIdentifier ClaimType = "nameid"
	ClaimRole           ClaimType = "role"
)

// Claim is a typed key/value fact embedded in an access token.
type Claim struct {
	Type  ClaimType
	Value string
}

// AccessToken is an issued, signed bearer token. It is a value: nothing about it is stored.
type AccessToken struct {
	// Claims are ordered: Subject, Email, NameIdentifier, then one Role per assigned role.
	Claims    []Claim
	Issuer    string
	Audience  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Signature []byte

	// Raw is the compact serialization (header.payload.signature).
	Raw string
}

// ClaimValues returns the values of all claims of type t, in token order.
func (t AccessToken) ClaimValues(typ ClaimType) []string {
	var out []string
	for _, c := range t.Claims {
		if c.Type == typ {
			out = append(out, c.Value)
		}
	}
	return out
}
