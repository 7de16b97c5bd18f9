package domain

import "log/slog"

// UserIdentity is the read-only view of a stored user that the authentication core works with.
type UserIdentity struct {
	ID           UserID
	Email        string
	PasswordHash string
	FullName     string
	Roles        []RoleName
}

// Credentials is a submitted email/password pair. It is never persisted.
type Credentials struct {
	Email    string
	Password string
}

// String keeps the password out of fmt output.
func (c Credentials) String() string {
	return "Credentials{Email: " + c.Email + ", Password: [redacted]}"
}

// LogValue keeps both fields out of structured logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("credentials", "[redacted]"))
}
