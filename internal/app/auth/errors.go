package auth

import "errors"

// ErrInvalidCredentials is the single failure reported for a bad login, whatever the cause:
// unknown email, wrong password, locked out account, or empty input.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}
