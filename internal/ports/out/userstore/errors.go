package userstore

import "errors"

var (
	// ErrNotFound indicates no user exists for the requested email or id.
	ErrNotFound = errors.New("user not found")

	// ErrAlreadyExists indicates a user already exists with the provided email or id.
	ErrAlreadyExists = errors.New("user already exists")

	// ErrRoleNotFound indicates the requested role has not been registered.
	ErrRoleNotFound = errors.New("role not found")

	// ErrRoleAlreadyExists indicates a role with the same (case-insensitive) name exists.
	ErrRoleAlreadyExists = errors.New("role already exists")
)
