package users

import "github.com/transitops/user-service/internal/domain"

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     domain.RoleName
}
