package domain

// UserID is the opaque identifier of a user record. It doubles as the token subject.
type UserID string

// RoleName names a role a user can be assigned to.
// The set is open: the well-known names below are seeded, others may be registered at runtime.
type RoleName string

const (
	RoleAdmin      RoleName = "Admin"
	RoleDriver     RoleName = "Driver"
	RoleDispatcher RoleName = "Dispatcher"
	RoleCustomer   RoleName = "Customer"
)

// DefaultRoles are the roles every deployment starts with (Admin is created by the admin bootstrap).
func DefaultRoles() []RoleName {
	return []RoleName{RoleDispatcher, RoleDriver, RoleCustomer}
}
