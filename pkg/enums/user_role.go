package enums

import "slices"

// UserRole is carried in access tokens.
type UserRole string

const (
	UserRoleCustomer UserRole = "CUSTOMER"
	UserRoleAdmin    UserRole = "ADMIN"
	UserRoleSystem   UserRole = "SYSTEM"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleAdmin,
	UserRoleSystem,
}

func (u UserRole) String() string {
	return string(u)
}

func (u UserRole) IsValid() bool { return slices.Contains(validUserRoles, u) }

func ParseUserRole(value string) (UserRole, error) {
	return parseEnum(validUserRoles, value, "user role")
}
