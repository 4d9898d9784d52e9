package auth

import (
	"github.com/google/uuid"

	"github.com/moda-commerce/moda-backend/pkg/enums"
)

// Principal is the caller a core operation acts on behalf of. It is passed
// explicitly into services; nothing reads it from request-scoped globals.
type Principal struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// SystemPrincipal is used by background jobs.
var SystemPrincipal = Principal{Role: enums.UserRoleSystem}

func (p Principal) IsAdmin() bool {
	return p.Role == enums.UserRoleAdmin
}

func (p Principal) IsSystem() bool {
	return p.Role == enums.UserRoleSystem
}

// Valid reports whether p identifies a user, or is the system principal.
func (p Principal) Valid() bool {
	if p.IsSystem() {
		return true
	}
	return p.UserID != uuid.Nil && p.Role.IsValid()
}
