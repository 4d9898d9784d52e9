package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/moda-commerce/moda-backend/pkg/enums"
)

// AccessTokenPayload is what the identity service knows when it mints a token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims carries the user id in "sub" and the role in "role".
type AccessTokenClaims struct {
	Role enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Principal returns the caller named by the token. A malformed subject yields
// a principal that fails Valid.
func (c *AccessTokenClaims) Principal() Principal {
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		userID = uuid.Nil
	}
	return Principal{UserID: userID, Role: c.Role}
}
