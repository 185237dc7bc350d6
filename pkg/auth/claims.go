package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/herbstore-backend/pkg/enums"
)

// Audience is stamped on every back office token and required on parse.
const Audience = "herbstore-admin"

// AccessTokenPayload is what the caller knows when minting a token.
type AccessTokenPayload struct {
	Subject string
	Role    enums.Role
	// JTI is generated when empty. It keys the Redis session.
	JTI string
}

// AccessTokenClaims is the typed body of a back office JWT.
type AccessTokenClaims struct {
	Role enums.Role `json:"role"`
	jwt.RegisteredClaims
}
