package auth

import (
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID       uuid.UUID
	Role         enums.UserRole
	RestaurantID *uuid.UUID
}

// AccessTokenClaims represents the typed JWT issued to clients. Identity is
// managed by an external auth collaborator; this package only mints tokens
// for tests/tools and validates the ones presented to the API.
type AccessTokenClaims struct {
	UserID       uuid.UUID      `json:"user_id"`
	Role         enums.UserRole `json:"role"`
	RestaurantID *uuid.UUID     `json:"restaurant_id,omitempty"`
	jwt.RegisteredClaims
}
