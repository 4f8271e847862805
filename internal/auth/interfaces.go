package auth

import (
	"time"

	"github.com/google/uuid"
)

// TokenService defines the interface for token creation and validation.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
type TokenService interface {
	CreateToken(userID uuid.UUID, email string, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// NewTokenService picks the implementation configured by tokenType ("jwt" or "paseto")
func NewTokenService(tokenType string, jwtSecret, pasetoKey []byte) (TokenService, error) {
	if tokenType == "paseto" {
		return NewPasetoService(pasetoKey)
	}
	return NewJWTService(jwtSecret)
}
