package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/cristalhq/jwt/v4"
	"github.com/google/uuid"
)

const jwtIssuer = "swapbnb"

// jwtClaims is the JWT payload; the subject is the user ID
type jwtClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// JWTService handles HS256 JWT creation and validation
type JWTService struct {
	signer   jwt.Signer
	verifier jwt.Verifier
}

func NewJWTService(secret []byte) (*JWTService, error) {
	signer, err := jwt.NewSignerHS(jwt.HS256, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT signer: %w", err)
	}
	verifier, err := jwt.NewVerifierHS(jwt.HS256, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT verifier: %w", err)
	}
	return &JWTService{signer: signer, verifier: verifier}, nil
}

// CreateToken generates a signed JWT for the user valid for duration
func (s *JWTService) CreateToken(userID uuid.UUID, email string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    jwtIssuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
		Email: email,
	}

	token, err := jwt.NewBuilder(s.signer).Build(claims)
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}
	return token.String(), nil
}

// VerifyToken checks the signature and expiry and returns the claims
func (s *JWTService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	var claims jwtClaims
	if err := jwt.ParseClaims([]byte(tokenStr), s.verifier, &claims); err != nil {
		return nil, ErrInvalidToken
	}

	if !claims.IsIssuer(jwtIssuer) || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	if !claims.IsValidAt(time.Now()) {
		if claims.ExpiresAt.Before(time.Now()) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	return &TokenClaims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
