package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServices(t *testing.T) map[string]TokenService {
	t.Helper()
	jwtSvc, err := NewJWTService([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	pasetoSvc, err := NewPasetoService([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return map[string]TokenService{"jwt": jwtSvc, "paseto": pasetoSvc}
}

func TestTokenServices_RoundTrip(t *testing.T) {
	for name, svc := range tokenServices(t) {
		t.Run(name, func(t *testing.T) {
			userID := uuid.New()
			token, err := svc.CreateToken(userID, "ana@example.com", time.Minute)
			require.NoError(t, err)

			claims, err := svc.VerifyToken(token)
			require.NoError(t, err)
			assert.Equal(t, userID.String(), claims.UserID)
			assert.Equal(t, "ana@example.com", claims.Email)
			assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt, 2*time.Second)
		})
	}
}

func TestTokenServices_Expired(t *testing.T) {
	for name, svc := range tokenServices(t) {
		t.Run(name, func(t *testing.T) {
			token, err := svc.CreateToken(uuid.New(), "ana@example.com", -time.Minute)
			require.NoError(t, err)

			_, err = svc.VerifyToken(token)
			assert.ErrorIs(t, err, ErrExpiredToken)
		})
	}
}

func TestTokenServices_Tampered(t *testing.T) {
	for name, svc := range tokenServices(t) {
		t.Run(name, func(t *testing.T) {
			token, err := svc.CreateToken(uuid.New(), "ana@example.com", time.Minute)
			require.NoError(t, err)

			_, err = svc.VerifyToken(token[:len(token)-4] + "AAAA")
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTService_RejectsOtherSecret(t *testing.T) {
	a, err := NewJWTService([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	b, err := NewJWTService([]byte("fedcba9876543210fedcba9876543210"))
	require.NoError(t, err)

	token, err := a.CreateToken(uuid.New(), "ana@example.com", time.Minute)
	require.NoError(t, err)

	_, err = b.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenService_SelectsImplementation(t *testing.T) {
	svc, err := NewTokenService("paseto", nil, []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	assert.IsType(t, &PasetoService{}, svc)

	svc, err = NewTokenService("jwt", []byte("0123456789abcdef0123456789abcdef"), nil)
	require.NoError(t, err)
	assert.IsType(t, &JWTService{}, svc)
}
