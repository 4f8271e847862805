package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/user"
)

// RefreshTokenRepository defines the interface for refresh token storage
type RefreshTokenRepository interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
}

// PasswordResetStore keeps single-use password reset tokens
type PasswordResetStore interface {
	StorePasswordResetToken(ctx context.Context, userID uuid.UUID, token string) error
	ConsumePasswordResetToken(ctx context.Context, token string) (uuid.UUID, error)
}

// UserStore is the subset of the user repository the auth flows need
type UserStore interface {
	Create(ctx context.Context, email, passwordHash, verificationToken string) (*user.User, error)
	CreateOAuth(ctx context.Context, email, name, avatarURL, provider, providerID string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByOAuth(ctx context.Context, provider, providerID string) (*user.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*user.User, error)
	CheckIfTokenAlreadyUsed(ctx context.Context, token string) (bool, error)
	MarkEmailAsVerified(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	UpdateVerificationToken(ctx context.Context, userID uuid.UUID, token string) error
	LinkOAuth(ctx context.Context, userID uuid.UUID, provider, providerID string) error
}
