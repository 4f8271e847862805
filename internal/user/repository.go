package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/swapbnb/api/internal/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new password-based user
func (r *Repository) Create(ctx context.Context, email, passwordHash, verificationToken string) (*User, error) {
	now := time.Now()
	dbUser := &database.User{
		Email:                   email,
		PasswordHash:            passwordHash,
		EmailVerificationToken:  &verificationToken,
		EmailVerificationSentAt: &now,
		IdentityStatus:          IdentityUnverified,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// CreateOAuth inserts a user authenticated by an external provider. The email is trusted as verified.
func (r *Repository) CreateOAuth(ctx context.Context, email, name, avatarURL, provider, providerID string) (*User, error) {
	dbUser := &database.User{
		Email:           email,
		Name:            name,
		AvatarURL:       avatarURL,
		EmailVerified:   true,
		OAuthProvider:   &provider,
		OAuthProviderID: &providerID,
		IdentityStatus:  IdentityUnverified,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create oauth user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "get user by email", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("email = ?", email)
	})
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, "get user by id", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
}

// GetByOAuth retrieves a user by provider identity
func (r *Repository) GetByOAuth(ctx context.Context, provider, providerID string) (*User, error) {
	return r.getOne(ctx, "get user by oauth identity", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("oauth_provider = ?", provider).Where("oauth_provider_id = ?", providerID)
	})
}

// GetByIdentitySession retrieves the user that owns an identity verification session
func (r *Repository) GetByIdentitySession(ctx context.Context, sessionID string) (*User, error) {
	return r.getOne(ctx, "get user by identity session", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("identity_session_id = ?", sessionID)
	})
}

// GetByVerificationToken retrieves an unverified user by verification token
func (r *Repository) GetByVerificationToken(ctx context.Context, token string) (*User, error) {
	return r.getOne(ctx, "get user by verification token", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("email_verification_token = ?", token).Where("email_verified = ?", false)
	})
}

func (r *Repository) getOne(ctx context.Context, op string, where func(*bun.SelectQuery) *bun.SelectQuery) (*User, error) {
	dbUser := new(database.User)
	err := where(r.db.NewSelect().Model(dbUser)).Scan(ctx)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return mapDBUserToModel(dbUser), nil
}

// CheckIfTokenAlreadyUsed checks if a verification token was already used (email verified)
func (r *Repository) CheckIfTokenAlreadyUsed(ctx context.Context, token string) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*database.User)(nil)).
		Where("email_verification_token = ?", token).
		Where("email_verified = ?", true).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check if token was used: %w", err)
	}

	return count > 0, nil
}

// MarkEmailAsVerified marks a user's email as verified. The token is kept so a
// second click can be told apart from an invalid link.
func (r *Repository) MarkEmailAsVerified(ctx context.Context, userID uuid.UUID) error {
	return r.update(ctx, "mark email as verified", userID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("email_verified = ?", true).Set("email_verification_sent_at = ?", nil)
	})
}

// UpdatePassword updates a user's password hash
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	return r.update(ctx, "update password", userID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("password_hash = ?", passwordHash)
	})
}

// UpdateVerificationToken regenerates verification token for resend
func (r *Repository) UpdateVerificationToken(ctx context.Context, userID uuid.UUID, token string) error {
	return r.update(ctx, "update verification token", userID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("email_verification_token = ?", token).
			Set("email_verification_sent_at = ?", time.Now()).
			Where("email_verified = ?", false)
	})
}

// LinkOAuth attaches a provider identity to an existing account
func (r *Repository) LinkOAuth(ctx context.Context, userID uuid.UUID, provider, providerID string) error {
	return r.update(ctx, "link oauth identity", userID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("oauth_provider = ?", provider).
			Set("oauth_provider_id = ?", providerID).
			Set("email_verified = ?", true)
	})
}

// UpdateProfile applies the non-nil fields of upd
func (r *Repository) UpdateProfile(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*User, error) {
	dbUser := new(database.User)
	q := r.db.NewUpdate().
		Model(dbUser).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Returning("*")

	if upd.Name != nil {
		q = q.Set("name = ?", *upd.Name)
	}
	if upd.Bio != nil {
		q = q.Set("bio = ?", *upd.Bio)
	}
	if upd.City != nil {
		q = q.Set("city = ?", *upd.City)
	}
	if upd.Country != nil {
		q = q.Set("country = ?", *upd.Country)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	return mapDBUserToModel(dbUser), nil
}

// UpdateOnboarding records onboarding wizard progress
func (r *Repository) UpdateOnboarding(ctx context.Context, userID uuid.UUID, step int, completed bool) error {
	return r.update(ctx, "update onboarding", userID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("onboarding_step = ?", step).Set("onboarding_completed = ?", completed)
	})
}

// UpdateAvatar stores the public URL of the user's avatar
func (r *Repository) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) error {
	return r.update(ctx, "update avatar", userID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("avatar_url = ?", avatarURL)
	})
}

// StartIdentitySession records a new verification session and moves the user to pending
func (r *Repository) StartIdentitySession(ctx context.Context, userID uuid.UUID, sessionID string) error {
	return r.update(ctx, "start identity session", userID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("identity_session_id = ?", sessionID).Set("identity_status = ?", IdentityPending)
	})
}

// SetIdentityStatus applies an outcome of verification session sessionID.
// It reports false when sessionID is no longer the user's current session or
// the user is already verified.
func (r *Repository) SetIdentityStatus(ctx context.Context, userID uuid.UUID, sessionID, status string) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("identity_status = ?", status).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Where("identity_session_id = ?", sessionID).
		Where("identity_status <> ?", IdentityVerified).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to set identity status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *Repository) update(ctx context.Context, op string, userID uuid.UUID, set func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("updated_at = NOW()").
		Where("id = ?", userID)

	result, err := set(q).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	u := &User{
		ID:                      dbu.ID,
		Email:                   dbu.Email,
		PasswordHash:            dbu.PasswordHash,
		Name:                    dbu.Name,
		Bio:                     dbu.Bio,
		AvatarURL:               dbu.AvatarURL,
		City:                    dbu.City,
		Country:                 dbu.Country,
		EmailVerified:           dbu.EmailVerified,
		EmailVerificationToken:  dbu.EmailVerificationToken,
		EmailVerificationSentAt: dbu.EmailVerificationSentAt,
		Credits:                 dbu.Credits,
		WelcomeCreditGranted:    dbu.WelcomeCreditGranted,
		IdentityStatus:          dbu.IdentityStatus,
		OnboardingStep:          dbu.OnboardingStep,
		OnboardingCompleted:     dbu.OnboardingCompleted,
		CreatedAt:               dbu.CreatedAt,
		UpdatedAt:               dbu.UpdatedAt,
	}
	if dbu.OAuthProvider != nil {
		u.OAuthProvider = *dbu.OAuthProvider
	}
	if dbu.OAuthProviderID != nil {
		u.OAuthProviderID = *dbu.OAuthProviderID
	}
	if dbu.IdentitySessionID != nil {
		u.IdentitySessionID = *dbu.IdentitySessionID
	}
	return u
}
