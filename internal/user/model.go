package user

import (
	"time"

	"github.com/google/uuid"
)

// Identity verification states, as reported by the identity provider
const (
	IdentityUnverified    = "unverified"
	IdentityPending       = "pending"
	IdentityVerified      = "verified"
	IdentityRequiresInput = "requires_input"
	IdentityCanceled      = "canceled"
)

type User struct {
	ID                      uuid.UUID  `json:"id"`
	Email                   string     `json:"email"`
	PasswordHash            string     `json:"-"` // Never expose password hash in JSON
	Name                    string     `json:"name"`
	Bio                     string     `json:"bio"`
	AvatarURL               string     `json:"avatar_url"`
	City                    string     `json:"city"`
	Country                 string     `json:"country"`
	EmailVerified           bool       `json:"email_verified"`
	EmailVerificationToken  *string    `json:"-"`
	EmailVerificationSentAt *time.Time `json:"-"`
	OAuthProvider           string     `json:"oauth_provider,omitempty"`
	OAuthProviderID         string     `json:"-"`
	Credits                 int        `json:"credits"`
	WelcomeCreditGranted    bool       `json:"welcome_credit_granted"`
	IdentityStatus          string     `json:"identity_status"`
	IdentitySessionID       string     `json:"-"`
	OnboardingStep          int        `json:"onboarding_step"`
	OnboardingCompleted     bool       `json:"onboarding_completed"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// PublicProfile is what other users can see
type PublicProfile struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Bio            string    `json:"bio"`
	AvatarURL      string    `json:"avatar_url"`
	City           string    `json:"city"`
	Country        string    `json:"country"`
	IdentityStatus string    `json:"identity_status"`
	MemberSince    time.Time `json:"member_since"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:             u.ID,
		Name:           u.Name,
		Bio:            u.Bio,
		AvatarURL:      u.AvatarURL,
		City:           u.City,
		Country:        u.Country,
		IdentityStatus: u.IdentityStatus,
		MemberSince:    u.CreatedAt,
	}
}

// DisplayName falls back to the email when no name is set
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// ProfileUpdate holds optional profile fields; nil means unchanged
type ProfileUpdate struct {
	Name    *string
	Bio     *string
	City    *string
	Country *string
}
