package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                      uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email                   string     `bun:"email,notnull,unique"`
	PasswordHash            string     `bun:"password_hash,nullzero"`
	Name                    string     `bun:"name,notnull"`
	Bio                     string     `bun:"bio,notnull"`
	AvatarURL               string     `bun:"avatar_url,notnull"`
	City                    string     `bun:"city,notnull"`
	Country                 string     `bun:"country,notnull"`
	EmailVerified           bool       `bun:"email_verified,notnull"`
	EmailVerificationToken  *string    `bun:"email_verification_token"`
	EmailVerificationSentAt *time.Time `bun:"email_verification_sent_at"`
	OAuthProvider           *string    `bun:"oauth_provider"`
	OAuthProviderID         *string    `bun:"oauth_provider_id"`
	Credits                 int        `bun:"credits,notnull"`
	WelcomeCreditGranted    bool       `bun:"welcome_credit_granted,notnull"`
	IdentityStatus          string     `bun:"identity_status,notnull,default:'unverified'"`
	IdentitySessionID       *string    `bun:"identity_session_id"`
	OnboardingStep          int        `bun:"onboarding_step,notnull"`
	OnboardingCompleted     bool       `bun:"onboarding_completed,notnull"`
	CreatedAt               time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt               time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type Home struct {
	bun.BaseModel `bun:"table:homes,alias:h"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	OwnerID       uuid.UUID  `bun:"owner_id,type:uuid,notnull"`
	Title         string     `bun:"title,notnull"`
	Description   string     `bun:"description,notnull"`
	Address       string     `bun:"address,notnull"`
	City          string     `bun:"city,notnull"`
	Country       string     `bun:"country,notnull"`
	PropertyType  string     `bun:"property_type,notnull"`
	Bedrooms      int        `bun:"bedrooms,notnull"`
	Bathrooms     int        `bun:"bathrooms,notnull"`
	MaxGuests     int        `bun:"max_guests,notnull"`
	Amenities     []string   `bun:"amenities,array"`
	Images        []string   `bun:"images,array"`
	AvailableFrom *time.Time `bun:"available_from,type:date"`
	AvailableTo   *time.Time `bun:"available_to,type:date"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type Favorite struct {
	bun.BaseModel `bun:"table:favorites,alias:f"`

	UserID    uuid.UUID `bun:"user_id,pk,type:uuid"`
	HomeID    uuid.UUID `bun:"home_id,pk,type:uuid"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`

	Home *Home `bun:"rel:belongs-to,join:home_id=id"`
}

type Exchange struct {
	bun.BaseModel `bun:"table:exchanges,alias:e"`

	ID                      uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	RequesterID             uuid.UUID  `bun:"requester_id,type:uuid,notnull"`
	HostID                  uuid.UUID  `bun:"host_id,type:uuid,notnull"`
	RequesterHomeID         uuid.UUID  `bun:"requester_home_id,type:uuid,notnull"`
	HostHomeID              uuid.UUID  `bun:"host_home_id,type:uuid,notnull"`
	StartDate               time.Time  `bun:"start_date,type:date,notnull"`
	EndDate                 time.Time  `bun:"end_date,type:date,notnull"`
	Message                 string     `bun:"message,notnull"`
	Status                  string     `bun:"status,notnull"`
	RequesterCreditsPaid    bool       `bun:"requester_credits_paid,notnull"`
	HostCreditsPaid         bool       `bun:"host_credits_paid,notnull"`
	RequesterPaymentSession *string    `bun:"requester_payment_session_id"`
	HostPaymentSession      *string    `bun:"host_payment_session_id"`
	RequesterIdentityStatus string     `bun:"requester_identity_status,notnull"`
	HostIdentityStatus      string     `bun:"host_identity_status,notnull"`
	VideocallScheduledAt    *time.Time `bun:"videocall_scheduled_at"`
	VideocallRoomURL        *string    `bun:"videocall_room_url"`
	VideocallCompletedAt    *time.Time `bun:"videocall_completed_at"`
	AcceptedAt              *time.Time `bun:"accepted_at"`
	ConfirmedAt             *time.Time `bun:"confirmed_at"`
	RejectedAt              *time.Time `bun:"rejected_at"`
	CancelledAt             *time.Time `bun:"cancelled_at"`
	CreatedAt               time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt               time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type Message struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID          uuid.UUID       `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ExchangeID  *uuid.UUID      `bun:"exchange_id,type:uuid"`
	SenderID    uuid.UUID       `bun:"sender_id,type:uuid,notnull"`
	ReceiverID  uuid.UUID       `bun:"receiver_id,type:uuid,notnull"`
	Content     string          `bun:"content,notnull"`
	MessageType string          `bun:"message_type,notnull"`
	Payload     json.RawMessage `bun:"payload,type:jsonb,nullzero"`
	ReadAt      *time.Time      `bun:"read_at"`
	CreatedAt   time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type CreditTransaction struct {
	bun.BaseModel `bun:"table:credits_transactions,alias:ct"`

	ID                uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID            uuid.UUID  `bun:"user_id,type:uuid,notnull"`
	ExchangeID        *uuid.UUID `bun:"exchange_id,type:uuid"`
	Amount            int        `bun:"amount,notnull"`
	TransactionType   string     `bun:"transaction_type,notnull"`
	ProviderSessionID *string    `bun:"provider_session_id"`
	Description       string     `bun:"description,notnull"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type VerificationLog struct {
	bun.BaseModel `bun:"table:verification_logs,alias:vl"`

	ID                uuid.UUID       `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID            uuid.UUID       `bun:"user_id,type:uuid,notnull"`
	ExchangeID        *uuid.UUID      `bun:"exchange_id,type:uuid"`
	ProviderSessionID string          `bun:"provider_session_id,notnull"`
	EventType         string          `bun:"event_type,notnull"`
	Status            string          `bun:"status,notnull"`
	Payload           json.RawMessage `bun:"payload,type:jsonb,nullzero"`
	CreatedAt         time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type PaymentLog struct {
	bun.BaseModel `bun:"table:payment_logs,alias:pl"`

	ID               uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID           *uuid.UUID `bun:"user_id,type:uuid"`
	ExchangeID       *uuid.UUID `bun:"exchange_id,type:uuid"`
	ProviderEventID  string     `bun:"provider_event_id,notnull,unique"`
	ProviderObjectID string     `bun:"provider_object_id,notnull"`
	EventType        string     `bun:"event_type,notnull"`
	AmountCents      int64      `bun:"amount_cents,notnull"`
	Currency         string     `bun:"currency,notnull"`
	Status           string     `bun:"status,notnull"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
