package exchange

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Exchange statuses
const (
	StatusPending            = "pending"
	StatusAccepted           = "accepted"
	StatusVideoCallScheduled = "videocall_scheduled"
	StatusVideoCallCompleted = "videocall_completed"
	StatusConfirmed          = "confirmed"
	StatusRejected           = "rejected"
	StatusCancelled          = "cancelled"
)

// List roles
const (
	RoleAll       = "all"
	RoleRequester = "requester"
	RoleHost      = "host"
)

var (
	ErrNotFound          = errors.New("exchange not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrHostOnly          = errors.New("only the host can do this")
	ErrAlreadyPaid       = errors.New("credits already paid for this exchange")
	ErrNotPayable        = errors.New("exchange is not awaiting payment")
	ErrInvalidDates      = errors.New("end date must be after start date and start date cannot be in the past")
	ErrOwnHome           = errors.New("cannot request an exchange for your own home")
	ErrHomeNotFound      = errors.New("home not found")
	ErrNotHomeOwner      = errors.New("requester home must belong to you")
	ErrInvalidSchedule   = errors.New("video call must be scheduled in the future")
	ErrInvalidRole       = errors.New("role must be one of requester, host, all")
	ErrInvalidStatus     = errors.New("unknown exchange status")
)

type Exchange struct {
	ID                      uuid.UUID  `json:"id"`
	RequesterID             uuid.UUID  `json:"requester_id"`
	HostID                  uuid.UUID  `json:"host_id"`
	RequesterHomeID         uuid.UUID  `json:"requester_home_id"`
	HostHomeID              uuid.UUID  `json:"host_home_id"`
	StartDate               time.Time  `json:"start_date"`
	EndDate                 time.Time  `json:"end_date"`
	Message                 string     `json:"message"`
	Status                  string     `json:"status"`
	RequesterCreditsPaid    bool       `json:"requester_credits_paid"`
	HostCreditsPaid         bool       `json:"host_credits_paid"`
	RequesterPaymentSession *string    `json:"-"`
	HostPaymentSession      *string    `json:"-"`
	RequesterIdentityStatus string     `json:"requester_identity_status"`
	HostIdentityStatus      string     `json:"host_identity_status"`
	VideocallScheduledAt    *time.Time `json:"videocall_scheduled_at,omitempty"`
	VideocallRoomURL        *string    `json:"videocall_room_url,omitempty"`
	VideocallCompletedAt    *time.Time `json:"videocall_completed_at,omitempty"`
	AcceptedAt              *time.Time `json:"accepted_at,omitempty"`
	ConfirmedAt             *time.Time `json:"confirmed_at,omitempty"`
	RejectedAt              *time.Time `json:"rejected_at,omitempty"`
	CancelledAt             *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

func (e *Exchange) IsParticipant(userID uuid.UUID) bool {
	return userID == e.RequesterID || userID == e.HostID
}

// OtherParty returns the participant that is not userID
func (e *Exchange) OtherParty(userID uuid.UUID) uuid.UUID {
	if userID == e.RequesterID {
		return e.HostID
	}
	return e.RequesterID
}

func (e *Exchange) PaidBy(userID uuid.UUID) bool {
	if userID == e.RequesterID {
		return e.RequesterCreditsPaid
	}
	return e.HostCreditsPaid
}

// markPaid flags userID's share as paid. sessionID names the checkout that
// paid it and is empty for credit payments.
func (e *Exchange) markPaid(userID uuid.UUID, sessionID string) {
	var session *string
	if sessionID != "" {
		session = &sessionID
	}
	if userID == e.RequesterID {
		e.RequesterCreditsPaid = true
		e.RequesterPaymentSession = session
	} else {
		e.HostCreditsPaid = true
		e.HostPaymentSession = session
	}
}

// paidWithSession reports whether userID's share was paid by checkout sessionID
func (e *Exchange) paidWithSession(userID uuid.UUID, sessionID string) bool {
	if sessionID == "" || !e.PaidBy(userID) {
		return false
	}
	session := e.HostPaymentSession
	if userID == e.RequesterID {
		session = e.RequesterPaymentSession
	}
	return session != nil && *session == sessionID
}

func (e *Exchange) BothPaid() bool {
	return e.RequesterCreditsPaid && e.HostCreditsPaid
}

// CreateInput is a swap request from the requester
type CreateInput struct {
	RequesterHomeID uuid.UUID
	HostHomeID      uuid.UUID
	StartDate       time.Time
	EndDate         time.Time
	Message         string
}

type ListFilter struct {
	Role   string
	Status string
}

// PaymentResult reports a settled share and whether it confirmed the exchange
type PaymentResult struct {
	Exchange  *Exchange `json:"exchange"`
	Confirmed bool      `json:"confirmed"`
	Balance   *int      `json:"balance,omitempty"`
}
