package message

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Message types
const (
	TypeText            = "text"
	TypeVideoCallInvite = "videocall_invite"
	TypeSystem          = "system"
)

const maxContentLength = 5000

var (
	ErrNotFound          = errors.New("message not found")
	ErrExchangeNotFound  = errors.New("exchange not found")
	ErrReceiverNotFound  = errors.New("receiver not found")
	ErrEmptyContent      = errors.New("message content is required")
	ErrContentTooLong    = errors.New("message content must be at most 5000 characters")
	ErrSelfMessage       = errors.New("cannot send a message to yourself")
	ErrReceiverNotInDeal = errors.New("receiver is not part of this exchange")
)

type Message struct {
	ID          uuid.UUID  `json:"id"`
	ExchangeID  *uuid.UUID `json:"exchange_id,omitempty"`
	SenderID    uuid.UUID  `json:"sender_id"`
	ReceiverID  uuid.UUID  `json:"receiver_id"`
	Content     string     `json:"content"`
	MessageType string     `json:"message_type"`
	Payload     *Payload   `json:"payload,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Payload is the structured part of non-text messages. Kind matches the
// message type and exactly one of the variant fields is set.
type Payload struct {
	Kind      string           `json:"kind"`
	VideoCall *VideoCallInvite `json:"videocall,omitempty"`
	System    *SystemNotice    `json:"system,omitempty"`
}

type VideoCallInvite struct {
	RoomURL     string    `json:"room_url"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// SystemNotice records a lifecycle change inside a conversation
type SystemNotice struct {
	Event  string `json:"event"`
	Status string `json:"status,omitempty"`
}

// NewVideoCallInvite builds the invite sent to the other participant when a call is scheduled
func NewVideoCallInvite(exchangeID, senderID, receiverID uuid.UUID, roomURL string, scheduledAt time.Time) *Message {
	return &Message{
		ExchangeID:  &exchangeID,
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     "Video call scheduled for " + scheduledAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST"),
		MessageType: TypeVideoCallInvite,
		Payload: &Payload{
			Kind:      TypeVideoCallInvite,
			VideoCall: &VideoCallInvite{RoomURL: roomURL, ScheduledAt: scheduledAt.UTC()},
		},
	}
}

func NewSystem(exchangeID, senderID, receiverID uuid.UUID, event, status, content string) *Message {
	return &Message{
		ExchangeID:  &exchangeID,
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     content,
		MessageType: TypeSystem,
		Payload: &Payload{
			Kind:   TypeSystem,
			System: &SystemNotice{Event: event, Status: status},
		},
	}
}

// SendInput is a text message from the caller
type SendInput struct {
	ReceiverID uuid.UUID
	ExchangeID *uuid.UUID
	Content    string
}
