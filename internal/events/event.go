// Package events carries exchange lifecycle notifications from the API to the notifier,
// over Kafka when brokers are configured and in-process otherwise.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ExchangeRequested  Type = "exchange.requested"
	ExchangeAccepted   Type = "exchange.accepted"
	ExchangeRejected   Type = "exchange.rejected"
	ExchangeCancelled  Type = "exchange.cancelled"
	VideoCallScheduled Type = "exchange.videocall_scheduled"
	VideoCallCompleted Type = "exchange.videocall_completed"
	ExchangePaid       Type = "exchange.paid"
	ExchangeConfirmed  Type = "exchange.confirmed"
	MessageReceived    Type = "message.received"
	IdentityUpdated    Type = "identity.updated"
)

// Event describes something that happened to an exchange or a user.
// RecipientIDs lists who should be told about it.
type Event struct {
	ID           uuid.UUID         `json:"id"`
	Type         Type              `json:"type"`
	ExchangeID   uuid.UUID         `json:"exchange_id,omitempty"`
	ActorID      uuid.UUID         `json:"actor_id"`
	RecipientIDs []uuid.UUID       `json:"recipient_ids"`
	Data         map[string]string `json:"data,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

// New builds an event with a fresh ID and timestamp
func New(t Type, exchangeID, actorID uuid.UUID, recipients ...uuid.UUID) Event {
	return Event{
		ID:           uuid.New(),
		Type:         t,
		ExchangeID:   exchangeID,
		ActorID:      actorID,
		RecipientIDs: recipients,
		Data:         map[string]string{},
		OccurredAt:   time.Now().UTC(),
	}
}

// With sets a data attribute and returns the event
func (e Event) With(key, value string) Event {
	if e.Data == nil {
		e.Data = map[string]string{}
	}
	e.Data[key] = value
	return e
}

// Publisher emits events. Publishing is best effort: callers log failures and move on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Handler consumes events
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}
