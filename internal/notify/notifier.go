// Package notify turns lifecycle events into transactional emails.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/email"
	"github.com/swapbnb/api/internal/events"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/metrics"
	"github.com/swapbnb/api/internal/user"
)

const channelEmail = "email"

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Mailer interface {
	SendNotification(ctx context.Context, n email.Notification) error
}

// Notifier is an events.Handler that emails every recipient of an event
type Notifier struct {
	users  UserLookup
	mailer Mailer
	logger *logging.Logger
}

func NewNotifier(users UserLookup, mailer Mailer, logger *logging.Logger) *Notifier {
	return &Notifier{users: users, mailer: mailer, logger: logger}
}

func (n *Notifier) Handle(ctx context.Context, event events.Event) error {
	ctx = logging.WithContext(ctx, n.logger.WithFields(map[string]any{
		"event_id":   event.ID,
		"event_type": event.Type,
	}))

	actorName := "Someone"
	if actor, err := n.users.GetByID(ctx, event.ActorID); err == nil {
		actorName = actor.DisplayName()
	}

	msg, ok := compose(event, actorName)
	if !ok {
		return nil
	}

	var errs []error
	for _, id := range event.RecipientIDs {
		recipient, err := n.users.GetByID(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to load recipient %s: %w", id, err))
			continue
		}

		note := msg
		note.To = recipient.Email
		err = n.mailer.SendNotification(ctx, note)
		metrics.Notification(channelEmail, err)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// compose renders the email for an event. Events nobody needs an email for return false.
func compose(event events.Event, actorName string) (email.Notification, bool) {
	exchangePath := "/exchanges/" + event.ExchangeID.String()

	switch event.Type {
	case events.ExchangeRequested:
		return email.Notification{
			Subject: "New exchange request",
			Heading: fmt.Sprintf("%s wants to swap homes with you", actorName),
			Paragraphs: []string{
				fmt.Sprintf("Requested dates: %s to %s.", event.Data["start_date"], event.Data["end_date"]),
				"Review the request and accept or decline it.",
			},
			Path:       exchangePath,
			ButtonText: "Review request",
		}, true
	case events.ExchangeAccepted:
		return email.Notification{
			Subject:    "Your exchange request was accepted",
			Heading:    fmt.Sprintf("%s accepted your exchange request", actorName),
			Paragraphs: []string{"Schedule a video call to get to know each other, or go straight to payment."},
			Path:       exchangePath,
			ButtonText: "View exchange",
		}, true
	case events.ExchangeRejected:
		return email.Notification{
			Subject:    "Your exchange request was declined",
			Heading:    fmt.Sprintf("%s declined your exchange request", actorName),
			Paragraphs: []string{"There are plenty of other homes to explore."},
			Path:       "/homes",
			ButtonText: "Browse homes",
		}, true
	case events.ExchangeCancelled:
		return email.Notification{
			Subject:    "An exchange was cancelled",
			Heading:    fmt.Sprintf("%s cancelled your exchange", actorName),
			Paragraphs: []string{"Any credits you paid for this exchange have been refunded."},
			Path:       exchangePath,
			ButtonText: "View exchange",
		}, true
	case events.VideoCallScheduled:
		return email.Notification{
			Subject: "Video call scheduled",
			Heading: fmt.Sprintf("%s scheduled a video call", actorName),
			Paragraphs: []string{
				fmt.Sprintf("The call starts at %s.", event.Data["scheduled_at"]),
				fmt.Sprintf("Join here: %s", event.Data["room_url"]),
			},
			Path:       exchangePath,
			ButtonText: "View exchange",
		}, true
	case events.ExchangePaid:
		return email.Notification{
			Subject:    "Your swap partner has paid",
			Heading:    fmt.Sprintf("%s paid their share of the exchange", actorName),
			Paragraphs: []string{"Pay your share to confirm the exchange."},
			Path:       exchangePath,
			ButtonText: "Pay now",
		}, true
	case events.ExchangeConfirmed:
		return email.Notification{
			Subject:    "Your exchange is confirmed",
			Heading:    "Both sides have paid. Your swap is confirmed!",
			Paragraphs: []string{"Use messages to agree on key handover and house rules."},
			Path:       exchangePath,
			ButtonText: "View exchange",
		}, true
	case events.MessageReceived:
		path := "/messages"
		if event.ExchangeID != uuid.Nil {
			path = exchangePath
		}
		return email.Notification{
			Subject:    fmt.Sprintf("New message from %s", actorName),
			Heading:    fmt.Sprintf("%s sent you a message", actorName),
			Paragraphs: []string{"Open SwapBnB to read and reply."},
			Path:       path,
			ButtonText: "Read message",
		}, true
	case events.IdentityUpdated:
		return identityNotice(event.Data["status"])
	}
	return email.Notification{}, false
}

func identityNotice(status string) (email.Notification, bool) {
	switch status {
	case user.IdentityVerified:
		return email.Notification{
			Subject:    "Your identity is verified",
			Heading:    "You're verified",
			Paragraphs: []string{"Your profile now shows a verified badge to other members."},
			Path:       "/profile",
		}, true
	case user.IdentityRequiresInput:
		return email.Notification{
			Subject:    "We couldn't verify your identity",
			Heading:    "Identity verification needs attention",
			Paragraphs: []string{"Please try again with a clear photo of your document and a selfie."},
			Path:       "/verification",
			ButtonText: "Try again",
		}, true
	}
	return email.Notification{}, false
}
