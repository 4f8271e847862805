package message

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/events"
	"github.com/swapbnb/api/internal/logging"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Store is the persistence used by Service
type Store interface {
	Insert(ctx context.Context, m *Message) error
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	ExchangeParties(ctx context.Context, exchangeID uuid.UUID) (requesterID, hostID uuid.UUID, err error)
	Conversation(ctx context.Context, a, b uuid.UUID, limit, offset int) ([]Message, error)
	ByExchange(ctx context.Context, exchangeID uuid.UUID, limit, offset int) ([]Message, error)
	MarkRead(ctx context.Context, messageID, receiverID uuid.UUID) (*Message, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

type Service struct {
	store     Store
	publisher events.Publisher
}

func NewService(store Store, publisher events.Publisher) *Service {
	return &Service{store: store, publisher: publisher}
}

// Send delivers a text message. When an exchange is given, the sender and
// the receiver must be its two participants.
func (s *Service) Send(ctx context.Context, senderID uuid.UUID, in SendInput) (*Message, error) {
	content, err := normalizeContent(in.Content)
	if err != nil {
		return nil, err
	}
	if in.ReceiverID == senderID {
		return nil, ErrSelfMessage
	}

	if in.ExchangeID != nil {
		other, err := s.otherParty(ctx, *in.ExchangeID, senderID)
		if err != nil {
			return nil, err
		}
		if other != in.ReceiverID {
			return nil, ErrReceiverNotInDeal
		}
	} else {
		exists, err := s.store.UserExists(ctx, in.ReceiverID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrReceiverNotFound
		}
	}

	return s.insert(ctx, &Message{
		ExchangeID:  in.ExchangeID,
		SenderID:    senderID,
		ReceiverID:  in.ReceiverID,
		Content:     content,
		MessageType: TypeText,
	})
}

// SendInExchange posts a text message to the other participant of an exchange
func (s *Service) SendInExchange(ctx context.Context, senderID, exchangeID uuid.UUID, content string) (*Message, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	other, err := s.otherParty(ctx, exchangeID, senderID)
	if err != nil {
		return nil, err
	}

	return s.insert(ctx, &Message{
		ExchangeID:  &exchangeID,
		SenderID:    senderID,
		ReceiverID:  other,
		Content:     content,
		MessageType: TypeText,
	})
}

func (s *Service) Conversation(ctx context.Context, userID, withID uuid.UUID, limit, offset int) ([]Message, error) {
	limit, offset = page(limit, offset)
	return s.store.Conversation(ctx, userID, withID, limit, offset)
}

// ExchangeThread lists an exchange's messages; non-participants get ErrExchangeNotFound
func (s *Service) ExchangeThread(ctx context.Context, userID, exchangeID uuid.UUID, limit, offset int) ([]Message, error) {
	if _, err := s.otherParty(ctx, exchangeID, userID); err != nil {
		return nil, err
	}
	limit, offset = page(limit, offset)
	return s.store.ByExchange(ctx, exchangeID, limit, offset)
}

func (s *Service) MarkRead(ctx context.Context, userID, messageID uuid.UUID) (*Message, error) {
	return s.store.MarkRead(ctx, messageID, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.UnreadCount(ctx, userID)
}

func (s *Service) otherParty(ctx context.Context, exchangeID, userID uuid.UUID) (uuid.UUID, error) {
	requesterID, hostID, err := s.store.ExchangeParties(ctx, exchangeID)
	if err != nil {
		return uuid.Nil, err
	}
	switch userID {
	case requesterID:
		return hostID, nil
	case hostID:
		return requesterID, nil
	default:
		return uuid.Nil, ErrExchangeNotFound
	}
}

func (s *Service) insert(ctx context.Context, m *Message) (*Message, error) {
	if err := s.store.Insert(ctx, m); err != nil {
		return nil, err
	}

	var exchangeID uuid.UUID
	if m.ExchangeID != nil {
		exchangeID = *m.ExchangeID
	}
	event := events.New(events.MessageReceived, exchangeID, m.SenderID, m.ReceiverID).
		With("message_id", m.ID.String())
	if err := s.publisher.Publish(ctx, event); err != nil {
		logging.GetLoggerFromContext(ctx).Warn("failed to publish message event", "message_id", m.ID, "error", err)
	}
	return m, nil
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return "", ErrContentTooLong
	}
	return content, nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
