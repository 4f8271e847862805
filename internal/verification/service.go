// Package verification runs identity checks through the payment provider's
// identity product and applies their outcomes.
package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/events"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/payment"
	"github.com/swapbnb/api/internal/user"
)

var (
	ErrAlreadyVerified = errors.New("identity already verified")
	ErrUnknownSession  = errors.New("no user for verification session")
)

// UserStore is the part of the user repository used here
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByIdentitySession(ctx context.Context, sessionID string) (*user.User, error)
	StartIdentitySession(ctx context.Context, userID uuid.UUID, sessionID string) error
	SetIdentityStatus(ctx context.Context, userID uuid.UUID, sessionID, status string) (bool, error)
}

// ExchangeSyncer copies identity status onto open exchanges
type ExchangeSyncer interface {
	SyncIdentityStatus(ctx context.Context, userID uuid.UUID, status string) (int, error)
}

type LogStore interface {
	InsertLog(ctx context.Context, l Log) error
}

// Log is one verification_logs row
type Log struct {
	UserID            uuid.UUID
	ExchangeID        *uuid.UUID
	ProviderSessionID string
	EventType         string
	Status            string
	Payload           json.RawMessage
}

// Result is a verification outcome delivered by the provider
type Result struct {
	SessionID  string
	UserID     uuid.UUID // zero when the session carried no metadata
	ExchangeID *uuid.UUID
	EventType  string
	Status     string
	Payload    json.RawMessage
}

type StatusResponse struct {
	Status string `json:"identity_status"`
}

type Service struct {
	users     UserStore
	exchanges ExchangeSyncer
	logs      LogStore
	gateway   payment.Gateway
	publisher events.Publisher
	returnURL string
}

func NewService(users UserStore, exchanges ExchangeSyncer, logs LogStore, gateway payment.Gateway, publisher events.Publisher, returnURL string) *Service {
	return &Service{
		users:     users,
		exchanges: exchanges,
		logs:      logs,
		gateway:   gateway,
		publisher: publisher,
		returnURL: returnURL,
	}
}

// StartSession opens a document and selfie check for the user
func (s *Service) StartSession(ctx context.Context, userID uuid.UUID, email string, exchangeID *uuid.UUID) (*payment.IdentitySession, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.IdentityStatus == user.IdentityVerified {
		return nil, ErrAlreadyVerified
	}

	session, err := s.gateway.CreateIdentitySession(ctx, payment.IdentityRequest{
		UserID:     userID,
		ExchangeID: exchangeID,
		Email:      email,
		ReturnURL:  s.returnURL,
	})
	if err != nil {
		return nil, err
	}

	if err := s.users.StartIdentitySession(ctx, userID, session.ID); err != nil {
		return nil, fmt.Errorf("failed to record identity session: %w", err)
	}
	if _, err := s.exchanges.SyncIdentityStatus(ctx, userID, user.IdentityPending); err != nil {
		logging.GetLoggerFromContext(ctx).Warn("failed to sync pending identity status", "error", err)
	}
	return session, nil
}

func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*StatusResponse, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &StatusResponse{Status: u.IdentityStatus}, nil
}

// ApplyResult records a provider outcome on the user, their open exchanges
// and the verification log. Outcomes of a superseded session, or any outcome
// after the user is verified, are only logged.
func (s *Service) ApplyResult(ctx context.Context, res Result) error {
	logger := logging.GetLoggerFromContext(ctx)

	u, err := s.resultUser(ctx, res)
	if err != nil {
		return err
	}

	applied := false
	if u.IdentitySessionID == res.SessionID && u.IdentityStatus != user.IdentityVerified {
		applied, err = s.users.SetIdentityStatus(ctx, u.ID, res.SessionID, res.Status)
		if err != nil {
			return fmt.Errorf("failed to set identity status: %w", err)
		}
	}

	n := 0
	if applied {
		n, err = s.exchanges.SyncIdentityStatus(ctx, u.ID, res.Status)
		if err != nil {
			return fmt.Errorf("failed to sync exchange identity status: %w", err)
		}
	}

	if err := s.logs.InsertLog(ctx, Log{
		UserID:            u.ID,
		ExchangeID:        res.ExchangeID,
		ProviderSessionID: res.SessionID,
		EventType:         res.EventType,
		Status:            res.Status,
		Payload:           res.Payload,
	}); err != nil {
		return err
	}

	if !applied {
		logger.Info("stale identity event ignored", "user_id", u.ID, "session_id", res.SessionID,
			"status", res.Status, "current_status", u.IdentityStatus)
		return nil
	}

	logger.Info("identity status updated", "user_id", u.ID, "status", res.Status, "exchanges", n)

	var exchangeID uuid.UUID
	if res.ExchangeID != nil {
		exchangeID = *res.ExchangeID
	}
	event := events.New(events.IdentityUpdated, exchangeID, u.ID, u.ID).With("status", res.Status)
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish identity event", "error", err)
	}
	return nil
}

// resultUser finds the user a result belongs to, by metadata or else by session
func (s *Service) resultUser(ctx context.Context, res Result) (*user.User, error) {
	var (
		u   *user.User
		err error
	)
	if res.UserID != uuid.Nil {
		u, err = s.users.GetByID(ctx, res.UserID)
	} else {
		u, err = s.users.GetByIdentitySession(ctx, res.SessionID)
	}
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUnknownSession
		}
		return nil, err
	}
	return u, nil
}
