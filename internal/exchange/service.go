package exchange

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/credits"
	"github.com/swapbnb/api/internal/events"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/message"
	"github.com/swapbnb/api/internal/metrics"
	"github.com/swapbnb/api/internal/payment"
	"github.com/swapbnb/api/internal/video"
)

// Options holds the pricing and links used for exchange payments
type Options struct {
	PerSwap        int
	UnitPriceCents int64
	Currency       string
	FrontendURL    string
}

type Service struct {
	store     Store
	video     video.Provider
	gateway   payment.Gateway
	publisher events.Publisher
	opts      Options
	now       func() time.Time
}

func NewService(store Store, videoProvider video.Provider, gateway payment.Gateway, publisher events.Publisher, opts Options) *Service {
	return &Service{
		store:     store,
		video:     videoProvider,
		gateway:   gateway,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

// Create records a swap request from requesterID for the host's home
func (s *Service) Create(ctx context.Context, requesterID uuid.UUID, in CreateInput) (*Exchange, error) {
	start, end := truncateDay(in.StartDate), truncateDay(in.EndDate)
	if !end.After(start) || start.Before(truncateDay(s.now())) {
		return nil, ErrInvalidDates
	}

	hostID, err := s.store.HomeOwner(ctx, in.HostHomeID)
	if err != nil {
		return nil, err
	}
	if hostID == requesterID {
		return nil, ErrOwnHome
	}

	ownerID, err := s.store.HomeOwner(ctx, in.RequesterHomeID)
	if err != nil {
		return nil, err
	}
	if ownerID != requesterID {
		return nil, ErrNotHomeOwner
	}

	requesterIdentity, err := s.store.IdentityStatus(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	hostIdentity, err := s.store.IdentityStatus(ctx, hostID)
	if err != nil {
		return nil, err
	}

	ex := &Exchange{
		RequesterID:             requesterID,
		HostID:                  hostID,
		RequesterHomeID:         in.RequesterHomeID,
		HostHomeID:              in.HostHomeID,
		StartDate:               start,
		EndDate:                 end,
		Message:                 strings.TrimSpace(in.Message),
		Status:                  StatusPending,
		RequesterIdentityStatus: requesterIdentity,
		HostIdentityStatus:      hostIdentity,
	}
	if err := s.store.Create(ctx, ex); err != nil {
		return nil, err
	}

	metrics.ExchangeTransition(StatusPending)
	s.publish(ctx, events.New(events.ExchangeRequested, ex.ID, requesterID, hostID).
		With("start_date", ex.StartDate.Format(time.DateOnly)).
		With("end_date", ex.EndDate.Format(time.DateOnly)))
	return ex, nil
}

// Get returns an exchange visible to userID; non-participants get ErrNotFound
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Exchange, error) {
	ex, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ex.IsParticipant(userID) {
		return nil, ErrNotFound
	}
	return ex, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Exchange, error) {
	if filter.Role == "" {
		filter.Role = RoleAll
	}
	switch filter.Role {
	case RoleAll, RoleRequester, RoleHost:
	default:
		return nil, ErrInvalidRole
	}
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, ErrInvalidStatus
	}
	return s.store.List(ctx, userID, filter)
}

func (s *Service) Accept(ctx context.Context, actorID, id uuid.UUID) (*Exchange, error) {
	ex, err := s.transition(ctx, actorID, id, StatusAccepted, nil, func(ctx context.Context, tx Tx, ex *Exchange) error {
		if actorID != ex.HostID {
			return ErrHostOnly
		}
		now := s.now()
		ex.AcceptedAt = &now
		return notice(ctx, tx, ex, actorID, events.ExchangeAccepted, StatusAccepted, "The host accepted the exchange request.")
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.New(events.ExchangeAccepted, ex.ID, actorID, ex.RequesterID))
	return ex, nil
}

func (s *Service) Reject(ctx context.Context, actorID, id uuid.UUID) (*Exchange, error) {
	ex, err := s.transition(ctx, actorID, id, StatusRejected, nil, func(ctx context.Context, tx Tx, ex *Exchange) error {
		if actorID != ex.HostID {
			return ErrHostOnly
		}
		now := s.now()
		ex.RejectedAt = &now
		return notice(ctx, tx, ex, actorID, events.ExchangeRejected, StatusRejected, "The host declined the exchange request.")
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.New(events.ExchangeRejected, ex.ID, actorID, ex.RequesterID))
	return ex, nil
}

// Cancel ends an open exchange. Every share already paid is returned to its
// payer as credits in the same transaction.
func (s *Service) Cancel(ctx context.Context, actorID, id uuid.UUID) (*Exchange, error) {
	ex, err := s.transition(ctx, actorID, id, StatusCancelled, nil, func(ctx context.Context, tx Tx, ex *Exchange) error {
		for _, party := range []uuid.UUID{ex.RequesterID, ex.HostID} {
			if !ex.PaidBy(party) {
				continue
			}
			exchangeID := ex.ID
			if _, err := tx.Credit(ctx, credits.Entry{
				UserID:      party,
				ExchangeID:  &exchangeID,
				Amount:      s.opts.PerSwap,
				Type:        credits.TypeRefund,
				Description: "Refund for cancelled exchange",
			}); err != nil {
				return fmt.Errorf("failed to refund credits: %w", err)
			}
		}
		ex.RequesterCreditsPaid = false
		ex.HostCreditsPaid = false
		now := s.now()
		ex.CancelledAt = &now
		return notice(ctx, tx, ex, actorID, events.ExchangeCancelled, StatusCancelled, "The exchange was cancelled.")
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.New(events.ExchangeCancelled, ex.ID, actorID, ex.OtherParty(actorID)))
	return ex, nil
}

// ScheduleVideoCall books (or moves) the pre-swap call and invites the other participant
func (s *Service) ScheduleVideoCall(ctx context.Context, actorID, id uuid.UUID, at time.Time) (*Exchange, error) {
	if !at.After(s.now()) {
		return nil, ErrInvalidSchedule
	}

	// Check before calling the provider so illegal requests never create rooms.
	current, err := s.Get(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, StatusVideoCallScheduled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, StatusVideoCallScheduled)
	}

	room, err := s.video.CreateRoom(ctx, id, at)
	if err != nil {
		return nil, fmt.Errorf("failed to create video room: %w", err)
	}

	ex, err := s.transition(ctx, actorID, id, StatusVideoCallScheduled, nil, func(ctx context.Context, tx Tx, ex *Exchange) error {
		scheduled := at.UTC()
		roomURL := room.URL
		ex.VideocallScheduledAt = &scheduled
		ex.VideocallRoomURL = &roomURL
		return tx.InsertMessage(ctx, message.NewVideoCallInvite(ex.ID, actorID, ex.OtherParty(actorID), roomURL, scheduled))
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.VideoCallScheduled, ex.ID, actorID, ex.OtherParty(actorID)).
		With("scheduled_at", at.UTC().Format(time.RFC3339)).
		With("room_url", room.URL))
	return ex, nil
}

// SkipVideoCall moves an accepted exchange straight to the payment step
func (s *Service) SkipVideoCall(ctx context.Context, actorID, id uuid.UUID) (*Exchange, error) {
	return s.completeVideoCall(ctx, actorID, id, StatusAccepted)
}

// CompleteVideoCall marks a scheduled call as held
func (s *Service) CompleteVideoCall(ctx context.Context, actorID, id uuid.UUID) (*Exchange, error) {
	return s.completeVideoCall(ctx, actorID, id, StatusVideoCallScheduled)
}

func (s *Service) completeVideoCall(ctx context.Context, actorID, id uuid.UUID, from string) (*Exchange, error) {
	ex, err := s.transition(ctx, actorID, id, StatusVideoCallCompleted, []string{from}, func(_ context.Context, _ Tx, ex *Exchange) error {
		now := s.now()
		ex.VideocallCompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.New(events.VideoCallCompleted, ex.ID, actorID, ex.OtherParty(actorID)))
	return ex, nil
}

// PayCredits debits the caller's share from their balance. The payment that
// completes both shares confirms the exchange.
func (s *Service) PayCredits(ctx context.Context, payerID, id uuid.UUID) (*PaymentResult, error) {
	return s.settle(ctx, payerID, id, "")
}

// MarkPaidExternally records a share paid through checkout session sessionID.
// Replaying the session that already paid the share is a no-op. A share paid
// some other way returns ErrAlreadyPaid so the caller can refund the money.
func (s *Service) MarkPaidExternally(ctx context.Context, payerID, id uuid.UUID, sessionID string) (*PaymentResult, error) {
	if sessionID == "" {
		return nil, errors.New("checkout session id is required")
	}
	return s.settle(ctx, payerID, id, sessionID)
}

// settle marks payerID's share paid. An empty sessionID debits credits.
func (s *Service) settle(ctx context.Context, payerID, id uuid.UUID, sessionID string) (*PaymentResult, error) {
	result := &PaymentResult{}
	debit := sessionID == ""
	replayed := false

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		ex, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !ex.IsParticipant(payerID) {
			return ErrNotFound
		}
		if ex.paidWithSession(payerID, sessionID) {
			replayed = true
			result.Exchange = ex
			result.Confirmed = ex.Status == StatusConfirmed
			return nil
		}
		if !IsPayable(ex.Status) {
			return fmt.Errorf("%w: status is %s", ErrNotPayable, ex.Status)
		}
		if ex.PaidBy(payerID) {
			return ErrAlreadyPaid
		}

		if debit {
			exchangeID := ex.ID
			balance, err := tx.Debit(ctx, credits.Entry{
				UserID:      payerID,
				ExchangeID:  &exchangeID,
				Amount:      s.opts.PerSwap,
				Type:        credits.TypeSwapPayment,
				Description: "Exchange payment",
			})
			if err != nil {
				return err
			}
			result.Balance = &balance
		}

		from := ex.Status
		ex.markPaid(payerID, sessionID)
		if ex.BothPaid() {
			now := s.now()
			ex.Status = StatusConfirmed
			ex.ConfirmedAt = &now
			result.Confirmed = true
			if err := notice(ctx, tx, ex, payerID, events.ExchangeConfirmed, StatusConfirmed, "Both shares are paid. The exchange is confirmed."); err != nil {
				return err
			}
		}
		if err := tx.Update(ctx, ex, from); err != nil {
			return err
		}
		result.Exchange = ex
		return nil
	})
	if err != nil {
		return nil, err
	}
	if replayed {
		return result, nil
	}

	ex := result.Exchange
	method := "external"
	if debit {
		method = "credits"
	}
	s.publish(ctx, events.New(events.ExchangePaid, ex.ID, payerID, ex.OtherParty(payerID)).With("method", method))
	if result.Confirmed {
		metrics.ExchangeTransition(StatusConfirmed)
		s.publish(ctx, events.New(events.ExchangeConfirmed, ex.ID, payerID, ex.RequesterID, ex.HostID))
	}
	return result, nil
}

// CreatePaymentCheckout starts a hosted checkout for the caller's share
func (s *Service) CreatePaymentCheckout(ctx context.Context, payerID uuid.UUID, email string, id uuid.UUID) (*payment.CheckoutSession, error) {
	ex, err := s.Get(ctx, payerID, id)
	if err != nil {
		return nil, err
	}
	if !IsPayable(ex.Status) {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPayable, ex.Status)
	}
	if ex.PaidBy(payerID) {
		return nil, ErrAlreadyPaid
	}

	link := s.opts.FrontendURL + "/exchanges/" + ex.ID.String()
	return s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		UserID:          payerID,
		Email:           email,
		ProductName:     "SwapBnB exchange confirmation",
		Quantity:        1,
		UnitAmountCents: int64(s.opts.PerSwap) * s.opts.UnitPriceCents,
		Currency:        s.opts.Currency,
		Metadata: map[string]string{
			payment.MetaKind:       payment.KindExchangePayment,
			payment.MetaUserID:     payerID.String(),
			payment.MetaExchangeID: ex.ID.String(),
			payment.MetaCredits:    strconv.Itoa(s.opts.PerSwap),
		},
		SuccessURL: link + "?payment=success",
		CancelURL:  link + "?payment=cancelled",
	})
}

// Delete removes an exchange that never went ahead
func (s *Service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		ex, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !ex.IsParticipant(actorID) {
			return ErrNotFound
		}
		if !IsDeletable(ex.Status) {
			return fmt.Errorf("%w: cannot delete a %s exchange", ErrInvalidTransition, ex.Status)
		}
		return tx.Delete(ctx, id)
	})
}

// SyncIdentityStatus copies a user's verification status onto their open exchanges
func (s *Service) SyncIdentityStatus(ctx context.Context, userID uuid.UUID, status string) (int, error) {
	return s.store.UpdateIdentityStatus(ctx, userID, status)
}

// transition applies one status change under a row lock. allowedFrom narrows
// the legal source statuses further; mutate sets the fields that go with it.
func (s *Service) transition(
	ctx context.Context,
	actorID, id uuid.UUID,
	to string,
	allowedFrom []string,
	mutate func(ctx context.Context, tx Tx, ex *Exchange) error,
) (*Exchange, error) {
	var updated *Exchange

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		ex, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !ex.IsParticipant(actorID) {
			return ErrNotFound
		}

		from := ex.Status
		if !CanTransition(from, to) || (len(allowedFrom) > 0 && !slices.Contains(allowedFrom, from)) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}
		if mutate != nil {
			if err := mutate(ctx, tx, ex); err != nil {
				return err
			}
		}

		ex.Status = to
		if err := tx.Update(ctx, ex, from); err != nil {
			return err
		}
		updated = ex
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ExchangeTransition(to)
	logging.GetLoggerFromContext(ctx).Info("exchange status changed", "exchange_id", id, "status", to)
	return updated, nil
}

// notice posts a lifecycle change into the conversation between the participants
func notice(ctx context.Context, tx Tx, ex *Exchange, actorID uuid.UUID, event events.Type, status, content string) error {
	m := message.NewSystem(ex.ID, actorID, ex.OtherParty(actorID), string(event), status, content)
	if err := tx.InsertMessage(ctx, m); err != nil {
		return fmt.Errorf("failed to post %s notice: %w", event, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		logging.GetLoggerFromContext(ctx).Warn("failed to publish exchange event",
			"exchange_id", event.ExchangeID, "type", event.Type, "error", err)
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
