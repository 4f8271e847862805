// Package webhook applies Stripe payment and identity events.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"

	"github.com/swapbnb/api/internal/exchange"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/payment"
	"github.com/swapbnb/api/internal/user"
	"github.com/swapbnb/api/internal/verification"
)

const (
	eventCheckoutCompleted = "checkout.session.completed"
	eventPaymentFailed     = "payment_intent.payment_failed"
	identityEventPrefix    = "identity.verification_session."
)

// Outcomes reported to metrics
const (
	ResultProcessed        = "processed"
	ResultDuplicate        = "duplicate"
	ResultIgnored          = "ignored"
	ResultInvalidSignature = "invalid_signature"
	ResultFailed           = "failed"
)

var ErrMalformedEvent = errors.New("malformed webhook event")

type LogStore interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, l PaymentLog) error
}

type CreditsFulfiller interface {
	FulfillPurchase(ctx context.Context, userID uuid.UUID, quantity int, sessionID string) (bool, error)
}

type ExchangePayer interface {
	MarkPaidExternally(ctx context.Context, payerID, id uuid.UUID, sessionID string) (*exchange.PaymentResult, error)
}

type IdentityApplier interface {
	ApplyResult(ctx context.Context, res verification.Result) error
}

type Service struct {
	logs      LogStore
	credits   CreditsFulfiller
	exchanges ExchangePayer
	identity  IdentityApplier
}

func NewService(logs LogStore, credits CreditsFulfiller, exchanges ExchangePayer, identity IdentityApplier) *Service {
	return &Service{
		logs:      logs,
		credits:   credits,
		exchanges: exchanges,
		identity:  identity,
	}
}

// HandlePaymentEvent applies a verified payments event once per event id
func (s *Service) HandlePaymentEvent(ctx context.Context, event stripe.Event) (string, error) {
	eventType := string(event.Type)
	if eventType != eventCheckoutCompleted && eventType != eventPaymentFailed {
		return ResultIgnored, nil
	}
	if event.Data == nil {
		return ResultFailed, fmt.Errorf("%w: no data object", ErrMalformedEvent)
	}

	seen, err := s.logs.Seen(ctx, event.ID)
	if err != nil {
		return ResultFailed, err
	}
	if seen {
		return ResultDuplicate, nil
	}

	var entry *PaymentLog
	if eventType == eventCheckoutCompleted {
		entry, err = s.checkoutCompleted(ctx, event.Data.Raw)
	} else {
		entry, err = paymentFailed(ctx, event.Data.Raw)
	}
	if err != nil {
		return ResultFailed, err
	}

	entry.EventID = event.ID
	entry.EventType = eventType
	if err := s.logs.Record(ctx, *entry); err != nil {
		return ResultFailed, err
	}
	return ResultProcessed, nil
}

func (s *Service) checkoutCompleted(ctx context.Context, raw json.RawMessage) (*PaymentLog, error) {
	logger := logging.GetLoggerFromContext(ctx)

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	entry := &PaymentLog{
		ObjectID:    cs.ID,
		AmountCents: cs.AmountTotal,
		Currency:    string(cs.Currency),
		Status:      string(cs.PaymentStatus),
	}
	if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return entry, nil
	}

	userID, err := uuid.Parse(cs.Metadata[payment.MetaUserID])
	if err != nil {
		return nil, fmt.Errorf("%w: user_id metadata", ErrMalformedEvent)
	}
	quantity, err := strconv.Atoi(cs.Metadata[payment.MetaCredits])
	if err != nil || quantity <= 0 {
		return nil, fmt.Errorf("%w: credits metadata", ErrMalformedEvent)
	}
	entry.UserID = &userID

	switch kind := cs.Metadata[payment.MetaKind]; kind {
	case payment.KindCreditsPurchase:
		applied, err := s.credits.FulfillPurchase(ctx, userID, quantity, cs.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fulfill purchase: %w", err)
		}
		logger.Info("credits purchase fulfilled", "user_id", userID, "credits", quantity, "applied", applied)

	case payment.KindExchangePayment:
		exchangeID, err := uuid.Parse(cs.Metadata[payment.MetaExchangeID])
		if err != nil {
			return nil, fmt.Errorf("%w: exchange_id metadata", ErrMalformedEvent)
		}
		entry.ExchangeID = &exchangeID

		result, err := s.exchanges.MarkPaidExternally(ctx, userID, exchangeID, cs.ID)
		switch {
		case err == nil:
			logger.Info("exchange share paid", "exchange_id", exchangeID, "user_id", userID, "confirmed", result.Confirmed)
		case errors.Is(err, exchange.ErrNotPayable), errors.Is(err, exchange.ErrNotFound), errors.Is(err, exchange.ErrAlreadyPaid):
			// the share was settled elsewhere or the exchange moved on; keep the money as credits
			if errors.Is(err, exchange.ErrNotFound) {
				entry.ExchangeID = nil
			}
			if _, err := s.credits.FulfillPurchase(ctx, userID, quantity, cs.ID); err != nil {
				return nil, fmt.Errorf("failed to credit unpayable exchange payment: %w", err)
			}
			entry.Status = "credited"
			logger.Warn("exchange payment converted to credits", "exchange_id", exchangeID, "user_id", userID, "reason", err.Error())
		default:
			return nil, fmt.Errorf("failed to mark exchange paid: %w", err)
		}

	default:
		logger.Warn("checkout with unknown kind", "kind", kind, "session_id", cs.ID)
	}
	return entry, nil
}

func paymentFailed(ctx context.Context, raw json.RawMessage) (*PaymentLog, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	entry := &PaymentLog{
		ObjectID:    pi.ID,
		AmountCents: pi.Amount,
		Currency:    string(pi.Currency),
		Status:      "failed",
	}
	if id, err := uuid.Parse(pi.Metadata[payment.MetaUserID]); err == nil {
		entry.UserID = &id
	}

	reason := ""
	if pi.LastPaymentError != nil {
		reason = pi.LastPaymentError.Msg
	}
	logging.GetLoggerFromContext(ctx).Warn("payment failed", "payment_intent", pi.ID, "reason", reason)
	return entry, nil
}

// HandleIdentityEvent maps a verification session event onto the user
func (s *Service) HandleIdentityEvent(ctx context.Context, event stripe.Event) (string, error) {
	status, ok := identityStatus(string(event.Type))
	if !ok {
		return ResultIgnored, nil
	}
	if event.Data == nil {
		return ResultFailed, fmt.Errorf("%w: no data object", ErrMalformedEvent)
	}

	var vs stripe.IdentityVerificationSession
	if err := json.Unmarshal(event.Data.Raw, &vs); err != nil {
		return ResultFailed, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	res := verification.Result{
		SessionID: vs.ID,
		EventType: string(event.Type),
		Status:    status,
		Payload:   event.Data.Raw,
	}
	if id, err := uuid.Parse(vs.Metadata[payment.MetaUserID]); err == nil {
		res.UserID = id
	}
	if id, err := uuid.Parse(vs.Metadata[payment.MetaExchangeID]); err == nil {
		res.ExchangeID = &id
	}

	if err := s.identity.ApplyResult(ctx, res); err != nil {
		if errors.Is(err, verification.ErrUnknownSession) {
			logging.GetLoggerFromContext(ctx).Warn("identity event for unknown session", "session_id", vs.ID)
			return ResultIgnored, nil
		}
		return ResultFailed, err
	}
	return ResultProcessed, nil
}

func identityStatus(eventType string) (string, bool) {
	suffix, found := strings.CutPrefix(eventType, identityEventPrefix)
	if !found {
		return "", false
	}
	switch suffix {
	case "verified":
		return user.IdentityVerified, true
	case "requires_input":
		return user.IdentityRequiresInput, true
	case "canceled":
		return user.IdentityCanceled, true
	case "processing":
		return user.IdentityPending, true
	}
	return "", false
}
