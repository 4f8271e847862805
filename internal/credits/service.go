package credits

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/config"
	"github.com/swapbnb/api/internal/payment"
)

const maxCheckoutQuantity = 50

// Store is the persistence the credits service needs
type Store interface {
	Balance(ctx context.Context, userID uuid.UUID) (*Balance, error)
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error)
	GrantWelcome(ctx context.Context, userID uuid.UUID, amount int) (*WelcomeResult, error)
	FulfillPurchase(ctx context.Context, userID uuid.UUID, quantity int, sessionID string) (bool, error)
}

// Service implements balance queries, welcome grants and credit purchases
type Service struct {
	store      Store
	gateway    payment.Gateway
	cfg        config.CreditsConfig
	successURL string
	cancelURL  string
}

func NewService(store Store, gateway payment.Gateway, cfg config.CreditsConfig, stripeCfg config.StripeConfig) *Service {
	return &Service{
		store:      store,
		gateway:    gateway,
		cfg:        cfg,
		successURL: stripeCfg.SuccessURL,
		cancelURL:  stripeCfg.CancelURL,
	}
}

func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	return s.store.Balance(ctx, userID)
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.History(ctx, userID, limit, offset)
}

// GrantWelcome is idempotent: only the first call on a zero balance grants
func (s *Service) GrantWelcome(ctx context.Context, userID uuid.UUID) (*WelcomeResult, error) {
	return s.store.GrantWelcome(ctx, userID, s.cfg.WelcomeAmount)
}

// CreateCheckout starts a hosted checkout for quantity credits
func (s *Service) CreateCheckout(ctx context.Context, userID uuid.UUID, email string, quantity int) (*payment.CheckoutSession, error) {
	if quantity < 1 || quantity > maxCheckoutQuantity {
		return nil, ErrInvalidQuantity
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		UserID:          userID,
		Email:           email,
		ProductName:     "SwapBnB credits",
		Quantity:        int64(quantity),
		UnitAmountCents: s.cfg.UnitPriceCents,
		Currency:        s.cfg.Currency,
		Metadata: map[string]string{
			payment.MetaKind:    payment.KindCreditsPurchase,
			payment.MetaUserID:  userID.String(),
			payment.MetaCredits: strconv.Itoa(quantity),
		},
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create credits checkout: %w", err)
	}
	return session, nil
}

// FulfillPurchase applies a paid checkout. Replays of the same session are no-ops.
func (s *Service) FulfillPurchase(ctx context.Context, userID uuid.UUID, quantity int, sessionID string) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}
	return s.store.FulfillPurchase(ctx, userID, quantity, sessionID)
}
