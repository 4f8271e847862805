// Package payment wraps the Stripe APIs used for credit purchases, exchange
// payments and identity verification.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/identity/verificationsession"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Checkout metadata keys and kinds. The webhook dispatches on MetaKind.
const (
	MetaKind       = "kind"
	MetaUserID     = "user_id"
	MetaCredits    = "credits"
	MetaExchangeID = "exchange_id"

	KindCreditsPurchase = "credits_purchase"
	KindExchangePayment = "exchange_payment"
)

var ErrNotConfigured = errors.New("payment provider is not configured")

// CheckoutRequest describes a one-off hosted checkout
type CheckoutRequest struct {
	UserID          uuid.UUID
	Email           string
	ProductName     string
	Quantity        int64
	UnitAmountCents int64
	Currency        string
	Metadata        map[string]string
	SuccessURL      string
	CancelURL       string
}

type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

// IdentityRequest starts a document + selfie verification
type IdentityRequest struct {
	UserID     uuid.UUID
	ExchangeID *uuid.UUID
	Email      string
	ReturnURL  string
}

type IdentitySession struct {
	ID           string `json:"session_id"`
	ClientSecret string `json:"client_secret"`
	URL          string `json:"url"`
}

// Gateway is the provider surface the services depend on
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CreateIdentitySession(ctx context.Context, req IdentityRequest) (*IdentitySession, error)
}

// StripeGateway talks to Stripe with the global API key
type StripeGateway struct {
	configured bool
}

// NewStripeGateway sets the Stripe key. An empty key yields a gateway that
// returns ErrNotConfigured.
func NewStripeGateway(secretKey string) *StripeGateway {
	if secretKey == "" {
		return &StripeGateway{}
	}
	stripe.Key = secretKey
	return &StripeGateway{configured: true}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if !g.configured {
		return nil, ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.UnitAmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
				},
				Quantity: stripe.Int64(req.Quantity),
			},
		},
		ClientReferenceID: stripe.String(req.UserID.String()),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	// copied onto the payment intent so failure events can be attributed
	params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
		Metadata: req.Metadata,
	}
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) CreateIdentitySession(ctx context.Context, req IdentityRequest) (*IdentitySession, error) {
	if !g.configured {
		return nil, ErrNotConfigured
	}

	params := &stripe.IdentityVerificationSessionParams{
		Type: stripe.String(string(stripe.IdentityVerificationSessionTypeDocument)),
		Options: &stripe.IdentityVerificationSessionOptionsParams{
			Document: &stripe.IdentityVerificationSessionOptionsDocumentParams{
				RequireMatchingSelfie: stripe.Bool(true),
			},
		},
	}
	if req.ReturnURL != "" {
		params.ReturnURL = stripe.String(req.ReturnURL)
	}
	params.AddMetadata(MetaUserID, req.UserID.String())
	if req.ExchangeID != nil {
		params.AddMetadata(MetaExchangeID, req.ExchangeID.String())
	}
	params.Context = ctx

	vs, err := verificationsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity session: %w", err)
	}
	return &IdentitySession{ID: vs.ID, ClientSecret: vs.ClientSecret, URL: vs.URL}, nil
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event
func ConstructEvent(payload []byte, signature, secret string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
