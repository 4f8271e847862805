package credits

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Ledger entry types
const (
	TypeWelcome     = "welcome"
	TypePurchase    = "purchase"
	TypeSwapPayment = "swap_payment"
	TypeRefund      = "refund"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidQuantity     = errors.New("quantity must be between 1 and 50")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Transaction is one append-only ledger row. Amount is signed.
type Transaction struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	ExchangeID  *uuid.UUID `json:"exchange_id,omitempty"`
	Amount      int        `json:"amount"`
	Type        string     `json:"transaction_type"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Entry describes a balance movement; Amount is always positive and the
// direction comes from Debit or Credit
type Entry struct {
	UserID            uuid.UUID
	ExchangeID        *uuid.UUID
	Amount            int
	Type              string
	Description       string
	ProviderSessionID *string
}

type Balance struct {
	Credits              int  `json:"credits"`
	WelcomeCreditGranted bool `json:"welcome_credit_granted"`
}

type WelcomeResult struct {
	Granted bool `json:"granted"`
	Balance int  `json:"balance"`
}
