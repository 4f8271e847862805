package exchange

import (
	"context"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/credits"
	"github.com/swapbnb/api/internal/message"
)

// Store is the persistence used by Service. Reads outside InTx are not locked.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Create(ctx context.Context, ex *Exchange) error
	Get(ctx context.Context, id uuid.UUID) (*Exchange, error)
	List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Exchange, error)
	HomeOwner(ctx context.Context, homeID uuid.UUID) (uuid.UUID, error)
	IdentityStatus(ctx context.Context, userID uuid.UUID) (string, error)
	// UpdateIdentityStatus sets the user's party identity status on their open exchanges
	UpdateIdentityStatus(ctx context.Context, userID uuid.UUID, status string) (int, error)
}

// Tx is a unit of work holding a row lock on the exchanges it reads
type Tx interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Exchange, error)
	// Update persists ex only if its stored status is still from; otherwise ErrInvalidTransition
	Update(ctx context.Context, ex *Exchange, from string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Debit(ctx context.Context, e credits.Entry) (int, error)
	Credit(ctx context.Context, e credits.Entry) (int, error)
	InsertMessage(ctx context.Context, m *message.Message) error
}
