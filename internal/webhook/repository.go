package webhook

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/swapbnb/api/internal/database"
)

// PaymentLog is one payment_logs row, keyed by the provider event id
type PaymentLog struct {
	EventID     string
	ObjectID    string
	EventType   string
	UserID      *uuid.UUID
	ExchangeID  *uuid.UUID
	AmountCents int64
	Currency    string
	Status      string
}

type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Seen(ctx context.Context, eventID string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*database.PaymentLog)(nil)).
		Where("provider_event_id = ?", eventID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to look up payment log: %w", err)
	}
	return exists, nil
}

// Record appends the log row. A row with the same event id wins.
func (r *Repository) Record(ctx context.Context, l PaymentLog) error {
	row := &database.PaymentLog{
		UserID:           l.UserID,
		ExchangeID:       l.ExchangeID,
		ProviderEventID:  l.EventID,
		ProviderObjectID: l.ObjectID,
		EventType:        l.EventType,
		AmountCents:      l.AmountCents,
		Currency:         l.Currency,
		Status:           l.Status,
	}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (provider_event_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert payment log: %w", err)
	}
	return nil
}
