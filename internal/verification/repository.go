package verification

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/swapbnb/api/internal/database"
)

// Repository appends to verification_logs
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InsertLog(ctx context.Context, l Log) error {
	row := &database.VerificationLog{
		UserID:            l.UserID,
		ExchangeID:        l.ExchangeID,
		ProviderSessionID: l.ProviderSessionID,
		EventType:         l.EventType,
		Status:            l.Status,
		Payload:           l.Payload,
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert verification log: %w", err)
	}
	return nil
}
