package credits

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/swapbnb/api/internal/database"
	"github.com/swapbnb/api/internal/metrics"
)

// Debit removes e.Amount credits and appends the matching ledger row. It must
// run inside the caller's transaction. The balance never goes negative: the
// update only matches when credits >= amount.
func Debit(ctx context.Context, db bun.IDB, e Entry) (int, error) {
	if e.Amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int
	matched, err := database.UpdateReturning(ctx, db.NewUpdate().
		Model((*database.User)(nil)).
		Set("credits = credits - ?", e.Amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", e.UserID).
		Where("credits >= ?", e.Amount).
		Returning("credits"), &balance)
	if err != nil {
		return 0, fmt.Errorf("failed to debit credits: %w", err)
	}
	if !matched {
		return 0, insufficientOrMissing(ctx, db, e)
	}

	if err := insertTransaction(ctx, db, e, -e.Amount); err != nil {
		return 0, err
	}
	metrics.CreditsMoved(e.Type, e.Amount)
	return balance, nil
}

// Credit adds e.Amount credits and appends the matching ledger row
func Credit(ctx context.Context, db bun.IDB, e Entry) (int, error) {
	if e.Amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int
	matched, err := database.UpdateReturning(ctx, db.NewUpdate().
		Model((*database.User)(nil)).
		Set("credits = credits + ?", e.Amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", e.UserID).
		Returning("credits"), &balance)
	if err != nil {
		return 0, fmt.Errorf("failed to credit credits: %w", err)
	}
	if !matched {
		return 0, ErrUserNotFound
	}

	if err := insertTransaction(ctx, db, e, e.Amount); err != nil {
		return 0, err
	}
	metrics.CreditsMoved(e.Type, e.Amount)
	return balance, nil
}

func insufficientOrMissing(ctx context.Context, db bun.IDB, e Entry) error {
	exists, err := db.NewSelect().
		Model((*database.User)(nil)).
		Where("id = ?", e.UserID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return ErrInsufficientCredits
}

func insertTransaction(ctx context.Context, db bun.IDB, e Entry, signedAmount int) error {
	row := &database.CreditTransaction{
		UserID:            e.UserID,
		ExchangeID:        e.ExchangeID,
		Amount:            signedAmount,
		TransactionType:   e.Type,
		ProviderSessionID: e.ProviderSessionID,
		Description:       e.Description,
	}
	if _, err := db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to record %s transaction: %w", e.Type, err)
	}
	return nil
}
