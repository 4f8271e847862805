package credits

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/swapbnb/api/internal/database"
	"github.com/swapbnb/api/internal/metrics"
)

// Repository handles balance reads and the standalone ledger operations
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Balance returns the user's current balance
func (r *Repository) Balance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	var u database.User
	err := r.db.NewSelect().
		Model(&u).
		Column("credits", "welcome_credit_granted").
		Where("id = ?", userID).
		Scan(ctx)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &Balance{Credits: u.Credits, WelcomeCreditGranted: u.WelcomeCreditGranted}, nil
}

// History lists ledger rows newest first
func (r *Repository) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	var rows []database.CreditTransaction
	err := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit transactions: %w", err)
	}

	out := make([]Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, mapDBTransaction(&rows[i]))
	}
	return out, nil
}

// GrantWelcome gives the welcome amount to a user whose balance is zero and
// who never received it. The conditional update decides; the partial unique
// index on welcome rows backs it up.
func (r *Repository) GrantWelcome(ctx context.Context, userID uuid.UUID, amount int) (*WelcomeResult, error) {
	result := &WelcomeResult{}

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var balance int
		matched, err := database.UpdateReturning(ctx, tx.NewUpdate().
			Model((*database.User)(nil)).
			Set("credits = credits + ?", amount).
			Set("welcome_credit_granted = ?", true).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", userID).
			Where("credits = 0").
			Where("welcome_credit_granted = ?", false).
			Returning("credits"), &balance)
		if err != nil {
			return fmt.Errorf("failed to grant welcome credits: %w", err)
		}

		if !matched {
			current, err := balanceFor(ctx, tx, userID)
			if err != nil {
				return err
			}
			result.Balance = current
			return nil
		}

		if err := insertTransaction(ctx, tx, Entry{
			UserID:      userID,
			Amount:      amount,
			Type:        TypeWelcome,
			Description: "Welcome credit",
		}, amount); err != nil {
			return err
		}

		result.Granted = true
		result.Balance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Granted {
		metrics.CreditsMoved(TypeWelcome, amount)
	}
	return result, nil
}

// FulfillPurchase credits a completed checkout exactly once per provider session.
// applied is false when the session was already recorded.
func (r *Repository) FulfillPurchase(ctx context.Context, userID uuid.UUID, quantity int, sessionID string) (applied bool, err error) {
	err = r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		row := &database.CreditTransaction{
			UserID:            userID,
			Amount:            quantity,
			TransactionType:   TypePurchase,
			ProviderSessionID: &sessionID,
			Description:       fmt.Sprintf("Purchased %d credits", quantity),
		}
		res, err := tx.NewInsert().
			Model(row).
			On("CONFLICT (provider_session_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to record purchase: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}

		matched, err := database.UpdateReturning(ctx, tx.NewUpdate().
			Model((*database.User)(nil)).
			Set("credits = credits + ?", quantity).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", userID))
		if err != nil {
			return fmt.Errorf("failed to credit purchase: %w", err)
		}
		if !matched {
			return ErrUserNotFound
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if applied {
		metrics.CreditsMoved(TypePurchase, quantity)
	}
	return applied, nil
}

func balanceFor(ctx context.Context, db bun.IDB, userID uuid.UUID) (int, error) {
	var credits int
	err := db.NewSelect().
		Model((*database.User)(nil)).
		Column("credits").
		Where("id = ?", userID).
		Scan(ctx, &credits)
	if err != nil {
		if database.IsNoRows(err) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return credits, nil
}

func mapDBTransaction(row *database.CreditTransaction) Transaction {
	return Transaction{
		ID:          row.ID,
		UserID:      row.UserID,
		ExchangeID:  row.ExchangeID,
		Amount:      row.Amount,
		Type:        row.TransactionType,
		Description: row.Description,
		CreatedAt:   row.CreatedAt,
	}
}
