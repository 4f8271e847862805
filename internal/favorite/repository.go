// Package favorite keeps each user's saved homes.
package favorite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/swapbnb/api/internal/database"
	"github.com/swapbnb/api/internal/home"
)

var ErrHomeNotFound = errors.New("home not found")

// Favorite is a saved home with the time it was saved
type Favorite struct {
	Home    home.Home `json:"home"`
	SavedAt time.Time `json:"saved_at"`
}

type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// List returns the user's favorites with their homes, most recent first
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]Favorite, error) {
	var rows []database.Favorite
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Home").
		Where("f.user_id = ?", userID).
		Order("f.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	out := make([]Favorite, 0, len(rows))
	for i := range rows {
		if rows[i].Home == nil {
			continue
		}
		out = append(out, Favorite{Home: *home.MapDBHome(rows[i].Home), SavedAt: rows[i].CreatedAt})
	}
	return out, nil
}

func (r *Repository) Exists(ctx context.Context, userID, homeID uuid.UUID) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*database.Favorite)(nil)).
		Where("user_id = ?", userID).
		Where("home_id = ?", homeID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return exists, nil
}

// Toggle removes the favorite if present and adds it otherwise, returning the new state
func (r *Repository) Toggle(ctx context.Context, userID, homeID uuid.UUID) (bool, error) {
	var favorited bool
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*database.Favorite)(nil)).
			Where("user_id = ?", userID).
			Where("home_id = ?", homeID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to remove favorite: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		exists, err := tx.NewSelect().
			Model((*database.Home)(nil)).
			Where("id = ?", homeID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check home: %w", err)
		}
		if !exists {
			return ErrHomeNotFound
		}

		_, err = tx.NewInsert().
			Model(&database.Favorite{UserID: userID, HomeID: homeID}).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add favorite: %w", err)
		}
		favorited = true
		return nil
	})
	return favorited, err
}
