package home

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/swapbnb/api/internal/database"
)

// closedExchangeStatuses are the statuses that no longer hold on to a home
var closedExchangeStatuses = []string{"rejected", "cancelled"}

type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, ownerID uuid.UUID, in Input) (*Home, error) {
	row := &database.Home{OwnerID: ownerID, Images: []string{}}
	applyInput(row, in)

	if _, err := r.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create home: %w", err)
	}
	return MapDBHome(row), nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Home, error) {
	var row database.Home
	if err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get home: %w", err)
	}
	return MapDBHome(&row), nil
}

func (r *Repository) Browse(ctx context.Context, f BrowseFilter) ([]Home, error) {
	var rows []database.Home
	q := r.db.NewSelect().Model(&rows)

	if f.City != "" {
		q = q.Where("city ILIKE ?", f.City)
	}
	if f.Country != "" {
		q = q.Where("country ILIKE ?", f.Country)
	}
	if f.MinGuests > 0 {
		q = q.Where("max_guests >= ?", f.MinGuests)
	}
	if f.ExcludeOwner != nil {
		q = q.Where("owner_id <> ?", *f.ExcludeOwner)
	}

	err := q.Order("created_at DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to browse homes: %w", err)
	}
	return mapRows(rows), nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Home, error) {
	var rows []database.Home
	err := r.db.NewSelect().
		Model(&rows).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list homes: %w", err)
	}
	return mapRows(rows), nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, in Input) (*Home, error) {
	row := &database.Home{ID: id}
	applyInput(row, in)
	row.UpdatedAt = time.Now()

	res, err := r.db.NewUpdate().
		Model(row).
		Column("title", "description", "address", "city", "country", "property_type",
			"bedrooms", "bathrooms", "max_guests", "amenities", "available_from", "available_to", "updated_at").
		WherePK().
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update home: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return MapDBHome(row), nil
}

// Delete removes a home together with the closed exchanges that still point
// at it. It refuses with ErrHomeInUse while any other exchange references it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		busy, err := tx.NewSelect().
			Model((*database.Exchange)(nil)).
			Where("(requester_home_id = ? OR host_home_id = ?)", id, id).
			Where("status NOT IN (?)", bun.In(closedExchangeStatuses)).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check home exchanges: %w", err)
		}
		if busy {
			return ErrHomeInUse
		}

		_, err = tx.NewDelete().
			Model((*database.Exchange)(nil)).
			Where("(requester_home_id = ? OR host_home_id = ?)", id, id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete closed exchanges: %w", err)
		}

		res, err := tx.NewDelete().
			Model((*database.Home)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete home: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AppendImage adds url to the home's gallery while it holds fewer than maxImages
func (r *Repository) AppendImage(ctx context.Context, id uuid.UUID, url string) (*Home, error) {
	row := new(database.Home)
	matched, err := database.UpdateReturning(ctx, r.db.NewUpdate().
		Model(row).
		Set("images = array_append(images, ?)", url).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("cardinality(images) < ?", maxImages).
		Returning("*"))
	if err != nil {
		return nil, fmt.Errorf("failed to add home image: %w", err)
	}
	if !matched {
		if _, err := r.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrTooManyImages
	}
	return MapDBHome(row), nil
}

func applyInput(row *database.Home, in Input) {
	row.Title = in.Title
	row.Description = in.Description
	row.Address = in.Address
	row.City = in.City
	row.Country = in.Country
	row.PropertyType = in.PropertyType
	row.Bedrooms = in.Bedrooms
	row.Bathrooms = in.Bathrooms
	row.MaxGuests = in.MaxGuests
	row.Amenities = in.Amenities
	row.AvailableFrom = in.AvailableFrom
	row.AvailableTo = in.AvailableTo
}

func mapRows(rows []database.Home) []Home {
	out := make([]Home, 0, len(rows))
	for i := range rows {
		out = append(out, *MapDBHome(&rows[i]))
	}
	return out
}

// MapDBHome converts a homes row to the API model
func MapDBHome(row *database.Home) *Home {
	h := &Home{
		ID:            row.ID,
		OwnerID:       row.OwnerID,
		Title:         row.Title,
		Description:   row.Description,
		Address:       row.Address,
		City:          row.City,
		Country:       row.Country,
		PropertyType:  row.PropertyType,
		Bedrooms:      row.Bedrooms,
		Bathrooms:     row.Bathrooms,
		MaxGuests:     row.MaxGuests,
		Amenities:     row.Amenities,
		Images:        row.Images,
		AvailableFrom: row.AvailableFrom,
		AvailableTo:   row.AvailableTo,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if h.Amenities == nil {
		h.Amenities = []string{}
	}
	if h.Images == nil {
		h.Images = []string{}
	}
	return h
}
