package home

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const maxImages = 20

var (
	ErrNotFound            = errors.New("home not found")
	ErrNotOwner            = errors.New("you do not own this home")
	ErrHomeInUse           = errors.New("home is part of an active exchange")
	ErrInvalidAvailability = errors.New("available_to must not be before available_from")
	ErrTooManyImages       = errors.New("a home can have at most 20 images")
)

type Home struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Address       string     `json:"address"`
	City          string     `json:"city"`
	Country       string     `json:"country"`
	PropertyType  string     `json:"property_type"`
	Bedrooms      int        `json:"bedrooms"`
	Bathrooms     int        `json:"bathrooms"`
	MaxGuests     int        `json:"max_guests"`
	Amenities     []string   `json:"amenities"`
	Images        []string   `json:"images"`
	AvailableFrom *time.Time `json:"available_from,omitempty"`
	AvailableTo   *time.Time `json:"available_to,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Input holds the editable fields of a listing
type Input struct {
	Title         string
	Description   string
	Address       string
	City          string
	Country       string
	PropertyType  string
	Bedrooms      int
	Bathrooms     int
	MaxGuests     int
	Amenities     []string
	AvailableFrom *time.Time
	AvailableTo   *time.Time
}

// BrowseFilter narrows the public listing search. Zero values mean no filter.
type BrowseFilter struct {
	City         string
	Country      string
	MinGuests    int
	ExcludeOwner *uuid.UUID
	Limit        int
	Offset       int
}
