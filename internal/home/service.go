package home

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store is the persistence used by Service
type Store interface {
	Create(ctx context.Context, ownerID uuid.UUID, in Input) (*Home, error)
	Get(ctx context.Context, id uuid.UUID) (*Home, error)
	Browse(ctx context.Context, f BrowseFilter) ([]Home, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Home, error)
	Update(ctx context.Context, id uuid.UUID, in Input) (*Home, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AppendImage(ctx context.Context, id uuid.UUID, url string) (*Home, error)
}

type Service struct {
	store    Store
	uploader storage.Uploader
}

func NewService(store Store, uploader storage.Uploader) *Service {
	return &Service{store: store, uploader: uploader}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in Input) (*Home, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	return s.store.Create(ctx, ownerID, in)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Home, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Browse(ctx context.Context, f BrowseFilter) ([]Home, error) {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.City = strings.TrimSpace(f.City)
	f.Country = strings.TrimSpace(f.Country)
	return s.store.Browse(ctx, f)
}

func (s *Service) ListMine(ctx context.Context, ownerID uuid.UUID) ([]Home, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, in Input) (*Home, error) {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return nil, err
	}
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	return s.store.Update(ctx, id, in)
}

func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// AddImage uploads an image and appends it to the listing gallery
func (s *Service) AddImage(ctx context.Context, ownerID, id uuid.UUID, data []byte) (*Home, error) {
	h, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if len(h.Images) >= maxImages {
		return nil, ErrTooManyImages
	}

	url, err := s.uploader.UploadImage(ctx, "homes/"+id.String(), uuid.NewString(), data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload home image: %w", err)
	}
	return s.store.AppendImage(ctx, id, url)
}

func (s *Service) owned(ctx context.Context, ownerID, id uuid.UUID) (*Home, error) {
	h, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return h, nil
}

func normalize(in Input) (Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.City = strings.TrimSpace(in.City)
	in.Country = strings.TrimSpace(in.Country)
	if in.PropertyType == "" {
		in.PropertyType = "apartment"
	}
	if in.Amenities == nil {
		in.Amenities = []string{}
	}
	if in.AvailableFrom != nil && in.AvailableTo != nil && in.AvailableTo.Before(*in.AvailableFrom) {
		return in, ErrInvalidAvailability
	}
	return in, nil
}
