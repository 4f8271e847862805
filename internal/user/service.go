package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/storage"
)

var (
	ErrInvalidOnboardingStep = errors.New("onboarding step must be between 0 and 5")
	ErrNameTooLong           = errors.New("name must be at most 120 characters")
)

const maxOnboardingStep = 5

// Store is the persistence used by Service
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*User, error)
	UpdateOnboarding(ctx context.Context, userID uuid.UUID, step int, completed bool) error
	UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) error
}

// Service handles profile management
type Service struct {
	store    Store
	uploader storage.Uploader
}

func NewService(store Store, uploader storage.Uploader) *Service {
	return &Service{store: store, uploader: uploader}
}

func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.store.GetByID(ctx, userID)
}

// GetPublicProfile returns the subset of a user visible to other members
func (s *Service) GetPublicProfile(ctx context.Context, userID uuid.UUID) (*PublicProfile, error) {
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := u.Public()
	return &p, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*User, error) {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(upd.Name)
	trim(upd.City)
	trim(upd.Country)

	if upd.Name != nil && len(*upd.Name) > 120 {
		return nil, ErrNameTooLong
	}

	return s.store.UpdateProfile(ctx, userID, upd)
}

func (s *Service) UpdateOnboarding(ctx context.Context, userID uuid.UUID, step int, completed bool) (*User, error) {
	if step < 0 || step > maxOnboardingStep {
		return nil, ErrInvalidOnboardingStep
	}
	if err := s.store.UpdateOnboarding(ctx, userID, step, completed); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, userID)
}

// UploadAvatar stores the image and points the profile at it
func (s *Service) UploadAvatar(ctx context.Context, userID uuid.UUID, data []byte) (string, error) {
	url, err := s.uploader.UploadImage(ctx, "avatars", userID.String(), data)
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}
	if err := s.store.UpdateAvatar(ctx, userID, url); err != nil {
		return "", err
	}
	return url, nil
}
