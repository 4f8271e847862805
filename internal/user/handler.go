package user

import (
	"errors"
	"net/http"

	"github.com/swapbnb/api/internal/httputil"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/principal"
	"github.com/swapbnb/api/internal/storage"
)

// Handler contains HTTP handlers for profile endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// UpdateProfileRequest represents the profile update body; omitted fields are unchanged
type UpdateProfileRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=120"`
	Bio     *string `json:"bio" validate:"omitempty,max=2000"`
	City    *string `json:"city" validate:"omitempty,max=120"`
	Country *string `json:"country" validate:"omitempty,max=120"`
}

// OnboardingRequest represents onboarding progress
type OnboardingRequest struct {
	Step      int  `json:"step" validate:"gte=0,lte=5"`
	Completed bool `json:"completed"`
}

// GetMe returns the authenticated user's profile
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} User
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /users/me [get]
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetMe(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to load profile")
		return
	}

	logger.Debug("profile loaded")
	httputil.RespondJSON(w, u, http.StatusOK)
}

// UpdateMe updates the authenticated user's profile
// @Summary      Update profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateProfileRequest true "Profile fields"
// @Success      200 {object} User
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /users/me [patch]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid profile update", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), userID, ProfileUpdate{
		Name: req.Name, Bio: req.Bio, City: req.City, Country: req.Country,
	})
	if err != nil {
		h.respondServiceError(w, r, err, "failed to update profile")
		return
	}

	logger.Info("profile updated")
	httputil.RespondJSON(w, u, http.StatusOK)
}

// UpdateOnboarding records onboarding wizard progress
// @Summary      Update onboarding progress
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body OnboardingRequest true "Onboarding progress"
// @Success      200 {object} User
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /users/me/onboarding [patch]
func (h *Handler) UpdateOnboarding(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	var req OnboardingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid onboarding update", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	u, err := h.service.UpdateOnboarding(r.Context(), userID, req.Step, req.Completed)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to update onboarding")
		return
	}

	httputil.RespondJSON(w, u, http.StatusOK)
}

// UploadAvatar replaces the profile picture
// @Summary      Upload avatar
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        image formData file true "JPEG, PNG or WebP image"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      503 {object} httputil.ErrorResponse
// @Router       /users/me/avatar [post]
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	data, err := storage.ReadFormImage(w, r, "image")
	if err != nil {
		logger.Warn("invalid avatar upload", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidUpload, http.StatusBadRequest)
		return
	}

	url, err := h.service.UploadAvatar(r.Context(), userID, data)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to upload avatar")
		return
	}

	logger.Info("avatar updated")
	httputil.RespondJSON(w, map[string]string{"avatar_url": url}, http.StatusOK)
}

// GetPublicProfile returns another member's public profile
// @Summary      Public profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      200 {object} PublicProfile
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /users/{id} [get]
func (h *Handler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamUUID(r, "id")
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid user id", httputil.CodeInvalidID, http.StatusBadRequest)
		return
	}

	p, err := h.service.GetPublicProfile(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to load profile")
		return
	}

	httputil.RespondJSON(w, p, http.StatusOK)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := logging.GetLoggerFromContext(r.Context())

	switch {
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
	case errors.Is(err, ErrInvalidOnboardingStep), errors.Is(err, ErrNameTooLong):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
	case errors.Is(err, storage.ErrNotConfigured):
		logger.Warn("upload attempted without storage configured")
		httputil.RespondErrorWithCode(w, "image uploads are unavailable", httputil.CodeUploadUnavailable, http.StatusServiceUnavailable)
	default:
		logger.Error(fallback, "error", err.Error())
		httputil.RespondErrorWithCode(w, fallback, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
