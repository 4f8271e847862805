package home

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/httputil"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/principal"
	"github.com/swapbnb/api/internal/storage"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HomeRequest is the body for creating or replacing a listing
type HomeRequest struct {
	Title         string   `json:"title" validate:"required,max=200"`
	Description   string   `json:"description" validate:"max=5000"`
	Address       string   `json:"address" validate:"max=500"`
	City          string   `json:"city" validate:"required,max=120"`
	Country       string   `json:"country" validate:"required,max=120"`
	PropertyType  string   `json:"property_type" validate:"omitempty,oneof=apartment house villa cabin studio other"`
	Bedrooms      int      `json:"bedrooms" validate:"gte=0,lte=50"`
	Bathrooms     int      `json:"bathrooms" validate:"gte=0,lte=50"`
	MaxGuests     int      `json:"max_guests" validate:"required,gte=1,lte=50"`
	Amenities     []string `json:"amenities" validate:"max=50,dive,max=60"`
	AvailableFrom string   `json:"available_from" validate:"omitempty,datetime=2006-01-02"`
	AvailableTo   string   `json:"available_to" validate:"omitempty,datetime=2006-01-02"`
}

func (req HomeRequest) input() Input {
	in := Input{
		Title:        req.Title,
		Description:  req.Description,
		Address:      req.Address,
		City:         req.City,
		Country:      req.Country,
		PropertyType: req.PropertyType,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		MaxGuests:    req.MaxGuests,
		Amenities:    req.Amenities,
	}
	if t, err := time.Parse(time.DateOnly, req.AvailableFrom); err == nil {
		in.AvailableFrom = &t
	}
	if t, err := time.Parse(time.DateOnly, req.AvailableTo); err == nil {
		in.AvailableTo = &t
	}
	return in
}

// Browse searches listings
// @Summary      Browse homes
// @Tags         homes
// @Produce      json
// @Security     BearerAuth
// @Param        city query string false "City"
// @Param        country query string false "Country"
// @Param        min_guests query int false "Minimum guests"
// @Param        exclude_own query bool false "Hide the caller's homes"
// @Param        limit query int false "Page size (max 100)"
// @Param        offset query int false "Offset"
// @Success      200 {array} Home
// @Router       /homes [get]
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := BrowseFilter{
		City:      q.Get("city"),
		Country:   q.Get("country"),
		MinGuests: httputil.QueryInt(r, "min_guests", 0),
		Limit:     httputil.QueryInt(r, "limit", defaultPageSize),
		Offset:    httputil.QueryInt(r, "offset", 0),
	}
	if q.Get("exclude_own") == "true" {
		if userID, ok := principal.UserID(r.Context()); ok {
			f.ExcludeOwner = &userID
		}
	}

	homes, err := h.service.Browse(r.Context(), f)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to browse homes")
		return
	}
	httputil.RespondJSON(w, homes, http.StatusOK)
}

// Get returns one listing
// @Summary      Get home
// @Tags         homes
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Home ID"
// @Success      200 {object} Home
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /homes/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := homeID(w, r)
	if !ok {
		return
	}

	home, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to load home")
		return
	}
	httputil.RespondJSON(w, home, http.StatusOK)
}

// ListMine returns the caller's listings
// @Summary      My homes
// @Tags         homes
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Home
// @Router       /users/me/homes [get]
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	homes, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to list homes")
		return
	}
	httputil.RespondJSON(w, homes, http.StatusOK)
}

// Create lists a new home
// @Summary      Create home
// @Tags         homes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body HomeRequest true "Listing"
// @Success      201 {object} Home
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /homes [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	var req HomeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid home", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	home, err := h.service.Create(r.Context(), userID, req.input())
	if err != nil {
		h.respondServiceError(w, r, err, "failed to create home")
		return
	}

	logger.Info("home created", "home_id", home.ID)
	httputil.RespondJSON(w, home, http.StatusCreated)
}

// Update replaces the listing fields
// @Summary      Update home
// @Tags         homes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Home ID"
// @Param        request body HomeRequest true "Listing"
// @Success      200 {object} Home
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /homes/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}
	id, ok := homeID(w, r)
	if !ok {
		return
	}

	var req HomeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	home, err := h.service.Update(r.Context(), userID, id, req.input())
	if err != nil {
		h.respondServiceError(w, r, err, "failed to update home")
		return
	}

	logger.Info("home updated", "home_id", id)
	httputil.RespondJSON(w, home, http.StatusOK)
}

// Delete removes a listing
// @Summary      Delete home
// @Tags         homes
// @Security     BearerAuth
// @Param        id path string true "Home ID"
// @Success      204
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /homes/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}
	id, ok := homeID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.respondServiceError(w, r, err, "failed to delete home")
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("home deleted", "home_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage adds a photo to the listing
// @Summary      Upload home image
// @Tags         homes
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Home ID"
// @Param        image formData file true "JPEG, PNG or WebP image"
// @Success      200 {object} Home
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      503 {object} httputil.ErrorResponse
// @Router       /homes/{id}/images [post]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}
	id, ok := homeID(w, r)
	if !ok {
		return
	}

	data, err := storage.ReadFormImage(w, r, "image")
	if err != nil {
		logger.Warn("invalid home image", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidUpload, http.StatusBadRequest)
		return
	}

	home, err := h.service.AddImage(r.Context(), userID, id, data)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to upload home image")
		return
	}

	logger.Info("home image added", "home_id", id, "images", len(home.Images))
	httputil.RespondJSON(w, home, http.StatusOK)
}

func homeID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := httputil.URLParamUUID(r, "id")
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid home id", httputil.CodeInvalidID, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := logging.GetLoggerFromContext(r.Context())

	switch {
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "home not found", httputil.CodeHomeNotFound, http.StatusNotFound)
	case errors.Is(err, ErrNotOwner):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeNotHomeOwner, http.StatusForbidden)
	case errors.Is(err, ErrHomeInUse):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeHomeInUse, http.StatusConflict)
	case errors.Is(err, ErrInvalidAvailability), errors.Is(err, ErrTooManyImages):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
	case errors.Is(err, storage.ErrNotConfigured):
		logger.Warn("upload attempted without storage configured")
		httputil.RespondErrorWithCode(w, "image uploads are unavailable", httputil.CodeUploadUnavailable, http.StatusServiceUnavailable)
	default:
		logger.Error(fallback, "error", err.Error())
		httputil.RespondErrorWithCode(w, fallback, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
