package favorite

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/httputil"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/principal"
)

// Store is the persistence used by Handler
type Store interface {
	List(ctx context.Context, userID uuid.UUID) ([]Favorite, error)
	Exists(ctx context.Context, userID, homeID uuid.UUID) (bool, error)
	Toggle(ctx context.Context, userID, homeID uuid.UUID) (bool, error)
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type StatusResponse struct {
	Favorited bool `json:"favorited"`
}

// List returns the caller's saved homes
// @Summary      List favorites
// @Tags         favorites
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Favorite
// @Router       /favorites [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	favs, err := h.store.List(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err, "failed to list favorites")
		return
	}
	httputil.RespondJSON(w, favs, http.StatusOK)
}

// Toggle saves or unsaves a home
// @Summary      Toggle favorite
// @Tags         favorites
// @Produce      json
// @Security     BearerAuth
// @Param        homeID path string true "Home ID"
// @Success      200 {object} StatusResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /favorites/{homeID}/toggle [post]
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, homeID, ok := ids(w, r)
	if !ok {
		return
	}

	favorited, err := h.store.Toggle(r.Context(), userID, homeID)
	if err != nil {
		h.respondError(w, r, err, "failed to toggle favorite")
		return
	}

	logging.GetLoggerFromContext(r.Context()).Debug("favorite toggled", "home_id", homeID, "favorited", favorited)
	httputil.RespondJSON(w, StatusResponse{Favorited: favorited}, http.StatusOK)
}

// Status reports whether the caller saved a home
// @Summary      Favorite status
// @Tags         favorites
// @Produce      json
// @Security     BearerAuth
// @Param        homeID path string true "Home ID"
// @Success      200 {object} StatusResponse
// @Router       /favorites/{homeID} [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, homeID, ok := ids(w, r)
	if !ok {
		return
	}

	favorited, err := h.store.Exists(r.Context(), userID, homeID)
	if err != nil {
		h.respondError(w, r, err, "failed to load favorite")
		return
	}
	httputil.RespondJSON(w, StatusResponse{Favorited: favorited}, http.StatusOK)
}

func ids(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := principal.Require(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	homeID, err := httputil.URLParamUUID(r, "homeID")
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid home id", httputil.CodeInvalidID, http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, homeID, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, ErrHomeNotFound) {
		httputil.RespondErrorWithCode(w, "home not found", httputil.CodeHomeNotFound, http.StatusNotFound)
		return
	}
	logging.GetLoggerFromContext(r.Context()).Error(fallback, "error", err.Error())
	httputil.RespondErrorWithCode(w, fallback, httputil.CodeInternalError, http.StatusInternalServerError)
}
