package verification

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/httputil"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/payment"
	"github.com/swapbnb/api/internal/principal"
	"github.com/swapbnb/api/internal/user"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// StartSessionRequest optionally ties the check to an exchange
type StartSessionRequest struct {
	ExchangeID *string `json:"exchange_id" validate:"omitempty,uuid"`
}

// StartSession opens an identity verification session
// @Summary      Start identity verification
// @Tags         verification
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body StartSessionRequest false "Optional exchange"
// @Success      201 {object} payment.IdentitySession
// @Failure      409 {object} httputil.ErrorResponse
// @Failure      503 {object} httputil.ErrorResponse
// @Router       /verification/session [post]
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	// the body is optional
	var req StartSessionRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
			return
		}
	}

	var exchangeID *uuid.UUID
	if req.ExchangeID != nil {
		id := uuid.MustParse(*req.ExchangeID)
		exchangeID = &id
	}

	email, _ := principal.Email(r.Context())
	session, err := h.service.StartSession(r.Context(), userID, email, exchangeID)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to start verification")
		return
	}

	logger.Info("identity session started", "session_id", session.ID)
	httputil.RespondJSON(w, session, http.StatusCreated)
}

// Status returns the caller's identity status
// @Summary      Identity status
// @Tags         verification
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} StatusResponse
// @Router       /verification/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to load verification status")
		return
	}
	httputil.RespondJSON(w, status, http.StatusOK)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrAlreadyVerified):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeAlreadyIdentityVerified, http.StatusConflict)
	case errors.Is(err, user.ErrNotFound):
		httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
	case errors.Is(err, payment.ErrNotConfigured):
		httputil.RespondErrorWithCode(w, "identity verification is unavailable", httputil.CodePaymentUnavailable, http.StatusServiceUnavailable)
	default:
		logging.GetLoggerFromContext(r.Context()).Error(fallback, "error", err.Error())
		httputil.RespondErrorWithCode(w, fallback, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
