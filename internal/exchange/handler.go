package exchange

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/credits"
	"github.com/swapbnb/api/internal/httputil"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/payment"
	"github.com/swapbnb/api/internal/principal"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateRequest is a swap request. Dates use YYYY-MM-DD.
type CreateRequest struct {
	RequesterHomeID string `json:"requester_home_id" validate:"required,uuid"`
	HostHomeID      string `json:"host_home_id" validate:"required,uuid"`
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Message         string `json:"message" validate:"max=2000"`
}

type ScheduleVideoCallRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// Create requests a home swap
// @Summary      Request an exchange
// @Tags         exchanges
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateRequest true "Exchange request"
// @Success      201 {object} Exchange
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /exchanges [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid exchange request", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	start, _ := time.Parse(time.DateOnly, req.StartDate)
	end, _ := time.Parse(time.DateOnly, req.EndDate)
	ex, err := h.service.Create(r.Context(), userID, CreateInput{
		RequesterHomeID: uuid.MustParse(req.RequesterHomeID),
		HostHomeID:      uuid.MustParse(req.HostHomeID),
		StartDate:       start,
		EndDate:         end,
		Message:         req.Message,
	})
	if err != nil {
		h.respondServiceError(w, r, err, "failed to create exchange")
		return
	}

	logger.Info("exchange requested", "exchange_id", ex.ID, "host_id", ex.HostID)
	httputil.RespondJSON(w, ex, http.StatusCreated)
}

// List returns the caller's exchanges
// @Summary      List exchanges
// @Tags         exchanges
// @Produce      json
// @Security     BearerAuth
// @Param        role query string false "requester, host or all"
// @Param        status query string false "Filter by status"
// @Success      200 {array} Exchange
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /exchanges [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	list, err := h.service.List(r.Context(), userID, ListFilter{Role: q.Get("role"), Status: q.Get("status")})
	if err != nil {
		h.respondServiceError(w, r, err, "failed to list exchanges")
		return
	}
	httputil.RespondJSON(w, list, http.StatusOK)
}

// Get returns one exchange
// @Summary      Get exchange
// @Tags         exchanges
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Exchange ID"
// @Success      200 {object} Exchange
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /exchanges/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "failed to load exchange", h.service.Get)
}

// Accept accepts a pending request
// @Summary      Accept exchange
// @Tags         exchanges
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Exchange ID"
// @Success      200 {object} Exchange
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /exchanges/{id}/accept [post]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "failed to accept exchange", h.service.Accept)
}

// Reject declines a pending request
// @Summary      Reject exchange
// @Tags         exchanges
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Exchange ID"
// @Success      200 {object} Exchange
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /exchanges/{id}/reject [post]
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "failed to reject exchange", h.service.Reject)
}

// Cancel cancels an open exchange and refunds paid shares
// @Summary      Cancel exchange
// @Tags         exchanges
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Exchange ID"
// @Success      200 {object} Exchange
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /exchanges/{id}/cancel [post]
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "failed to cancel exchange", h.service.Cancel)
}

// ScheduleVideoCall books or moves the video call
// @Summary      Schedule video call
// @Tags         exchanges
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Exchange ID"
// @Param        request body ScheduleVideoCallRequest true "Call time (RFC 3339)"
// @Success      200 {object} Exchange
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /exchanges/{id}/videocall [post]
func (h *Handler) ScheduleVideoCall(w http.ResponseWriter, r *http.Request) {
	var req ScheduleVideoCallRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	h.action(w, r, "failed to schedule video call", func(ctx context.Context, actorID, id uuid.UUID) (*Exchange, error) {
		return h.service.ScheduleVideoCall(ctx, actorID, id, req.ScheduledAt)
	})
}

// SkipVideoCall goes from accepted straight to payment
// @Summary      Skip video call
// @Tags         exchanges
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Exchange ID"
// @Success      200 {object} Exchange
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /exchanges/{id}/videocall/skip [post]
func (h *Handler) SkipVideoCall(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "failed to skip video call", h.service.SkipVideoCall)
}

// CompleteVideoCall marks the scheduled call as held
// @Summary      Complete video call
// @Tags         exchanges
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Exchange ID"
// @Success      200 {object} Exchange
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /exchanges/{id}/videocall/complete [post]
func (h *Handler) CompleteVideoCall(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "failed to complete video call", h.service.CompleteVideoCall)
}

// PayCredits pays the caller's share with credits
// @Summary      Pay with credits
// @Description  Debits the per-swap amount. When both shares are paid the exchange becomes confirmed.
// @Tags         exchanges
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Exchange ID"
// @Success      200 {object} PaymentResult
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /exchanges/{id}/pay [post]
func (h *Handler) PayCredits(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	result, err := h.service.PayCredits(r.Context(), userID, id)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to pay for exchange")
		return
	}

	logger.Info("exchange share paid", "exchange_id", id, "confirmed", result.Confirmed)
	httputil.RespondJSON(w, result, http.StatusOK)
}

// CreateCheckout pays the caller's share by card
// @Summary      Pay by card
// @Tags         exchanges
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Exchange ID"
// @Success      201 {object} payment.CheckoutSession
// @Failure      409 {object} httputil.ErrorResponse
// @Failure      503 {object} httputil.ErrorResponse
// @Router       /exchanges/{id}/checkout [post]
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	email, _ := principal.Email(r.Context())
	session, err := h.service.CreatePaymentCheckout(r.Context(), userID, email, id)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to start checkout")
		return
	}

	logger.Info("exchange checkout created", "exchange_id", id, "session_id", session.ID)
	httputil.RespondJSON(w, session, http.StatusCreated)
}

// Delete removes a pending, rejected or cancelled exchange
// @Summary      Delete exchange
// @Tags         exchanges
// @Security     BearerAuth
// @Param        id path string true "Exchange ID"
// @Success      204
// @Failure      404 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /exchanges/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.respondServiceError(w, r, err, "failed to delete exchange")
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("exchange deleted", "exchange_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ids(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := principal.Require(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := httputil.URLParamUUID(r, "id")
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid exchange id", httputil.CodeInvalidID, http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request, fallback string, fn func(ctx context.Context, actorID, id uuid.UUID) (*Exchange, error)) {
	userID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	ex, err := fn(r.Context(), userID, id)
	if err != nil {
		h.respondServiceError(w, r, err, fallback)
		return
	}
	httputil.RespondJSON(w, ex, http.StatusOK)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "exchange not found", httputil.CodeExchangeNotFound, http.StatusNotFound)
	case errors.Is(err, ErrHomeNotFound):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeHomeNotFound, http.StatusNotFound)
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotPayable):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidTransition, http.StatusConflict)
	case errors.Is(err, ErrAlreadyPaid):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeAlreadyPaid, http.StatusConflict)
	case errors.Is(err, ErrHostOnly):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeHostOnly, http.StatusForbidden)
	case errors.Is(err, ErrNotHomeOwner):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeNotHomeOwner, http.StatusForbidden)
	case errors.Is(err, ErrInvalidDates):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidDates, http.StatusBadRequest)
	case errors.Is(err, ErrOwnHome):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeOwnHome, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidSchedule), errors.Is(err, ErrInvalidRole), errors.Is(err, ErrInvalidStatus):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
	case errors.Is(err, credits.ErrInsufficientCredits):
		httputil.RespondErrorWithCode(w, "insufficient credits", httputil.CodeInsufficientCredits, http.StatusBadRequest)
	case errors.Is(err, payment.ErrNotConfigured):
		httputil.RespondErrorWithCode(w, "payments are unavailable", httputil.CodePaymentUnavailable, http.StatusServiceUnavailable)
	default:
		logging.GetLoggerFromContext(r.Context()).Error(fallback, "error", err.Error())
		httputil.RespondErrorWithCode(w, fallback, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
