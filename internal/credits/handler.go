package credits

import (
	"errors"
	"net/http"

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

// CheckoutRequest is the body of a credits purchase
type CheckoutRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=50"`
}

// GetBalance returns the caller's credit balance
// @Summary      Credit balance
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} Balance
// @Router       /credits [get]
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	balance, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to load balance")
		return
	}
	httputil.RespondJSON(w, balance, http.StatusOK)
}

// GetHistory lists ledger entries, newest first
// @Summary      Credit history
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Page size (max 100)"
// @Param        offset query int false "Offset"
// @Success      200 {array} Transaction
// @Router       /credits/transactions [get]
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	txs, err := h.service.History(r.Context(), userID, httputil.QueryInt(r, "limit", 50), httputil.QueryInt(r, "offset", 0))
	if err != nil {
		h.respondServiceError(w, r, err, "failed to load credit history")
		return
	}
	httputil.RespondJSON(w, txs, http.StatusOK)
}

// ClaimWelcome grants the one-time welcome credit
// @Summary      Claim welcome credit
// @Description  Grants the welcome credit once, only while the balance is zero. Repeated calls return granted=false.
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} WelcomeResult
// @Router       /credits/welcome [post]
func (h *Handler) ClaimWelcome(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	result, err := h.service.GrantWelcome(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to grant welcome credit")
		return
	}

	if result.Granted {
		logger.Info("welcome credit granted", "balance", result.Balance)
	}
	httputil.RespondJSON(w, result, http.StatusOK)
}

// CreateCheckout starts a Stripe checkout for buying credits
// @Summary      Buy credits
// @Tags         credits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CheckoutRequest true "Number of credits"
// @Success      201 {object} payment.CheckoutSession
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      503 {object} httputil.ErrorResponse
// @Router       /credits/checkout [post]
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	email, _ := principal.Email(r.Context())
	session, err := h.service.CreateCheckout(r.Context(), userID, email, req.Quantity)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to start checkout")
		return
	}

	logger.Info("credits checkout created", "session_id", session.ID, "quantity", req.Quantity)
	httputil.RespondJSON(w, session, http.StatusCreated)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
	case errors.Is(err, ErrInvalidQuantity):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
	case errors.Is(err, ErrInsufficientCredits):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInsufficientCredits, http.StatusBadRequest)
	case errors.Is(err, payment.ErrNotConfigured):
		httputil.RespondErrorWithCode(w, "payments are unavailable", httputil.CodePaymentUnavailable, http.StatusServiceUnavailable)
	default:
		logging.GetLoggerFromContext(r.Context()).Error(fallback, "error", err.Error())
		httputil.RespondErrorWithCode(w, fallback, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
