package message

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/httputil"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/principal"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SendRequest is a direct message, optionally tied to an exchange
type SendRequest struct {
	ReceiverID string  `json:"receiver_id" validate:"required,uuid"`
	ExchangeID *string `json:"exchange_id" validate:"omitempty,uuid"`
	Content    string  `json:"content" validate:"required,max=5000"`
}

// ExchangeMessageRequest is a message posted into an exchange thread
type ExchangeMessageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

// Send posts a message to another user
// @Summary      Send message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SendRequest true "Message"
// @Success      201 {object} Message
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /messages [post]
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	var req SendRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid message", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	in := SendInput{ReceiverID: uuid.MustParse(req.ReceiverID), Content: req.Content}
	if req.ExchangeID != nil {
		exchangeID := uuid.MustParse(*req.ExchangeID)
		in.ExchangeID = &exchangeID
	}

	m, err := h.service.Send(r.Context(), userID, in)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to send message")
		return
	}

	logger.Info("message sent", "message_id", m.ID, "receiver_id", m.ReceiverID)
	httputil.RespondJSON(w, m, http.StatusCreated)
}

// ListConversation returns messages exchanged with another user
// @Summary      Conversation with a user
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        with query string true "Other user ID"
// @Param        limit query int false "Page size (max 200)"
// @Param        offset query int false "Offset"
// @Success      200 {array} Message
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /messages [get]
func (h *Handler) ListConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	withID, err := uuid.Parse(r.URL.Query().Get("with"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "query parameter 'with' must be a user id", httputil.CodeInvalidID, http.StatusBadRequest)
		return
	}

	msgs, err := h.service.Conversation(r.Context(), userID, withID,
		httputil.QueryInt(r, "limit", defaultPageSize), httputil.QueryInt(r, "offset", 0))
	if err != nil {
		h.respondServiceError(w, r, err, "failed to load conversation")
		return
	}
	httputil.RespondJSON(w, msgs, http.StatusOK)
}

// ListExchangeMessages returns the thread of an exchange
// @Summary      Exchange messages
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Exchange ID"
// @Success      200 {array} Message
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /exchanges/{id}/messages [get]
func (h *Handler) ListExchangeMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}
	exchangeID, err := httputil.URLParamUUID(r, "id")
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid exchange id", httputil.CodeInvalidID, http.StatusBadRequest)
		return
	}

	msgs, err := h.service.ExchangeThread(r.Context(), userID, exchangeID,
		httputil.QueryInt(r, "limit", defaultPageSize), httputil.QueryInt(r, "offset", 0))
	if err != nil {
		h.respondServiceError(w, r, err, "failed to load exchange messages")
		return
	}
	httputil.RespondJSON(w, msgs, http.StatusOK)
}

// SendExchangeMessage posts into an exchange thread
// @Summary      Message the other participant
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Exchange ID"
// @Param        request body ExchangeMessageRequest true "Message"
// @Success      201 {object} Message
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /exchanges/{id}/messages [post]
func (h *Handler) SendExchangeMessage(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}
	exchangeID, err := httputil.URLParamUUID(r, "id")
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid exchange id", httputil.CodeInvalidID, http.StatusBadRequest)
		return
	}

	var req ExchangeMessageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	m, err := h.service.SendInExchange(r.Context(), userID, exchangeID, req.Content)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to send message")
		return
	}

	logger.Info("exchange message sent", "message_id", m.ID, "exchange_id", exchangeID)
	httputil.RespondJSON(w, m, http.StatusCreated)
}

// MarkRead marks a received message as read
// @Summary      Mark message read
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Message ID"
// @Success      200 {object} Message
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /messages/{id}/read [post]
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}
	messageID, err := httputil.URLParamUUID(r, "id")
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid message id", httputil.CodeInvalidID, http.StatusBadRequest)
		return
	}

	m, err := h.service.MarkRead(r.Context(), userID, messageID)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to mark message read")
		return
	}
	httputil.RespondJSON(w, m, http.StatusOK)
}

// UnreadCount returns how many received messages are unread
// @Summary      Unread message count
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UnreadCountResponse
// @Router       /messages/unread-count [get]
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal.Require(w, r)
	if !ok {
		return
	}

	n, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to count unread messages")
		return
	}
	httputil.RespondJSON(w, UnreadCountResponse{Count: n}, http.StatusOK)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrContentTooLong), errors.Is(err, ErrSelfMessage):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
	case errors.Is(err, ErrReceiverNotInDeal):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeNotParticipant, http.StatusBadRequest)
	case errors.Is(err, ErrExchangeNotFound):
		httputil.RespondErrorWithCode(w, "exchange not found", httputil.CodeExchangeNotFound, http.StatusNotFound)
	case errors.Is(err, ErrReceiverNotFound), errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeNotFound, http.StatusNotFound)
	default:
		logging.GetLoggerFromContext(r.Context()).Error(fallback, "error", err.Error())
		httputil.RespondErrorWithCode(w, fallback, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
