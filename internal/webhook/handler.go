package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v76"

	"github.com/swapbnb/api/internal/httputil"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/metrics"
	"github.com/swapbnb/api/internal/payment"
)

const maxBodyBytes = 65536

type Handler struct {
	service        *Service
	paymentsSecret string
	identitySecret string
}

func NewHandler(service *Service, paymentsSecret, identitySecret string) *Handler {
	return &Handler{
		service:        service,
		paymentsSecret: paymentsSecret,
		identitySecret: identitySecret,
	}
}

// ReceivedResponse acknowledges a delivery
type ReceivedResponse struct {
	Received bool `json:"received"`
}

// Payments receives checkout and payment intent events
// @Summary      Stripe payments webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "Webhook signature"
// @Success      200 {object} ReceivedResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /webhooks/stripe [post]
func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	h.receive(w, r, "stripe", h.paymentsSecret, h.service.HandlePaymentEvent)
}

// Identity receives verification session events
// @Summary      Stripe identity webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "Webhook signature"
// @Success      200 {object} ReceivedResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /webhooks/identity [post]
func (h *Handler) Identity(w http.ResponseWriter, r *http.Request) {
	h.receive(w, r, "identity", h.identitySecret, h.service.HandleIdentityEvent)
}

func (h *Handler) receive(
	w http.ResponseWriter,
	r *http.Request,
	endpoint, secret string,
	apply func(context.Context, stripe.Event) (string, error),
) {
	logger := logging.GetLoggerFromContext(r.Context())

	if secret == "" {
		logger.Error("webhook secret not configured", "endpoint", endpoint)
		httputil.RespondErrorWithCode(w, "webhooks are unavailable", httputil.CodePaymentUnavailable, http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	event, err := payment.ConstructEvent(body, r.Header.Get("Stripe-Signature"), secret)
	if err != nil {
		logger.Warn("webhook signature rejected", "endpoint", endpoint, "error", err.Error())
		metrics.WebhookEvent(endpoint, "unknown", ResultInvalidSignature)
		httputil.RespondErrorWithCode(w, "invalid signature", httputil.CodeInvalidSignature, http.StatusBadRequest)
		return
	}

	ctx := logging.Enrich(r.Context(), map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
	})
	logger = logging.GetLoggerFromContext(ctx)

	result, err := apply(ctx, event)
	metrics.WebhookEvent(endpoint, string(event.Type), result)
	if err != nil {
		if errors.Is(err, ErrMalformedEvent) {
			logger.Warn("malformed webhook event", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRequestBody, http.StatusBadRequest)
			return
		}
		logger.Error("failed to apply webhook event", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to process event", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("webhook event handled", "result", result)
	httputil.RespondJSON(w, ReceivedResponse{Received: true}, http.StatusOK)
}
