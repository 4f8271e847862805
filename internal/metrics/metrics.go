// Package metrics exposes Prometheus collectors for HTTP traffic and marketplace activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapbnb_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swapbnb_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	exchangeTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapbnb_exchange_transitions_total",
			Help: "Exchange status transitions by target status",
		},
		[]string{"status"},
	)

	creditsMovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapbnb_credits_moved_total",
			Help: "Absolute credits moved through the ledger by transaction type",
		},
		[]string{"type"},
	)

	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapbnb_webhook_events_total",
			Help: "Webhook deliveries by endpoint, event type and outcome",
		},
		[]string{"endpoint", "event_type", "result"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapbnb_notifications_total",
			Help: "Notification deliveries by channel and outcome",
		},
		[]string{"channel", "result"},
	)
)

// Handler serves the Prometheus scrape endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latencies labelled by chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// ExchangeTransition counts an exchange entering status
func ExchangeTransition(status string) {
	exchangeTransitionsTotal.WithLabelValues(status).Inc()
}

// CreditsMoved counts credits moved by a ledger entry
func CreditsMoved(txType string, amount int) {
	if amount < 0 {
		amount = -amount
	}
	creditsMovedTotal.WithLabelValues(txType).Add(float64(amount))
}

// WebhookEvent counts a webhook delivery
func WebhookEvent(endpoint, eventType, result string) {
	webhookEventsTotal.WithLabelValues(endpoint, eventType, result).Inc()
}

// Notification counts a notification attempt
func Notification(channel string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	notificationsTotal.WithLabelValues(channel, result).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

// routePattern avoids label cardinality explosion from IDs in paths
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
