package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/homes/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/homes/{id}", "404"))

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/homes/"+id, nil))
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/homes/{id}", "404"))
	assert.Equal(t, 3.0, after-before)
}

func TestCreditsMoved_UsesAbsoluteAmount(t *testing.T) {
	before := testutil.ToFloat64(creditsMovedTotal.WithLabelValues("swap_payment"))
	CreditsMoved("swap_payment", -2)
	assert.Equal(t, 2.0, testutil.ToFloat64(creditsMovedTotal.WithLabelValues("swap_payment"))-before)
}
