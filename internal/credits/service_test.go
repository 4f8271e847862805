package credits

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapbnb/api/internal/config"
	"github.com/swapbnb/api/internal/payment"
	"github.com/swapbnb/api/internal/principal"
)

// fakeStore mirrors the conditional updates of Repository in memory
type fakeStore struct {
	mu       sync.Mutex
	balances map[uuid.UUID]*Balance
	txs      []Transaction
	sessions map[string]bool
}

func newFakeStore(users ...uuid.UUID) *fakeStore {
	f := &fakeStore{balances: map[uuid.UUID]*Balance{}, sessions: map[string]bool{}}
	for _, id := range users {
		f.balances[id] = &Balance{}
	}
	return f
}

func (f *fakeStore) Balance(_ context.Context, userID uuid.UUID) (*Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) History(_ context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Transaction
	for i := len(f.txs) - 1; i >= 0; i-- {
		if f.txs[i].UserID == userID {
			out = append(out, f.txs[i])
		}
	}
	if offset >= len(out) {
		return []Transaction{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) GrantWelcome(_ context.Context, userID uuid.UUID, amount int) (*WelcomeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if b.Credits != 0 || b.WelcomeCreditGranted {
		return &WelcomeResult{Balance: b.Credits}, nil
	}
	b.Credits += amount
	b.WelcomeCreditGranted = true
	f.txs = append(f.txs, Transaction{ID: uuid.New(), UserID: userID, Amount: amount, Type: TypeWelcome})
	return &WelcomeResult{Granted: true, Balance: b.Credits}, nil
}

func (f *fakeStore) FulfillPurchase(_ context.Context, userID uuid.UUID, quantity int, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessions[sessionID] {
		return false, nil
	}
	b, ok := f.balances[userID]
	if !ok {
		return false, ErrUserNotFound
	}
	f.sessions[sessionID] = true
	b.Credits += quantity
	f.txs = append(f.txs, Transaction{ID: uuid.New(), UserID: userID, Amount: quantity, Type: TypePurchase})
	return true, nil
}

func (f *fakeStore) count(userID uuid.UUID, txType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, tx := range f.txs {
		if tx.UserID == userID && tx.Type == txType {
			n++
		}
	}
	return n
}

type fakeGateway struct {
	lastCheckout payment.CheckoutRequest
	err          error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.lastCheckout = req
	return &payment.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (g *fakeGateway) CreateIdentitySession(context.Context, payment.IdentityRequest) (*payment.IdentitySession, error) {
	return nil, payment.ErrNotConfigured
}

var testCreditsConfig = config.CreditsConfig{PerSwap: 1, WelcomeAmount: 1, UnitPriceCents: 1000, Currency: "eur"}

func newTestRouter(svc *Service, userID uuid.UUID) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(principal.WithUser(req.Context(), userID, "ana@example.com")))
		})
	})
	r.Get("/credits", h.GetBalance)
	r.Get("/credits/transactions", h.GetHistory)
	r.Post("/credits/welcome", h.ClaimWelcome)
	r.Post("/credits/checkout", h.CreateCheckout)
	return r
}

func TestWelcomeScenario(t *testing.T) {
	userID := uuid.New()
	store := newFakeStore(userID)
	router := newTestRouter(NewService(store, &fakeGateway{}, testCreditsConfig, config.StripeConfig{}), userID)

	claim := func() WelcomeResult {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/credits/welcome", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var res WelcomeResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		return res
	}

	first := claim()
	assert.True(t, first.Granted)
	assert.Equal(t, 1, first.Balance)
	assert.Equal(t, 1, store.count(userID, TypeWelcome))

	second := claim()
	assert.False(t, second.Granted)
	assert.Equal(t, 1, second.Balance)
	assert.Equal(t, 1, store.count(userID, TypeWelcome))
}

func TestGrantWelcome_NeverIncreasesPositiveBalance(t *testing.T) {
	userID := uuid.New()
	store := newFakeStore(userID)
	svc := NewService(store, &fakeGateway{}, testCreditsConfig, config.StripeConfig{})
	ctx := context.Background()

	_, err := svc.FulfillPurchase(ctx, userID, 3, "cs_1")
	require.NoError(t, err)

	res, err := svc.GrantWelcome(ctx, userID)
	require.NoError(t, err)
	assert.False(t, res.Granted)
	assert.Equal(t, 3, res.Balance)
	assert.Zero(t, store.count(userID, TypeWelcome))
}

func TestFulfillPurchase_Idempotent(t *testing.T) {
	userID := uuid.New()
	store := newFakeStore(userID)
	svc := NewService(store, &fakeGateway{}, testCreditsConfig, config.StripeConfig{})
	ctx := context.Background()

	applied, err := svc.FulfillPurchase(ctx, userID, 5, "cs_1")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = svc.FulfillPurchase(ctx, userID, 5, "cs_1")
	require.NoError(t, err)
	assert.False(t, applied)

	b, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, b.Credits)
	assert.Equal(t, 1, store.count(userID, TypePurchase))
}

func TestCreateCheckout(t *testing.T) {
	userID := uuid.New()
	gw := &fakeGateway{}
	svc := NewService(newFakeStore(userID), gw, testCreditsConfig, config.StripeConfig{SuccessURL: "https://app/ok", CancelURL: "https://app/cancel"})
	router := newTestRouter(svc, userID)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/credits/checkout", strings.NewReader(`{"quantity":3}`)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "cs_test_1")

	req := gw.lastCheckout
	assert.Equal(t, int64(3), req.Quantity)
	assert.Equal(t, int64(1000), req.UnitAmountCents)
	assert.Equal(t, "eur", req.Currency)
	assert.Equal(t, "ana@example.com", req.Email)
	assert.Equal(t, "https://app/ok", req.SuccessURL)
	assert.Equal(t, map[string]string{
		payment.MetaKind:    payment.KindCreditsPurchase,
		payment.MetaUserID:  userID.String(),
		payment.MetaCredits: "3",
	}, req.Metadata)
}

func TestCreateCheckout_Validation(t *testing.T) {
	userID := uuid.New()
	router := newTestRouter(NewService(newFakeStore(userID), &fakeGateway{}, testCreditsConfig, config.StripeConfig{}), userID)

	for _, body := range []string{`{"quantity":0}`, `{"quantity":51}`, `not json`} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/credits/checkout", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestCreateCheckout_PaymentsUnavailable(t *testing.T) {
	userID := uuid.New()
	gw := &fakeGateway{err: payment.ErrNotConfigured}
	router := newTestRouter(NewService(newFakeStore(userID), gw, testCreditsConfig, config.StripeConfig{}), userID)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/credits/checkout", strings.NewReader(`{"quantity":1}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetHistory_NewestFirst(t *testing.T) {
	userID := uuid.New()
	store := newFakeStore(userID)
	svc := NewService(store, &fakeGateway{}, testCreditsConfig, config.StripeConfig{})
	ctx := context.Background()

	_, err := svc.GrantWelcome(ctx, userID)
	require.NoError(t, err)
	_, err = svc.FulfillPurchase(ctx, userID, 2, "cs_9")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	newTestRouter(svc, userID).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/credits/transactions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var txs []Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	require.Len(t, txs, 2)
	assert.Equal(t, TypePurchase, txs[0].Type)
	assert.Equal(t, TypeWelcome, txs[1].Type)
}
