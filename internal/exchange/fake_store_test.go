package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/credits"
	"github.com/swapbnb/api/internal/message"
	"github.com/swapbnb/api/internal/payment"
	"github.com/swapbnb/api/internal/video"
)

type ledgerRow struct {
	credits.Entry
	Signed int
}

// fakeStore keeps everything in memory. InTx snapshots state and restores it
// when the callback fails, like a rolled back transaction.
type fakeStore struct {
	mu        sync.Mutex
	exchanges map[uuid.UUID]*Exchange
	homes     map[uuid.UUID]uuid.UUID
	identity  map[uuid.UUID]string
	balances  map[uuid.UUID]int
	ledger    []ledgerRow
	messages  []*message.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		exchanges: map[uuid.UUID]*Exchange{},
		homes:     map[uuid.UUID]uuid.UUID{},
		identity:  map[uuid.UUID]string{},
		balances:  map[uuid.UUID]int{},
	}
}

func (s *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exchanges := make(map[uuid.UUID]Exchange, len(s.exchanges))
	for id, ex := range s.exchanges {
		exchanges[id] = *ex
	}
	balances := make(map[uuid.UUID]int, len(s.balances))
	for id, b := range s.balances {
		balances[id] = b
	}
	ledgerLen, messagesLen := len(s.ledger), len(s.messages)

	if err := fn(ctx, &fakeTx{s: s}); err != nil {
		s.exchanges = make(map[uuid.UUID]*Exchange, len(exchanges))
		for id, ex := range exchanges {
			cp := ex
			s.exchanges[id] = &cp
		}
		s.balances = balances
		s.ledger = s.ledger[:ledgerLen]
		s.messages = s.messages[:messagesLen]
		return err
	}
	return nil
}

func (s *fakeStore) Create(_ context.Context, ex *Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex.ID = uuid.New()
	ex.CreatedAt = time.Now()
	ex.UpdatedAt = ex.CreatedAt
	cp := *ex
	s.exchanges[ex.ID] = &cp
	return nil
}

func (s *fakeStore) Get(_ context.Context, id uuid.UUID) (*Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.exchanges[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ex
	return &cp, nil
}

func (s *fakeStore) List(_ context.Context, userID uuid.UUID, filter ListFilter) ([]Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Exchange
	for _, ex := range s.exchanges {
		match := ex.IsParticipant(userID)
		if filter.Role == RoleRequester {
			match = ex.RequesterID == userID
		} else if filter.Role == RoleHost {
			match = ex.HostID == userID
		}
		if match && (filter.Status == "" || filter.Status == ex.Status) {
			out = append(out, *ex)
		}
	}
	return out, nil
}

func (s *fakeStore) HomeOwner(_ context.Context, homeID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.homes[homeID]
	if !ok {
		return uuid.Nil, ErrHomeNotFound
	}
	return owner, nil
}

func (s *fakeStore) IdentityStatus(_ context.Context, userID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, ok := s.identity[userID]; ok {
		return status, nil
	}
	return "unverified", nil
}

func (s *fakeStore) UpdateIdentityStatus(_ context.Context, userID uuid.UUID, status string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ex := range s.exchanges {
		if !IsOpen(ex.Status) {
			continue
		}
		if ex.RequesterID == userID {
			ex.RequesterIdentityStatus = status
			n++
		}
		if ex.HostID == userID {
			ex.HostIdentityStatus = status
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) status(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ex, ok := s.exchanges[id]; ok {
		return ex.Status
	}
	return ""
}

func (s *fakeStore) balance(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID]
}

func (s *fakeStore) ledgerFor(userID uuid.UUID) []ledgerRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledgerRow
	for _, row := range s.ledger {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out
}

// fakeTx runs with the store lock held by InTx
type fakeTx struct {
	s *fakeStore
}

func (t *fakeTx) GetForUpdate(_ context.Context, id uuid.UUID) (*Exchange, error) {
	ex, ok := t.s.exchanges[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ex
	return &cp, nil
}

func (t *fakeTx) Update(_ context.Context, ex *Exchange, from string) error {
	stored, ok := t.s.exchanges[ex.ID]
	if !ok || stored.Status != from {
		return ErrInvalidTransition
	}
	cp := *ex
	cp.UpdatedAt = time.Now()
	t.s.exchanges[ex.ID] = &cp
	return nil
}

func (t *fakeTx) Delete(_ context.Context, id uuid.UUID) error {
	delete(t.s.exchanges, id)
	return nil
}

func (t *fakeTx) Debit(_ context.Context, e credits.Entry) (int, error) {
	if t.s.balances[e.UserID] < e.Amount {
		return 0, credits.ErrInsufficientCredits
	}
	t.s.balances[e.UserID] -= e.Amount
	t.s.ledger = append(t.s.ledger, ledgerRow{Entry: e, Signed: -e.Amount})
	return t.s.balances[e.UserID], nil
}

func (t *fakeTx) Credit(_ context.Context, e credits.Entry) (int, error) {
	t.s.balances[e.UserID] += e.Amount
	t.s.ledger = append(t.s.ledger, ledgerRow{Entry: e, Signed: e.Amount})
	return t.s.balances[e.UserID], nil
}

func (t *fakeTx) InsertMessage(_ context.Context, m *message.Message) error {
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	t.s.messages = append(t.s.messages, m)
	return nil
}

type fakeVideo struct {
	calls int
}

func (v *fakeVideo) CreateRoom(_ context.Context, exchangeID uuid.UUID, _ time.Time) (video.Room, error) {
	v.calls++
	return video.Room{Name: exchangeID.String(), URL: "https://video.test/" + exchangeID.String()}, nil
}

type fakeGateway struct {
	last *payment.CheckoutRequest
	err  error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.last = &req
	return &payment.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.test/cs_test_1"}, nil
}

func (g *fakeGateway) CreateIdentitySession(_ context.Context, _ payment.IdentityRequest) (*payment.IdentitySession, error) {
	return nil, payment.ErrNotConfigured
}
