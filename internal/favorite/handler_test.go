package favorite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapbnb/api/internal/home"
	"github.com/swapbnb/api/internal/principal"
)

type key struct{ user, home uuid.UUID }

type fakeStore struct {
	homes map[uuid.UUID]bool
	saved map[key]bool
}

func (s *fakeStore) List(_ context.Context, userID uuid.UUID) ([]Favorite, error) {
	var out []Favorite
	for k := range s.saved {
		if k.user == userID {
			out = append(out, Favorite{Home: home.Home{ID: k.home}})
		}
	}
	return out, nil
}

func (s *fakeStore) Exists(_ context.Context, userID, homeID uuid.UUID) (bool, error) {
	return s.saved[key{userID, homeID}], nil
}

func (s *fakeStore) Toggle(_ context.Context, userID, homeID uuid.UUID) (bool, error) {
	k := key{userID, homeID}
	if s.saved[k] {
		delete(s.saved, k)
		return false, nil
	}
	if !s.homes[homeID] {
		return false, ErrHomeNotFound
	}
	s.saved[k] = true
	return true, nil
}

func newTestRouter(store Store, as uuid.UUID) http.Handler {
	h := NewHandler(store)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(principal.WithUser(req.Context(), as, "")))
		})
	})
	r.Get("/favorites", h.List)
	r.Get("/favorites/{homeID}", h.Status)
	r.Post("/favorites/{homeID}/toggle", h.Toggle)
	return r
}

func TestToggleTwiceRestoresMembership(t *testing.T) {
	me, homeID := uuid.New(), uuid.New()
	store := &fakeStore{homes: map[uuid.UUID]bool{homeID: true}, saved: map[key]bool{}}
	router := newTestRouter(store, me)

	call := func(method, path string) string {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Body.String()
	}

	assert.JSONEq(t, `{"favorited":false}`, call(http.MethodGet, "/favorites/"+homeID.String()))
	assert.JSONEq(t, `{"favorited":true}`, call(http.MethodPost, "/favorites/"+homeID.String()+"/toggle"))
	assert.JSONEq(t, `{"favorited":true}`, call(http.MethodGet, "/favorites/"+homeID.String()))
	assert.JSONEq(t, `{"favorited":false}`, call(http.MethodPost, "/favorites/"+homeID.String()+"/toggle"))
	assert.JSONEq(t, `{"favorited":false}`, call(http.MethodGet, "/favorites/"+homeID.String()))
	assert.Empty(t, store.saved)
}

func TestToggle_UnknownHome(t *testing.T) {
	store := &fakeStore{homes: map[uuid.UUID]bool{}, saved: map[key]bool{}}
	rec := httptest.NewRecorder()
	newTestRouter(store, uuid.New()).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/favorites/"+uuid.NewString()+"/toggle", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
