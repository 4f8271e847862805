package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapbnb/api/internal/principal"
)

func TestRequireAuth(t *testing.T) {
	tokens, err := NewJWTService([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	mw := NewMiddleware(tokens)

	userID := uuid.New()
	valid, err := tokens.CreateToken(userID, "ana@example.com", time.Minute)
	require.NoError(t, err)
	expired, err := tokens.CreateToken(userID, "ana@example.com", -time.Minute)
	require.NoError(t, err)

	var seen uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = principal.UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := mw.RequireAuth(next)

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, http.StatusNoContent, ""},
		{"cookie fallback", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: valid}) }, http.StatusNoContent, ""},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized, "missing_auth"},
		{"bad scheme", func(r *http.Request) { r.Header.Set("Authorization", "Token "+valid) }, http.StatusUnauthorized, "invalid_auth_header"},
		{"expired", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }, http.StatusUnauthorized, "token_expired"},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, "invalid_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			tt.setup(r)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, r)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, userID, seen)
			} else {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
				assert.Equal(t, uuid.Nil, seen)
			}
		})
	}
}
