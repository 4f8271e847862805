// Package principal carries the authenticated user through request contexts.
package principal

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/swapbnb/api/internal/httputil"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	emailKey  contextKey = "user_email"
)

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, userID uuid.UUID, email string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, emailKey, email)
}

// UserID extracts the user ID from the request context
func UserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}

// Email extracts the user email from the request context
func Email(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailKey).(string)
	return email, ok
}

// Require returns the authenticated user ID or writes a 401 and returns false
func Require(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := UserID(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return userID, true
}
