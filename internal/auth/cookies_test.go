package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldUseCookies(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{"plain api client", nil, false},
		{"browser origin", map[string]string{"Origin": "http://localhost:3000"}, true},
		{"html navigation", map[string]string{"Accept": "text/html,application/xhtml+xml"}, true},
		{"explicit mobile wins", map[string]string{"Origin": "http://x", "X-Client-Type": "mobile"}, false},
		{"explicit web", map[string]string{"X-Client-Type": "web"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ShouldUseCookies(r))
		})
	}
}

func TestAuthCookies_RoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	SetAuthCookies(rec, "access", "refresh", true, time.Minute, time.Hour)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}

	access, err := GetAccessTokenFromCookie(r)
	require.NoError(t, err)
	assert.Equal(t, "access", access)

	refresh, err := GetRefreshTokenFromCookie(r)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refresh)
}

func TestClearAuthCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearAuthCookies(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestGetAccessTokenFromCookie_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := GetAccessTokenFromCookie(r)
	assert.ErrorIs(t, err, http.ErrNoCookie)
}
