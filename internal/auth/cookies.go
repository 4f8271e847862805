package auth

import (
	"net/http"
	"strings"
	"time"
)

const (
	AccessTokenCookie  = "swapbnb_access_token"
	RefreshTokenCookie = "swapbnb_refresh_token"

	// clientTypeHeader lets API clients opt out of cookies
	clientTypeHeader = "X-Client-Type"
)

// ShouldUseCookies reports whether tokens should be delivered as cookies.
// Browsers get cookies unless they ask for tokens in the body.
func ShouldUseCookies(r *http.Request) bool {
	switch strings.ToLower(r.Header.Get(clientTypeHeader)) {
	case "web", "browser":
		return true
	case "mobile", "api", "cli":
		return false
	}
	return r.Header.Get("Origin") != "" || strings.Contains(r.Header.Get("Accept"), "text/html")
}

// SetAuthCookies writes both tokens as HttpOnly cookies
func SetAuthCookies(w http.ResponseWriter, accessToken, refreshToken string, isProduction bool, accessDuration, refreshDuration time.Duration) {
	http.SetCookie(w, newAuthCookie(AccessTokenCookie, accessToken, "/", isProduction, accessDuration))
	http.SetCookie(w, newAuthCookie(RefreshTokenCookie, refreshToken, "/auth", isProduction, refreshDuration))
}

// ClearAuthCookies expires both auth cookies
func ClearAuthCookies(w http.ResponseWriter) {
	for name, path := range map[string]string{AccessTokenCookie: "/", RefreshTokenCookie: "/auth"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
		})
	}
}

func GetAccessTokenFromCookie(r *http.Request) (string, error) {
	return cookieValue(r, AccessTokenCookie)
}

func GetRefreshTokenFromCookie(r *http.Request) (string, error) {
	return cookieValue(r, RefreshTokenCookie)
}

func cookieValue(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	if c.Value == "" {
		return "", http.ErrNoCookie
	}
	return c.Value, nil
}

func newAuthCookie(name, value, path string, secure bool, maxAge time.Duration) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteStrictMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(maxAge.Seconds()),
		Expires:  time.Now().Add(maxAge),
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}
