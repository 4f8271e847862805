package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/swapbnb/api/internal/config"
)

const oauthStateTTL = 10 * time.Minute

var (
	ErrUnknownProvider   = errors.New("unknown oauth provider")
	ErrInvalidOAuthState = errors.New("invalid or expired oauth state")
)

// OAuthUserInfo is the identity returned by a provider after a successful exchange
type OAuthUserInfo struct {
	Provider      string
	ProviderID    string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     string
}

// OAuthProvider pairs an oauth2 config with the call that reads the user's profile
type OAuthProvider struct {
	Config    *oauth2.Config
	FetchUser func(ctx context.Context, client *http.Client) (OAuthUserInfo, error)
}

// OAuthService runs the authorization code flow; state values live in Redis
type OAuthService struct {
	providers map[string]*OAuthProvider
	redis     *redis.Client
}

func NewOAuthService(redisClient *redis.Client, providers map[string]*OAuthProvider) *OAuthService {
	return &OAuthService{providers: providers, redis: redisClient}
}

// ProvidersFromConfig builds the Google and GitHub providers that have credentials configured
func ProvidersFromConfig(cfg config.AuthConfig) map[string]*OAuthProvider {
	providers := make(map[string]*OAuthProvider)
	if cfg.OAuthGoogleID != "" {
		providers["google"] = &OAuthProvider{
			Config: &oauth2.Config{
				ClientID:     cfg.OAuthGoogleID,
				ClientSecret: cfg.OAuthGoogleSecret,
				RedirectURL:  cfg.OAuthCallbackURL + "/auth/oauth/google/callback",
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     google.Endpoint,
			},
			FetchUser: fetchGoogleUser("https://www.googleapis.com/oauth2/v2/userinfo"),
		}
	}
	if cfg.OAuthGitHubID != "" {
		providers["github"] = &OAuthProvider{
			Config: &oauth2.Config{
				ClientID:     cfg.OAuthGitHubID,
				ClientSecret: cfg.OAuthGitHubSecret,
				RedirectURL:  cfg.OAuthCallbackURL + "/auth/oauth/github/callback",
				Scopes:       []string{"read:user", "user:email"},
				Endpoint:     github.Endpoint,
			},
			FetchUser: fetchGitHubUser("https://api.github.com"),
		}
	}
	return providers
}

func oauthStateKey(state string) string {
	return "swapbnb:oauth_state:" + state
}

// AuthCodeURL stores a fresh state for provider and returns the consent page URL
func (s *OAuthService) AuthCodeURL(ctx context.Context, provider string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}

	state, err := generateRandomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	if err := s.redis.Set(ctx, oauthStateKey(state), provider, oauthStateTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange consumes the state, trades the code for a token and fetches the profile
func (s *OAuthService) Exchange(ctx context.Context, provider, state, code string) (OAuthUserInfo, error) {
	p, ok := s.providers[provider]
	if !ok {
		return OAuthUserInfo{}, ErrUnknownProvider
	}

	stored, err := s.redis.GetDel(ctx, oauthStateKey(state)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && stored != provider) {
		return OAuthUserInfo{}, ErrInvalidOAuthState
	}
	if err != nil {
		return OAuthUserInfo{}, fmt.Errorf("failed to read oauth state: %w", err)
	}

	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return OAuthUserInfo{}, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	info, err := p.FetchUser(ctx, p.Config.Client(ctx, token))
	if err != nil {
		return OAuthUserInfo{}, fmt.Errorf("failed to fetch %s profile: %w", provider, err)
	}
	info.Provider = provider
	return info, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func fetchGoogleUser(userInfoURL string) func(context.Context, *http.Client) (OAuthUserInfo, error) {
	return func(ctx context.Context, client *http.Client) (OAuthUserInfo, error) {
		var profile struct {
			ID            string `json:"id"`
			Email         string `json:"email"`
			VerifiedEmail bool   `json:"verified_email"`
			Name          string `json:"name"`
			Picture       string `json:"picture"`
		}
		if err := getJSON(ctx, client, userInfoURL, &profile); err != nil {
			return OAuthUserInfo{}, err
		}
		return OAuthUserInfo{
			ProviderID:    profile.ID,
			Email:         profile.Email,
			EmailVerified: profile.VerifiedEmail,
			Name:          profile.Name,
			AvatarURL:     profile.Picture,
		}, nil
	}
}

func fetchGitHubUser(apiURL string) func(context.Context, *http.Client) (OAuthUserInfo, error) {
	return func(ctx context.Context, client *http.Client) (OAuthUserInfo, error) {
		var profile struct {
			ID        int64  `json:"id"`
			Login     string `json:"login"`
			Name      string `json:"name"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := getJSON(ctx, client, apiURL+"/user", &profile); err != nil {
			return OAuthUserInfo{}, err
		}

		// The profile email may be private; the emails endpoint says which is verified
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(ctx, client, apiURL+"/user/emails", &emails); err != nil {
			return OAuthUserInfo{}, err
		}

		info := OAuthUserInfo{
			ProviderID: strconv.FormatInt(profile.ID, 10),
			Name:       profile.Name,
			AvatarURL:  profile.AvatarURL,
		}
		if info.Name == "" {
			info.Name = profile.Login
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				info.Email = e.Email
				info.EmailVerified = true
				break
			}
		}
		return info, nil
	}
}
