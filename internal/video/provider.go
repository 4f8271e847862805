// Package video creates meeting rooms for exchange video calls.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/swapbnb/api/internal/config"
	"github.com/swapbnb/api/internal/logging"
)

// Room is a joinable meeting link
type Room struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Provider creates a room for an exchange call starting at scheduledAt
type Provider interface {
	CreateRoom(ctx context.Context, exchangeID uuid.UUID, scheduledAt time.Time) (Room, error)
}

// DailyProvider creates private rooms through the Daily REST API. Calls go
// through a circuit breaker; when the API is unconfigured, failing, or the
// breaker is open, a static fallback link is returned instead.
type DailyProvider struct {
	apiKey      string
	baseURL     string
	fallbackURL string
	roomTTL     time.Duration
	client      *http.Client
	cb          *gobreaker.CircuitBreaker
	logger      *logging.Logger
}

func NewDailyProvider(cfg config.VideoConfig, logger *logging.Logger) *DailyProvider {
	return &DailyProvider{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		fallbackURL: strings.TrimRight(cfg.FallbackURL, "/"),
		roomTTL:     cfg.RoomTTL,
		client:      &http.Client{Timeout: 10 * time.Second},
		cb:          newBreaker("video-rooms", logger),
		logger:      logger,
	}
}

func newBreaker(name string, logger *logging.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

func roomName(exchangeID uuid.UUID) string {
	return "swapbnb-" + exchangeID.String()
}

// FallbackRoom builds the static link used when the provider cannot be reached
func (p *DailyProvider) FallbackRoom(exchangeID uuid.UUID) Room {
	name := roomName(exchangeID)
	return Room{Name: name, URL: p.fallbackURL + "/" + name}
}

func (p *DailyProvider) CreateRoom(ctx context.Context, exchangeID uuid.UUID, scheduledAt time.Time) (Room, error) {
	if p.apiKey == "" || p.baseURL == "" {
		return p.FallbackRoom(exchangeID), nil
	}

	result, err := p.cb.Execute(func() (interface{}, error) {
		return p.createDailyRoom(ctx, exchangeID, scheduledAt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.logger.Warn("video provider unavailable, using fallback room", "exchange_id", exchangeID)
		} else {
			p.logger.Error("failed to create video room, using fallback room", "exchange_id", exchangeID, "error", err)
		}
		return p.FallbackRoom(exchangeID), nil
	}
	return result.(Room), nil
}

type dailyRoomRequest struct {
	Name       string              `json:"name"`
	Privacy    string              `json:"privacy"`
	Properties dailyRoomProperties `json:"properties"`
}

type dailyRoomProperties struct {
	NotBefore int64 `json:"nbf"`
	Expires   int64 `json:"exp"`
}

type dailyTokenRequest struct {
	Properties dailyTokenProperties `json:"properties"`
}

type dailyTokenProperties struct {
	RoomName  string `json:"room_name"`
	NotBefore int64  `json:"nbf"`
	Expires   int64  `json:"exp"`
}

type dailyTokenResponse struct {
	Token string `json:"token"`
}

// createDailyRoom creates a private room and returns its URL with a meeting
// token attached. Only holders of that URL can join.
func (p *DailyProvider) createDailyRoom(ctx context.Context, exchangeID uuid.UUID, scheduledAt time.Time) (Room, error) {
	notBefore := scheduledAt.Add(-15 * time.Minute).Unix()
	expires := scheduledAt.Add(p.roomTTL).Unix()

	var room Room
	err := p.post(ctx, "/rooms", dailyRoomRequest{
		Name:    roomName(exchangeID) + "-" + fmt.Sprint(scheduledAt.Unix()),
		Privacy: "private",
		Properties: dailyRoomProperties{
			NotBefore: notBefore,
			Expires:   expires,
		},
	}, &room)
	if err != nil {
		return Room{}, err
	}
	if room.URL == "" {
		return Room{}, errors.New("video provider returned a room without url")
	}

	var token dailyTokenResponse
	err = p.post(ctx, "/meeting-tokens", dailyTokenRequest{
		Properties: dailyTokenProperties{RoomName: room.Name, NotBefore: notBefore, Expires: expires},
	}, &token)
	if err != nil {
		return Room{}, fmt.Errorf("failed to create meeting token: %w", err)
	}
	if token.Token == "" {
		return Room{}, errors.New("video provider returned an empty meeting token")
	}

	room.URL += "?t=" + url.QueryEscape(token.Token)
	return room, nil
}

func (p *DailyProvider) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call video provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("video provider returned %d for %s: %s", resp.StatusCode, path, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode video provider response: %w", err)
	}
	return nil
}
