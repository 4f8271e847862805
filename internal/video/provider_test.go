package video

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapbnb/api/internal/config"
	"github.com/swapbnb/api/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewWithHandler(slog.NewTextHandler(io.Discard, nil))
}

func TestDailyProvider_CreatesPrivateRoom(t *testing.T) {
	var roomName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/rooms":
			var body dailyRoomRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Contains(t, body.Name, "swapbnb-")
			assert.Equal(t, "private", body.Privacy)
			assert.Greater(t, body.Properties.Expires, body.Properties.NotBefore)
			roomName = body.Name

			json.NewEncoder(w).Encode(Room{Name: body.Name, URL: "https://swapbnb.daily.co/" + body.Name})
		case "/meeting-tokens":
			var body dailyTokenRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, roomName, body.Properties.RoomName)
			assert.Greater(t, body.Properties.Expires, body.Properties.NotBefore)

			json.NewEncoder(w).Encode(dailyTokenResponse{Token: "tok.en"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	p := NewDailyProvider(config.VideoConfig{APIKey: "key", BaseURL: srv.URL, FallbackURL: "https://meet.jit.si", RoomTTL: time.Hour}, testLogger())

	room, err := p.CreateRoom(context.Background(), uuid.New(), time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "https://swapbnb.daily.co/"+roomName+"?t=tok.en", room.URL)
}

func TestDailyProvider_FallbackWhenTokenFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/meeting-tokens" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(Room{Name: "swapbnb-x", URL: "https://swapbnb.daily.co/swapbnb-x"})
	}))
	defer srv.Close()

	p := NewDailyProvider(config.VideoConfig{APIKey: "key", BaseURL: srv.URL, FallbackURL: "https://meet.jit.si", RoomTTL: time.Hour}, testLogger())
	id := uuid.New()

	room, err := p.CreateRoom(context.Background(), id, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "https://meet.jit.si/swapbnb-"+id.String(), room.URL)
}

func TestDailyProvider_FallbackWhenUnconfigured(t *testing.T) {
	p := NewDailyProvider(config.VideoConfig{FallbackURL: "https://meet.jit.si/"}, testLogger())
	id := uuid.New()

	room, err := p.CreateRoom(context.Background(), id, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "https://meet.jit.si/swapbnb-"+id.String(), room.URL)
}

func TestDailyProvider_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewDailyProvider(config.VideoConfig{APIKey: "key", BaseURL: srv.URL, FallbackURL: "https://meet.jit.si", RoomTTL: time.Hour}, testLogger())
	id := uuid.New()

	for i := 0; i < 5; i++ {
		room, err := p.CreateRoom(context.Background(), id, time.Now())
		require.NoError(t, err)
		assert.Equal(t, "https://meet.jit.si/swapbnb-"+id.String(), room.URL)
	}

	// three consecutive failures trip the breaker; later calls never reach the server
	assert.Equal(t, int32(3), calls.Load())
}
