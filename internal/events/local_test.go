package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapbnb/api/internal/logging"
)

func TestLocalPublisher_DeliversAsync(t *testing.T) {
	received := make(chan Event, 1)
	pub := NewLocalPublisher(HandlerFunc(func(ctx context.Context, e Event) error {
		received <- e
		return nil
	}), logging.NewLogger(true))

	exchangeID := uuid.New()
	require.NoError(t, pub.Publish(context.Background(), New(ExchangeAccepted, exchangeID, uuid.New()).With("status", "accepted")))

	select {
	case e := <-received:
		assert.Equal(t, ExchangeAccepted, e.Type)
		assert.Equal(t, exchangeID, e.ExchangeID)
		assert.Equal(t, "accepted", e.Data["status"])
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestLocalPublisher_CloseWaitsForHandlers(t *testing.T) {
	release := make(chan struct{})
	var handled atomic.Bool
	pub := NewLocalPublisher(HandlerFunc(func(ctx context.Context, e Event) error {
		<-release
		handled.Store(true)
		return nil
	}), logging.NewLogger(true))

	require.NoError(t, pub.Publish(context.Background(), New(ExchangeConfirmed, uuid.New(), uuid.New())))

	// still running when the deadline passes
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pub.Close(ctx), context.DeadlineExceeded)
	assert.False(t, handled.Load())

	close(release)
	require.NoError(t, pub.Close(context.Background()))
	assert.True(t, handled.Load())

	err := pub.Publish(context.Background(), New(ExchangeConfirmed, uuid.New(), uuid.New()))
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestMessageKey(t *testing.T) {
	exchangeID, actor, recipient := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name  string
		event Event
		want  uuid.UUID
	}{
		{"exchange event", New(ExchangeAccepted, exchangeID, actor, recipient), exchangeID},
		{"direct message", New(MessageReceived, uuid.Nil, actor, recipient), recipient},
		{"no recipients", New(IdentityUpdated, uuid.Nil, actor), actor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want.String(), string(messageKey(tt.event)))
		})
	}
}

func TestRecorder_Types(t *testing.T) {
	r := &Recorder{}
	_ = r.Publish(context.Background(), New(ExchangeRequested, uuid.New(), uuid.New()))
	_ = r.Publish(context.Background(), New(ExchangeConfirmed, uuid.New(), uuid.New()))
	assert.Equal(t, []Type{ExchangeRequested, ExchangeConfirmed}, r.Types())
}
