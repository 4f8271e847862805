package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/swapbnb/api/internal/logging"
)

var ErrPublisherClosed = errors.New("event publisher is closed")

// LocalPublisher dispatches events to a handler in the same process.
// Each event runs in its own goroutine with a detached context so the request can finish first.
type LocalPublisher struct {
	handler Handler
	logger  *logging.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewLocalPublisher(handler Handler, logger *logging.Logger) *LocalPublisher {
	return &LocalPublisher{handler: handler, logger: logger}
}

func (p *LocalPublisher) Publish(_ context.Context, event Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx := context.Background()
		if err := p.handler.Handle(ctx, event); err != nil {
			p.logger.Warn("failed to handle event", "event_id", event.ID, "type", event.Type, "error", err)
		}
	}()
	return nil
}

// Close stops accepting events and waits for in-flight handlers until ctx is done
func (p *LocalPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to drain event handlers: %w", ctx.Err())
	}
}

// Recorder keeps published events in memory
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.Events = append(r.Events, event)
	return nil
}

// Types returns the recorded event types in order
func (r *Recorder) Types() []Type {
	types := make([]Type, 0, len(r.Events))
	for _, e := range r.Events {
		types = append(types, e.Type)
	}
	return types
}
