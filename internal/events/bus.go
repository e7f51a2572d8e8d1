// Package events implements a minimal in-process pub/sub bus for
// login lifecycle notifications.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// Event names emitted by the login workflow.
const (
	AuthSuccess = "auth.success"
	AuthError   = "auth.error"
)

// Event is one occurrence delivered to subscribers.
type Event struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Handler consumes an event. Returned errors are logged, never
// propagated: a broken subscriber must not break a login.
type Handler func(ctx context.Context, ev Event) error

// Bus fans events out to subscribers, synchronously and in
// subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for the event name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Emit delivers the event to every subscriber of name.
func (b *Bus) Emit(ctx context.Context, name string, payload map[string]any) {
	ev := Event{
		ID:      uuid.NewString(),
		Name:    name,
		At:      time.Now().UTC(),
		Payload: payload,
	}

	b.mu.RLock()
	hs := b.handlers[name]
	b.mu.RUnlock()

	for _, h := range hs {
		if err := h(ctx, ev); err != nil {
			logger.From(ctx).Warn("event handler failed",
				logger.Component("events"),
				logger.Event(name),
				logger.Err(err),
			)
		}
	}
}
