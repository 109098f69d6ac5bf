package event

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/groundwork/core/logger"
)

// Handler processes a single event. Handlers run synchronously on the
// publishing goroutine, in registration order.
type Handler func(ctx context.Context, e Event)

// Bus is a minimal in-process publish/subscribe hub handed to every
// request extension. Subscription is expected at startup; publishing
// happens on the request path.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used to report panicking handlers.
// If not set, slog.Default() is used.
func WithLogger(log *slog.Logger) BusOption {
	return func(b *Bus) {
		b.logger = log
	}
}

// NewBus creates an event bus with synchronous dispatch.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		handlers: make(map[string][]Handler),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for the named event.
func (b *Bus) Subscribe(name string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers[name] = append(b.handlers[name], h)
	b.mu.Unlock()
}

// Publish delivers the payload to every handler subscribed to name,
// in registration order. A panicking handler is logged and does not
// prevent delivery to the remaining handlers.
func (b *Bus) Publish(ctx context.Context, name string, payload any) {
	b.mu.RLock()
	subscribers := b.handlers[name]
	b.mu.RUnlock()

	if len(subscribers) == 0 {
		return
	}

	e := New(name, payload)
	for _, h := range subscribers {
		b.dispatch(ctx, h, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("event handler panicked",
				logger.Component("event-bus"),
				slog.String("event", e.Name),
				slog.String("event_id", e.ID),
				logger.Cause(p),
			)
		}
	}()
	h(ctx, e)
}
