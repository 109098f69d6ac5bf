package correlation

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// DefaultHeader is the header consulted for inbound correlation ids and
// attached to every response when no custom header is configured.
const DefaultHeader = "X-Correlation-ID"

// StateKey is the request state key under which the pipeline stores the
// correlation id.
const StateKey = "correlationId"

// The header name is process-wide, read-mostly configuration: set once at
// startup (or in tests), read concurrently by every in-flight request.
var (
	mu     sync.RWMutex
	header = DefaultHeader
)

// Configure sets the correlation header name for the whole process.
// An empty name restores the default. Call once at startup, before
// requests are served.
func Configure(name string) {
	if name == "" {
		name = DefaultHeader
	}
	mu.Lock()
	header = name
	mu.Unlock()
}

// Header returns the configured correlation header name.
func Header() string {
	mu.RLock()
	defer mu.RUnlock()
	return header
}

// Reset restores the default header name. Test helper only.
func Reset() {
	Configure(DefaultHeader)
}

// EnsureID returns the correlation id carried by the request in the
// configured header, or synthesizes a fresh opaque id when absent.
// The id is immutable for the rest of the request's lifetime.
func EnsureID(r *http.Request) string {
	if id := r.Header.Get(Header()); id != "" {
		return id
	}
	return uuid.New().String()
}

type ctxKey struct{}

// WithContext returns a context carrying the correlation id, making it
// retrievable by downstream code that only holds a context.Context.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext retrieves the correlation id from the context.
// Returns the id and a boolean indicating whether it was found.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok
}
