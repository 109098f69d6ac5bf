package pipeline

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/groundwork/core/chain"
	"github.com/dmitrymomot/groundwork/core/correlation"
	"github.com/dmitrymomot/groundwork/core/event"
	"github.com/dmitrymomot/groundwork/core/httperr"
	"github.com/dmitrymomot/groundwork/core/logger"
	"github.com/dmitrymomot/groundwork/core/request"
	"github.com/dmitrymomot/groundwork/middleware"
)

// RouteDispatcher is the external route-matching collaborator invoked as
// the chain's terminal step. It must produce a response (setting the
// context's sent flag) on a match; returning without responding means no
// route matched.
type RouteDispatcher interface {
	HandleRequest(ctx *request.Context, log *slog.Logger, bus *event.Bus) error
}

// RouteDispatcherFunc adapts a function to the RouteDispatcher interface.
type RouteDispatcherFunc func(ctx *request.Context, log *slog.Logger, bus *event.Bus) error

// HandleRequest implements RouteDispatcher.
func (f RouteDispatcherFunc) HandleRequest(ctx *request.Context, log *slog.Logger, bus *event.Bus) error {
	return f(ctx, log, bus)
}

// RequestCompleted is published on the event bus after every exchange settles.
type RequestCompleted struct {
	Method        string `json:"method"`
	Path          string `json:"path"`
	Status        int    `json:"status"`
	CorrelationID string `json:"correlationId"`
}

// EventRequestCompleted is the bus event name for RequestCompleted payloads.
const EventRequestCompleted = "http.request.completed"

// Handler orchestrates one inbound exchange: correlation id assignment,
// context construction, the composed extension chain with the error
// boundary first, the terminal route dispatch, and the outer fallback for
// failures the boundary cannot reach.
type Handler struct {
	dispatcher RouteDispatcher
	extensions []chain.Extension
	dispatch   chain.Dispatcher
	limits     request.Limits
	logger     *slog.Logger
	bus        *event.Bus
	services   map[string]any
	parseBody  bool
	cors       *middleware.CORSConfig
	multipart  request.MultipartParser
}

// New creates a request pipeline around the given route dispatcher.
func New(dispatcher RouteDispatcher, opts ...Option) *Handler {
	h := &Handler{
		dispatcher: dispatcher,
		limits:     request.DefaultLimits(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)), // No-op logger by default
		parseBody:  true,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.bus == nil {
		h.bus = event.NewBus(event.WithLogger(h.logger))
	}

	// The boundary always runs first; CORS is omitted entirely when disabled.
	stack := []chain.Extension{middleware.ErrorBoundary()}
	if h.cors != nil {
		stack = append(stack, middleware.CORSWithConfig(*h.cors))
	}
	stack = append(stack, h.extensions...)
	h.dispatch = chain.Compose(stack)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ww := newResponseWriter(w)

	id := correlation.EnsureID(r)
	r = r.WithContext(correlation.WithContext(r.Context(), id))

	log := h.logger.With(
		logger.CorrelationID(id),
		logger.Method(r.Method),
		logger.Path(r.URL.Path),
	)

	// Failures escaping the chain (or occurring before it exists) are
	// outside the error boundary's reach and land in the fallback.
	defer func() {
		if p := recover(); p != nil {
			h.fallback(ww, log, id, p)
		}
	}()

	ctx, err := request.New(ww, r, request.Options{
		ParseBody: h.parseBody,
		Limits:    h.limits,
		State:     map[string]any{correlation.StateKey: id},
		Services:  h.cloneServices(),
		Logger:    log,
		Multipart: h.multipart,
	})
	if err != nil {
		// No extension has run yet; format the construction failure here.
		h.fallback(ww, log, id, err)
		return
	}

	terminal := func() error {
		if ctx.Sent() {
			return nil
		}
		if err := h.dispatcher.HandleRequest(ctx, log, h.bus); err != nil {
			return err
		}
		if !ctx.Sent() {
			// Dispatcher silence means no route matched.
			return httperr.NewNotFoundError("")
		}
		return nil
	}

	if err := h.dispatch(ctx, terminal, log, h.bus); err != nil {
		// The boundary formats everything it can reach; an error surfacing
		// here failed during or after the boundary's own write.
		h.fallback(ww, log, id, err)
	}

	h.bus.Publish(r.Context(), EventRequestCompleted, RequestCompleted{
		Method:        r.Method,
		Path:          r.URL.Path,
		Status:        ww.Status(),
		CorrelationID: id,
	})
}

// fallback writes a minimal error envelope directly against the raw
// transport, unless headers already went out, in which case it only logs.
func (h *Handler) fallback(ww *responseWriter, log *slog.Logger, id string, failure any) {
	envelope := httperr.From(failure)
	envelope.CorrelationID = id

	if ww.Written() {
		log.Error("failure after response started",
			slog.String("type", envelope.Type),
			logger.Status(envelope.Status),
			logger.Cause(failure),
		)
		return
	}

	if envelope.Status >= http.StatusInternalServerError {
		log.Error("request failed outside error boundary",
			slog.String("type", envelope.Type),
			logger.Status(envelope.Status),
			logger.Cause(failure),
			logger.Stack(envelope.Stack),
		)
	} else {
		log.Warn("request rejected",
			slog.String("type", envelope.Type),
			logger.Status(envelope.Status),
		)
	}

	ww.Header().Set("Content-Type", "application/json; charset=utf-8")
	ww.Header().Set(correlation.Header(), id)
	ww.WriteHeader(envelope.Status)
	_ = json.NewEncoder(ww).Encode(envelope)
}

// cloneServices copies the configured service template so requests never
// observe each other's services bag.
func (h *Handler) cloneServices() map[string]any {
	if len(h.services) == 0 {
		return nil
	}
	services := make(map[string]any, len(h.services))
	for name, svc := range h.services {
		services[name] = svc
	}
	return services
}
