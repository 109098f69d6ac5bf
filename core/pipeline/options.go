package pipeline

import (
	"log/slog"

	"github.com/dmitrymomot/groundwork/core/chain"
	"github.com/dmitrymomot/groundwork/core/event"
	"github.com/dmitrymomot/groundwork/core/request"
	"github.com/dmitrymomot/groundwork/middleware"
)

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the base logger. Request-scoped loggers are derived from
// it with correlation id, method, and path attributes.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.logger = log
		}
	}
}

// WithExtensions appends application extensions to the chain, after the
// error boundary and the optional CORS extension.
func WithExtensions(exts ...chain.Extension) Option {
	return func(h *Handler) {
		h.extensions = append(h.extensions, exts...)
	}
}

// WithCORS enables the CORS extension with the given configuration.
func WithCORS(cfg middleware.CORSConfig) Option {
	return func(h *Handler) {
		h.cors = &cfg
	}
}

// WithLimits sets the per-content-type body size ceilings.
func WithLimits(limits request.Limits) Option {
	return func(h *Handler) {
		h.limits = limits
	}
}

// WithEventBus sets the event bus handed to extensions and the route
// dispatcher. A default bus is created when none is provided.
func WithEventBus(bus *event.Bus) Option {
	return func(h *Handler) {
		h.bus = bus
	}
}

// WithServices seeds every request's services bag with the given template.
// The template is copied per request.
func WithServices(services map[string]any) Option {
	return func(h *Handler) {
		h.services = services
	}
}

// WithBodyParsing toggles content-type driven body parsing during context
// construction. Enabled by default.
func WithBodyParsing(enabled bool) Option {
	return func(h *Handler) {
		h.parseBody = enabled
	}
}

// WithMultipartParser overrides the multipart body decoder.
func WithMultipartParser(mp request.MultipartParser) Option {
	return func(h *Handler) {
		h.multipart = mp
	}
}
