package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/groundwork/core/chain"
	"github.com/dmitrymomot/groundwork/core/event"
	"github.com/dmitrymomot/groundwork/core/httperr"
	"github.com/dmitrymomot/groundwork/core/logger"
	"github.com/dmitrymomot/groundwork/core/request"
)

// ErrorBoundaryConfig configures the error boundary extension.
type ErrorBoundaryConfig struct {
	// Logger overrides the chain's scoped logger for failure reporting.
	Logger *slog.Logger
}

// ErrorBoundary creates the boundary extension with default configuration.
// It must be the first extension in a composed chain so that every failure
// during or after chain execution passes through it.
func ErrorBoundary() chain.Extension {
	return ErrorBoundaryWithConfig(ErrorBoundaryConfig{})
}

// ErrorBoundaryWithConfig creates the boundary extension. It recovers
// panics and inspects downstream errors, classifies them into a structured
// envelope, and emits the envelope through the context's terminal JSON
// path. When the response has already been sent, the failure is only
// logged; the boundary never double-responds.
func ErrorBoundaryWithConfig(cfg ErrorBoundaryConfig) chain.Extension {
	return chain.Extension{
		Name: "error-boundary",
		Execute: func(ctx *request.Context, next chain.Next, log *slog.Logger, _ *event.Bus) (err error) {
			if cfg.Logger != nil {
				log = cfg.Logger
			}
			defer func() {
				if p := recover(); p != nil {
					err = finalize(ctx, log, p)
				}
			}()
			if derr := next(); derr != nil {
				return finalize(ctx, log, derr)
			}
			return nil
		},
	}
}

// finalize classifies the failure and produces exactly one response for it,
// or none at all when the response already went out.
func finalize(ctx *request.Context, log *slog.Logger, failure any) error {
	envelope := httperr.From(failure)
	// Never trust a correlation id embedded in the thrown value.
	envelope.CorrelationID = ctx.CorrelationID()

	if ctx.Sent() {
		log.Error("failure after response sent",
			slog.String("type", envelope.Type),
			logger.Status(envelope.Status),
			logger.Cause(failure),
		)
		return nil
	}

	if envelope.Status >= http.StatusInternalServerError {
		log.Error("request failed",
			slog.String("type", envelope.Type),
			logger.Status(envelope.Status),
			logger.Cause(failure),
			logger.Stack(envelope.Stack),
		)
	} else {
		log.Warn("request failed",
			slog.String("type", envelope.Type),
			logger.Status(envelope.Status),
		)
	}

	return ctx.Status(envelope.Status).JSON(envelope)
}
