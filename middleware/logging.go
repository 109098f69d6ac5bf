package middleware

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/groundwork/core/chain"
	"github.com/dmitrymomot/groundwork/core/event"
	"github.com/dmitrymomot/groundwork/core/logger"
	"github.com/dmitrymomot/groundwork/core/request"
)

// LoggingConfig configures the request logging extension.
type LoggingConfig struct {
	// Skip defines a function to skip logging for specific requests
	Skip func(ctx *request.Context) bool

	// LogLevel for request logging (default: slog.LevelInfo)
	LogLevel slog.Level

	// SlowRequestThreshold logs slow requests at warning level (default: 5s)
	SlowRequestThreshold time.Duration
}

// Logging creates a request logging extension with default configuration.
func Logging() chain.Extension {
	return LoggingWithConfig(LoggingConfig{})
}

// LoggingWithConfig creates a request logging extension. It logs request
// start and completion with duration and final status on the chain's
// scoped logger, which already carries the correlation id, method, and path.
func LoggingWithConfig(cfg LoggingConfig) chain.Extension {
	if cfg.SlowRequestThreshold <= 0 {
		cfg.SlowRequestThreshold = 5 * time.Second
	}

	return chain.Extension{
		Name: "logging",
		Skip: cfg.Skip,
		Execute: func(ctx *request.Context, next chain.Next, log *slog.Logger, _ *event.Bus) error {
			start := time.Now()
			log.Log(ctx, cfg.LogLevel, "request started")

			err := next()

			elapsed := time.Since(start)
			if elapsed > cfg.SlowRequestThreshold {
				log.Warn("slow request",
					logger.Status(ctx.StatusCode()),
					logger.Duration(elapsed),
				)
			} else {
				log.Log(ctx, cfg.LogLevel, "request completed",
					logger.Status(ctx.StatusCode()),
					logger.Duration(elapsed),
				)
			}
			return err
		},
	}
}
