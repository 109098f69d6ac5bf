package logger

import (
	"log/slog"
	"time"
)

// Attribute helpers use the empty Attr pattern for nil safety.
// This allows calls like log.Info("msg", logger.Error(err)) without
// explicit nil checks.

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors, enabling safe usage without nil checks.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// CorrelationID creates an attribute for correlation IDs.
func CorrelationID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("correlation_id", id)
}

// Extension creates an attribute naming the request extension emitting the log line.
func Extension(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("extension", name)
}

// Component creates an attribute for logical components.
func Component(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("component", name)
}

// Method creates an attribute for HTTP methods.
func Method(method string) slog.Attr {
	return slog.String("method", method)
}

// Path creates an attribute for URL paths.
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// Status creates an attribute for HTTP status codes.
func Status(code int) slog.Attr {
	return slog.Int("status", code)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Stack creates an attribute carrying a captured stack trace.
func Stack(stack string) slog.Attr {
	if stack == "" {
		return slog.Attr{}
	}
	return slog.String("stack", stack)
}

// Cause creates an attribute for the original failure value behind a
// classified error.
func Cause(v any) slog.Attr {
	if v == nil {
		return slog.Attr{}
	}
	return slog.Any("cause", v)
}
