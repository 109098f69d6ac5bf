package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"
)

// Error is the structured error envelope rendered to clients.
// It implements the error interface so it can travel through regular
// error returns and still carry classification data to the boundary.
type Error struct {
	Type          string         `json:"type"`              // Machine-readable error kind (e.g., "ValidationError")
	Title         string         `json:"title"`             // Human-readable summary
	Status        int            `json:"status"`            // HTTP status code
	CorrelationID string         `json:"correlationId"`     // Request correlation id, set by the boundary
	Timestamp     time.Time      `json:"timestamp"`         // When the error was classified
	Details       map[string]any `json:"details,omitempty"` // Optional structured context
	Stack         string         `json:"stack,omitempty"`   // Captured only for 5xx errors
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Title
}

// WithTitle returns a copy of the error with a custom title.
func (e *Error) WithTitle(title string) *Error {
	c := *e
	c.Title = title
	return &c
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details map[string]any) *Error {
	c := *e
	c.Details = details
	return &c
}

func newError(kind, title string, status int) *Error {
	return &Error{
		Type:      kind,
		Title:     title,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError reports malformed client input (400).
func NewValidationError(title string) *Error {
	if title == "" {
		title = "Validation failed"
	}
	return newError("ValidationError", title, http.StatusBadRequest)
}

// NewParseURLError reports a request target that could not be parsed (400).
func NewParseURLError(title string) *Error {
	if title == "" {
		title = "Failed to parse request URL"
	}
	return newError("ParseUrlError", title, http.StatusBadRequest)
}

// NewNotFoundError reports a request that matched no route (404).
func NewNotFoundError(title string) *Error {
	if title == "" {
		title = "Resource not found"
	}
	return newError("NotFoundError", title, http.StatusNotFound)
}

// NewPayloadTooLargeError reports a body exceeding its configured ceiling (413).
func NewPayloadTooLargeError(title string) *Error {
	if title == "" {
		title = "Request payload too large"
	}
	return newError("PayloadTooLargeError", title, http.StatusRequestEntityTooLarge)
}

// NewUnsupportedMediaTypeError reports a content type the parser rejects (415).
func NewUnsupportedMediaTypeError(title string) *Error {
	if title == "" {
		title = "Unsupported media type"
	}
	return newError("UnsupportedMediaTypeError", title, http.StatusUnsupportedMediaType)
}

// NewResponseAlreadySentError reports a second terminal write attempt.
// This is always a programming error in a handler or extension, never
// a client problem, so it maps to 500.
func NewResponseAlreadySentError(title string) *Error {
	if title == "" {
		title = "Response has already been sent"
	}
	return newError("ResponseAlreadySentError", title, http.StatusInternalServerError)
}

// NewInternalServerError is the catch-all for unclassified failures (500).
func NewInternalServerError(title string) *Error {
	if title == "" {
		title = http.StatusText(http.StatusInternalServerError)
	}
	return newError("InternalServerError", title, http.StatusInternalServerError)
}

// Chain misuse errors. Never recovered locally; the boundary renders them as 500.
var (
	ErrNextCalledTwice = errors.New("next() called multiple times")
)

// From classifies an arbitrary failure value into an *Error envelope.
// Recognized *Error values are copied, so package-level error sentinels
// stay pristine when the boundary later stamps the request's correlation
// id onto the envelope. Everything else (plain errors, panic values,
// strings) is wrapped as an internal server error with the original
// message retained in details only. A stack trace is attached for 5xx
// results and never for 4xx.
func From(v any) *Error {
	var e *Error
	switch failure := v.(type) {
	case nil:
		e = NewInternalServerError("")
	case *Error:
		c := *failure
		e = &c
	case error:
		var httpErr *Error
		if errors.As(failure, &httpErr) {
			c := *httpErr
			e = &c
		} else {
			e = NewInternalServerError("").WithDetails(map[string]any{"cause": failure.Error()})
		}
	case string:
		e = NewInternalServerError("").WithDetails(map[string]any{"cause": failure})
	default:
		e = NewInternalServerError("").WithDetails(map[string]any{"cause": fmt.Sprintf("%v", failure)})
	}

	if e.Status >= http.StatusInternalServerError && e.Stack == "" {
		e.Stack = string(debug.Stack())
	}
	return e
}
