// Package httperr defines the discriminated error taxonomy used across the
// request pipeline and the JSON envelope in which classified failures are
// rendered to clients.
//
// Every failure that reaches the error boundary is converted to an *Error
// via From. Domain errors created with the New* constructors keep their
// status and type tag; anything else becomes an InternalServerError with
// the original message preserved under details.cause so internals never
// leak into the title.
//
// Wire shape:
//
//	{
//	  "type": "ValidationError",
//	  "title": "Validation failed",
//	  "status": 400,
//	  "correlationId": "f81d4fae-...",
//	  "timestamp": "2025-01-15T10:30:00Z",
//	  "details": {"field": "email"}
//	}
//
// Stack traces are captured for 5xx envelopes only.
package httperr
