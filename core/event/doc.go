// Package event provides the in-process event bus passed to request
// extensions. Dispatch is synchronous and isolated per handler: a
// panicking subscriber is logged and skipped, never failing the request
// that published the event.
package event
