// Package correlation assigns and propagates a per-request correlation id.
//
// The id is extracted from a configurable inbound header (first match) or
// generated as a fresh UUID, then threaded through request state, response
// headers, structured log lines, and error envelopes. The header name is a
// read-mostly singleton: Configure it once at startup; Reset exists for
// tests.
package correlation
