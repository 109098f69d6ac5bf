// Package middleware provides the built-in request extensions: the error
// boundary that classifies and formats every escaping failure, the CORS
// extension factory, and request logging.
//
// Extensions compose via core/chain. The error boundary is always placed
// first by the pipeline; the CORS extension is included only when enabled.
package middleware
