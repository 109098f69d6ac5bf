// Package chain composes ordered extension stacks into a single dispatcher
// with onion control flow: each extension's code before its next() call
// runs in registration order, code after it in reverse order, and an
// extension that never calls next short-circuits the rest of the chain.
//
// Each chain position gets a continuation that may be invoked at most once
// per request; a second invocation fails with httperr.ErrNextCalledTwice
// and is never recovered locally. Per-extension loggers are derived from
// the request logger by immutable attribute merge.
package chain
