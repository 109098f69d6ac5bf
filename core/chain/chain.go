package chain

import (
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/groundwork/core/event"
	"github.com/dmitrymomot/groundwork/core/httperr"
	"github.com/dmitrymomot/groundwork/core/logger"
	"github.com/dmitrymomot/groundwork/core/request"
)

// Next is the continuation handed to an extension. It is bound to exactly
// one position in a chain; invoking it a second time from the same position
// is a programming error and fails with ErrNextCalledTwice.
type Next func() error

// Extension is a named, chainable request-processing unit.
// Immutable once registered into a chain.
type Extension struct {
	// Name identifies the extension in logs and misuse errors.
	Name string
	// Skip, when set and returning true, behaves as if the extension had
	// called next immediately: the chain proceeds without running Execute.
	Skip func(ctx *request.Context) bool
	// Debug enables enter/leave debug logging around Execute.
	Debug bool
	// Execute runs the extension. Code before the next() call runs in
	// registration order; code after it runs in reverse registration order.
	// Not calling next short-circuits everything downstream, including the
	// terminal continuation.
	Execute func(ctx *request.Context, next Next, log *slog.Logger, bus *event.Bus) error
}

// Dispatcher runs a composed chain against one request, invoking terminal
// after the last extension has called next.
type Dispatcher func(ctx *request.Context, terminal Next, log *slog.Logger, bus *event.Bus) error

// Compose builds a Dispatcher from the ordered extension stack. An empty
// stack yields a pass-through dispatcher that invokes the terminal
// continuation exactly once.
func Compose(stack []Extension) Dispatcher {
	if len(stack) == 0 {
		return func(_ *request.Context, terminal Next, _ *slog.Logger, _ *event.Bus) error {
			return terminal()
		}
	}

	// Freeze the stack so later mutations of the caller's slice cannot
	// change an already-composed chain.
	exts := make([]Extension, len(stack))
	copy(exts, stack)

	return func(ctx *request.Context, terminal Next, log *slog.Logger, bus *event.Bus) error {
		// Per-invocation markers enforcing the once-only continuation
		// guarantee. Scoped to this request only; no cross-request state.
		called := make([]bool, len(exts))

		var dispatch func(i int) error
		dispatch = func(i int) error {
			if i >= len(exts) {
				return terminal()
			}
			ext := exts[i]

			next := func() error {
				if called[i] {
					return fmt.Errorf("%w: extension %q", httperr.ErrNextCalledTwice, ext.Name)
				}
				called[i] = true
				return dispatch(i + 1)
			}

			if ext.Skip != nil && ext.Skip(ctx) {
				called[i] = true
				return dispatch(i + 1)
			}

			scoped := log.With(logger.Extension(ext.Name))
			if ext.Debug {
				scoped.Debug("extension start")
				defer scoped.Debug("extension done")
			}
			return ext.Execute(ctx, next, scoped, bus)
		}

		return dispatch(0)
	}
}
