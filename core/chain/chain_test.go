package chain_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/groundwork/core/chain"
	"github.com/dmitrymomot/groundwork/core/event"
	"github.com/dmitrymomot/groundwork/core/httperr"
	"github.com/dmitrymomot/groundwork/core/request"
)

func newTestContext(t *testing.T) *request.Context {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)
	ctx, err := request.New(w, r, request.Options{})
	require.NoError(t, err)
	return ctx
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestComposeEmptyStackInvokesTerminalOnce(t *testing.T) {
	t.Parallel()

	dispatch := chain.Compose(nil)

	calls := 0
	err := dispatch(newTestContext(t), func() error {
		calls++
		return nil
	}, discardLogger(), event.NewBus())

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestOnionExecutionOrder(t *testing.T) {
	t.Parallel()

	var order []string
	ext := func(name string) chain.Extension {
		return chain.Extension{
			Name: name,
			Execute: func(_ *request.Context, next chain.Next, _ *slog.Logger, _ *event.Bus) error {
				order = append(order, "pre-"+name)
				if err := next(); err != nil {
					return err
				}
				order = append(order, "post-"+name)
				return nil
			},
		}
	}

	dispatch := chain.Compose([]chain.Extension{ext("a"), ext("b"), ext("c")})
	err := dispatch(newTestContext(t), func() error {
		order = append(order, "terminal")
		return nil
	}, discardLogger(), event.NewBus())

	require.NoError(t, err)
	assert.Equal(t, []string{
		"pre-a", "pre-b", "pre-c",
		"terminal",
		"post-c", "post-b", "post-a",
	}, order)
}

func TestNextCalledTwiceFails(t *testing.T) {
	t.Parallel()

	passthrough := chain.Extension{
		Name: "passthrough",
		Execute: func(_ *request.Context, next chain.Next, _ *slog.Logger, _ *event.Bus) error {
			return next()
		},
	}
	greedy := chain.Extension{
		Name: "greedy",
		Execute: func(_ *request.Context, next chain.Next, _ *slog.Logger, _ *event.Bus) error {
			if err := next(); err != nil {
				return err
			}
			return next() // second call from the same slot
		},
	}

	// The violation is fatal regardless of chain position.
	for _, stack := range [][]chain.Extension{
		{greedy},
		{passthrough, greedy},
		{passthrough, greedy, passthrough},
	} {
		dispatch := chain.Compose(stack)
		err := dispatch(newTestContext(t), func() error { return nil }, discardLogger(), event.NewBus())
		require.Error(t, err)
		assert.ErrorIs(t, err, httperr.ErrNextCalledTwice)
		assert.Contains(t, err.Error(), `"greedy"`)
	}
}

func TestSkipProceedsWithoutExecuting(t *testing.T) {
	t.Parallel()

	executed := false
	skipped := chain.Extension{
		Name: "skipped",
		Skip: func(ctx *request.Context) bool { return ctx.Path() == "/test" },
		Execute: func(_ *request.Context, next chain.Next, _ *slog.Logger, _ *event.Bus) error {
			executed = true
			return next()
		},
	}

	terminalRan := false
	dispatch := chain.Compose([]chain.Extension{skipped})
	err := dispatch(newTestContext(t), func() error {
		terminalRan = true
		return nil
	}, discardLogger(), event.NewBus())

	require.NoError(t, err)
	assert.False(t, executed, "skipped extension must not execute")
	assert.True(t, terminalRan, "chain proceeds past a skipped extension")
}

func TestNotCallingNextShortCircuits(t *testing.T) {
	t.Parallel()

	downstream := false
	dispatch := chain.Compose([]chain.Extension{
		{
			Name: "gate",
			Execute: func(_ *request.Context, _ chain.Next, _ *slog.Logger, _ *event.Bus) error {
				return nil // never calls next
			},
		},
		{
			Name: "after",
			Execute: func(_ *request.Context, next chain.Next, _ *slog.Logger, _ *event.Bus) error {
				downstream = true
				return next()
			},
		},
	})

	terminalRan := false
	err := dispatch(newTestContext(t), func() error {
		terminalRan = true
		return nil
	}, discardLogger(), event.NewBus())

	require.NoError(t, err)
	assert.False(t, downstream)
	assert.False(t, terminalRan)
}

func TestExtensionErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	dispatch := chain.Compose([]chain.Extension{
		{
			Name: "failing",
			Execute: func(_ *request.Context, _ chain.Next, _ *slog.Logger, _ *event.Bus) error {
				return boom
			},
		},
	})

	err := dispatch(newTestContext(t), func() error { return nil }, discardLogger(), event.NewBus())
	assert.ErrorIs(t, err, boom)
}

func TestComposeFreezesStack(t *testing.T) {
	t.Parallel()

	ran := false
	stack := []chain.Extension{
		{
			Name: "original",
			Execute: func(_ *request.Context, next chain.Next, _ *slog.Logger, _ *event.Bus) error {
				ran = true
				return next()
			},
		},
	}
	dispatch := chain.Compose(stack)

	// Mutating the caller's slice after composition must not change the chain.
	stack[0] = chain.Extension{
		Name: "replaced",
		Execute: func(_ *request.Context, _ chain.Next, _ *slog.Logger, _ *event.Bus) error {
			t.Fatal("replaced extension must not run")
			return nil
		},
	}

	err := dispatch(newTestContext(t), func() error { return nil }, discardLogger(), event.NewBus())
	require.NoError(t, err)
	assert.True(t, ran)
}
