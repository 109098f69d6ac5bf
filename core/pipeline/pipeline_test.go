package pipeline_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/groundwork/core/chain"
	"github.com/dmitrymomot/groundwork/core/correlation"
	"github.com/dmitrymomot/groundwork/core/event"
	"github.com/dmitrymomot/groundwork/core/httperr"
	"github.com/dmitrymomot/groundwork/core/pipeline"
	"github.com/dmitrymomot/groundwork/core/request"
	"github.com/dmitrymomot/groundwork/middleware"
)

func echoDispatcher() pipeline.RouteDispatcher {
	return pipeline.RouteDispatcherFunc(func(ctx *request.Context, _ *slog.Logger, _ *event.Bus) error {
		return ctx.JSON(map[string]any{
			"method": ctx.Method(),
			"path":   ctx.Path(),
		})
	})
}

func silentDispatcher() pipeline.RouteDispatcher {
	return pipeline.RouteDispatcherFunc(func(_ *request.Context, _ *slog.Logger, _ *event.Bus) error {
		return nil
	})
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPipelineMatchedRoute(t *testing.T) {
	t.Parallel()

	h := pipeline.New(echoDispatcher())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/users/42", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "GET", body["method"])
	assert.Equal(t, "/users/42", body["path"])
	assert.NotEmpty(t, w.Header().Get(correlation.Header()),
		"every response carries a correlation id")
}

func TestPipelineReusesInboundCorrelationID(t *testing.T) {
	t.Parallel()

	h := pipeline.New(echoDispatcher())
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(correlation.Header(), "upstream-id")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, "upstream-id", w.Header().Get(correlation.Header()))
}

func TestPipelineSilentDispatcherYields404(t *testing.T) {
	t.Parallel()

	h := pipeline.New(silentDispatcher())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	envelope := decodeBody(t, w)
	assert.Equal(t, "NotFoundError", envelope["type"])
	assert.NotEmpty(t, envelope["correlationId"])
}

func TestPipelineDispatcherErrorBecomesEnvelope(t *testing.T) {
	t.Parallel()

	h := pipeline.New(pipeline.RouteDispatcherFunc(func(_ *request.Context, _ *slog.Logger, _ *event.Bus) error {
		return httperr.NewValidationError("Field 'email' is required")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/users", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeBody(t, w)
	assert.Equal(t, "ValidationError", envelope["type"])
	assert.Equal(t, "Field 'email' is required", envelope["title"])
	_, hasStack := envelope["stack"]
	assert.False(t, hasStack)
}

func TestPipelinePanickingExtensionYields500(t *testing.T) {
	t.Parallel()

	h := pipeline.New(echoDispatcher(), pipeline.WithExtensions(chain.Extension{
		Name: "unstable",
		Execute: func(_ *request.Context, _ chain.Next, _ *slog.Logger, _ *event.Bus) error {
			panic("extension exploded")
		},
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	envelope := decodeBody(t, w)
	assert.Equal(t, "InternalServerError", envelope["type"])
	assert.NotEmpty(t, envelope["stack"])
}

func TestPipelineNextTwiceAfterResponseKeepsOriginal(t *testing.T) {
	t.Parallel()

	h := pipeline.New(echoDispatcher(), pipeline.WithExtensions(chain.Extension{
		Name: "greedy",
		Execute: func(_ *request.Context, next chain.Next, _ *slog.Logger, _ *event.Bus) error {
			if err := next(); err != nil {
				return err
			}
			return next()
		},
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	// The dispatcher already responded 200 before the violation surfaced,
	// so the boundary only logs; the original response stands.
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "GET", body["method"])
}

func TestPipelineNextCalledTwiceBeforeResponseYields500(t *testing.T) {
	t.Parallel()

	h := pipeline.New(silentDispatcher(), pipeline.WithExtensions(
		chain.Extension{
			Name: "absorbing",
			Execute: func(ctx *request.Context, next chain.Next, _ *slog.Logger, _ *event.Bus) error {
				_ = next()
				err := next() // violation, and nothing was sent yet
				return err
			},
		},
		chain.Extension{
			Name: "inner",
			Execute: func(ctx *request.Context, _ chain.Next, _ *slog.Logger, _ *event.Bus) error {
				return nil // short-circuits without responding
			},
		},
	))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	envelope := decodeBody(t, w)
	assert.Equal(t, "InternalServerError", envelope["type"])
}

func TestPipelineConstructionFailureUsesFallback(t *testing.T) {
	t.Parallel()

	h := pipeline.New(echoDispatcher())
	r := httptest.NewRequest("GET", "/search", nil)
	r.URL.RawQuery = "q=%zz"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeBody(t, w)
	assert.Equal(t, "ParseUrlError", envelope["type"])
	assert.NotEmpty(t, w.Header().Get(correlation.Header()))
}

func TestPipelineBodyCeilingYields413(t *testing.T) {
	t.Parallel()

	limits := request.DefaultLimits()
	limits.JSON = 16

	h := pipeline.New(echoDispatcher(), pipeline.WithLimits(limits))
	r := httptest.NewRequest("POST", "/users", strings.NewReader(`{"name":"way too long for sixteen bytes"}`))
	r.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	envelope := decodeBody(t, w)
	assert.Equal(t, "PayloadTooLargeError", envelope["type"])
}

func TestPipelineOnionOrderEndToEnd(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var order []string
	mark := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	ext := func(name string) chain.Extension {
		return chain.Extension{
			Name: name,
			Execute: func(_ *request.Context, next chain.Next, _ *slog.Logger, _ *event.Bus) error {
				mark("pre-" + name)
				err := next()
				mark("post-" + name)
				return err
			},
		}
	}

	h := pipeline.New(
		pipeline.RouteDispatcherFunc(func(ctx *request.Context, _ *slog.Logger, _ *event.Bus) error {
			mark("terminal")
			return ctx.NoContent()
		}),
		pipeline.WithExtensions(ext("outer"), ext("inner")),
	)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, []string{"pre-outer", "pre-inner", "terminal", "post-inner", "post-outer"}, order)
}

func TestPipelinePreflightShortCircuits(t *testing.T) {
	t.Parallel()

	h := pipeline.New(echoDispatcher(), pipeline.WithCORS(middleware.CORSConfig{}))
	r := httptest.NewRequest("OPTIONS", "/api", nil)
	r.Header.Set("Origin", "https://app.example.com")
	r.Header.Set("Access-Control-Request-Method", "POST")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Body.String())
}

func TestPipelinePublishesRequestCompleted(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	var mu sync.Mutex
	var got pipeline.RequestCompleted
	bus.Subscribe(pipeline.EventRequestCompleted, func(_ context.Context, e event.Event) {
		mu.Lock()
		got = e.Payload.(pipeline.RequestCompleted)
		mu.Unlock()
	})

	h := pipeline.New(echoDispatcher(), pipeline.WithEventBus(bus))
	r := httptest.NewRequest("GET", "/orders", nil)
	r.Header.Set(correlation.Header(), "corr-evt")

	h.ServeHTTP(httptest.NewRecorder(), r)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "GET", got.Method)
	assert.Equal(t, "/orders", got.Path)
	assert.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, "corr-evt", got.CorrelationID)
}

func TestPipelineServicesAreCopiedPerRequest(t *testing.T) {
	t.Parallel()

	h := pipeline.New(
		pipeline.RouteDispatcherFunc(func(ctx *request.Context, _ *slog.Logger, _ *event.Bus) error {
			_, shared := ctx.Service("mailer")
			_, leaked := ctx.Service("scratch")
			ctx.SetService("scratch", "request-local")
			return ctx.JSON(map[string]bool{"shared": shared, "leaked": leaked})
		}),
		pipeline.WithServices(map[string]any{"mailer": "stub"}),
	)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		body := decodeBody(t, w)
		assert.Equal(t, true, body["shared"], "configured services are visible")
		assert.Equal(t, false, body["leaked"], "request-local services never leak")
	}
}

func TestPipelineConcurrentRequestsAreIsolated(t *testing.T) {
	t.Parallel()

	h := pipeline.New(pipeline.RouteDispatcherFunc(func(ctx *request.Context, _ *slog.Logger, _ *event.Bus) error {
		want := ctx.QueryValue("want")
		ctx.SetState("marker", want)
		got, _ := ctx.State("marker")
		return ctx.JSON(map[string]any{"want": want, "got": got})
	}))

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf("req-%d", i)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", "/?want="+want, nil))

			body := decodeBody(t, w)
			assert.Equal(t, want, body["want"])
			assert.Equal(t, want, body["got"], "state never bleeds across requests")
			assert.Equal(t, http.StatusOK, w.Code)
		}(i)
	}
	wg.Wait()
}

func TestPipelineBodyParsingDisabled(t *testing.T) {
	t.Parallel()

	h := pipeline.New(
		pipeline.RouteDispatcherFunc(func(ctx *request.Context, _ *slog.Logger, _ *event.Bus) error {
			return ctx.JSON(map[string]bool{"parsed": ctx.Body() != nil})
		}),
		pipeline.WithBodyParsing(false),
	)

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"a":1}`))
	r.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	body := decodeBody(t, w)
	assert.Equal(t, false, body["parsed"])
}
