package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/groundwork/core/chain"
	"github.com/dmitrymomot/groundwork/core/event"
	"github.com/dmitrymomot/groundwork/core/request"
)

// CORSConfig defines configuration options for the CORS extension.
type CORSConfig struct {
	// Skip allows bypassing CORS handling for specific requests
	Skip func(ctx *request.Context) bool

	// AllowOrigins specifies allowed origins. Use "*" for all origins.
	// If empty, defaults to allowing all origins ("*")
	AllowOrigins []string

	// AllowMethods specifies allowed HTTP methods.
	// If empty, defaults to GET, HEAD, PUT, PATCH, POST, DELETE
	AllowMethods []string

	// AllowHeaders specifies allowed request headers. If empty, the
	// preflight's requested headers are echoed back.
	AllowHeaders []string

	// ExposeHeaders specifies which headers are exposed to the client
	ExposeHeaders []string

	// AllowCredentials indicates whether credentials are allowed.
	// Ignored for wildcard origins for security reasons.
	AllowCredentials bool

	// MaxAge specifies how long preflight responses can be cached (in seconds)
	MaxAge int

	// AllowOriginFunc provides custom origin validation logic. Takes
	// precedence over AllowOrigins when set. Returns the allowed origin
	// value and whether the origin is allowed.
	AllowOriginFunc func(origin string) (string, bool)
}

// CORS creates a CORS extension with default configuration: all origins,
// common HTTP methods. Production deployments should configure exact
// origins via CORSWithConfig.
func CORS() chain.Extension {
	return CORSWithConfig(CORSConfig{})
}

// CORSWithConfig creates a CORS extension. Preflight OPTIONS requests are
// answered with 204 and never reach the rest of the chain; actual requests
// get the response headers attached and proceed downstream.
func CORSWithConfig(cfg CORSConfig) chain.Extension {
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{"*"}
	}
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = []string{
			http.MethodGet, http.MethodHead, http.MethodPut,
			http.MethodPatch, http.MethodPost, http.MethodDelete,
		}
	}
	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")

	return chain.Extension{
		Name: "cors",
		Skip: cfg.Skip,
		Execute: func(ctx *request.Context, next chain.Next, _ *slog.Logger, _ *event.Bus) error {
			origin := ctx.Request().Header.Get("Origin")
			if origin == "" {
				// Not a cross-origin request.
				return next()
			}

			hdr := ctx.ResponseWriter().Header()
			hdr.Add("Vary", "Origin")

			allowed, ok := resolveOrigin(cfg, origin)
			preflight := ctx.Method() == http.MethodOptions &&
				ctx.Request().Header.Get("Access-Control-Request-Method") != ""

			if !ok {
				// Disallowed origins get no CORS headers; the browser
				// enforces the rest. Preflights still terminate here.
				if preflight {
					return ctx.NoContent()
				}
				return next()
			}

			hdr.Set("Access-Control-Allow-Origin", allowed)
			if cfg.AllowCredentials && allowed != "*" {
				hdr.Set("Access-Control-Allow-Credentials", "true")
			}

			if preflight {
				hdr.Set("Access-Control-Allow-Methods", allowMethods)
				if allowHeaders != "" {
					hdr.Set("Access-Control-Allow-Headers", allowHeaders)
				} else if requested := ctx.Request().Header.Get("Access-Control-Request-Headers"); requested != "" {
					hdr.Set("Access-Control-Allow-Headers", requested)
				}
				if cfg.MaxAge > 0 {
					hdr.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				return ctx.NoContent()
			}

			if exposeHeaders != "" {
				hdr.Set("Access-Control-Expose-Headers", exposeHeaders)
			}
			return next()
		},
	}
}

func resolveOrigin(cfg CORSConfig, origin string) (string, bool) {
	if cfg.AllowOriginFunc != nil {
		return cfg.AllowOriginFunc(origin)
	}
	for _, allowed := range cfg.AllowOrigins {
		if allowed == "*" {
			return "*", true
		}
		if strings.EqualFold(allowed, origin) {
			return origin, true
		}
	}
	return "", false
}
