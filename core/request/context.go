package request

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/groundwork/core/correlation"
)

// Limits holds the per-content-type byte ceilings enforced during body
// parsing. Zero fields are replaced with their DefaultLimits counterparts,
// so a partial override keeps sensible ceilings for the rest.
type Limits struct {
	JSON      int64
	Form      int64
	Text      int64
	Raw       int64
	Multipart MultipartLimits
}

// DefaultLimits returns the ceilings used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		JSON:      1 << 20,  // 1 MB
		Form:      1 << 20,  // 1 MB
		Text:      1 << 20,  // 1 MB
		Raw:       4 << 20,  // 4 MB
		Multipart: DefaultMultipartLimits(),
	}
}

// Options configures Context construction.
type Options struct {
	// ParseBody enables content-type driven body parsing during construction.
	ParseBody bool
	// Limits are the per-content-type byte ceilings. Zero fields fall back
	// to the matching defaults.
	Limits Limits
	// State seeds the request-scoped state bag. Used as-is, not copied.
	State map[string]any
	// Services seeds the request-scoped services bag. Used as-is, not copied.
	Services map[string]any
	// Logger is the request-scoped logger. Defaults to slog.Default().
	Logger *slog.Logger
	// Multipart overrides the multipart body decoder. Defaults to the
	// built-in mime/multipart based parser.
	Multipart MultipartParser
}

// Context is the per-request facade bundling the request view, response
// view, and the open state and services bags. It is created once per
// exchange and must never be shared across concurrent requests.
type Context struct {
	w      http.ResponseWriter
	r      *http.Request
	logger *slog.Logger

	query    map[string]any
	protocol string
	http2    bool

	rawBody []byte
	body    any
	files   map[string]*File

	state    map[string]any
	services map[string]any

	status int
	sent   bool
}

// New builds a Context from a raw transport exchange. Parsing the request
// target or body can fail before any extension has run; such errors carry
// httperr classification and are expected to be formatted by the caller's
// outer error handler.
func New(w http.ResponseWriter, r *http.Request, opts Options) (*Context, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	limits := fillLimits(opts.Limits)

	query, err := parseQuery(r.URL.RawQuery)
	if err != nil {
		return nil, err
	}

	state := opts.State
	if state == nil {
		state = make(map[string]any)
	}
	services := opts.Services
	if services == nil {
		services = make(map[string]any)
	}

	c := &Context{
		w:        w,
		r:        r,
		logger:   opts.Logger,
		query:    query,
		protocol: deriveProtocol(r),
		http2:    r.ProtoMajor >= 2,
		files:    make(map[string]*File),
		state:    state,
		services: services,
	}

	if opts.ParseBody {
		if err := c.parseBody(limits, opts.Multipart); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// fillLimits replaces every unset ceiling with its default, field by field.
func fillLimits(limits Limits) Limits {
	defaults := DefaultLimits()
	if limits.JSON <= 0 {
		limits.JSON = defaults.JSON
	}
	if limits.Form <= 0 {
		limits.Form = defaults.Form
	}
	if limits.Text <= 0 {
		limits.Text = defaults.Text
	}
	if limits.Raw <= 0 {
		limits.Raw = defaults.Raw
	}
	if limits.Multipart.MaxFileSize <= 0 {
		limits.Multipart.MaxFileSize = defaults.Multipart.MaxFileSize
	}
	if limits.Multipart.MaxTotalSize <= 0 {
		limits.Multipart.MaxTotalSize = defaults.Multipart.MaxTotalSize
	}
	if limits.Multipart.MaxFiles <= 0 {
		limits.Multipart.MaxFiles = defaults.Multipart.MaxFiles
	}
	if limits.Multipart.MaxFieldSize <= 0 {
		limits.Multipart.MaxFieldSize = defaults.Multipart.MaxFieldSize
	}
	return limits
}

// deriveProtocol resolves the effective scheme: a TLS-terminated socket
// wins, otherwise the first comma-separated token of the forwarded-protocol
// header, trimmed.
func deriveProtocol(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx != -1 {
			forwarded = forwarded[:idx]
		}
		if proto := strings.TrimSpace(forwarded); proto != "" {
			return proto
		}
	}
	return "http"
}

// Deadline delegates to the request's context.
func (c *Context) Deadline() (deadline time.Time, ok bool) {
	return c.r.Context().Deadline()
}

// Done delegates to the request's context.
func (c *Context) Done() <-chan struct{} {
	return c.r.Context().Done()
}

// Err delegates to the request's context.
func (c *Context) Err() error {
	return c.r.Context().Err()
}

// Value delegates to the request's context.
func (c *Context) Value(key any) any {
	return c.r.Context().Value(key)
}

// Request returns the *http.Request associated with the context.
func (c *Context) Request() *http.Request {
	return c.r
}

// ResponseWriter returns the http.ResponseWriter associated with the context.
func (c *Context) ResponseWriter() http.ResponseWriter {
	return c.w
}

// Logger returns the request-scoped logger.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// Method returns the HTTP method of the request.
func (c *Context) Method() string {
	return c.r.Method
}

// Path returns the request path.
func (c *Context) Path() string {
	return c.r.URL.Path
}

// Query returns the parsed query parameters. A key that occurred once maps
// to a string; repeated keys map to a []string in arrival order.
func (c *Context) Query() map[string]any {
	return c.query
}

// QueryValue returns the parsed value for a single query key, or nil.
func (c *Context) QueryValue(key string) any {
	return c.query[key]
}

// Header returns the request header value for the given key,
// case-insensitively. Repeated header values are joined with ", ".
func (c *Context) Header(key string) string {
	return strings.Join(c.r.Header.Values(key), ", ")
}

// Protocol returns the effective request scheme ("http" or "https", or
// whatever the forwarded-protocol header declared).
func (c *Context) Protocol() string {
	return c.protocol
}

// IsHTTP2 reports whether the request arrived on a multiplexed HTTP/2+ stream.
func (c *Context) IsHTTP2() bool {
	return c.http2
}

// RawBody returns the raw request body bytes read during construction.
func (c *Context) RawBody() []byte {
	return c.rawBody
}

// Body returns the parsed request body: a map for JSON objects, form and
// multipart fields, a string for text bodies, nil when nothing was parsed
// or the body was the JSON literal "null".
func (c *Context) Body() any {
	return c.body
}

// Files returns the parsed multipart file map.
func (c *Context) Files() map[string]*File {
	return c.files
}

// File returns the uploaded file bound to the given multipart field name, or nil.
func (c *Context) File(name string) *File {
	return c.files[name]
}

// State returns the value stored in the request-scoped state bag.
func (c *Context) State(key string) (any, bool) {
	v, ok := c.state[key]
	return v, ok
}

// SetState stores a value in the request-scoped state bag.
// Keys use dotted namespacing by convention (e.g., "auth.userId").
func (c *Context) SetState(key string, val any) {
	c.state[key] = val
}

// CorrelationID returns the request's correlation id from state, if set.
func (c *Context) CorrelationID() string {
	id, _ := c.state[correlation.StateKey].(string)
	return id
}

// Service returns a request-scoped service by name.
func (c *Context) Service(name string) (any, bool) {
	v, ok := c.services[name]
	return v, ok
}

// SetService stores a request-scoped service, typically from an extension.
func (c *Context) SetService(name string, svc any) {
	c.services[name] = svc
}
