package request

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/groundwork/core/httperr"
)

// parseBody dispatches on the content-type family. It runs only for methods
// that conventionally carry a body and only when the declared content length
// is nonzero. Every failure surfaces outward so a single upstream boundary
// can format it; nothing is silently stashed in state.
func (c *Context) parseBody(limits Limits, mp MultipartParser) error {
	switch c.r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}
	if c.r.ContentLength <= 0 {
		return nil
	}

	contentType := c.r.Header.Get("Content-Type")
	mediaType := contentType
	if idx := strings.Index(contentType, ";"); idx != -1 {
		mediaType = strings.TrimSpace(contentType[:idx])
	}
	mediaType = strings.ToLower(mediaType)

	switch {
	case mediaType == "application/json":
		return c.parseJSON(limits.JSON)
	case mediaType == "application/x-www-form-urlencoded":
		return c.parseForm(limits.Form)
	case mediaType == "text/plain":
		return c.parseText(limits.Text)
	case strings.HasPrefix(mediaType, "multipart/"):
		return c.parseMultipart(limits.Multipart, mp)
	default:
		// Unknown content types are kept raw; only the raw ceiling applies.
		raw, err := c.readLimited(limits.Raw)
		if err != nil {
			return err
		}
		c.rawBody = raw
		return nil
	}
}

// readLimited reads the body under the given ceiling. The declared length
// is compared first so oversized uploads fail fast without a single byte
// being read; the actual bytes are capped as well because the declared
// length can be forged.
func (c *Context) readLimited(limit int64) ([]byte, error) {
	if c.r.ContentLength > limit {
		return nil, httperr.NewPayloadTooLargeError("").WithDetails(map[string]any{
			"limit":          limit,
			"declaredLength": c.r.ContentLength,
		})
	}
	body, err := io.ReadAll(io.LimitReader(c.r.Body, limit+1))
	if err != nil {
		return nil, httperr.NewValidationError("Failed to read request body").WithDetails(map[string]any{
			"cause": err.Error(),
		})
	}
	if int64(len(body)) > limit {
		return nil, httperr.NewPayloadTooLargeError("").WithDetails(map[string]any{
			"limit": limit,
		})
	}
	return body, nil
}

func (c *Context) parseJSON(limit int64) error {
	body, err := c.readLimited(limit)
	if err != nil {
		return err
	}
	c.rawBody = body

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return httperr.NewValidationError("Invalid JSON in request body").WithDetails(map[string]any{
			"cause": err.Error(),
		})
	}
	// The literal "null" unmarshals to nil, which is the intended null body.
	c.body = v
	return nil
}

func (c *Context) parseForm(limit int64) error {
	body, err := c.readLimited(limit)
	if err != nil {
		return err
	}
	c.rawBody = body

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return httperr.NewValidationError("Invalid URL-encoded form data").WithDetails(map[string]any{
			"cause": err.Error(),
		})
	}
	c.body = collapseValues(values)
	return nil
}

func (c *Context) parseText(limit int64) error {
	body, err := c.readLimited(limit)
	if err != nil {
		return err
	}
	c.rawBody = body
	c.body = string(body)
	return nil
}

func (c *Context) parseMultipart(limits MultipartLimits, mp MultipartParser) error {
	if mp == nil {
		mp = defaultMultipartParser{}
	}
	form, err := mp.Parse(c.r, limits)
	if err != nil {
		return err
	}
	// Fields populate the body for backward-compatible field access;
	// files go into the dedicated file map.
	c.body = form.Fields
	c.files = form.Files
	return nil
}
