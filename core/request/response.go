package request

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/dmitrymomot/groundwork/core/correlation"
	"github.com/dmitrymomot/groundwork/core/httperr"
	"github.com/dmitrymomot/groundwork/core/logger"
)

// Status sets the pending response status code. Chainable:
//
//	ctx.Status(http.StatusCreated).JSON(user)
func (c *Context) Status(code int) *Context {
	c.status = code
	return c
}

// StatusCode returns the status code that was written, or the pending one.
// Zero means neither was set yet.
func (c *Context) StatusCode() int {
	return c.status
}

// Sent reports whether a terminal response operation has completed.
// The flag transitions false to true at most once per request.
func (c *Context) Sent() bool {
	return c.sent
}

// SetHeader sets a response header. Fails with ResponseAlreadySent when the
// response has already gone out, since the mutation can no longer take effect.
func (c *Context) SetHeader(key, value string) error {
	if c.sent {
		return httperr.NewResponseAlreadySentError("Cannot set headers after response has been sent")
	}
	c.w.Header().Set(key, value)
	return nil
}

// attachCorrelation mirrors the request's correlation id onto the response
// when one is present in state. Called from every terminal operation just
// before headers go out.
func (c *Context) attachCorrelation() {
	if id := c.CorrelationID(); id != "" {
		c.w.Header().Set(correlation.Header(), id)
	}
}

func (c *Context) statusOr(fallback int) int {
	if c.status > 0 {
		return c.status
	}
	return fallback
}

// send is the shared terminal write path for fixed-body responses.
func (c *Context) send(contentType string, status int, body []byte) error {
	if c.sent {
		return httperr.NewResponseAlreadySentError("")
	}
	if contentType != "" {
		c.w.Header().Set("Content-Type", contentType)
	}
	c.attachCorrelation()
	c.status = status
	c.sent = true
	c.w.WriteHeader(status)
	if len(body) > 0 {
		if _, err := c.w.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// JSON writes an application/json response and marks the response sent.
// Encoding happens directly to the response writer.
func (c *Context) JSON(v any) error {
	if c.sent {
		return httperr.NewResponseAlreadySentError("")
	}
	c.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.attachCorrelation()
	status := c.statusOr(http.StatusOK)
	c.status = status
	c.sent = true
	c.w.WriteHeader(status)

	// 204 and 304 must not carry a body per HTTP spec.
	switch status {
	case http.StatusNoContent, http.StatusNotModified:
		return nil
	}
	return json.NewEncoder(c.w).Encode(v)
}

// Text writes a text/plain response and marks the response sent.
func (c *Context) Text(s string) error {
	return c.send("text/plain; charset=utf-8", c.statusOr(http.StatusOK), []byte(s))
}

// HTML writes a text/html response and marks the response sent.
func (c *Context) HTML(s string) error {
	return c.send("text/html; charset=utf-8", c.statusOr(http.StatusOK), []byte(s))
}

// NoContent writes an empty 204 response and marks the response sent.
func (c *Context) NoContent() error {
	return c.send("", http.StatusNoContent, nil)
}

// Redirect writes a redirect response and marks the response sent.
// Status codes outside the 3xx range fall back to 302 Found.
func (c *Context) Redirect(url string, status int) error {
	if c.sent {
		return httperr.NewResponseAlreadySentError("")
	}
	if status < 300 || status >= 400 {
		status = http.StatusFound
	}
	c.attachCorrelation()
	c.status = status
	c.sent = true
	http.Redirect(c.w, c.r, url, status)
	return nil
}

// Stream pipes the producer into the transport and marks the response sent.
// A producer error before the first byte goes on the wire yields a fallback
// 500 with a short diagnostic body; once headers are flushed, failures are
// only logged because no further write can reach the client intact.
func (c *Context) Stream(contentType string, src io.Reader) error {
	if c.sent {
		return httperr.NewResponseAlreadySentError("")
	}

	buf := make([]byte, 32*1024)
	n, err := src.Read(buf)
	if err != nil && err != io.EOF {
		c.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		c.attachCorrelation()
		c.status = http.StatusInternalServerError
		c.sent = true
		c.w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(c.w, "stream failed before any data was written")
		return err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.w.Header().Set("Content-Type", contentType)
	c.attachCorrelation()
	status := c.statusOr(http.StatusOK)
	c.status = status
	c.sent = true
	c.w.WriteHeader(status)

	if n > 0 {
		if _, werr := c.w.Write(buf[:n]); werr != nil {
			c.logger.Error("stream write failed", logger.Error(werr))
			return nil
		}
	}
	if err == io.EOF {
		return nil
	}
	if _, cerr := io.Copy(c.w, src); cerr != nil {
		c.logger.Error("stream producer failed mid-flight", logger.Error(cerr))
	}
	return nil
}
