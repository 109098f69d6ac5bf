package pipeline

import "net/http"

// responseWriter wraps http.ResponseWriter to track whether the transport
// has started flushing. Once headers are on the wire no fallback error
// body can be written.
type responseWriter struct {
	http.ResponseWriter
	written bool
	status  int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w}
}

func (w *responseWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Written returns true if response headers have been written.
func (w *responseWriter) Written() bool {
	return w.written
}

// Status returns the HTTP status code of the response.
func (w *responseWriter) Status() int {
	return w.status
}

// Flush implements http.Flusher if the underlying writer supports it.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
