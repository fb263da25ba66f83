package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
)

// responseWriter wraps http.ResponseWriter to capture the status code
// and the number of bytes written. Go's http.ResponseWriter doesn't let you
// read the status back once WriteHeader has been called.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

// WriteHeader records the first status code and passes it through.
func (rw *responseWriter) WriteHeader(code int) {
	if rw.statusCode != 0 {
		return
	}
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write tracks response size and defaults the status to 200.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, errors.New("http.Hijacker interface is not supported")
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Context carries the state of a single request through the handler chain.
//
// Path is the logical request path. It starts out equal to Request.URL.Path
// and may be rewritten by mounts for the duration of a downstream call.
// Request.URL is never modified.
type Context struct {
	Request *http.Request
	Writer  http.ResponseWriter

	// Path is the path visible to the current handler.
	Path string
	// Params holds values captured by mounted prefixes.
	Params map[string]string
	// MountPath is the prefix of the innermost mount currently active.
	MountPath string

	rw *responseWriter
}

// NewContext creates the Context for a request.
func NewContext(w http.ResponseWriter, r *http.Request) *Context {
	rw := &responseWriter{ResponseWriter: w}
	return &Context{
		Request: r,
		Writer:  rw,
		Path:    r.URL.Path,
		Params:  make(map[string]string),
		rw:      rw,
	}
}

// Status returns the response status code, or 0 if nothing was written yet.
func (c *Context) Status() int {
	return c.rw.statusCode
}

// BytesWritten returns the number of response body bytes written so far.
func (c *Context) BytesWritten() int64 {
	return c.rw.bytesWritten
}

// Written reports whether a response has been started.
func (c *Context) Written() bool {
	return c.rw.statusCode != 0
}

// Context returns the request's context.Context.
func (c *Context) Context() context.Context {
	return c.Request.Context()
}

// SetContext replaces the request's context, so values stored in it are
// visible to every handler that runs after this call.
func (c *Context) SetContext(ctx context.Context) {
	c.Request = c.Request.WithContext(ctx)
}

// JSON writes v as a JSON response with the given status.
func (c *Context) JSON(status int, v any) error {
	c.Writer.Header().Set("Content-Type", "application/json")
	c.Writer.WriteHeader(status)
	return json.NewEncoder(c.Writer).Encode(v)
}
