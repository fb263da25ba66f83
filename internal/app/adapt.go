package app

import "net/http"

// FromHTTP turns a plain http.Handler into a terminal Handler.
// The handler sees a copy of the request whose URL.Path is the Context's
// current Path, so a mounted http.Handler only sees the path below its mount.
func FromHTTP(h http.Handler) Handler {
	return func(c *Context, _ Next) error {
		r := c.Request.Clone(c.Request.Context())
		r.URL.Path = c.Path
		r.URL.RawPath = ""
		h.ServeHTTP(c.Writer, r)
		return nil
	}
}

// WrapMiddleware adapts a standard func(http.Handler) http.Handler middleware,
// such as chi's or otelhttp's, into a Handler.
//
// Whatever request and writer the middleware passes on are installed on the
// Context while the rest of the chain runs, then swapped back.
//
// The middleware only sees what was written before it returns, so an error
// from the rest of the chain is rendered right there, and a request nobody
// answered gets its 404 there too. The error is still returned for logging.
func WrapMiddleware(mw func(http.Handler) http.Handler) Handler {
	return func(c *Context, next Next) error {
		var err error
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			prevW, prevR := c.Writer, c.Request
			c.Writer, c.Request = w, r
			defer func() {
				c.Writer, c.Request = prevW, prevR
			}()

			err = next()
			switch {
			case c.Written():
			case err != nil:
				writeError(c, err)
			default:
				http.NotFound(c.Writer, c.Request)
			}
		})
		mw(inner).ServeHTTP(c.Writer, c.Request)
		return err
	}
}
