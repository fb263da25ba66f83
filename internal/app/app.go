package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// App is an ordered stack of handlers served as one http.Handler.
// It also satisfies Composable, so a whole App can be mounted inside another.
type App struct {
	name       string
	middleware []Handler
	logger     *slog.Logger
}

// New creates an empty App. The name shows up in logs and mount diagnostics.
func New(name string) *App {
	return &App{
		name:   name,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger sets the logger used to report request errors.
func (a *App) WithLogger(logger *slog.Logger) *App {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Use appends handlers to the stack.
func (a *App) Use(handlers ...Handler) *App {
	a.middleware = append(a.middleware, handlers...)
	return a
}

// Name returns the name the App was created with.
func (a *App) Name() string {
	return a.name
}

// Middleware returns a copy of the handler stack.
func (a *App) Middleware() []Handler {
	out := make([]Handler, len(a.middleware))
	copy(out, a.middleware)
	return out
}

// Handler composes the current stack into a single Handler.
func (a *App) Handler() Handler {
	return Compose(a.middleware...)
}

// ServeHTTP runs the stack for one request.
//
// A returned error becomes the response status (see StatusOf) unless the
// response was already started. If nothing writes a response, 404 is sent.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := NewContext(w, r)
	h := a.Handler()

	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		return h(c, nil)
	}()

	if err != nil {
		a.handleError(c, err)
		return
	}

	if !c.Written() {
		http.NotFound(c.Writer, c.Request)
	}
}

// handleError reports err to the client, falling back to logging only
// when headers have already gone out.
func (a *App) handleError(c *Context, err error) {
	status := StatusOf(err)
	a.logger.Error("request failed",
		slog.String("app", a.name),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)

	if c.Written() {
		return
	}
	writeError(c, err)
}

// writeError renders err as a plain-text response. Messages of server errors
// are never shown to the client.
func writeError(c *Context, err error) {
	status := StatusOf(err)
	message := http.StatusText(status)
	var e *Error
	if errors.As(err, &e) && status < http.StatusInternalServerError {
		message = e.Message
	}
	http.Error(c.Writer, message, status)
}
