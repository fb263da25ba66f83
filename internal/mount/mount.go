// Package mount binds a handler, or a whole stack of handlers, to a path
// prefix.
//
// A mounted handler only runs for requests under its prefix. While it runs,
// Context.Path is relative to the prefix ("/images/a.png" mounted at "/images"
// is seen as "/a.png") and Context.MountPath holds the prefix. Both are put
// back before control returns to the caller, whatever the outcome.
//
//	api := app.New("api").Use(listUsers)
//	root := app.New("root").Use(
//		logging,
//		mount.Must(mount.MountApp("/api", api)),
//	)
//
// Mounts nest: the inner prefix is matched against the path the outer mount
// left behind.
package mount

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tanmay/mountgate/internal/app"
	"github.com/tanmay/mountgate/internal/pattern"
)

// ErrInvalidPrefix is returned when a mount prefix does not begin with "/".
var ErrInvalidPrefix = errors.New(`mount path must begin with "/"`)

// Option configures a mount.
type Option func(*mounter)

// WithName sets the name used in diagnostics. MountApp defaults it to the
// app's Name() when the app has one.
func WithName(name string) Option {
	return func(m *mounter) {
		m.name = name
	}
}

// WithLogger enables debug logging of matches, entry and exit.
func WithLogger(logger *slog.Logger) Option {
	return func(m *mounter) {
		if logger != nil {
			m.logger = logger
		}
	}
}

type mounter struct {
	prefix        string
	name          string
	downstream    app.Handler
	trailingSlash bool
	pattern       *pattern.Pattern
	logger        *slog.Logger
}

// result is a successful match: the prefix-relative path and merged params.
type result struct {
	path   string
	params map[string]string
}

// Mount binds downstream to prefix.
//
// An empty prefix means "/". Mounting at "/" applies to every request, so
// downstream is returned as is.
func Mount(prefix string, downstream app.Handler, opts ...Option) (app.Handler, error) {
	return mount(prefix, downstream, "unnamed", opts)
}

// MountApp composes the handlers of a into one and binds it to prefix.
func MountApp(prefix string, a app.Composable, opts ...Option) (app.Handler, error) {
	name := "unnamed"
	if named, ok := a.(interface{ Name() string }); ok && named.Name() != "" {
		name = named.Name()
	}
	return mount(prefix, app.Compose(a.Middleware()...), name, opts)
}

// Must panics if err is non-nil. It is meant for wiring code where a bad
// prefix is a programming error.
func Must(h app.Handler, err error) app.Handler {
	if err != nil {
		panic(err)
	}
	return h
}

func mount(prefix string, downstream app.Handler, name string, opts []Option) (app.Handler, error) {
	if prefix == "" {
		prefix = "/"
	}
	if prefix[0] != '/' {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}
	if downstream == nil {
		return nil, errors.New("mount: nil handler")
	}

	if prefix == "/" {
		return downstream, nil
	}

	m := &mounter{
		prefix:        prefix,
		name:          name,
		downstream:    downstream,
		trailingSlash: strings.HasSuffix(prefix, "/"),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}

	p, err := pattern.Compile(prefix, pattern.Options{End: false})
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", prefix, err)
	}
	m.pattern = p

	m.logger.Debug("mount", slog.String("prefix", prefix), slog.String("name", m.name))
	return m.handle, nil
}

func (m *mounter) handle(c *app.Context, upstream app.Next) error {
	prev := c.Path
	prevMount := c.MountPath
	if upstream == nil {
		upstream = func() error { return nil }
	}

	res, ok, err := m.match(c.Path, c.Params)
	if err != nil {
		return err
	}
	if !ok {
		return upstream()
	}

	m.logger.Debug("mount match",
		slog.String("prefix", m.prefix),
		slog.String("name", m.name),
		slog.String("path", res.path),
	)

	c.MountPath = m.prefix
	c.Params = res.params
	c.Path = res.path

	span := trace.SpanFromContext(c.Context())
	span.AddEvent("mount.enter", trace.WithAttributes(
		attribute.String("mount.prefix", m.prefix),
		attribute.String("mount.from", prev),
		attribute.String("mount.to", res.path),
	))
	m.logger.Debug("mount enter", slog.String("from", prev), slog.String("to", res.path))

	defer func() {
		m.logger.Debug("mount leave", slog.String("from", prev), slog.String("to", c.Path))
		span.AddEvent("mount.leave", trace.WithAttributes(
			attribute.String("mount.prefix", m.prefix),
		))
		c.Path = prev
		c.MountPath = prevMount
	}()

	return m.downstream(c, func() error {
		c.Path = prev
		c.MountPath = prevMount
		defer func() {
			c.Path = res.path
			c.MountPath = m.prefix
		}()
		return upstream()
	})
}

// match reports whether path lies under the prefix and, if so, what the
// path looks like relative to it.
//
//	match("/images/", "/lkajsldkjf")   => no match
//	match("/images", "/images")        => "/"
//	match("/images/", "/images")       => "/"
//	match("/images/", "/images/asdf")  => "/asdf"
//	match("/images", "/imagesasdf")    => no match
func (m *mounter) match(path string, params map[string]string) (result, bool, error) {
	newPath, merged, ok, err := m.pattern.Split(path, params)
	if err != nil {
		return result{}, false, app.WrapError(http.StatusBadRequest, "failed to decode param", err)
	}
	if !ok {
		return result{}, false, nil
	}

	if newPath == "" {
		newPath = "/"
	}

	if m.trailingSlash {
		return result{path: newPath, params: merged}, true, nil
	}

	// "/mount" does not match "/mountlkjalskjdf"
	if newPath[0] != '/' {
		return result{}, false, nil
	}

	return result{path: newPath, params: merged}, true, nil
}
