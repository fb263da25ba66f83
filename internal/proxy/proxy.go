package proxy

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/tanmay/mountgate/internal/app"
)

// Headers set on proxied traffic.
const (
	HeaderForwardedPrefix = "X-Forwarded-Prefix"
	HeaderGateway         = "X-Gateway"
	HeaderBackend         = "X-Proxy-Backend"
)

// Proxy forwards requests to the backends of a single mount.
//
// Backends receive Context.Path, so when the proxy sits behind a mount they
// see the path relative to the mount prefix. The prefix itself travels in
// X-Forwarded-Prefix.
type Proxy struct {
	lb      *LoadBalancer
	proxies map[string]*httputil.ReverseProxy
	logger  *slog.Logger
}

// New creates a Proxy for the load balancer's backends. Backend URLs are
// parsed once here.
func New(lb *LoadBalancer, logger *slog.Logger) (*Proxy, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	p := &Proxy{
		lb:      lb,
		proxies: make(map[string]*httputil.ReverseProxy, len(lb.Backends())),
		logger:  logger,
	}

	for _, backend := range lb.Backends() {
		target, err := url.Parse(backend)
		if err != nil {
			return nil, fmt.Errorf("bad backend URL %q: %w", backend, err)
		}
		if target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("bad backend URL %q: scheme and host required", backend)
		}
		p.proxies[backend] = p.reverseProxy(backend, target)
	}

	return p, nil
}

func (p *Proxy) reverseProxy(backend string, target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Set(HeaderGateway, "mountgate")
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			p.logger.Error("proxy error",
				slog.String("backend", backend),
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			http.Error(w, "Bad Gateway", http.StatusBadGateway)
		},
	}
}

// Handler returns the terminal app.Handler that proxies each request.
func (p *Proxy) Handler() app.Handler {
	return func(c *app.Context, _ app.Next) error {
		backend := p.lb.Next()
		if backend == "" {
			return app.NewError(http.StatusServiceUnavailable, "No healthy backends available")
		}
		rp := p.proxies[backend]

		out := c.Request.Clone(c.Context())
		out.URL.Path = c.Path
		out.URL.RawPath = ""
		if c.MountPath != "" {
			out.Header.Set(HeaderForwardedPrefix, c.MountPath)
		}

		c.Writer.Header().Set(HeaderBackend, backend)
		p.logger.Debug("proxy",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("mount", c.MountPath),
			slog.String("forward", c.Path),
			slog.String("backend", backend),
		)

		rp.ServeHTTP(c.Writer, out)
		return nil
	}
}
