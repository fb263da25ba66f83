package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tanmay/mountgate/internal/app"
)

// Prometheus metrics, registered once at package init via promauto.
var (
	// httpRequestsTotal counts requests by method, mount prefix and status code.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mountgate_http_requests_total",
			Help: "Total number of HTTP requests handled per mount",
		},
		[]string{"method", "mount", "status"},
	)

	// httpRequestDuration tracks request latency distribution per mount.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mountgate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds per mount",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "mount"},
	)
)

// Metrics records Prometheus metrics per request.
// Place it inside a mounted app: requests are labelled with Context.MountPath,
// which keeps label cardinality bounded by the number of mounts.
func Metrics() app.Handler {
	return func(c *app.Context, next app.Next) error {
		start := time.Now()
		mountPath := c.MountPath
		if mountPath == "" {
			mountPath = "/"
		}

		err := next()

		status := c.Status()
		switch {
		case err != nil && !c.Written():
			status = app.StatusOf(err)
		case status == 0:
			status = http.StatusNotFound
		}

		httpRequestsTotal.WithLabelValues(c.Request.Method, mountPath, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, mountPath).Observe(time.Since(start).Seconds())

		return err
	}
}
