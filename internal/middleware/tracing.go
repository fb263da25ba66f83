package middleware

import (
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tanmay/mountgate/internal/app"
)

// Tracing starts an OpenTelemetry server span for every request. Mounts below
// it record their enter/leave events on that span.
func Tracing(operation string, opts ...otelhttp.Option) app.Handler {
	return app.WrapMiddleware(otelhttp.NewMiddleware(operation, opts...))
}
