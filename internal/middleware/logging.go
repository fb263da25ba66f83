package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tanmay/mountgate/internal/app"
)

// Logging logs every request once it has completed.
//
// The logged path is the one visible where Logging sits in the chain, so at the
// root it is always the full request path, never a mount-relative one.
func Logging(logger *slog.Logger) app.Handler {
	return func(c *app.Context, next app.Next) error {
		start := time.Now()
		path := c.Path

		err := next()

		status := c.Status()
		switch {
		case err != nil && !c.Written():
			status = app.StatusOf(err)
		case status == 0:
			// nothing wrote a response; the app will answer 404
			status = http.StatusNotFound
		}

		clientIP, _, splitErr := net.SplitHostPort(c.Request.RemoteAddr)
		if splitErr != nil {
			clientIP = c.Request.RemoteAddr
		}

		attrs := []slog.Attr{
			slog.String("request_id", GetRequestID(c.Context())),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("client_ip", clientIP),
			slog.Int64("bytes_out", c.BytesWritten()),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		logger.LogAttrs(c.Context(), level, "request completed", attrs...)

		return err
	}
}
