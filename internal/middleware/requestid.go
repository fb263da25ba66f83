package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/tanmay/mountgate/internal/app"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// requestIDKey is a private type for context keys to avoid collisions.
type requestIDKey struct{}

// RequestID assigns a unique ID to every request.
// The ID is:
//   - Set as the X-Request-ID response header (for the client)
//   - Set on the request headers (for proxied backends)
//   - Stored in the request context (for later handlers)
//   - Reused from the client's X-Request-ID if one was sent
func RequestID() app.Handler {
	return func(c *app.Context, next app.Next) error {
		requestID := c.Request.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Writer.Header().Set(HeaderRequestID, requestID)
		c.Request.Header.Set(HeaderRequestID, requestID)
		c.SetContext(ContextWithRequestID(c.Context(), requestID))
		return next()
	}
}

// ContextWithRequestID returns a copy of ctx carrying the request ID.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID extracts the request ID from the context.
// Returns empty string if no request ID is set.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
