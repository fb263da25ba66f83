package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tanmay/mountgate/internal/app"
)

type subjectKey struct{}

// Auth holds valid API keys and the JWT signing secret.
type Auth struct {
	apiKeys   map[string]bool
	jwtSecret []byte
}

// NewAuth creates an Auth middleware with the given API keys and JWT secret.
func NewAuth(apiKeys []string, jwtSecret string) *Auth {
	keys := make(map[string]bool)
	for _, k := range apiKeys {
		keys[k] = true
	}
	return &Auth{
		apiKeys:   keys,
		jwtSecret: []byte(jwtSecret),
	}
}

// Handler checks the X-API-Key header first, then falls back to
// Authorization: Bearer <JWT>. Anything else is rejected with 401.
// The JWT subject, if any, is stored in the request context.
func (a *Auth) Handler() app.Handler {
	return func(c *app.Context, next app.Next) error {
		r := c.Request

		if key := r.Header.Get("X-API-Key"); key != "" {
			if a.apiKeys[key] {
				return next()
			}
			return app.NewError(http.StatusUnauthorized, "Invalid API Key")
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			return app.NewError(http.StatusUnauthorized, "Unauthorized")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return app.NewError(http.StatusUnauthorized, "Invalid Authorization Header")
		}
		if len(a.jwtSecret) == 0 {
			return app.NewError(http.StatusUnauthorized, "Invalid Token")
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return a.jwtSecret, nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil || !token.Valid {
			return app.WrapError(http.StatusUnauthorized, "Invalid Token", err)
		}

		if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
			c.SetContext(context.WithValue(c.Context(), subjectKey{}, sub))
		}

		return next()
	}
}

// GetSubject returns the JWT subject stored by Auth, if any.
func GetSubject(ctx context.Context) string {
	if sub, ok := ctx.Value(subjectKey{}).(string); ok {
		return sub
	}
	return ""
}
