package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/rihla/internal/core/ports"
)

const tokenKey ctxKey = "bearer_token"

// ClientIDHeader identifies the browser that owns a vault record.
const ClientIDHeader = "X-Client-ID"

// BearerAuthMiddleware copies the bearer token, if any, into the user
// context. Requests without a token pass through; the booking flow turns
// a missing token into an AuthMissing failure.
func BearerAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearerToken(c); token != "" {
			c.SetUserContext(WithToken(c.UserContext(), token))
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// WithToken returns a context carrying token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the bearer token stored by BearerAuthMiddleware.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey).(string)
	return t, ok && t != ""
}

// AuthProvider reads the per-request bearer token for the session layer.
func AuthProvider() ports.AuthProvider {
	return ports.AuthFunc(TokenFromContext)
}
