package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ActorKey is the context key for the authenticated user id
	ActorKey ContextKey = "actor"
)

// ExtractActor requires the X-User-ID header and stores it in the request
// context. Upstream auth terminates the session and forwards the identity;
// the core never carries an ambient session of its own.
func ExtractActor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := c.Request().Header.Get("X-User-ID")

			if actor == "" {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "X-User-ID header is required",
				})
			}

			c.Set(string(ActorKey), actor)
			return next(c)
		}
	}
}

// GetActor retrieves the acting user id from the request context.
// Returns empty string if not set.
func GetActor(c echo.Context) string {
	if actor, ok := c.Get(string(ActorKey)).(string); ok {
		return actor
	}
	return ""
}
