package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
)

// AdminAuth gates the admin routes behind the X-Admin-Token header.
// The token comes from ADMIN_API_TOKEN; with no token configured the
// admin surface is disabled entirely.
func AdminAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			expected := os.Getenv("ADMIN_API_TOKEN")
			if expected == "" {
				return c.JSON(http.StatusForbidden, map[string]interface{}{
					"error": "admin API is not enabled",
				})
			}

			provided := c.Request().Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
				return c.JSON(http.StatusForbidden, map[string]interface{}{
					"error": "invalid admin token",
				})
			}

			return next(c)
		}
	}
}
