package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placard/signcore/common/ratelimit"
)

// ScanRateLimit limits public resolution requests per client IP. Fails
// open: a limiter error (redis down) lets the request through rather than
// taking the public scan surface down with it.
func ScanRateLimit(limiter *ratelimit.Limiter, limit int64, windowSec int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result, err := limiter.CheckScanLimit(c.Request().Context(), c.RealIP(), limit, windowSec)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":               "rate_limit_exceeded",
					"retry_after_seconds": result.RetryAfterSeconds,
				})
			}

			return next(c)
		}
	}
}
