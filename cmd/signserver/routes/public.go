package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/placard/signcore/cmd/signserver/container"
	"github.com/placard/signcore/cmd/signserver/handlers"
	"github.com/placard/signcore/cmd/signserver/middleware"
)

// RegisterPublicRoutes registers the anonymous resolution routes scanned
// codes land on. These are the only routes without authentication, so the
// per-IP rate limit lives here.
func RegisterPublicRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewPublicHandler(c.ResolverService)

	cfg := c.Components.Config.RateLimit
	var mw []echo.MiddlewareFunc
	if cfg.Enabled && c.RateLimiter != nil {
		mw = append(mw, middleware.ScanRateLimit(c.RateLimiter, cfg.ScanLimit, cfg.ScanWindowS))
	}

	e.GET("/s/:code", h.ResolveSign, mw...)    // GET /s/{sign_code}
	e.GET("/l/:code", h.ResolveListing, mw...) // GET /l/{listing_code}
}
