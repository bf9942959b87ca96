package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/placard/signcore/cmd/signserver/container"
	"github.com/placard/signcore/cmd/signserver/handlers"
	"github.com/placard/signcore/cmd/signserver/middleware"
)

// RegisterAdminRoutes registers support-tooling routes behind the admin
// token check. Admin callers still carry X-User-ID so audit entries name
// the human operator, not a shared credential.
func RegisterAdminRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewAdminHandler(c.AdminService)

	admin := e.Group("/api/v1/admin")
	admin.Use(middleware.AdminAuth())
	admin.Use(middleware.ExtractActor())
	{
		admin.POST("/signs", h.GrantSign)                                     // POST /api/v1/admin/signs
		admin.POST("/signs/:id/force-unassign", h.ForceUnassign)              // POST /api/v1/admin/signs/{sign_id}/force-unassign
		admin.POST("/listings/:id/force-unassign-all", h.ForceUnassignAll)    // POST /api/v1/admin/listings/{listing_id}/force-unassign-all
		admin.GET("/audit", h.ListAudit)                                      // GET /api/v1/admin/audit
	}
}
