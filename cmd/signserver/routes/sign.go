package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/placard/signcore/cmd/signserver/container"
	"github.com/placard/signcore/cmd/signserver/handlers"
	"github.com/placard/signcore/cmd/signserver/middleware"
)

// RegisterSignRoutes registers owner-facing sign routes
func RegisterSignRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewSignHandler(c.AssignmentService)

	// Owner routes with actor extraction middleware
	signs := e.Group("/api/v1/signs")
	signs.Use(middleware.ExtractActor()) // Extract X-User-ID into context
	{
		signs.GET("/available", h.ListAvailable)       // GET /api/v1/signs/available
		signs.GET("/:id", h.GetSign)                   // GET /api/v1/signs/{sign_id}
		signs.GET("/:id/history", h.History)           // GET /api/v1/signs/{sign_id}/history
		signs.POST("/:id/assign", h.Assign)            // POST /api/v1/signs/{sign_id}/assign
		signs.POST("/:id/unassign", h.Unassign)        // POST /api/v1/signs/{sign_id}/unassign
		signs.POST("/:id/regenerate", h.Regenerate)    // POST /api/v1/signs/{sign_id}/regenerate
	}
}
