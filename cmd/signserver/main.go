package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/placard/signcore/cmd/signserver/container"
	"github.com/placard/signcore/cmd/signserver/handlers"
	"github.com/placard/signcore/cmd/signserver/routes"
	"github.com/placard/signcore/common/bootstrap"
	"github.com/placard/signcore/common/server"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (DB, logger, queue, cache, redis, telemetry)
	components, err := bootstrap.Setup(ctx, "signserver")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap signserver: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	// Start background workers: the generation coordinator consumes queued
	// render requests, the resolver flushes scan events.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	if err := serviceContainer.GenerationService.Start(workerCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start generation coordinator: %v\n", err)
		os.Exit(1)
	}
	serviceContainer.ResolverService.Start(workerCtx)

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e)
	registerRoutes(e, serviceContainer)

	srv := server.New("signserver", components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.RequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"service": "signserver",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterPublicRoutes(e, serviceContainer)
	routes.RegisterSignRoutes(e, serviceContainer)
	routes.RegisterAdminRoutes(e, serviceContainer)
}
