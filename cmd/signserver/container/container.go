package container

import (
	"github.com/placard/signcore/cmd/signserver/clients"
	"github.com/placard/signcore/cmd/signserver/repository"
	"github.com/placard/signcore/cmd/signserver/service"
	"github.com/placard/signcore/common/bootstrap"
	"github.com/placard/signcore/common/ratelimit"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Repositories
	Store           *repository.Store
	ListingRepo     *repository.ListingRepository
	EntitlementRepo *repository.EntitlementRepository
	ScanEventRepo   *repository.ScanEventRepository

	// Services
	OwnershipService  *service.OwnershipService
	GenerationService *service.GenerationService
	AssignmentService *service.AssignmentService
	ResolverService   *service.ResolverService
	AdminService      *service.AdminService

	// Clients
	Renderer    *clients.RendererClient
	RateLimiter *ratelimit.Limiter
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config

	// Initialize repositories
	store := repository.NewStore(components.DB)
	listingRepo := repository.NewListingRepository(components.DB)
	entitlementRepo := repository.NewEntitlementRepository(components.DB)
	scanEventRepo := repository.NewScanEventRepository(components.DB)

	// Initialize clients
	renderer := clients.NewRendererClient(cfg, components.Logger)

	var limiter *ratelimit.Limiter
	if components.Redis != nil {
		limiter = ratelimit.New(components.Redis.GetUnderlying(), components.Logger)
	}

	// Initialize services (bottom-up: dependencies first)
	ownershipService := service.NewOwnershipService(listingRepo, components.Cache, cfg.Cache.OwnershipTTL)
	generationService := service.NewGenerationService(
		store,
		listingRepo,
		renderer,
		components.Queue,
		cfg.Service.BaseURL,
		components.Logger,
	)
	assignmentService := service.NewAssignmentService(
		store,
		ownershipService,
		entitlementRepo,
		generationService,
		components.Logger,
	)
	resolverService := service.NewResolverService(
		store.Signs(),
		listingRepo,
		scanEventRepo,
		components.Redis,
		cfg.Resolver.ScanEventBuffer,
		components.Logger,
	)
	adminService := service.NewAdminService(store, components.Logger)

	return &Container{
		Components:        components,
		Store:             store,
		ListingRepo:       listingRepo,
		EntitlementRepo:   entitlementRepo,
		ScanEventRepo:     scanEventRepo,
		OwnershipService:  ownershipService,
		GenerationService: generationService,
		AssignmentService: assignmentService,
		ResolverService:   resolverService,
		AdminService:      adminService,
		Renderer:          renderer,
		RateLimiter:       limiter,
	}, nil
}
