package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/placard/signcore/cmd/signserver/clients"
	"github.com/placard/signcore/cmd/signserver/models"
)

// SignStore is the registry surface the services consume
type SignStore interface {
	Create(ctx context.Context, sign *models.Sign) error
	GetByID(ctx context.Context, signID uuid.UUID) (*models.Sign, error)
	GetByIDForUpdate(ctx context.Context, signID uuid.UUID) (*models.Sign, error)
	GetByCode(ctx context.Context, code string) (*models.Sign, error)
	ListPool(ctx context.Context, ownerID string, excludeListing *uuid.UUID) ([]*models.Sign, error)
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]*models.Sign, error)
	UpdateBinding(ctx context.Context, signID uuid.UUID, listingID *uuid.UUID) error
	MarkPending(ctx context.Context, signID uuid.UUID) error
	RecordArtifacts(ctx context.Context, signID uuid.UUID, qrRef, documentRef string, params models.GenerationParams) error
}

// LedgerStore is the append-only assignment history surface
type LedgerStore interface {
	OpenRecord(ctx context.Context, signID, listingID uuid.UUID, actor string) (*models.AssignmentRecord, error)
	CloseOpenRecord(ctx context.Context, signID uuid.UUID) error
	OpenRecordFor(ctx context.Context, signID uuid.UUID) (*models.AssignmentRecord, error)
	History(ctx context.Context, signID uuid.UUID, limit, offset int) ([]*models.AssignmentRecord, error)
}

// AuditStore is the privileged-mutation audit sink
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AuditEntry) error
	List(ctx context.Context, limit, offset int) ([]*models.AuditEntry, error)
}

// Store bundles the persistence surfaces and the atomic execution unit.
// Atomic runs fn against a store view bound to a single transaction; the
// registry and ledger writes of one orchestrator operation always go
// through it so close-then-open is indivisible.
type Store interface {
	Signs() SignStore
	Ledger() LedgerStore
	Audit() AuditStore
	Atomic(ctx context.Context, fn func(s Store) error) error
}

// ListingReader is the read-only listing view consumed by this core
type ListingReader interface {
	GetByID(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	GetByCode(ctx context.Context, code string) (*models.Listing, error)
}

// EntitlementSource answers whether a listing may receive an assignment
type EntitlementSource interface {
	HasActiveEntitlement(ctx context.Context, listingID uuid.UUID) (bool, error)
}

// Renderer produces artifacts for a sign. Opaque; see clients.RendererClient.
type Renderer interface {
	Render(ctx context.Context, signID uuid.UUID, scanURL string, listing models.ListingSnapshot, params models.GenerationParams) (*clients.RenderResult, error)
}

// ScanSink appends scan events
type ScanSink interface {
	Insert(ctx context.Context, event *models.ScanEvent) error
}

// GenerationEnqueuer hands a generation request to the coordinator.
// Fire and forget: callers return before rendering happens.
type GenerationEnqueuer interface {
	Enqueue(ctx context.Context, signID, listingID uuid.UUID, params models.GenerationParams) error
}
