package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/common/logger"
	"github.com/placard/signcore/common/telemetry"
)

// AdminService performs privileged registry mutations. Ownership checks are
// bypassed; in exchange every mutation writes an audit entry inside the
// same transaction, so an unaudited mutation cannot commit.
type AdminService struct {
	store Store
	log   *logger.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(store Store, log *logger.Logger) *AdminService {
	return &AdminService{
		store: store,
		log:   log,
	}
}

// GrantSign provisions a new pooled sign for an owner. Called when an
// entitlement purchase grants sign capacity.
func (s *AdminService) GrantSign(ctx context.Context, ownerID, actor string, reason *string) (*models.Sign, error) {
	sign := &models.Sign{
		SignID:        uuid.New(),
		Code:          models.NewSignCode(time.Now().UTC()),
		OwnerID:       ownerID,
		ArtifactState: models.ArtifactNone,
	}

	err := s.store.Atomic(ctx, func(store Store) error {
		if err := store.Signs().Create(ctx, sign); err != nil {
			return err
		}
		return store.Audit().Insert(ctx, &models.AuditEntry{
			Action:     models.ActionGrantSign,
			EntityType: models.EntitySign,
			EntityID:   sign.SignID.String(),
			Detail:     map[string]any{"owner_id": ownerID, "code": sign.Code},
			Reason:     reason,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sign granted", "sign_id", sign.SignID, "owner_id", ownerID, "actor", actor)
	return s.store.Signs().GetByID(ctx, sign.SignID)
}

// ForceUnassign returns one sign to the pool regardless of owner.
// Unassigning a pooled sign is a no-op and emits no audit entry.
func (s *AdminService) ForceUnassign(ctx context.Context, signID uuid.UUID, actor string, reason *string) (*models.Sign, error) {
	err := s.store.Atomic(ctx, func(store Store) error {
		sign, err := store.Signs().GetByIDForUpdate(ctx, signID)
		if err != nil {
			return err
		}
		if !sign.IsAssigned() {
			return nil
		}
		return s.unassignOne(ctx, store, sign, models.ActionForceUnassign, actor, reason)
	})
	if err != nil {
		telemetry.AssignmentsTotal.WithLabelValues("force_unassign", "error").Inc()
		return nil, err
	}

	telemetry.AssignmentsTotal.WithLabelValues("force_unassign", "ok").Inc()
	s.log.Info("sign force-unassigned", "sign_id", signID, "actor", actor)

	return s.store.Signs().GetByID(ctx, signID)
}

// ForceUnassignAll returns every sign bound to the listing to the pool,
// emitting one audit entry per sign. All mutations and audit entries share
// one transaction.
func (s *AdminService) ForceUnassignAll(ctx context.Context, listingID uuid.UUID, actor string, reason *string) (int, error) {
	var unassigned int

	err := s.store.Atomic(ctx, func(store Store) error {
		signs, err := store.Signs().ListByListing(ctx, listingID)
		if err != nil {
			return err
		}

		for _, bound := range signs {
			sign, err := store.Signs().GetByIDForUpdate(ctx, bound.SignID)
			if err != nil {
				return err
			}
			if !sign.IsAssigned() {
				continue
			}
			if err := s.unassignOne(ctx, store, sign, models.ActionForceUnassignAll, actor, reason); err != nil {
				return err
			}
			unassigned++
		}

		return nil
	})
	if err != nil {
		telemetry.AssignmentsTotal.WithLabelValues("force_unassign_all", "error").Inc()
		return 0, err
	}

	telemetry.AssignmentsTotal.WithLabelValues("force_unassign_all", "ok").Inc()
	s.log.Info("listing signs force-unassigned",
		"listing_id", listingID,
		"count", unassigned,
		"actor", actor,
	)

	return unassigned, nil
}

// ListAudit returns recent audit entries, newest first
func (s *AdminService) ListAudit(ctx context.Context, limit, offset int) ([]*models.AuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Audit().List(ctx, limit, offset)
}

// unassignOne closes the ledger record, clears the binding and writes the
// audit entry under the caller's transaction.
func (s *AdminService) unassignOne(ctx context.Context, store Store, sign *models.Sign, action, actor string, reason *string) error {
	previousListing := sign.ListingID.String()

	if err := store.Ledger().CloseOpenRecord(ctx, sign.SignID); err != nil {
		return err
	}
	if err := store.Signs().UpdateBinding(ctx, sign.SignID, nil); err != nil {
		return err
	}

	return store.Audit().Insert(ctx, &models.AuditEntry{
		Action:     action,
		EntityType: models.EntitySign,
		EntityID:   sign.SignID.String(),
		Detail: map[string]any{
			"previous_listing_id": previousListing,
			"code":                sign.Code,
		},
		Reason: reason,
		Actor:  actor,
	})
}
