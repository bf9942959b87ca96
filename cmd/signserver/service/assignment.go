package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/common/logger"
	"github.com/placard/signcore/common/telemetry"
)

// defaultLanguage is used for first-time generations when the sign carries
// no previously used parameters.
const defaultLanguage = "en"

// AssignmentService is the orchestrator for the sign state machine. Every
// binding change flows through it: close the open ledger record, open the
// new one and update the registry binding in one transaction, then hand a
// generation request to the coordinator.
type AssignmentService struct {
	store        Store
	ownership    *OwnershipService
	entitlements EntitlementSource
	generator    GenerationEnqueuer
	log          *logger.Logger
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(
	store Store,
	ownership *OwnershipService,
	entitlements EntitlementSource,
	generator GenerationEnqueuer,
	log *logger.Logger,
) *AssignmentService {
	return &AssignmentService{
		store:        store,
		ownership:    ownership,
		entitlements: entitlements,
		generator:    generator,
		log:          log,
	}
}

// Assign binds a pooled sign to a listing. A sign already bound to a
// different listing is rejected with ErrConfirmationRequired; callers must
// use Reassign with an explicit confirmation because moving the binding
// silently orphans the previous location's scanners.
func (s *AssignmentService) Assign(ctx context.Context, signID, listingID uuid.UUID, actor string) (*models.Sign, error) {
	return s.assign(ctx, signID, listingID, actor, false)
}

// Reassign is Assign for a sign currently bound elsewhere. confirmed=false
// always fails with ErrConfirmationRequired and changes nothing.
func (s *AssignmentService) Reassign(ctx context.Context, signID, listingID uuid.UUID, actor string, confirmed bool) (*models.Sign, error) {
	return s.assign(ctx, signID, listingID, actor, confirmed)
}

func (s *AssignmentService) assign(ctx context.Context, signID, listingID uuid.UUID, actor string, confirmed bool) (*models.Sign, error) {
	if err := s.authorize(ctx, signID, listingID, actor); err != nil {
		telemetry.AssignmentsTotal.WithLabelValues("assign", "denied").Inc()
		return nil, err
	}

	sign, err := s.applyWithRetry(ctx, signID, func(store Store, sign *models.Sign) error {
		if sign.BoundTo(listingID) {
			// Re-assigning to the same listing is a no-op; tolerate
			// double submits.
			return nil
		}

		if sign.IsAssigned() && !confirmed {
			return models.ErrConfirmationRequired
		}

		if err := store.Ledger().CloseOpenRecord(ctx, sign.SignID); err != nil {
			return err
		}
		if _, err := store.Ledger().OpenRecord(ctx, sign.SignID, listingID, actor); err != nil {
			return err
		}
		return store.Signs().UpdateBinding(ctx, sign.SignID, &listingID)
	})
	if err != nil {
		telemetry.AssignmentsTotal.WithLabelValues("assign", "error").Inc()
		return nil, err
	}

	if sign.BoundTo(listingID) && sign.ArtifactState == models.ArtifactReady {
		// Same-listing no-op: nothing to regenerate.
		telemetry.AssignmentsTotal.WithLabelValues("assign", "noop").Inc()
		return sign, nil
	}

	s.requestGeneration(ctx, sign, listingID)

	telemetry.AssignmentsTotal.WithLabelValues("assign", "ok").Inc()
	s.log.Info("sign assigned",
		"sign_id", signID,
		"listing_id", listingID,
		"actor", actor,
		"confirmed", confirmed,
	)

	return s.store.Signs().GetByID(ctx, signID)
}

// Unassign returns the sign to the pool. Unassigning an already pooled sign
// succeeds without touching the ledger, to tolerate double submits.
func (s *AssignmentService) Unassign(ctx context.Context, signID uuid.UUID, actor string) (*models.Sign, error) {
	sign, err := s.store.Signs().GetByID(ctx, signID)
	if err != nil {
		return nil, err
	}
	if sign.OwnerID != actor {
		return nil, models.ErrForbidden
	}

	sign, err = s.applyWithRetry(ctx, signID, func(store Store, sign *models.Sign) error {
		if !sign.IsAssigned() {
			return nil
		}
		if err := store.Ledger().CloseOpenRecord(ctx, sign.SignID); err != nil {
			return err
		}
		return store.Signs().UpdateBinding(ctx, sign.SignID, nil)
	})
	if err != nil {
		telemetry.AssignmentsTotal.WithLabelValues("unassign", "error").Inc()
		return nil, err
	}

	telemetry.AssignmentsTotal.WithLabelValues("unassign", "ok").Inc()
	s.log.Info("sign unassigned", "sign_id", signID, "actor", actor)

	return s.store.Signs().GetByID(ctx, signID)
}

// Regenerate re-emits a generation request with new display parameters
// without touching the ledger or the binding. Valid only while assigned.
func (s *AssignmentService) Regenerate(ctx context.Context, signID uuid.UUID, actor string, params models.GenerationParams) (*models.Sign, error) {
	sign, err := s.store.Signs().GetByID(ctx, signID)
	if err != nil {
		return nil, err
	}
	if sign.OwnerID != actor {
		return nil, models.ErrForbidden
	}
	if !sign.IsAssigned() {
		return nil, fmt.Errorf("sign %s is pooled: %w", signID, models.ErrNotAssigned)
	}

	if err := s.store.Signs().MarkPending(ctx, signID); err != nil {
		return nil, err
	}

	if params.Language == "" {
		params.Language = defaultLanguage
	}
	if err := s.generator.Enqueue(ctx, signID, *sign.ListingID, params); err != nil {
		s.log.Error("failed to enqueue regeneration", "sign_id", signID, "error", err)
	}

	telemetry.AssignmentsTotal.WithLabelValues("regenerate", "ok").Inc()

	return s.store.Signs().GetByID(ctx, signID)
}

// GetSign returns the owner's sign; this is the polling surface for
// artifact completion.
func (s *AssignmentService) GetSign(ctx context.Context, signID uuid.UUID, actor string) (*models.Sign, error) {
	sign, err := s.store.Signs().GetByID(ctx, signID)
	if err != nil {
		return nil, err
	}
	if sign.OwnerID != actor {
		return nil, models.ErrForbidden
	}
	return sign, nil
}

// ListAvailable returns the actor's signs available for assignment to a
// listing: the pool plus signs bound elsewhere.
func (s *AssignmentService) ListAvailable(ctx context.Context, actor string, excludeListing *uuid.UUID) ([]*models.Sign, error) {
	return s.store.Signs().ListPool(ctx, actor, excludeListing)
}

// History returns the sign's assignment records, newest first
func (s *AssignmentService) History(ctx context.Context, signID uuid.UUID, actor string, limit, offset int) ([]*models.AssignmentRecord, error) {
	sign, err := s.store.Signs().GetByID(ctx, signID)
	if err != nil {
		return nil, err
	}
	if sign.OwnerID != actor {
		return nil, models.ErrForbidden
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	return s.store.Ledger().History(ctx, signID, limit, offset)
}

// authorize verifies the actor owns both the sign and the target listing
// and that the listing holds an active entitlement.
func (s *AssignmentService) authorize(ctx context.Context, signID, listingID uuid.UUID, actor string) error {
	sign, err := s.store.Signs().GetByID(ctx, signID)
	if err != nil {
		return err
	}
	if sign.OwnerID != actor {
		return models.ErrForbidden
	}

	listingOwner, err := s.ownership.OwnerOfListing(ctx, listingID)
	if err != nil {
		return err
	}
	if listingOwner != actor {
		return models.ErrForbidden
	}

	entitled, err := s.entitlements.HasActiveEntitlement(ctx, listingID)
	if err != nil {
		return err
	}
	if !entitled {
		return fmt.Errorf("listing %s has no active entitlement: %w", listingID, models.ErrForbidden)
	}

	return nil
}

// applyWithRetry runs one state transition inside a transaction holding the
// sign's row lock. A ledger conflict means another writer slipped between
// our reads; that is a defect given the lock, so it is logged loudly,
// retried once against fresh state, then surfaced.
func (s *AssignmentService) applyWithRetry(ctx context.Context, signID uuid.UUID, transition func(store Store, sign *models.Sign) error) (*models.Sign, error) {
	var sign *models.Sign

	attempt := func() error {
		return s.store.Atomic(ctx, func(store Store) error {
			var err error
			sign, err = store.Signs().GetByIDForUpdate(ctx, signID)
			if err != nil {
				return err
			}
			return transition(store, sign)
		})
	}

	err := attempt()
	if errors.Is(err, models.ErrConflict) {
		s.log.Error("ledger conflict despite row lock, retrying once",
			"sign_id", signID, "error", err)
		err = attempt()
	}
	if err != nil {
		return nil, err
	}

	return sign, nil
}

// requestGeneration enqueues artifact generation for a fresh binding.
// Parameters default to the sign's last used ones.
func (s *AssignmentService) requestGeneration(ctx context.Context, sign *models.Sign, listingID uuid.UUID) {
	params := models.GenerationParams{Language: defaultLanguage, ShowPhone: true}
	if sign.GenLanguage != nil {
		params.Language = *sign.GenLanguage
	}
	if sign.GenShowPhone != nil {
		params.ShowPhone = *sign.GenShowPhone
	}

	if err := s.generator.Enqueue(ctx, sign.SignID, listingID, params); err != nil {
		// The binding is committed; a lost request surfaces as a sign
		// stuck pending and is recovered by an explicit regenerate.
		s.log.Error("failed to enqueue generation", "sign_id", sign.SignID, "error", err)
	}
}
