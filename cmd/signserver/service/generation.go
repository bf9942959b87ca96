package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/common/logger"
	"github.com/placard/signcore/common/queue"
	"github.com/placard/signcore/common/telemetry"
)

// GenerationTopic carries generation requests from the orchestrator to the
// coordinator.
const GenerationTopic = "sign.generation.requests"

// GenerationRequest is the message the coordinator consumes. ListingID pins
// the binding the render was computed for; the coordinator re-reads the
// sign's binding immediately before writing results and discards the output
// if the binding has since moved to a different listing.
type GenerationRequest struct {
	SignID      uuid.UUID               `json:"sign_id"`
	ListingID   uuid.UUID               `json:"listing_id"`
	Params      models.GenerationParams `json:"params"`
	RequestedAt time.Time               `json:"requested_at"`
}

// GenerationService is the asset generation coordinator. Enqueue is fire
// and forget; rendering happens on the queue consumer. No cancellation:
// superseded requests race freely and lose at the binding re-check.
type GenerationService struct {
	store    Store
	listings ListingReader
	renderer Renderer
	queue    queue.Queue
	baseURL  string
	log      *logger.Logger
}

// NewGenerationService creates a new generation coordinator
func NewGenerationService(
	store Store,
	listings ListingReader,
	renderer Renderer,
	q queue.Queue,
	baseURL string,
	log *logger.Logger,
) *GenerationService {
	return &GenerationService{
		store:    store,
		listings: listings,
		renderer: renderer,
		queue:    q,
		baseURL:  baseURL,
		log:      log,
	}
}

// Enqueue publishes a generation request. Safe to call repeatedly for the
// same sign; the latest request wins at write time.
func (s *GenerationService) Enqueue(ctx context.Context, signID, listingID uuid.UUID, params models.GenerationParams) error {
	req := GenerationRequest{
		SignID:      signID,
		ListingID:   listingID,
		Params:      params,
		RequestedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal generation request: %w", err)
	}

	if err := s.queue.Publish(ctx, GenerationTopic, signID.String(), payload); err != nil {
		return fmt.Errorf("failed to publish generation request: %w", err)
	}

	s.log.Debug("generation request enqueued", "sign_id", signID, "listing_id", listingID)
	return nil
}

// Start subscribes the coordinator to the generation topic. Each request is
// processed on its own goroutine so rapid regenerates overlap, as the
// binding re-check makes overlap safe.
func (s *GenerationService) Start(ctx context.Context) error {
	return s.queue.Subscribe(ctx, GenerationTopic, func(ctx context.Context, key string, value []byte) error {
		var req GenerationRequest
		if err := json.Unmarshal(value, &req); err != nil {
			return fmt.Errorf("malformed generation request: %w", err)
		}

		go s.process(ctx, req)
		return nil
	})
}

// process renders one request and records the artifacts, unless the sign's
// binding moved while the render was in flight.
func (s *GenerationService) process(ctx context.Context, req GenerationRequest) {
	log := s.log.WithSignID(req.SignID.String())

	sign, err := s.store.Signs().GetByID(ctx, req.SignID)
	if err != nil {
		log.Error("generation: sign lookup failed", "error", err)
		telemetry.GenerationsTotal.WithLabelValues("error").Inc()
		return
	}
	if !sign.BoundTo(req.ListingID) {
		log.Info("generation: binding changed before render, discarding",
			"requested_listing", req.ListingID)
		telemetry.GenerationsTotal.WithLabelValues("discarded").Inc()
		return
	}

	listing, err := s.listings.GetByID(ctx, req.ListingID)
	if err != nil {
		log.Error("generation: listing lookup failed", "error", err)
		telemetry.GenerationsTotal.WithLabelValues("error").Inc()
		return
	}

	scanURL := fmt.Sprintf("%s/s/%s", s.baseURL, sign.Code)

	result, err := s.renderer.Render(ctx, req.SignID, scanURL, listing.Snapshot(), req.Params)
	if err != nil {
		// The sign stays pending; an explicit regenerate retries. No
		// silent auto-retry, it would mask persistent renderer failures.
		log.Error("generation: render failed", "error", err)
		telemetry.GenerationsTotal.WithLabelValues("failed").Inc()
		return
	}

	// Re-read the binding under lock immediately before writing. A render
	// computed for listing A must never surface under a binding to B.
	recorded := false
	err = s.store.Atomic(ctx, func(store Store) error {
		current, err := store.Signs().GetByIDForUpdate(ctx, req.SignID)
		if err != nil {
			return err
		}
		if !current.BoundTo(req.ListingID) {
			log.Info("generation: binding changed during render, discarding",
				"requested_listing", req.ListingID)
			return nil
		}
		if err := store.Signs().RecordArtifacts(ctx, req.SignID, result.QRRef, result.DocumentRef, req.Params); err != nil {
			return err
		}
		recorded = true
		return nil
	})
	if err != nil {
		log.Error("generation: failed to record artifacts", "error", err)
		telemetry.GenerationsTotal.WithLabelValues("error").Inc()
		return
	}
	if !recorded {
		telemetry.GenerationsTotal.WithLabelValues("discarded").Inc()
		return
	}

	telemetry.GenerationsTotal.WithLabelValues("ok").Inc()
	log.Info("artifacts generated",
		"qr_ref", result.QRRef,
		"document_ref", result.DocumentRef,
	)
}
