package service

import (
	"context"
	"fmt"
	"time"

	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/common/logger"
	rediscommon "github.com/placard/signcore/common/redis"
	"github.com/placard/signcore/common/telemetry"
)

// resolveRequiresArtifacts pins the policy for scans that race artifact
// generation: a binding whose artifact refs are still missing resolves to
// NotFound until generation completes. Refs surviving a same-binding
// regenerate keep resolving. This is the single place the policy lives.
const resolveRequiresArtifacts = true

// scanCounterTTL keeps per-day scan counters around long enough for
// analytics to collect them.
const scanCounterTTL = 48 * time.Hour

// Resolution is a successful public resolve: the listing to show and, for
// sign-code scans, the sign that carried the code.
type Resolution struct {
	Listing *models.Listing `json:"listing"`
	Sign    *models.Sign    `json:"sign,omitempty"`
}

// ScanMeta is the coarse request metadata recorded with a scan event
type ScanMeta struct {
	UserAgent string
	Referrer  string
}

// ResolverService maps scanned codes to listing views. Every failure mode
// collapses into models.ErrNotFound so unknown codes, unassigned signs and
// hidden listings are externally indistinguishable. Bindings are re-read
// fresh on every resolve; nothing here is cached.
type ResolverService struct {
	signs    SignStore
	listings ListingReader
	scans    ScanSink
	counters *rediscommon.Client
	log      *logger.Logger

	events chan *models.ScanEvent
}

// NewResolverService creates a new resolver. counters may be nil.
func NewResolverService(
	signs SignStore,
	listings ListingReader,
	scans ScanSink,
	counters *rediscommon.Client,
	bufferSize int,
	log *logger.Logger,
) *ResolverService {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &ResolverService{
		signs:    signs,
		listings: listings,
		scans:    scans,
		counters: counters,
		log:      log,
		events:   make(chan *models.ScanEvent, bufferSize),
	}
}

// Start launches the background scan recorder. Recording is best effort:
// a full buffer drops the event rather than delaying a resolve.
func (s *ResolverService) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-s.events:
				recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.scans.Insert(recordCtx, event); err != nil {
					s.log.Warn("scan event insert failed", "error", err)
				}
				cancel()
			}
		}
	}()
}

// ResolveBySignCode resolves a scanned sign code to the bound listing
func (s *ResolverService) ResolveBySignCode(ctx context.Context, code string, meta ScanMeta) (*Resolution, error) {
	sign, err := s.signs.GetByCode(ctx, code)
	if err != nil {
		telemetry.ResolutionsTotal.WithLabelValues("sign", "not_found").Inc()
		return nil, models.ErrNotFound
	}

	if !sign.IsAssigned() {
		telemetry.ResolutionsTotal.WithLabelValues("sign", "not_found").Inc()
		return nil, models.ErrNotFound
	}

	if resolveRequiresArtifacts && !sign.HasArtifacts() {
		telemetry.ResolutionsTotal.WithLabelValues("sign", "not_found").Inc()
		return nil, models.ErrNotFound
	}

	listing, err := s.listings.GetByID(ctx, *sign.ListingID)
	if err != nil || !listing.PubliclyVisible() {
		telemetry.ResolutionsTotal.WithLabelValues("sign", "not_found").Inc()
		return nil, models.ErrNotFound
	}

	s.recordScan(sign, listing, meta)

	telemetry.ResolutionsTotal.WithLabelValues("sign", "ok").Inc()
	return &Resolution{Listing: listing, Sign: sign}, nil
}

// ResolveByListingCode resolves a shared listing code directly, bypassing
// signs. The recorded scan event carries no sign reference.
func (s *ResolverService) ResolveByListingCode(ctx context.Context, code string, meta ScanMeta) (*Resolution, error) {
	listing, err := s.listings.GetByCode(ctx, code)
	if err != nil || !listing.PubliclyVisible() {
		telemetry.ResolutionsTotal.WithLabelValues("listing", "not_found").Inc()
		return nil, models.ErrNotFound
	}

	s.recordScan(nil, listing, meta)

	telemetry.ResolutionsTotal.WithLabelValues("listing", "ok").Inc()
	return &Resolution{Listing: listing}, nil
}

// recordScan queues the scan event and bumps the redis counter. Both are
// best effort and never block or fail the resolve.
func (s *ResolverService) recordScan(sign *models.Sign, listing *models.Listing, meta ScanMeta) {
	event := &models.ScanEvent{
		ListingID: listing.ListingID,
	}
	if sign != nil {
		signID := sign.SignID
		event.SignID = &signID
	}
	if meta.UserAgent != "" {
		event.UserAgent = &meta.UserAgent
	}
	if meta.Referrer != "" {
		event.Referrer = &meta.Referrer
	}

	select {
	case s.events <- event:
	default:
		telemetry.ScanEventsDropped.Inc()
	}

	if s.counters != nil && sign != nil {
		go func(code string) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			key := fmt.Sprintf("scan:sign:%s:%s", code, time.Now().UTC().Format("20060102"))
			if _, err := s.counters.IncrCounter(ctx, key, scanCounterTTL); err != nil {
				s.log.Debug("scan counter bump failed", "error", err)
			}
		}(sign.Code)
	}
}
