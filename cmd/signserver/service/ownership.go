package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OwnershipService answers who owns a listing. Ownership changes are rare,
// so lookups are cached with a short TTL. Sign ownership lives on the sign
// row itself and needs no lookup here. Bindings are never cached.
type OwnershipService struct {
	listings ListingReader
	cache    OwnerCache
	ttl      time.Duration
}

// OwnerCache is the small cache surface the ownership service needs
type OwnerCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NewOwnershipService creates a new ownership service. cache may be nil to
// disable caching entirely.
func NewOwnershipService(listings ListingReader, cache OwnerCache, ttl time.Duration) *OwnershipService {
	return &OwnershipService{
		listings: listings,
		cache:    cache,
		ttl:      ttl,
	}
}

// OwnerOfListing returns the owner of the listing, or models.ErrNotFound
func (s *OwnershipService) OwnerOfListing(ctx context.Context, listingID uuid.UUID) (string, error) {
	key := "owner:listing:" + listingID.String()

	if s.cache != nil {
		if val, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			return string(val), nil
		}
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, []byte(listing.OwnerID), s.ttl)
	}

	return listing.OwnerID, nil
}
