package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/common/cache"
	"github.com/stretchr/testify/require"
)

func TestOwnerOfListing_CachesLookups(t *testing.T) {
	listings := newMemListings()
	listing := listings.add("alice", "Cozy cottage", models.ListingActive)

	store := cache.NewMemoryCache(testLogger())
	defer store.Close()

	svc := NewOwnershipService(listings, store, time.Minute)

	owner, err := svc.OwnerOfListing(context.Background(), listing.ListingID)
	require.NoError(t, err)
	require.Equal(t, "alice", owner)
	require.Equal(t, 1, listings.gets)

	// Second lookup is served from cache
	owner, err = svc.OwnerOfListing(context.Background(), listing.ListingID)
	require.NoError(t, err)
	require.Equal(t, "alice", owner)
	require.Equal(t, 1, listings.gets)
}

func TestOwnerOfListing_NilCache(t *testing.T) {
	listings := newMemListings()
	listing := listings.add("alice", "Cozy cottage", models.ListingActive)

	svc := NewOwnershipService(listings, nil, time.Minute)

	owner, err := svc.OwnerOfListing(context.Background(), listing.ListingID)
	require.NoError(t, err)
	require.Equal(t, "alice", owner)

	owner, err = svc.OwnerOfListing(context.Background(), listing.ListingID)
	require.NoError(t, err)
	require.Equal(t, "alice", owner)
	require.Equal(t, 2, listings.gets)
}

func TestOwnerOfListing_UnknownListing(t *testing.T) {
	svc := NewOwnershipService(newMemListings(), nil, time.Minute)

	_, err := svc.OwnerOfListing(context.Background(), uuid.New())
	require.ErrorIs(t, err, models.ErrNotFound)
}
