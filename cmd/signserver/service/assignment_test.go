package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/stretchr/testify/require"
)

type assignmentFixture struct {
	store        *memStore
	listings     *memListings
	entitlements *memEntitlements
	enqueuer     *captureEnqueuer
	svc          *AssignmentService
}

func newAssignmentFixture() *assignmentFixture {
	store := newMemStore()
	listings := newMemListings()
	entitlements := &memEntitlements{active: make(map[uuid.UUID]bool)}
	enqueuer := &captureEnqueuer{}

	ownership := NewOwnershipService(listings, nil, 0)
	svc := NewAssignmentService(store, ownership, entitlements, enqueuer, testLogger())

	return &assignmentFixture{
		store:        store,
		listings:     listings,
		entitlements: entitlements,
		enqueuer:     enqueuer,
		svc:          svc,
	}
}

// entitledListing seeds an active listing with an entitlement
func (f *assignmentFixture) entitledListing(owner string) *models.Listing {
	listing := f.listings.add(owner, "Cozy cottage", models.ListingActive)
	f.entitlements.active[listing.ListingID] = true
	return listing
}

func TestAssign_PooledSign(t *testing.T) {
	f := newAssignmentFixture()
	listing := f.entitledListing("alice")
	sign := f.store.addSign("alice", nil)

	got, err := f.svc.Assign(context.Background(), sign.SignID, listing.ListingID, "alice")
	require.NoError(t, err)

	require.True(t, got.BoundTo(listing.ListingID))
	require.Equal(t, models.ArtifactPending, got.ArtifactState)
	require.Equal(t, models.StatusGenerating, got.Status())

	// One open ledger record naming the actor
	rec, err := f.store.ledger.OpenRecordFor(context.Background(), sign.SignID)
	require.NoError(t, err)
	require.Equal(t, listing.ListingID, rec.ListingID)
	require.Equal(t, "alice", rec.AssignedBy)

	// Generation requested with defaults
	req := f.enqueuer.last()
	require.NotNil(t, req)
	require.Equal(t, sign.SignID, req.SignID)
	require.Equal(t, listing.ListingID, req.ListingID)
	require.Equal(t, "en", req.Params.Language)
	require.True(t, req.Params.ShowPhone)
}

func TestAssign_SignNotOwned(t *testing.T) {
	f := newAssignmentFixture()
	listing := f.entitledListing("mallory")
	sign := f.store.addSign("alice", nil)

	_, err := f.svc.Assign(context.Background(), sign.SignID, listing.ListingID, "mallory")
	require.ErrorIs(t, err, models.ErrForbidden)
	require.Nil(t, f.enqueuer.last())
}

func TestAssign_ListingNotOwned(t *testing.T) {
	f := newAssignmentFixture()
	listing := f.entitledListing("bob")
	sign := f.store.addSign("alice", nil)

	_, err := f.svc.Assign(context.Background(), sign.SignID, listing.ListingID, "alice")
	require.ErrorIs(t, err, models.ErrForbidden)
}

func TestAssign_NoEntitlement(t *testing.T) {
	f := newAssignmentFixture()
	listing := f.listings.add("alice", "Lapsed listing", models.ListingActive)
	sign := f.store.addSign("alice", nil)

	_, err := f.svc.Assign(context.Background(), sign.SignID, listing.ListingID, "alice")
	require.ErrorIs(t, err, models.ErrForbidden)

	got, err := f.store.signs.GetByID(context.Background(), sign.SignID)
	require.NoError(t, err)
	require.False(t, got.IsAssigned())
}

func TestAssign_BoundElsewhereRequiresConfirmation(t *testing.T) {
	f := newAssignmentFixture()
	first := f.entitledListing("alice")
	second := f.entitledListing("alice")
	sign := f.store.addReadySign("alice", first.ListingID)

	_, err := f.svc.Assign(context.Background(), sign.SignID, second.ListingID, "alice")
	require.ErrorIs(t, err, models.ErrConfirmationRequired)

	// Nothing moved: binding and artifacts intact, ledger untouched
	got, err := f.store.signs.GetByID(context.Background(), sign.SignID)
	require.NoError(t, err)
	require.True(t, got.BoundTo(first.ListingID))
	require.Equal(t, models.ArtifactReady, got.ArtifactState)
	require.Nil(t, f.enqueuer.last())
}

func TestReassign_UnconfirmedFailsEvenExplicitly(t *testing.T) {
	f := newAssignmentFixture()
	first := f.entitledListing("alice")
	second := f.entitledListing("alice")
	sign := f.store.addReadySign("alice", first.ListingID)

	_, err := f.svc.Reassign(context.Background(), sign.SignID, second.ListingID, "alice", false)
	require.ErrorIs(t, err, models.ErrConfirmationRequired)
}

func TestReassign_Confirmed(t *testing.T) {
	f := newAssignmentFixture()
	first := f.entitledListing("alice")
	second := f.entitledListing("alice")
	sign := f.store.addReadySign("alice", first.ListingID)

	// Open the original record so there is history to close
	_, err := f.store.ledger.OpenRecord(context.Background(), sign.SignID, first.ListingID, "alice")
	require.NoError(t, err)

	got, err := f.svc.Reassign(context.Background(), sign.SignID, second.ListingID, "alice", true)
	require.NoError(t, err)

	require.True(t, got.BoundTo(second.ListingID))

	// Stale artifacts must not survive the move
	require.Equal(t, models.ArtifactPending, got.ArtifactState)
	require.Nil(t, got.QRArtifactRef)
	require.Nil(t, got.DocumentArtifactRef)

	// Exactly one open record, pointing at the new listing
	require.Equal(t, 1, f.store.ledger.openRecords(sign.SignID))
	rec, err := f.store.ledger.OpenRecordFor(context.Background(), sign.SignID)
	require.NoError(t, err)
	require.Equal(t, second.ListingID, rec.ListingID)

	// History keeps the closed record
	history, err := f.store.ledger.History(context.Background(), sign.SignID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[1].UnassignedAt)
}

func TestAssign_SameListingIsNoOp(t *testing.T) {
	f := newAssignmentFixture()
	listing := f.entitledListing("alice")
	sign := f.store.addReadySign("alice", listing.ListingID)

	_, err := f.store.ledger.OpenRecord(context.Background(), sign.SignID, listing.ListingID, "alice")
	require.NoError(t, err)

	got, err := f.svc.Assign(context.Background(), sign.SignID, listing.ListingID, "alice")
	require.NoError(t, err)

	// Double submit changes nothing: same record, artifacts intact, no
	// regeneration triggered
	require.Equal(t, models.ArtifactReady, got.ArtifactState)
	require.Equal(t, 1, f.store.ledger.openRecords(sign.SignID))
	require.Nil(t, f.enqueuer.last())
}

func TestAssign_RetriesOnceOnLedgerConflict(t *testing.T) {
	f := newAssignmentFixture()
	listing := f.entitledListing("alice")
	sign := f.store.addSign("alice", nil)

	f.store.ledger.failOpens = 1

	got, err := f.svc.Assign(context.Background(), sign.SignID, listing.ListingID, "alice")
	require.NoError(t, err)
	require.True(t, got.BoundTo(listing.ListingID))
	require.Equal(t, 1, f.store.ledger.openRecords(sign.SignID))
}

func TestAssign_PersistentConflictSurfaces(t *testing.T) {
	f := newAssignmentFixture()
	listing := f.entitledListing("alice")
	sign := f.store.addSign("alice", nil)

	f.store.ledger.failOpens = 2

	_, err := f.svc.Assign(context.Background(), sign.SignID, listing.ListingID, "alice")
	require.ErrorIs(t, err, models.ErrConflict)
}

func TestUnassign(t *testing.T) {
	f := newAssignmentFixture()
	listing := f.entitledListing("alice")
	sign := f.store.addReadySign("alice", listing.ListingID)

	_, err := f.store.ledger.OpenRecord(context.Background(), sign.SignID, listing.ListingID, "alice")
	require.NoError(t, err)

	got, err := f.svc.Unassign(context.Background(), sign.SignID, "alice")
	require.NoError(t, err)

	require.False(t, got.IsAssigned())
	require.Equal(t, models.StatusPooled, got.Status())
	require.Nil(t, got.QRArtifactRef)
	require.Equal(t, 0, f.store.ledger.openRecords(sign.SignID))
}

func TestUnassign_PooledIsIdempotent(t *testing.T) {
	f := newAssignmentFixture()
	sign := f.store.addSign("alice", nil)

	got, err := f.svc.Unassign(context.Background(), sign.SignID, "alice")
	require.NoError(t, err)
	require.False(t, got.IsAssigned())
}

func TestUnassign_NotOwner(t *testing.T) {
	f := newAssignmentFixture()
	listing := f.entitledListing("alice")
	sign := f.store.addReadySign("alice", listing.ListingID)

	_, err := f.svc.Unassign(context.Background(), sign.SignID, "mallory")
	require.ErrorIs(t, err, models.ErrForbidden)
}

func TestRegenerate(t *testing.T) {
	f := newAssignmentFixture()
	listing := f.entitledListing("alice")
	sign := f.store.addReadySign("alice", listing.ListingID)

	params := models.GenerationParams{Language: "fr", ShowPhone: false}
	got, err := f.svc.Regenerate(context.Background(), sign.SignID, "alice", params)
	require.NoError(t, err)

	// Pending again, but the previous refs survive so the live sign keeps
	// resolving until the new render lands
	require.Equal(t, models.ArtifactPending, got.ArtifactState)
	require.NotNil(t, got.QRArtifactRef)
	require.NotNil(t, got.DocumentArtifactRef)

	req := f.enqueuer.last()
	require.NotNil(t, req)
	require.Equal(t, "fr", req.Params.Language)
	require.False(t, req.Params.ShowPhone)
}

func TestRegenerate_PooledSign(t *testing.T) {
	f := newAssignmentFixture()
	sign := f.store.addSign("alice", nil)

	_, err := f.svc.Regenerate(context.Background(), sign.SignID, "alice", models.GenerationParams{})
	require.ErrorIs(t, err, models.ErrNotAssigned)
}

func TestHistory_NotOwner(t *testing.T) {
	f := newAssignmentFixture()
	sign := f.store.addSign("alice", nil)

	_, err := f.svc.History(context.Background(), sign.SignID, "mallory", 10, 0)
	require.ErrorIs(t, err, models.ErrForbidden)
}

func TestGetSign_UnknownID(t *testing.T) {
	f := newAssignmentFixture()

	_, err := f.svc.GetSign(context.Background(), uuid.New(), "alice")
	require.ErrorIs(t, err, models.ErrNotFound)
}
