package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/placard/signcore/cmd/signserver/clients"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/common/logger"
)

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

// memStore is an in-memory Store with the same semantics as the Postgres
// repositories, so orchestrator scenarios run without a database.
type memStore struct {
	mu     sync.Mutex
	signs  *memSigns
	ledger *memLedger
	audit  *memAudit
}

func newMemStore() *memStore {
	s := &memStore{
		signs:  &memSigns{byID: make(map[uuid.UUID]*models.Sign)},
		ledger: &memLedger{},
		audit:  &memAudit{},
	}
	s.signs.store = s
	s.ledger.store = s
	s.audit.store = s
	return s
}

func (s *memStore) Signs() SignStore    { return s.signs }
func (s *memStore) Ledger() LedgerStore { return s.ledger }
func (s *memStore) Audit() AuditStore   { return s.audit }

func (s *memStore) Atomic(ctx context.Context, fn func(store Store) error) error {
	return fn(s)
}

// addSign seeds a sign and returns it
func (s *memStore) addSign(owner string, listingID *uuid.UUID) *models.Sign {
	sign := &models.Sign{
		SignID:        uuid.New(),
		Code:          models.NewSignCode(time.Now().UTC()),
		OwnerID:       owner,
		ListingID:     listingID,
		ArtifactState: models.ArtifactNone,
		CreatedAt:     time.Now().UTC(),
	}
	if listingID != nil {
		sign.ArtifactState = models.ArtifactPending
	}
	s.signs.byID[sign.SignID] = sign
	return sign
}

// addReadySign seeds an assigned sign with recorded artifacts
func (s *memStore) addReadySign(owner string, listingID uuid.UUID) *models.Sign {
	sign := s.addSign(owner, &listingID)
	qr, doc := "cas://qr/"+sign.Code, "cas://doc/"+sign.Code
	lang := "en"
	show := true
	sign.ArtifactState = models.ArtifactReady
	sign.QRArtifactRef = &qr
	sign.DocumentArtifactRef = &doc
	sign.GenLanguage = &lang
	sign.GenShowPhone = &show
	return sign
}

type memSigns struct {
	store *memStore
	byID  map[uuid.UUID]*models.Sign
}

func cloneSign(s *models.Sign) *models.Sign {
	out := *s
	return &out
}

func (m *memSigns) Create(ctx context.Context, sign *models.Sign) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.byID[sign.SignID] = cloneSign(sign)
	return nil
}

func (m *memSigns) GetByID(ctx context.Context, signID uuid.UUID) (*models.Sign, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	sign, ok := m.byID[signID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneSign(sign), nil
}

func (m *memSigns) GetByIDForUpdate(ctx context.Context, signID uuid.UUID) (*models.Sign, error) {
	return m.GetByID(ctx, signID)
}

func (m *memSigns) GetByCode(ctx context.Context, code string) (*models.Sign, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, sign := range m.byID {
		if sign.Code == code {
			return cloneSign(sign), nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memSigns) ListPool(ctx context.Context, ownerID string, excludeListing *uuid.UUID) ([]*models.Sign, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*models.Sign
	for _, sign := range m.byID {
		if sign.OwnerID != ownerID {
			continue
		}
		if excludeListing != nil && sign.ListingID != nil && *sign.ListingID == *excludeListing {
			continue
		}
		out = append(out, cloneSign(sign))
	}
	return out, nil
}

func (m *memSigns) ListByListing(ctx context.Context, listingID uuid.UUID) ([]*models.Sign, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*models.Sign
	for _, sign := range m.byID {
		if sign.ListingID != nil && *sign.ListingID == listingID {
			out = append(out, cloneSign(sign))
		}
	}
	return out, nil
}

func (m *memSigns) UpdateBinding(ctx context.Context, signID uuid.UUID, listingID *uuid.UUID) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	sign, ok := m.byID[signID]
	if !ok {
		return models.ErrNotFound
	}
	sign.ListingID = listingID
	sign.QRArtifactRef = nil
	sign.DocumentArtifactRef = nil
	if listingID != nil {
		sign.ArtifactState = models.ArtifactPending
	} else {
		sign.ArtifactState = models.ArtifactNone
	}
	sign.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memSigns) MarkPending(ctx context.Context, signID uuid.UUID) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	sign, ok := m.byID[signID]
	if !ok {
		return models.ErrNotFound
	}
	sign.ArtifactState = models.ArtifactPending
	sign.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memSigns) RecordArtifacts(ctx context.Context, signID uuid.UUID, qrRef, documentRef string, params models.GenerationParams) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	sign, ok := m.byID[signID]
	if !ok {
		return models.ErrNotFound
	}
	sign.QRArtifactRef = &qrRef
	sign.DocumentArtifactRef = &documentRef
	sign.ArtifactState = models.ArtifactReady
	sign.GenLanguage = &params.Language
	sign.GenShowPhone = &params.ShowPhone
	sign.UpdatedAt = time.Now().UTC()
	return nil
}

type memLedger struct {
	store   *memStore
	records []*models.AssignmentRecord

	// failOpens injects ledger conflicts for retry tests
	failOpens int
}

func (m *memLedger) OpenRecord(ctx context.Context, signID, listingID uuid.UUID, actor string) (*models.AssignmentRecord, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if m.failOpens > 0 {
		m.failOpens--
		return nil, fmt.Errorf("open assignment already exists for sign %s: %w", signID, models.ErrConflict)
	}
	for _, rec := range m.records {
		if rec.SignID == signID && rec.UnassignedAt == nil {
			return nil, fmt.Errorf("open assignment already exists for sign %s: %w", signID, models.ErrConflict)
		}
	}

	rec := &models.AssignmentRecord{
		RecordID:   uuid.New(),
		SignID:     signID,
		ListingID:  listingID,
		AssignedBy: actor,
		AssignedAt: time.Now().UTC(),
	}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memLedger) CloseOpenRecord(ctx context.Context, signID uuid.UUID) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, rec := range m.records {
		if rec.SignID == signID && rec.UnassignedAt == nil {
			now := time.Now().UTC()
			rec.UnassignedAt = &now
		}
	}
	return nil
}

func (m *memLedger) OpenRecordFor(ctx context.Context, signID uuid.UUID) (*models.AssignmentRecord, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, rec := range m.records {
		if rec.SignID == signID && rec.UnassignedAt == nil {
			out := *rec
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memLedger) History(ctx context.Context, signID uuid.UUID, limit, offset int) ([]*models.AssignmentRecord, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var matched []*models.AssignmentRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].SignID == signID {
			out := *m.records[i]
			matched = append(matched, &out)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// openRecords counts open ledger records for a sign
func (m *memLedger) openRecords(signID uuid.UUID) int {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	n := 0
	for _, rec := range m.records {
		if rec.SignID == signID && rec.UnassignedAt == nil {
			n++
		}
	}
	return n
}

type memAudit struct {
	store   *memStore
	entries []*models.AuditEntry
}

func (m *memAudit) Insert(ctx context.Context, entry *models.AuditEntry) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := *entry
	out.ID = int64(len(m.entries) + 1)
	out.CreatedAt = time.Now().UTC()
	m.entries = append(m.entries, &out)
	return nil
}

func (m *memAudit) List(ctx context.Context, limit, offset int) ([]*models.AuditEntry, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*models.AuditEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		out = append(out, m.entries[i])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memListings is an in-memory ListingReader
type memListings struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Listing
	gets int
}

func newMemListings() *memListings {
	return &memListings{byID: make(map[uuid.UUID]*models.Listing)}
}

func (m *memListings) add(owner, title string, status models.ListingStatus) *models.Listing {
	listing := &models.Listing{
		ListingID: uuid.New(),
		Code:      "L-" + uuid.NewString()[:8],
		OwnerID:   owner,
		Title:     title,
		Status:    status,
		ShowPhone: true,
	}
	m.byID[listing.ListingID] = listing
	return listing
}

func (m *memListings) GetByID(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	listing, ok := m.byID[listingID]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *listing
	return &out, nil
}

func (m *memListings) GetByCode(ctx context.Context, code string) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, listing := range m.byID {
		if listing.Code == code {
			out := *listing
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}

// memEntitlements answers entitlement checks from a set of listing ids
type memEntitlements struct {
	active map[uuid.UUID]bool
}

func (m *memEntitlements) HasActiveEntitlement(ctx context.Context, listingID uuid.UUID) (bool, error) {
	return m.active[listingID], nil
}

// captureEnqueuer records generation requests instead of publishing them
type captureEnqueuer struct {
	mu       sync.Mutex
	requests []GenerationRequest
	err      error
}

func (c *captureEnqueuer) Enqueue(ctx context.Context, signID, listingID uuid.UUID, params models.GenerationParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.requests = append(c.requests, GenerationRequest{SignID: signID, ListingID: listingID, Params: params})
	return nil
}

func (c *captureEnqueuer) last() *GenerationRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return nil
	}
	return &c.requests[len(c.requests)-1]
}

// stubRenderer returns a fixed result or error. onRender runs before the
// result is returned, letting tests mutate state mid-render.
type stubRenderer struct {
	result   *clients.RenderResult
	err      error
	onRender func()
	calls    int
}

func (r *stubRenderer) Render(ctx context.Context, signID uuid.UUID, scanURL string, listing models.ListingSnapshot, params models.GenerationParams) (*clients.RenderResult, error) {
	r.calls++
	if r.onRender != nil {
		r.onRender()
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &clients.RenderResult{
		QRRef:       "cas://qr/" + signID.String(),
		DocumentRef: "cas://doc/" + signID.String(),
	}, nil
}

// captureScans records scan events
type captureScans struct {
	mu     sync.Mutex
	events []*models.ScanEvent
}

func (c *captureScans) Insert(ctx context.Context, event *models.ScanEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}
