package models

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ArtifactState describes the readiness of a sign's generated artifacts
type ArtifactState string

const (
	// ArtifactNone means the sign has no artifacts (pooled, never generated)
	ArtifactNone ArtifactState = "none"
	// ArtifactPending means a generation request is outstanding
	ArtifactPending ArtifactState = "pending"
	// ArtifactReady means both refs are present for the current binding
	ArtifactReady ArtifactState = "ready"
)

// SignStatus is the orchestrator-level state derived from a sign row
type SignStatus string

const (
	StatusPooled     SignStatus = "pooled"
	StatusGenerating SignStatus = "generating"
	StatusReady      SignStatus = "ready"
)

// GenerationParams are the display parameters a render was last requested with
type GenerationParams struct {
	Language  string `json:"language"`
	ShowPhone bool   `json:"show_phone"`
}

// Sign is a reusable physical or digital resource carrying a stable
// scannable code, bound to at most one listing at a time.
// Maps to: sign table
type Sign struct {
	SignID uuid.UUID `db:"sign_id" json:"sign_id"`

	// Stable external identifier encoded in the QR/URL. Never changes
	// after creation.
	Code string `db:"code" json:"code"`

	OwnerID string `db:"owner_id" json:"owner_id"`

	// Current binding. NULL means the sign is in the pool.
	ListingID *uuid.UUID `db:"listing_id" json:"listing_id,omitempty"`

	ArtifactState       ArtifactState `db:"artifact_state" json:"artifact_state"`
	QRArtifactRef       *string       `db:"qr_artifact_ref" json:"qr_artifact_ref,omitempty"`
	DocumentArtifactRef *string       `db:"document_artifact_ref" json:"document_artifact_ref,omitempty"`

	// Parameters the last generation was requested with
	GenLanguage  *string `db:"gen_language" json:"gen_language,omitempty"`
	GenShowPhone *bool   `db:"gen_show_phone" json:"gen_show_phone,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Status derives the orchestrator state from the row
func (s *Sign) Status() SignStatus {
	if s.ListingID == nil {
		return StatusPooled
	}
	if s.ArtifactState == ArtifactReady {
		return StatusReady
	}
	return StatusGenerating
}

// IsAssigned reports whether the sign is currently bound to a listing
func (s *Sign) IsAssigned() bool {
	return s.ListingID != nil
}

// BoundTo reports whether the sign is currently bound to the given listing
func (s *Sign) BoundTo(listingID uuid.UUID) bool {
	return s.ListingID != nil && *s.ListingID == listingID
}

// HasArtifacts reports whether both artifact refs are present
func (s *Sign) HasArtifacts() bool {
	return s.QRArtifactRef != nil && s.DocumentArtifactRef != nil
}

// NewSignCode generates a stable external code for a new sign.
// ULIDs are URL-safe, case-insensitive Crockford base32 and sortable by
// creation time, which keeps printed codes short and support-friendly.
func NewSignCode(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}
