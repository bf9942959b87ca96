package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingStatus mirrors the subset of listing lifecycle states the core
// needs for visibility decisions.
type ListingStatus string

const (
	ListingActive ListingStatus = "active"
	ListingPaused ListingStatus = "paused"
	ListingDraft  ListingStatus = "draft"
)

// Listing is the read model of an externally owned listing. This core only
// reads identity, visibility and a handful of display fields.
// Maps to: listing table
type Listing struct {
	ListingID uuid.UUID     `db:"listing_id" json:"listing_id"`
	Code      string        `db:"code" json:"code"`
	OwnerID   string        `db:"owner_id" json:"owner_id"`
	Title     string        `db:"title" json:"title"`
	Status    ListingStatus `db:"status" json:"status"`
	Phone     *string       `db:"phone" json:"phone,omitempty"`
	ShowPhone bool          `db:"show_phone" json:"show_phone"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// PubliclyVisible reports whether the listing may be shown to scanners
func (l *Listing) PubliclyVisible() bool {
	return l.Status == ListingActive
}

// Snapshot returns the display fields handed to the artifact renderer
func (l *Listing) Snapshot() ListingSnapshot {
	snap := ListingSnapshot{
		ListingID: l.ListingID,
		Code:      l.Code,
		Title:     l.Title,
	}
	if l.ShowPhone && l.Phone != nil {
		snap.Phone = *l.Phone
	}
	return snap
}

// ListingSnapshot is the frozen view of a listing passed to the renderer
type ListingSnapshot struct {
	ListingID uuid.UUID `json:"listing_id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	Phone     string    `json:"phone,omitempty"`
}
