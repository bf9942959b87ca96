package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanEvent is a write-only fact recording one resolution attempt.
// Never updated; purely additive for analytics.
// Maps to: scan_event table
type ScanEvent struct {
	ID int64 `db:"id" json:"id"`

	// NULL for direct listing-code scans
	SignID *uuid.UUID `db:"sign_id" json:"sign_id,omitempty"`

	ListingID uuid.UUID `db:"listing_id" json:"listing_id"`
	ScannedAt time.Time `db:"scanned_at" json:"scanned_at"`

	// Coarse device/referrer metadata
	UserAgent *string `db:"user_agent" json:"user_agent,omitempty"`
	Referrer  *string `db:"referrer" json:"referrer,omitempty"`
}
