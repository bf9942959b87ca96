package models

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentRecord is an append-only ledger entry covering one binding
// interval of a sign. Records are never deleted; unassigned_at is set
// exactly once when the interval closes.
// Maps to: assignment_record table
type AssignmentRecord struct {
	RecordID  uuid.UUID `db:"record_id" json:"record_id"`
	SignID    uuid.UUID `db:"sign_id" json:"sign_id"`
	ListingID uuid.UUID `db:"listing_id" json:"listing_id"`

	AssignedBy string     `db:"assigned_by" json:"assigned_by"`
	AssignedAt time.Time  `db:"assigned_at" json:"assigned_at"`

	// NULL while the assignment is open
	UnassignedAt *time.Time `db:"unassigned_at" json:"unassigned_at,omitempty"`
}

// Open reports whether this record is the sign's current assignment
func (r *AssignmentRecord) Open() bool {
	return r.UnassignedAt == nil
}
