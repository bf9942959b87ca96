package models

import "time"

// Audit actions emitted by privileged mutations
const (
	ActionGrantSign        = "grant_sign"
	ActionForceUnassign    = "force_unassign_sign"
	ActionForceUnassignAll = "force_unassign_all_signs"
)

// Audited entity types
const (
	EntitySign    = "sign"
	EntityListing = "listing"
)

// AuditEntry records one privileged mutation. Inserted in the same
// transaction as the mutation it describes; if the insert fails the
// mutation rolls back with it.
// Maps to: audit_entry table
type AuditEntry struct {
	ID         int64          `db:"id" json:"id"`
	Action     string         `db:"action" json:"action"`
	EntityType string         `db:"entity_type" json:"entity_type"`
	EntityID   string         `db:"entity_id" json:"entity_id"`
	Detail     map[string]any `db:"detail" json:"detail"`
	Reason     *string        `db:"reason" json:"reason,omitempty"`
	Actor      string         `db:"actor" json:"actor"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
