package models

import "errors"

// Domain error taxonomy. Services return these (possibly wrapped); handlers
// translate them to HTTP codes with errors.Is.
var (
	// ErrNotFound covers unknown signs, listings and codes. The public
	// resolver collapses every failure mode into this one error so unknown
	// and unassigned codes are externally indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrForbidden covers ownership and entitlement violations. Callers must
	// not learn whether the resource exists.
	ErrForbidden = errors.New("forbidden")

	// ErrConfirmationRequired is returned when a reassignment would silently
	// orphan the previous listing's scanners and the caller has not
	// acknowledged moving the physical sign.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrConflict signals a ledger invariant breach. It is treated as a
	// defect: the orchestrator retries once after re-reading state, then
	// fails hard.
	ErrConflict = errors.New("assignment conflict")

	// ErrGenerationFailure marks a renderer failure. The sign stays
	// non-ready until an explicit regenerate.
	ErrGenerationFailure = errors.New("artifact generation failed")

	// ErrNotAssigned is returned for operations that require a current
	// binding, such as regenerating artifacts for a pooled sign.
	ErrNotAssigned = errors.New("sign not assigned")
)
