package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/placard/signcore/common/db"
)

// EntitlementRepository reads the billing-owned entitlement facts. A listing
// may only receive a sign assignment while it has an active entitlement.
type EntitlementRepository struct {
	q db.Querier
}

// NewEntitlementRepository creates a new entitlement repository
func NewEntitlementRepository(database *db.DB) *EntitlementRepository {
	return &EntitlementRepository{q: database.Pool}
}

// HasActiveEntitlement reports whether the listing currently holds an
// active, unexpired entitlement. Missing rows read as inactive.
func (r *EntitlementRepository) HasActiveEntitlement(ctx context.Context, listingID uuid.UUID) (bool, error) {
	query := `
		SELECT active AND (expires_at IS NULL OR expires_at > NOW())
		FROM listing_entitlement
		WHERE listing_id = $1
	`

	var active bool
	err := r.q.QueryRow(ctx, query, listingID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check entitlement: %w", err)
	}

	return active, nil
}
