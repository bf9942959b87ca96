package repository

import (
	"context"
	"fmt"

	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/common/db"
)

// ScanEventRepository appends resolution facts. Events are never read back
// on the hot path and never updated.
type ScanEventRepository struct {
	q db.Querier
}

// NewScanEventRepository creates a new scan event repository
func NewScanEventRepository(database *db.DB) *ScanEventRepository {
	return &ScanEventRepository{q: database.Pool}
}

// Insert appends one scan event
func (r *ScanEventRepository) Insert(ctx context.Context, event *models.ScanEvent) error {
	query := `
		INSERT INTO scan_event (sign_id, listing_id, scanned_at, user_agent, referrer)
		VALUES ($1, $2, NOW(), $3, $4)
	`

	_, err := r.q.Exec(ctx, query, event.SignID, event.ListingID, event.UserAgent, event.Referrer)
	if err != nil {
		return fmt.Errorf("failed to insert scan event: %w", err)
	}

	return nil
}
