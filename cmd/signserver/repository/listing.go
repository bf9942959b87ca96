package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/common/db"
)

// ListingRepository reads the listing view this core consumes. Listings are
// owned by the listing subsystem; nothing here mutates them.
type ListingRepository struct {
	q db.Querier
}

// NewListingRepository creates a new listing repository
func NewListingRepository(database *db.DB) *ListingRepository {
	return &ListingRepository{q: database.Pool}
}

const listingColumns = `listing_id, code, owner_id, title, status, phone, show_phone, created_at`

// GetByID retrieves a listing by its ID
func (r *ListingRepository) GetByID(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listing WHERE listing_id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, listingID))
}

// GetByCode retrieves a listing by its shareable code (exact match)
func (r *ListingRepository) GetByCode(ctx context.Context, code string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listing WHERE code = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, code))
}

func (r *ListingRepository) scanOne(row pgx.Row) (*models.Listing, error) {
	listing := &models.Listing{}
	err := row.Scan(
		&listing.ListingID,
		&listing.Code,
		&listing.OwnerID,
		&listing.Title,
		&listing.Status,
		&listing.Phone,
		&listing.ShowPhone,
		&listing.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	return listing, nil
}
