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

const signColumns = `sign_id, code, owner_id, listing_id, artifact_state,
	qr_artifact_ref, document_artifact_ref, gen_language, gen_show_phone,
	created_at, updated_at`

// SignRepository owns the authoritative sign rows (the sign registry)
type SignRepository struct {
	q db.Querier
}

// NewSignRepository creates a new sign repository
func NewSignRepository(database *db.DB) *SignRepository {
	return &SignRepository{q: database.Pool}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *SignRepository) WithTx(tx pgx.Tx) *SignRepository {
	return &SignRepository{q: tx}
}

// Create inserts a new sign in pool state
func (r *SignRepository) Create(ctx context.Context, sign *models.Sign) error {
	query := `
		INSERT INTO sign (sign_id, code, owner_id, listing_id, artifact_state, created_at, updated_at)
		VALUES ($1, $2, $3, NULL, $4, NOW(), NOW())
	`

	_, err := r.q.Exec(ctx, query, sign.SignID, sign.Code, sign.OwnerID, models.ArtifactNone)
	if err != nil {
		return fmt.Errorf("failed to create sign: %w", err)
	}

	return nil
}

// GetByID retrieves a sign by its ID
func (r *SignRepository) GetByID(ctx context.Context, signID uuid.UUID) (*models.Sign, error) {
	query := `SELECT ` + signColumns + ` FROM sign WHERE sign_id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, signID))
}

// GetByIDForUpdate retrieves a sign while taking a row lock. Must be called
// on a repository bound to a transaction; the lock serializes concurrent
// assignment operations on the same sign.
func (r *SignRepository) GetByIDForUpdate(ctx context.Context, signID uuid.UUID) (*models.Sign, error) {
	query := `SELECT ` + signColumns + ` FROM sign WHERE sign_id = $1 FOR UPDATE`
	return r.scanOne(r.q.QueryRow(ctx, query, signID))
}

// GetByCode retrieves a sign by its stable external code (exact match)
func (r *SignRepository) GetByCode(ctx context.Context, code string) (*models.Sign, error) {
	query := `SELECT ` + signColumns + ` FROM sign WHERE code = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, code))
}

// ListPool returns signs available to the owner for assignment: pooled signs
// plus signs currently bound to listings other than excludeListing.
// Ordered newest-first.
func (r *SignRepository) ListPool(ctx context.Context, ownerID string, excludeListing *uuid.UUID) ([]*models.Sign, error) {
	query := `
		SELECT ` + signColumns + `
		FROM sign
		WHERE owner_id = $1
		  AND (listing_id IS NULL OR listing_id IS DISTINCT FROM $2)
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query, ownerID, excludeListing)
	if err != nil {
		return nil, fmt.Errorf("failed to list pool: %w", err)
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// ListByListing returns all signs currently bound to a listing
func (r *SignRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]*models.Sign, error) {
	query := `SELECT ` + signColumns + ` FROM sign WHERE listing_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signs by listing: %w", err)
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// UpdateBinding sets the sign's listing binding. Artifact refs always become
// stale on a binding change, so they are cleared in the same statement.
// A nil listingID returns the sign to the pool.
func (r *SignRepository) UpdateBinding(ctx context.Context, signID uuid.UUID, listingID *uuid.UUID) error {
	state := models.ArtifactPending
	if listingID == nil {
		state = models.ArtifactNone
	}

	query := `
		UPDATE sign
		SET listing_id = $2,
		    artifact_state = $3,
		    qr_artifact_ref = NULL,
		    document_artifact_ref = NULL,
		    updated_at = NOW()
		WHERE sign_id = $1
	`

	tag, err := r.q.Exec(ctx, query, signID, listingID, state)
	if err != nil {
		return fmt.Errorf("failed to update binding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// MarkPending flags the sign's artifacts as regenerating without touching
// the current refs, so an already printed sign keeps resolving.
func (r *SignRepository) MarkPending(ctx context.Context, signID uuid.UUID) error {
	query := `UPDATE sign SET artifact_state = $2, updated_at = NOW() WHERE sign_id = $1`

	tag, err := r.q.Exec(ctx, query, signID, models.ArtifactPending)
	if err != nil {
		return fmt.Errorf("failed to mark sign pending: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// RecordArtifacts writes both artifact refs and the parameters they were
// generated with. Idempotent: repeating the call with identical refs and
// params leaves the row untouched.
func (r *SignRepository) RecordArtifacts(ctx context.Context, signID uuid.UUID, qrRef, documentRef string, params models.GenerationParams) error {
	query := `
		UPDATE sign
		SET qr_artifact_ref = $2,
		    document_artifact_ref = $3,
		    gen_language = $4,
		    gen_show_phone = $5,
		    artifact_state = $6,
		    updated_at = NOW()
		WHERE sign_id = $1
		  AND (qr_artifact_ref IS DISTINCT FROM $2
		       OR document_artifact_ref IS DISTINCT FROM $3
		       OR gen_language IS DISTINCT FROM $4
		       OR gen_show_phone IS DISTINCT FROM $5
		       OR artifact_state IS DISTINCT FROM $6)
	`

	_, err := r.q.Exec(ctx, query, signID, qrRef, documentRef,
		params.Language, params.ShowPhone, models.ArtifactReady)
	if err != nil {
		return fmt.Errorf("failed to record artifacts: %w", err)
	}

	return nil
}

func (r *SignRepository) scanOne(row pgx.Row) (*models.Sign, error) {
	sign := &models.Sign{}
	err := row.Scan(
		&sign.SignID,
		&sign.Code,
		&sign.OwnerID,
		&sign.ListingID,
		&sign.ArtifactState,
		&sign.QRArtifactRef,
		&sign.DocumentArtifactRef,
		&sign.GenLanguage,
		&sign.GenShowPhone,
		&sign.CreatedAt,
		&sign.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sign: %w", err)
	}

	return sign, nil
}

func (r *SignRepository) scanMany(rows pgx.Rows) ([]*models.Sign, error) {
	var signs []*models.Sign
	for rows.Next() {
		sign := &models.Sign{}
		err := rows.Scan(
			&sign.SignID,
			&sign.Code,
			&sign.OwnerID,
			&sign.ListingID,
			&sign.ArtifactState,
			&sign.QRArtifactRef,
			&sign.DocumentArtifactRef,
			&sign.GenLanguage,
			&sign.GenShowPhone,
			&sign.CreatedAt,
			&sign.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sign: %w", err)
		}
		signs = append(signs, sign)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signs: %w", err)
	}

	return signs, nil
}
