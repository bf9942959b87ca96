package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/common/db"
)

// uniqueViolation is the Postgres error code raised when the partial unique
// index on open assignment records rejects a second open record.
const uniqueViolation = "23505"

// LedgerRepository maintains the append-only assignment history.
// The "at most one open record per sign" invariant is enforced by the
// uq_assignment_open partial index; this repository only translates the
// resulting constraint violation into the domain error.
type LedgerRepository struct {
	q db.Querier
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(database *db.DB) *LedgerRepository {
	return &LedgerRepository{q: database.Pool}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *LedgerRepository) WithTx(tx pgx.Tx) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// OpenRecord inserts a new open assignment record. Returns
// models.ErrConflict if the sign already has an open record; callers must
// close it first within the same transaction.
func (r *LedgerRepository) OpenRecord(ctx context.Context, signID, listingID uuid.UUID, actor string) (*models.AssignmentRecord, error) {
	record := &models.AssignmentRecord{
		RecordID:   uuid.New(),
		SignID:     signID,
		ListingID:  listingID,
		AssignedBy: actor,
	}

	query := `
		INSERT INTO assignment_record (record_id, sign_id, listing_id, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING assigned_at
	`

	err := r.q.QueryRow(ctx, query, record.RecordID, record.SignID, record.ListingID, record.AssignedBy).
		Scan(&record.AssignedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("open record already exists for sign %s: %w", signID, models.ErrConflict)
		}
		return nil, fmt.Errorf("failed to open assignment record: %w", err)
	}

	return record, nil
}

// CloseOpenRecord stamps unassigned_at on the sign's open record, if any.
// Closing a sign with no open record is a no-op, not an error.
func (r *LedgerRepository) CloseOpenRecord(ctx context.Context, signID uuid.UUID) error {
	query := `
		UPDATE assignment_record
		SET unassigned_at = NOW()
		WHERE sign_id = $1 AND unassigned_at IS NULL
	`

	if _, err := r.q.Exec(ctx, query, signID); err != nil {
		return fmt.Errorf("failed to close assignment record: %w", err)
	}

	return nil
}

// OpenRecordFor returns the sign's current open record, or models.ErrNotFound
func (r *LedgerRepository) OpenRecordFor(ctx context.Context, signID uuid.UUID) (*models.AssignmentRecord, error) {
	query := `
		SELECT record_id, sign_id, listing_id, assigned_by, assigned_at, unassigned_at
		FROM assignment_record
		WHERE sign_id = $1 AND unassigned_at IS NULL
	`

	record := &models.AssignmentRecord{}
	err := r.q.QueryRow(ctx, query, signID).Scan(
		&record.RecordID,
		&record.SignID,
		&record.ListingID,
		&record.AssignedBy,
		&record.AssignedAt,
		&record.UnassignedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open record: %w", err)
	}

	return record, nil
}

// History returns the sign's assignment records ordered by assigned_at
// descending. Limit and offset page through the full history; callers can
// restart the sequence from any offset.
func (r *LedgerRepository) History(ctx context.Context, signID uuid.UUID, limit, offset int) ([]*models.AssignmentRecord, error) {
	query := `
		SELECT record_id, sign_id, listing_id, assigned_by, assigned_at, unassigned_at
		FROM assignment_record
		WHERE sign_id = $1
		ORDER BY assigned_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.Query(ctx, query, signID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var records []*models.AssignmentRecord
	for rows.Next() {
		record := &models.AssignmentRecord{}
		err := rows.Scan(
			&record.RecordID,
			&record.SignID,
			&record.ListingID,
			&record.AssignedBy,
			&record.AssignedAt,
			&record.UnassignedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return records, nil
}
