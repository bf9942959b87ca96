package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/common/db"
)

// AuditRepository writes and reads the privileged-mutation audit trail.
// Inserts run in the same transaction as the mutation they describe so an
// audit failure rolls the mutation back.
type AuditRepository struct {
	q db.Querier
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(database *db.DB) *AuditRepository {
	return &AuditRepository{q: database.Pool}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *AuditRepository) WithTx(tx pgx.Tx) *AuditRepository {
	return &AuditRepository{q: tx}
}

// Insert appends one audit entry
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("failed to marshal audit detail: %w", err)
	}

	query := `
		INSERT INTO audit_entry (action, entity_type, entity_id, detail, reason, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		detail,
		entry.Reason,
		entry.Actor,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// List returns recent audit entries, newest first
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, action, entity_type, entity_id, detail, reason, actor, created_at
		FROM audit_entry
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		entry := &models.AuditEntry{}
		var detail []byte
		err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&detail,
			&entry.Reason,
			&entry.Actor,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if err := json.Unmarshal(detail, &entry.Detail); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit detail: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}
