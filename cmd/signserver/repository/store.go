package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/placard/signcore/cmd/signserver/service"
	"github.com/placard/signcore/common/db"
)

// Store is the Postgres-backed implementation of service.Store. Atomic
// rebinds every repository to one transaction so an orchestrator operation
// commits or rolls back as a unit.
type Store struct {
	database *db.DB
	signs    *SignRepository
	ledger   *LedgerRepository
	audit    *AuditRepository
}

var _ service.Store = (*Store)(nil)

// NewStore creates the pg-backed store over the shared pool
func NewStore(database *db.DB) *Store {
	return &Store{
		database: database,
		signs:    NewSignRepository(database),
		ledger:   NewLedgerRepository(database),
		audit:    NewAuditRepository(database),
	}
}

// Signs returns the sign registry
func (s *Store) Signs() service.SignStore { return s.signs }

// Ledger returns the assignment ledger
func (s *Store) Ledger() service.LedgerStore { return s.ledger }

// Audit returns the audit sink
func (s *Store) Audit() service.AuditStore { return s.audit }

// Atomic runs fn inside one transaction. The store handed to fn shares the
// transaction across all repositories.
func (s *Store) Atomic(ctx context.Context, fn func(store service.Store) error) error {
	return s.database.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&txStore{
			signs:  s.signs.WithTx(tx),
			ledger: s.ledger.WithTx(tx),
			audit:  s.audit.WithTx(tx),
		})
	})
}

// txStore is a store view bound to a single transaction
type txStore struct {
	signs  *SignRepository
	ledger *LedgerRepository
	audit  *AuditRepository
}

func (s *txStore) Signs() service.SignStore    { return s.signs }
func (s *txStore) Ledger() service.LedgerStore { return s.ledger }
func (s *txStore) Audit() service.AuditStore   { return s.audit }

// Atomic on an already transactional store reuses the open transaction.
// Postgres savepoints are not needed for any current caller.
func (s *txStore) Atomic(ctx context.Context, fn func(store service.Store) error) error {
	return fn(s)
}
