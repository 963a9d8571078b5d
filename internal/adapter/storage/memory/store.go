// Package memory is an in-process implementation of the storage ports.
//
// Transactions are fully serialized: Begin blocks until the previous
// transaction commits or rolls back, which gives the same linearizable
// behaviour as the row lock the postgres adapter takes on a wallet. Writes
// made through a transaction are undone on Rollback.
package memory

import (
	"context"
	"sync"

	"vtu-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store holds all tables. It implements ports.DBTransactor.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	users        map[uuid.UUID]domain.User
	wallets      map[uuid.UUID]domain.Wallet // by wallet id
	walletByUser map[uuid.UUID]uuid.UUID
	ledger       []domain.LedgerEntry
	transactions map[string]domain.Transaction // by reference
	pricing      map[string]domain.PricingRule // by key|role
	plans        map[string]domain.DataPlan    // by plan code
	apiLogs      []domain.APICallLog
	audits       []domain.AuditLog

	announcements  map[int64]domain.Announcement
	lastAnnounceID int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]domain.User),
		wallets:      make(map[uuid.UUID]domain.Wallet),
		walletByUser: make(map[uuid.UUID]uuid.UUID),
		transactions: make(map[string]domain.Transaction),
		pricing:      make(map[string]domain.PricingRule),
		plans:        make(map[string]domain.DataPlan),

		announcements: make(map[int64]domain.Announcement),
	}
}

// Begin starts a transaction, waiting for any open one to finish.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	s.txMu.Lock()
	if err := ctx.Err(); err != nil {
		s.txMu.Unlock()
		return nil, err
	}
	return &Tx{store: s}, nil
}

// Tx is the transaction handle returned by Store.Begin. Only Commit and
// Rollback are implemented; repositories never issue SQL through it.
type Tx struct {
	pgx.Tx
	store *Store
	undo  []func()
	done  bool
}

// Commit keeps the writes and releases the store.
func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	t.store.txMu.Unlock()
	return nil
}

// Rollback reverts the writes in reverse order and releases the store.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.undo = nil
	t.store.txMu.Unlock()
	return nil
}

// onRollback registers an undo step. Must be called with s.mu held; the step
// runs with s.mu held.
func onRollback(tx pgx.Tx, fn func()) {
	if t, ok := tx.(*Tx); ok {
		t.undo = append(t.undo, fn)
	}
}
