package postgres

import (
	"context"
	"fmt"

	"vtu-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const ledgerColumns = `id, wallet_id, amount, entry_type, reference, description, created_at`

// LedgerRepo implements ports.LedgerRepository. The table is append-only.
type LedgerRepo struct {
	pool Pool
}

func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.WalletID, domain.Money(e.Amount), string(e.EntryType),
		e.Reference, e.Description, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ListByWallet returns the newest entries first.
func (r *LedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE wallet_id = $1 ORDER BY created_at DESC, id LIMIT $2`
	return r.list(ctx, query, walletID, limit)
}

func (r *LedgerRepo) ListByReference(ctx context.Context, reference string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE reference = $1 ORDER BY created_at`
	return r.list(ctx, query, reference)
}

// Totals sums credits and debits for reconciliation against the balance.
func (r *LedgerRepo) Totals(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE entry_type = 'credit'), 0),
		COALESCE(SUM(amount) FILTER (WHERE entry_type = 'debit'), 0)
		FROM ledger_entries WHERE wallet_id = $1`

	var credits, debits decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&credits, &debits); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("sum ledger entries: %w", err)
	}
	return credits, debits, nil
}

func (r *LedgerRepo) list(ctx context.Context, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e         domain.LedgerEntry
			entryType string
		)
		if err := rows.Scan(&e.ID, &e.WalletID, &e.Amount, &entryType, &e.Reference, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if e.EntryType, err = domain.ParseEntryType(entryType); err != nil {
			return nil, fmt.Errorf("scan ledger entry %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}
