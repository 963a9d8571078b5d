package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, user_id, reference, tx_type, amount, status, provider, network,
	product_code, customer, external_reference, failure_reason, meta, created_at, updated_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	meta, err := encodeMeta(t.Meta)
	if err != nil {
		return err
	}

	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = tx.Exec(ctx, query,
		t.ID, t.UserID, t.Reference, string(t.TxType), domain.Money(t.Amount), string(t.Status),
		t.Provider, t.Network, t.ProductCode, t.Customer,
		t.ExternalReference, t.FailureReason, meta, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, reference))
}

// GetByReferenceForUpdate locks the row so concurrent settlements of the same
// reference serialize.
func (r *TransactionRepo) GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1 FOR UPDATE`
	return scanTransaction(tx.QueryRow(ctx, query, reference))
}

func (r *TransactionRepo) ExistsByExternalReference(ctx context.Context, tx pgx.Tx, externalRef string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM transactions WHERE external_reference = $1)`

	var exists bool
	if err := tx.QueryRow(ctx, query, externalRef).Scan(&exists); err != nil {
		return false, fmt.Errorf("check external reference: %w", err)
	}
	return exists, nil
}

// Update persists the mutable fields of a transaction.
func (r *TransactionRepo) Update(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	meta, err := encodeMeta(t.Meta)
	if err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()

	query := `UPDATE transactions
		SET status = $1, external_reference = $2, failure_reason = $3, meta = $4, updated_at = $5
		WHERE id = $6`

	tag, err := tx.Exec(ctx, query,
		string(t.Status), t.ExternalReference, t.FailureReason, meta, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", t.Reference)
	}
	return nil
}

// ListByUser returns the user's transactions, newest first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.list(ctx, query, userID, limit)
}

// DailyUsage counts pending and successful purchases created at or after since.
func (r *TransactionRepo) DailyUsage(ctx context.Context, userID uuid.UUID, since time.Time) (int64, decimal.Decimal, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = $1 AND tx_type <> $2 AND status IN ($3, $4) AND created_at >= $5`

	var (
		count int64
		total decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, query,
		userID, string(domain.TxTypeWalletFund),
		string(domain.TxStatusPending), string(domain.TxStatusSuccess), since,
	).Scan(&count, &total)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("daily usage: %w", err)
	}
	return count, total, nil
}

// ListStalePending returns pending transactions created before olderThan, oldest first.
func (r *TransactionRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = $1 AND created_at < $2 ORDER BY created_at LIMIT $3`
	return r.list(ctx, query, string(domain.TxStatusPending), olderThan, limit)
}

// GetStats aggregates successful transactions. The data cost estimate sums the
// base price of the plan each data purchase was made against.
func (r *TransactionRepo) GetStats(ctx context.Context) (*ports.TransactionStats, error) {
	query := `SELECT
		COUNT(*),
		COALESCE(SUM(t.amount), 0),
		COALESCE(SUM(t.amount) FILTER (WHERE t.tx_type = 'data'), 0),
		COALESCE(SUM(p.base_price) FILTER (WHERE t.tx_type = 'data'), 0)
		FROM transactions t
		LEFT JOIN data_plans p ON p.plan_code = t.product_code
		WHERE t.status = 'success'`

	stats := &ports.TransactionStats{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.Successful, &stats.TotalRevenue, &stats.DataRevenue, &stats.DataCostEstimate,
	)
	if err != nil {
		return nil, fmt.Errorf("get transaction stats: %w", err)
	}
	return stats, nil
}

func (r *TransactionRepo) list(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		t              domain.Transaction
		txType, status string
		meta           []byte
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Reference, &txType, &t.Amount, &status,
		&t.Provider, &t.Network, &t.ProductCode, &t.Customer,
		&t.ExternalReference, &t.FailureReason, &meta, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	if t.TxType, err = domain.ParseTransactionType(txType); err != nil {
		return nil, fmt.Errorf("scan transaction %s: %w", t.Reference, err)
	}
	if t.Status, err = domain.ParseTransactionStatus(status); err != nil {
		return nil, fmt.Errorf("scan transaction %s: %w", t.Reference, err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Meta); err != nil {
			return nil, fmt.Errorf("decode meta for %s: %w", t.Reference, err)
		}
	}
	return &t, nil
}

func encodeMeta(meta map[string]any) ([]byte, error) {
	if len(meta) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode meta: %w", err)
	}
	return b, nil
}
