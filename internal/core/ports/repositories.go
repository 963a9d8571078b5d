package ports

import (
	"context"
	"time"

	"vtu-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Count(ctx context.Context) (int64, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside the caller's transaction; the
// ForUpdate variant takes a row lock held until commit.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
	SetLocked(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, locked bool) error
}

// LedgerRepository appends and reads wallet ledger entries. Entries are never updated.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
	ListByReference(ctx context.Context, reference string) ([]domain.LedgerEntry, error)
	Totals(ctx context.Context, walletID uuid.UUID) (credits, debits decimal.Decimal, err error)
}

// TransactionRepository defines persistence operations for transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*domain.Transaction, error)
	ExistsByExternalReference(ctx context.Context, tx pgx.Tx, externalRef string) (bool, error)
	// Update persists status, external reference, failure reason and meta.
	Update(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Transaction, error)
	// DailyUsage counts and sums pending and successful purchases since the given instant.
	DailyUsage(ctx context.Context, userID uuid.UUID, since time.Time) (count int64, total decimal.Decimal, err error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error)
	GetStats(ctx context.Context) (*TransactionStats, error)
}

// TransactionStats holds aggregates for the admin analytics view.
type TransactionStats struct {
	TotalRevenue     decimal.Decimal
	DataRevenue      decimal.Decimal
	DataCostEstimate decimal.Decimal
	Successful       int64
}

// PricingRepository stores margins keyed by (key, role).
type PricingRepository interface {
	Get(ctx context.Context, key string, role domain.PricingRole) (*domain.PricingRule, error)
	Upsert(ctx context.Context, rule *domain.PricingRule) error
	List(ctx context.Context) ([]domain.PricingRule, error)
}

// PlanRepository stores the data plan catalog.
type PlanRepository interface {
	GetByCode(ctx context.Context, planCode string) (*domain.DataPlan, error)
	// FindBySuffix returns active plans whose canonical code ends with ":"+code.
	FindBySuffix(ctx context.Context, code string) ([]domain.DataPlan, error)
	ListActive(ctx context.Context) ([]domain.DataPlan, error)
	Upsert(ctx context.Context, plan *domain.DataPlan) (created bool, err error)
	Count(ctx context.Context) (int64, error)
}

// APICallLogRepository persists outbound call records.
type APICallLogRepository interface {
	Create(ctx context.Context, entry *domain.APICallLog) error
	CountByOutcome(ctx context.Context) (success, failed int64, err error)
}

// AnnouncementRepository stores broadcast announcements. Lists are newest first.
type AnnouncementRepository interface {
	// Create assigns ID and CreatedAt.
	Create(ctx context.Context, a *domain.Announcement) error
	GetByID(ctx context.Context, id int64) (*domain.Announcement, error)
	Update(ctx context.Context, a *domain.Announcement) error
	// ListLive returns active announcements whose window contains now.
	ListLive(ctx context.Context, now time.Time, limit int) ([]domain.Announcement, error)
	List(ctx context.Context, limit int) ([]domain.Announcement, error)
}

// AuditRepository persists audit records.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
