package ports

import (
	"context"
	"time"

	"vtu-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SignatureService handles HMAC signing and verification of gateway payloads.
type SignatureService interface {
	Sign(secret string, body []byte) string
	Verify(secret string, body []byte, signature string) bool
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations. Access and refresh tokens are
// not interchangeable.
type TokenService interface {
	Generate(userID uuid.UUID, role domain.UserRole) (string, time.Time, error)
	GenerateRefresh(userID uuid.UUID, role domain.UserRole) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
	ValidateRefresh(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   domain.UserRole
}

// --- Service Ports (Business Logic) ---

// WalletService is the wallet store: balance plus append-only ledger.
// The *Tx variants run inside a caller-owned transaction so other writes can
// commit atomically with the balance change.
type WalletService interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference, description string) (*domain.LedgerEntry, error)
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference, description string) (*domain.LedgerEntry, error)
	CreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, reference, description string) (*domain.LedgerEntry, error)
	DebitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, reference, description string) (*domain.LedgerEntry, error)
	Ledger(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
	SetLocked(ctx context.Context, userID uuid.UUID, locked bool) error
	Reconcile(ctx context.Context, userID uuid.UUID) (*LedgerReconciliation, error)
}

// LedgerReconciliation compares a wallet balance with its ledger.
type LedgerReconciliation struct {
	WalletID      uuid.UUID       `json:"wallet_id"`
	Balance       decimal.Decimal `json:"balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Balanced      bool            `json:"balanced"`
}

// PricingService resolves the charge for a purchase.
type PricingService interface {
	PriceForData(ctx context.Context, plan *domain.DataPlan, role domain.UserRole) (decimal.Decimal, error)
	ChargeForService(ctx context.Context, txType domain.TransactionType, provider string, base decimal.Decimal, role domain.UserRole) (charge, margin decimal.Decimal, err error)
	UpsertRule(ctx context.Context, key string, role domain.PricingRole, margin decimal.Decimal) (*domain.PricingRule, error)
}

// LimitService enforces static per-user purchase ceilings.
type LimitService interface {
	EnforcePurchaseLimits(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
}

// CatalogService manages the data plan catalog.
type CatalogService interface {
	ListPlans(ctx context.Context, role domain.UserRole) ([]domain.PricedPlan, error)
	ResolvePlan(ctx context.Context, code string) (*domain.DataPlan, error)
	SyncPlans(ctx context.Context) (*SyncResult, error)
	// InvalidatePrices drops cached priced plan lists.
	InvalidatePrices(ctx context.Context)
}

// SyncResult summarises a catalog sync.
type SyncResult struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// SettlementService runs purchases end to end.
type SettlementService interface {
	PurchaseData(ctx context.Context, actor domain.Actor, req DataPurchaseRequest) (*PurchaseResult, error)
	PurchaseService(ctx context.Context, actor domain.Actor, req ServicePurchaseRequest) (*PurchaseResult, error)
}

// DataPurchaseRequest holds validated input for a data purchase.
type DataPurchaseRequest struct {
	PlanCode     string
	MobileNumber string
	Ported       bool
}

// ServicePurchaseRequest holds validated input for a bill purchase.
type ServicePurchaseRequest struct {
	TxType      domain.TransactionType
	Provider    string
	Customer    string
	ProductCode string
	Amount      decimal.Decimal // ignored for exam pins
	Quantity    int             // exam pins only
}

// PurchaseResult is returned to the caller once settlement has resolved.
type PurchaseResult struct {
	Reference   string                   `json:"reference"`
	Status      domain.TransactionStatus `json:"status"`
	Message     string                   `json:"message"`
	Amount      decimal.Decimal          `json:"amount"`
	Transaction *domain.Transaction      `json:"-"`
}

// FundingService reconciles payment gateway events with wallet credits.
type FundingService interface {
	Fund(ctx context.Context, actor domain.Actor, req FundRequest) (*CheckoutResponse, error)
	// HandleWebhook returns an error only for signature failures; every
	// business-level mismatch is a logged no-op.
	HandleWebhook(ctx context.Context, gateway string, body []byte, signature string) error
	Verify(ctx context.Context, actor domain.Actor, gateway, reference string) (*VerifyResult, error)
	VerifyPending(ctx context.Context, transaction *domain.Transaction) (*VerifyResult, error)
}

// FundRequest holds validated input for wallet funding.
type FundRequest struct {
	Amount      decimal.Decimal
	CallbackURL string
	Gateway     string
}

// VerifyResult reports a funding transaction's state after verification.
type VerifyResult struct {
	Reference string                   `json:"reference"`
	Status    domain.TransactionStatus `json:"status"`
	Credited  bool                     `json:"credited"`
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Authorize(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken   string
	AccessExpiry  time.Time
	RefreshToken  string
	RefreshExpiry time.Time
}

// RegisterRequest holds input for user registration.
type RegisterRequest struct {
	Email    string
	FullName string
	Password string
	Role     domain.UserRole
}

// ReportingService serves read models: history and analytics.
type ReportingService interface {
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, actor domain.Actor, reference string) (*domain.Transaction, error)
	Analytics(ctx context.Context) (*Analytics, error)
}

// Analytics is the admin dashboard summary.
type Analytics struct {
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	DataRevenue         decimal.Decimal `json:"data_revenue"`
	DataCostEstimate    decimal.Decimal `json:"data_cost_estimate"`
	GrossProfitEstimate decimal.Decimal `json:"gross_profit_estimate"`
	GrossMarginPct      decimal.Decimal `json:"gross_margin_pct"`
	TotalUsers          int64           `json:"total_users"`
	SuccessfulTx        int64           `json:"successful_transactions"`
	APISuccess          int64           `json:"api_success"`
	APIFailed           int64           `json:"api_failed"`
}

// AdminService holds admin-only mutations. Every call is audited.
type AdminService interface {
	UpsertPricing(ctx context.Context, admin domain.Actor, req PricingUpdate) (*domain.PricingRule, error)
	FundWallet(ctx context.Context, admin domain.Actor, req AdminFundRequest) (*domain.LedgerEntry, error)
	SetUserActive(ctx context.Context, admin domain.Actor, userID uuid.UUID, active bool) error
	SetWalletLocked(ctx context.Context, admin domain.Actor, userID uuid.UUID, locked bool) error
	SyncPlans(ctx context.Context, admin domain.Actor) (*SyncResult, error)
}

// PricingUpdate is an admin margin change.
type PricingUpdate struct {
	Key    string
	Role   string
	Margin decimal.Decimal
}

// AdminFundRequest is a manual wallet credit.
type AdminFundRequest struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
}

// AnnouncementService manages broadcast announcements. Mutations are audited.
type AnnouncementService interface {
	Live(ctx context.Context) ([]domain.Announcement, error)
	List(ctx context.Context) ([]domain.Announcement, error)
	Create(ctx context.Context, admin domain.Actor, in AnnouncementInput) (*domain.Announcement, error)
	Update(ctx context.Context, admin domain.Actor, id int64, patch AnnouncementPatch) (*domain.Announcement, error)
}

// AnnouncementInput is a new announcement.
type AnnouncementInput struct {
	Title    string
	Message  string
	Level    string
	IsActive bool
	StartsAt *time.Time
	EndsAt   *time.Time
}

// AnnouncementPatch changes only the fields that are set. A window bound is
// replaced, possibly with nil, only when its Set flag is true.
type AnnouncementPatch struct {
	Title       *string
	Message     *string
	Level       *string
	IsActive    *bool
	StartsAt    *time.Time
	StartsAtSet bool
	EndsAt      *time.Time
	EndsAtSet   bool
}

// Empty reports whether the patch changes nothing.
func (p AnnouncementPatch) Empty() bool {
	return p.Title == nil && p.Message == nil && p.Level == nil && p.IsActive == nil && !p.StartsAtSet && !p.EndsAtSet
}

// AuditService records audit entries without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
