package service

import (
	"context"
	"testing"
	"time"

	"vtu-backend/internal/adapter/storage/memory"
	"vtu-backend/internal/core/domain"
	"vtu-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// store bundles the in-memory repositories behind one transactor.
type store struct {
	db            *memory.Store
	users         *memory.UserRepo
	wallets       *memory.WalletRepo
	ledger        *memory.LedgerRepo
	txs           *memory.TransactionRepo
	pricing       *memory.PricingRepo
	plans         *memory.PlanRepo
	apiLogs       *memory.APICallLogRepo
	audits        *memory.AuditRepo
	announcements *memory.AnnouncementRepo
	wallet        *WalletServiceImpl
}

func newStore(t *testing.T) *store {
	t.Helper()
	db := memory.NewStore()
	s := &store{
		db:      db,
		users:   memory.NewUserRepo(db),
		wallets: memory.NewWalletRepo(db),
		ledger:  memory.NewLedgerRepo(db),
		txs:     memory.NewTransactionRepo(db),
		pricing: memory.NewPricingRepo(db),
		plans:   memory.NewPlanRepo(db),
		apiLogs: memory.NewAPICallLogRepo(db),
		audits:  memory.NewAuditRepo(db),

		announcements: memory.NewAnnouncementRepo(db),
	}
	s.wallet = NewWalletService(s.wallets, s.ledger, db, zerolog.Nop())
	return s
}

func (s *store) addUser(t *testing.T, role domain.UserRole) domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := domain.User{
		ID:        uuid.New(),
		Email:     uuid.NewString()[:8] + "@example.com",
		FullName:  "Test User",
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.users.Create(context.Background(), &u))
	return u
}

func (s *store) fund(t *testing.T, userID uuid.UUID, amount string) {
	t.Helper()
	_, err := s.wallet.Credit(context.Background(), userID, dec(amount), domain.NewReference("SEED"), "seed")
	require.NoError(t, err)
}

func (s *store) balance(t *testing.T, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	w, err := s.wallet.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

func (s *store) addPlan(t *testing.T, network, code, price string) *domain.DataPlan {
	t.Helper()
	p := &domain.DataPlan{
		ID:        uuid.New(),
		Network:   network,
		PlanCode:  domain.CanonicalPlanCode(network, code),
		PlanName:  network + " " + code,
		DataSize:  "1GB",
		Validity:  "30 days",
		BasePrice: dec(price),
		IsActive:  true,
	}
	_, err := s.plans.Upsert(context.Background(), p)
	require.NoError(t, err)
	return p
}

// assertLedgerBalanced checks balance == credits - debits for the user's wallet.
func (s *store) assertLedgerBalanced(t *testing.T, userID uuid.UUID) {
	t.Helper()
	rec, err := s.wallet.Reconcile(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, rec.Balanced, "balance %s != ledger %s", rec.Balance, rec.LedgerBalance)
}

func (s *store) entries(t *testing.T, reference string) []domain.LedgerEntry {
	t.Helper()
	entries, err := s.ledger.ListByReference(context.Background(), reference)
	require.NoError(t, err)
	return entries
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}
