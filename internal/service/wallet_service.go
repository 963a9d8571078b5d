package service

import (
	"context"
	"fmt"
	"time"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultLedgerLimit is the number of ledger entries returned when no limit is given.
const DefaultLedgerLimit = 50

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		log:        log,
	}
}

// GetOrCreate returns the user's wallet, creating a zero-balance one on first access.
func (s *WalletServiceImpl) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.walletRepo.Create(ctx, dbTx, newWallet(userID)); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Re-read: a concurrent request may have created the row first.
	wallet, err = s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}

// Credit increases the balance and appends a credit entry in its own transaction.
func (s *WalletServiceImpl) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference, description string) (*domain.LedgerEntry, error) {
	return s.inTx(ctx, func(dbTx pgx.Tx) (*domain.LedgerEntry, error) {
		return s.CreditTx(ctx, dbTx, userID, amount, reference, description)
	})
}

// Debit decreases the balance and appends a debit entry in its own transaction.
func (s *WalletServiceImpl) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference, description string) (*domain.LedgerEntry, error) {
	return s.inTx(ctx, func(dbTx pgx.Tx) (*domain.LedgerEntry, error) {
		return s.DebitTx(ctx, dbTx, userID, amount, reference, description)
	})
}

// CreditTx credits inside the caller's transaction.
func (s *WalletServiceImpl) CreditTx(ctx context.Context, dbTx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, reference, description string) (*domain.LedgerEntry, error) {
	return s.apply(ctx, dbTx, userID, amount, domain.EntryCredit, reference, description)
}

// DebitTx debits inside the caller's transaction. The wallet row stays locked
// until the caller commits.
func (s *WalletServiceImpl) DebitTx(ctx context.Context, dbTx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, reference, description string) (*domain.LedgerEntry, error) {
	return s.apply(ctx, dbTx, userID, amount, domain.EntryDebit, reference, description)
}

func (s *WalletServiceImpl) apply(
	ctx context.Context,
	dbTx pgx.Tx,
	userID uuid.UUID,
	amount decimal.Decimal,
	entryType domain.EntryType,
	reference, description string,
) (*domain.LedgerEntry, error) {
	amount = domain.Money(amount)
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.lockWallet(ctx, dbTx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.IsLocked {
		return nil, apperror.ErrWalletLocked()
	}

	var newBalance decimal.Decimal
	if entryType == domain.EntryDebit {
		if !wallet.Covers(amount) {
			return nil, apperror.ErrInsufficientBalance()
		}
		newBalance = wallet.Balance.Sub(amount)
	} else {
		newBalance = wallet.Balance.Add(amount)
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	entry := &domain.LedgerEntry{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		Amount:      amount,
		EntryType:   entryType,
		Reference:   reference,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.ledgerRepo.Append(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append ledger entry: %w", err))
	}

	s.log.Debug().
		Str("user_id", userID.String()).
		Str("reference", reference).
		Str("entry_type", string(entryType)).
		Str("amount", amount.StringFixed(domain.MoneyPlaces)).
		Str("balance", newBalance.StringFixed(domain.MoneyPlaces)).
		Msg("wallet mutated")

	return entry, nil
}

// lockWallet takes the wallet row lock, creating the wallet inside the same
// transaction if the user has none yet.
func (s *WalletServiceImpl) lockWallet(ctx context.Context, dbTx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	if err := s.walletRepo.Create(ctx, dbTx, newWallet(userID)); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}
	wallet, err = s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}

// Ledger returns the newest entries first.
func (s *WalletServiceImpl) Ledger(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 || limit > DefaultLedgerLimit {
		limit = DefaultLedgerLimit
	}
	wallet, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledgerRepo.ListByWallet(ctx, wallet.ID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list ledger: %w", err))
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	return entries, nil
}

// SetLocked toggles the mutation gate on a wallet.
func (s *WalletServiceImpl) SetLocked(ctx context.Context, userID uuid.UUID, locked bool) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.lockWallet(ctx, dbTx, userID)
	if err != nil {
		return err
	}
	if err := s.walletRepo.SetLocked(ctx, dbTx, wallet.ID, locked); err != nil {
		return apperror.InternalError(fmt.Errorf("set wallet lock: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("user_id", userID.String()).Bool("locked", locked).Msg("wallet lock changed")
	return nil
}

// Reconcile compares the stored balance with the ledger sum.
func (s *WalletServiceImpl) Reconcile(ctx context.Context, userID uuid.UUID) (*ports.LedgerReconciliation, error) {
	wallet, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	credits, debits, err := s.ledgerRepo.Totals(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("ledger totals: %w", err))
	}
	ledgerBalance := credits.Sub(debits)
	rec := &ports.LedgerReconciliation{
		WalletID:      wallet.ID,
		Balance:       wallet.Balance,
		LedgerBalance: ledgerBalance,
		Balanced:      wallet.Balance.Equal(ledgerBalance),
	}
	if !rec.Balanced {
		s.log.Error().
			Str("wallet_id", wallet.ID.String()).
			Str("balance", wallet.Balance.String()).
			Str("ledger_balance", ledgerBalance.String()).
			Msg("wallet balance does not match ledger")
	}
	return rec, nil
}

func (s *WalletServiceImpl) inTx(ctx context.Context, fn func(pgx.Tx) (*domain.LedgerEntry, error)) (*domain.LedgerEntry, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entry, err := fn(dbTx)
	if err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return entry, nil
}

func newWallet(userID uuid.UUID) *domain.Wallet {
	now := time.Now().UTC()
	return &domain.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
