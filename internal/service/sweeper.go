package service

import (
	"context"
	"fmt"
	"time"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/metrics"

	"github.com/rs/zerolog"
)

// AbandonedBeforeDebit is the failure reason for purchases that never moved money.
const AbandonedBeforeDebit = "abandoned before debit"

// SweepReport summarises one pass over stale pending transactions.
type SweepReport struct {
	Scanned   int
	Abandoned int
	Stuck     int
	Verified  int
}

// PendingSweeper resolves what it safely can among transactions left pending.
//
// Purchases that were debited are never resolved here: the data provider has
// no status query, so they are only counted for operator review.
type PendingSweeper struct {
	txRepo     ports.TransactionRepository
	ledgerRepo ports.LedgerRepository
	funding    ports.FundingService
	transactor ports.DBTransactor
	staleAfter time.Duration
	batchSize  int
	now        func() time.Time
	log        zerolog.Logger
}

// NewPendingSweeper creates a new PendingSweeper.
func NewPendingSweeper(
	txRepo ports.TransactionRepository,
	ledgerRepo ports.LedgerRepository,
	funding ports.FundingService,
	transactor ports.DBTransactor,
	staleAfter time.Duration,
	batchSize int,
	log zerolog.Logger,
) *PendingSweeper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &PendingSweeper{
		txRepo:     txRepo,
		ledgerRepo: ledgerRepo,
		funding:    funding,
		transactor: transactor,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		now:        time.Now,
		log:        log,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *PendingSweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Dur("stale_after", s.staleAfter).Msg("pending sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("pending sweeper stopped")
			return
		case <-ticker.C:
			report, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("sweep failed")
				continue
			}
			if report.Scanned > 0 {
				s.log.Info().
					Int("scanned", report.Scanned).
					Int("abandoned", report.Abandoned).
					Int("stuck", report.Stuck).
					Int("verified", report.Verified).
					Msg("sweep complete")
			}
		}
	}
}

// Sweep makes one pass.
func (s *PendingSweeper) Sweep(ctx context.Context) (*SweepReport, error) {
	stale, err := s.txRepo.ListStalePending(ctx, s.now().UTC().Add(-s.staleAfter), s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("list stale pending: %w", err)
	}

	report := &SweepReport{Scanned: len(stale)}
	for i := range stale {
		txn := &stale[i]
		logger := s.log.With().Str("reference", txn.Reference).Str("tx_type", string(txn.TxType)).Logger()

		if txn.TxType == domain.TxTypeWalletFund {
			if _, err := s.funding.VerifyPending(ctx, txn); err != nil {
				logger.Warn().Err(err).Msg("funding verify failed")
				continue
			}
			report.Verified++
			continue
		}

		entries, err := s.ledgerRepo.ListByReference(ctx, txn.Reference)
		if err != nil {
			logger.Warn().Err(err).Msg("ledger lookup failed")
			continue
		}
		if !hasEntry(entries, domain.EntryDebit) {
			abandoned, err := s.markAbandoned(ctx, txn.Reference)
			if err != nil {
				logger.Warn().Err(err).Msg("mark abandoned failed")
				continue
			}
			if abandoned {
				report.Abandoned++
			}
			continue
		}
		if !hasEntry(entries, domain.EntryCredit) {
			report.Stuck++
			logger.Warn().Time("created_at", txn.CreatedAt).Msg("debited purchase still pending, needs operator review")
		}
	}

	metrics.StuckPending.Set(float64(report.Stuck))
	return report, nil
}

func (s *PendingSweeper) markAbandoned(ctx context.Context, reference string) (bool, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByReferenceForUpdate(ctx, dbTx, reference)
	if err != nil {
		return false, fmt.Errorf("lock transaction: %w", err)
	}
	if txn == nil || txn.Status != domain.TxStatusPending {
		return false, nil
	}

	reason := AbandonedBeforeDebit
	txn.Status = domain.TxStatusFailed
	txn.FailureReason = &reason
	if err := s.txRepo.Update(ctx, dbTx, txn); err != nil {
		return false, fmt.Errorf("update transaction: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}

func hasEntry(entries []domain.LedgerEntry, t domain.EntryType) bool {
	for _, e := range entries {
		if e.EntryType == t {
			return true
		}
	}
	return false
}
