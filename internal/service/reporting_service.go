package service

import (
	"context"
	"fmt"
	"strings"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultHistoryLimit is the number of transactions returned by history reads.
const DefaultHistoryLimit = 50

// ReportingServiceImpl implements ports.ReportingService.
type ReportingServiceImpl struct {
	txRepo   ports.TransactionRepository
	userRepo ports.UserRepository
	apiLogs  ports.APICallLogRepository
	log      zerolog.Logger
}

// NewReportingService creates a new ReportingServiceImpl.
func NewReportingService(
	txRepo ports.TransactionRepository,
	userRepo ports.UserRepository,
	apiLogs ports.APICallLogRepository,
	log zerolog.Logger,
) *ReportingServiceImpl {
	return &ReportingServiceImpl{
		txRepo:   txRepo,
		userRepo: userRepo,
		apiLogs:  apiLogs,
		log:      log,
	}
}

// ListTransactions returns the user's most recent transactions, newest first.
func (s *ReportingServiceImpl) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	txns, err := s.txRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	return txns, nil
}

// GetTransaction returns one transaction. Non-admins only see their own.
func (s *ReportingServiceImpl) GetTransaction(ctx context.Context, actor domain.Actor, reference string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByReference(ctx, strings.TrimSpace(reference))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil || (txn.UserID != actor.UserID && actor.Role != domain.RoleAdmin) {
		return nil, apperror.ErrTransactionNotFound()
	}
	return txn, nil
}

// Analytics gathers the admin summary; the three sources are queried concurrently.
func (s *ReportingServiceImpl) Analytics(ctx context.Context) (*ports.Analytics, error) {
	var (
		stats            *ports.TransactionStats
		users            int64
		apiOK, apiFailed int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if stats, err = s.txRepo.GetStats(gctx); err != nil {
			return fmt.Errorf("transaction stats: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if users, err = s.userRepo.Count(gctx); err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if apiOK, apiFailed, err = s.apiLogs.CountByOutcome(gctx); err != nil {
			return fmt.Errorf("count api calls: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.InternalError(err)
	}

	profit := stats.DataRevenue.Sub(stats.DataCostEstimate)
	margin := decimal.Zero
	if stats.DataRevenue.IsPositive() {
		margin = profit.Div(stats.DataRevenue).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return &ports.Analytics{
		TotalRevenue:        stats.TotalRevenue,
		DataRevenue:         stats.DataRevenue,
		DataCostEstimate:    stats.DataCostEstimate,
		GrossProfitEstimate: profit,
		GrossMarginPct:      margin,
		TotalUsers:          users,
		SuccessfulTx:        stats.Successful,
		APISuccess:          apiOK,
		APIFailed:           apiFailed,
	}, nil
}
