package service

import (
	"context"
	"fmt"
	"time"

	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PurchaseLimits are the static per-user ceilings.
type PurchaseLimits struct {
	Enabled    bool
	SingleTx   decimal.Decimal
	DailyTotal decimal.Decimal
	DailyCount int
}

// LimitServiceImpl implements ports.LimitService.
type LimitServiceImpl struct {
	txRepo ports.TransactionRepository
	limits PurchaseLimits
	now    func() time.Time
	log    zerolog.Logger
}

// NewLimitService creates a new LimitServiceImpl.
func NewLimitService(txRepo ports.TransactionRepository, limits PurchaseLimits, log zerolog.Logger) *LimitServiceImpl {
	return &LimitServiceImpl{
		txRepo: txRepo,
		limits: limits,
		now:    time.Now,
		log:    log,
	}
}

// EnforcePurchaseLimits rejects a purchase of amount that would cross any
// ceiling. Usage counts pending and successful purchases since UTC midnight.
func (s *LimitServiceImpl) EnforcePurchaseLimits(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if !s.limits.Enabled {
		return nil
	}

	if amount.GreaterThan(s.limits.SingleTx) {
		return apperror.ErrSingleTxLimit(s.limits.SingleTx.String())
	}

	count, total, err := s.txRepo.DailyUsage(ctx, userID, startOfUTCDay(s.now()))
	if err != nil {
		return apperror.InternalError(fmt.Errorf("daily usage: %w", err))
	}

	if count+1 > int64(s.limits.DailyCount) {
		s.log.Warn().Str("user_id", userID.String()).Int64("count", count).Msg("daily purchase count limit hit")
		return apperror.ErrDailyCountLimit(s.limits.DailyCount)
	}
	if total.Add(amount).GreaterThan(s.limits.DailyTotal) {
		s.log.Warn().Str("user_id", userID.String()).Str("total", total.String()).Msg("daily purchase total limit hit")
		return apperror.ErrDailyTotalLimit(s.limits.DailyTotal.String())
	}
	return nil
}

func startOfUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
