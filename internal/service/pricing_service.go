package service

import (
	"context"
	"fmt"
	"time"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PricingServiceImpl implements ports.PricingService with an additive margin model.
type PricingServiceImpl struct {
	pricingRepo ports.PricingRepository
	log         zerolog.Logger
}

// NewPricingService creates a new PricingServiceImpl.
func NewPricingService(pricingRepo ports.PricingRepository, log zerolog.Logger) *PricingServiceImpl {
	return &PricingServiceImpl{pricingRepo: pricingRepo, log: log}
}

// PriceForData returns base price plus the network margin for the caller's role.
func (s *PricingServiceImpl) PriceForData(ctx context.Context, plan *domain.DataPlan, role domain.UserRole) (decimal.Decimal, error) {
	margin, err := s.margin(ctx, domain.NormalizePricingKey(plan.Network), domain.PricingRoleFor(role))
	if err != nil {
		return decimal.Zero, err
	}
	return domain.Money(plan.BasePrice.Add(margin)), nil
}

// ChargeForService applies the margin stored under the composite service key.
func (s *PricingServiceImpl) ChargeForService(
	ctx context.Context,
	txType domain.TransactionType,
	provider string,
	base decimal.Decimal,
	role domain.UserRole,
) (decimal.Decimal, decimal.Decimal, error) {
	margin, err := s.margin(ctx, domain.ServicePricingKey(txType, provider), domain.PricingRoleFor(role))
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return domain.Money(base.Add(margin)), margin, nil
}

// UpsertRule creates or replaces the margin for (key, role).
func (s *PricingServiceImpl) UpsertRule(ctx context.Context, key string, role domain.PricingRole, margin decimal.Decimal) (*domain.PricingRule, error) {
	key = domain.NormalizePricingKey(key)
	if key == "" {
		return nil, apperror.Validation("network/key is required")
	}

	rule := &domain.PricingRule{
		ID:        uuid.New(),
		Key:       key,
		Role:      role,
		Margin:    domain.Money(margin),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.pricingRepo.Upsert(ctx, rule); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("upsert pricing rule: %w", err))
	}

	s.log.Info().Str("key", key).Str("role", string(role)).Str("margin", rule.Margin.String()).Msg("pricing rule updated")
	return rule, nil
}

// margin defaults to zero when no rule exists.
func (s *PricingServiceImpl) margin(ctx context.Context, key string, role domain.PricingRole) (decimal.Decimal, error) {
	rule, err := s.pricingRepo.Get(ctx, key, role)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("get pricing rule: %w", err))
	}
	if rule == nil {
		return decimal.Zero, nil
	}
	return rule.Margin, nil
}
