package service

import (
	"context"
	"errors"
	"testing"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPricing_PriceForData(t *testing.T) {
	s := newStore(t)
	svc := NewPricingService(s.pricing, zerolog.Nop())
	ctx := context.Background()
	plan := &domain.DataPlan{Network: "MTN", PlanCode: "mtn:1", BasePrice: dec("100")}

	price, err := svc.PriceForData(ctx, plan, domain.RoleUser)
	require.NoError(t, err)
	assertDecimal(t, "100", price)

	_, err = svc.UpsertRule(ctx, " MTN ", domain.PricingRoleReseller, dec("-10"))
	require.NoError(t, err)
	_, err = svc.UpsertRule(ctx, "mtn", domain.PricingRoleUser, dec("15.5"))
	require.NoError(t, err)

	tests := []struct {
		role     domain.UserRole
		expected string
	}{
		{domain.RoleReseller, "90"},
		{domain.RoleUser, "115.5"},
		{domain.RoleAdmin, "115.5"},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			price, err := svc.PriceForData(ctx, plan, tt.role)
			require.NoError(t, err)
			assertDecimal(t, tt.expected, price)
		})
	}
}

func TestPricing_ChargeForService(t *testing.T) {
	s := newStore(t)
	svc := NewPricingService(s.pricing, zerolog.Nop())
	ctx := context.Background()

	charge, margin, err := svc.ChargeForService(ctx, domain.TxTypeCable, "dstv", dec("5000"), domain.RoleUser)
	require.NoError(t, err)
	assertDecimal(t, "5000", charge)
	assert.True(t, margin.IsZero())

	_, err = svc.UpsertRule(ctx, domain.ServicePricingKey(domain.TxTypeCable, "DSTV"), domain.PricingRoleUser, dec("50"))
	require.NoError(t, err)

	charge, margin, err = svc.ChargeForService(ctx, domain.TxTypeCable, "dstv", dec("5000"), domain.RoleUser)
	require.NoError(t, err)
	assertDecimal(t, "5050", charge)
	assertDecimal(t, "50", margin)
}

func TestPricing_UpsertRule_ReplacesExisting(t *testing.T) {
	s := newStore(t)
	svc := NewPricingService(s.pricing, zerolog.Nop())
	ctx := context.Background()

	first, err := svc.UpsertRule(ctx, "glo", domain.PricingRoleUser, dec("5"))
	require.NoError(t, err)
	second, err := svc.UpsertRule(ctx, "glo", domain.PricingRoleUser, dec("7"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	rules, err := s.pricing.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assertDecimal(t, "7", rules[0].Margin)

	_, err = svc.UpsertRule(ctx, "  ", domain.PricingRoleUser, dec("1"))
	assertAppError(t, err, "SYS_002")
}

func TestPricing_RepositoryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockPricingRepository(ctrl)
	svc := NewPricingService(repo, zerolog.Nop())

	repo.EXPECT().Get(gomock.Any(), "mtn", domain.PricingRoleUser).Return(nil, errors.New("db down"))

	_, err := svc.PriceForData(context.Background(), &domain.DataPlan{Network: "mtn", BasePrice: dec("1")}, domain.RoleUser)
	assertAppError(t, err, "SYS_001")
}
