package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const planCacheKeyPrefix = "plans:"

// CatalogServiceImpl implements ports.CatalogService.
type CatalogServiceImpl struct {
	planRepo ports.PlanRepository
	pricing  ports.PricingService
	provider ports.DataProvider
	cache    ports.Cache
	ttl      time.Duration
	group    singleflight.Group
	log      zerolog.Logger
}

// NewCatalogService creates a new CatalogServiceImpl.
func NewCatalogService(
	planRepo ports.PlanRepository,
	pricing ports.PricingService,
	provider ports.DataProvider,
	cache ports.Cache,
	ttl time.Duration,
	log zerolog.Logger,
) *CatalogServiceImpl {
	return &CatalogServiceImpl{
		planRepo: planRepo,
		pricing:  pricing,
		provider: provider,
		cache:    cache,
		ttl:      ttl,
		log:      log,
	}
}

func planCacheKey(role domain.PricingRole) string {
	return planCacheKeyPrefix + string(role)
}

// ListPlans returns active plans priced for role. Results are cached per
// pricing role; concurrent misses share one load.
func (s *CatalogServiceImpl) ListPlans(ctx context.Context, role domain.UserRole) ([]domain.PricedPlan, error) {
	pricingRole := domain.PricingRoleFor(role)
	key := planCacheKey(pricingRole)

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("plan cache read failed, loading from db")
	}
	if cached != nil {
		var plans []domain.PricedPlan
		if err := json.Unmarshal(cached, &plans); err == nil {
			return plans, nil
		}
		s.log.Warn().Str("key", key).Msg("discarding undecodable plan cache entry")
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.loadPricedPlans(ctx, role, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.PricedPlan), nil
}

func (s *CatalogServiceImpl) loadPricedPlans(ctx context.Context, role domain.UserRole, key string) ([]domain.PricedPlan, error) {
	plans, err := s.planRepo.ListActive(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list plans: %w", err))
	}
	if len(plans) == 0 {
		if _, err := s.SyncPlans(ctx); err != nil {
			return nil, err
		}
		if plans, err = s.planRepo.ListActive(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("list plans: %w", err))
		}
	}

	priced := make([]domain.PricedPlan, 0, len(plans))
	for i := range plans {
		price, err := s.pricing.PriceForData(ctx, &plans[i], role)
		if err != nil {
			return nil, err
		}
		priced = append(priced, domain.PricedPlan{DataPlan: plans[i], Price: price})
	}

	if payload, err := json.Marshal(priced); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("plan cache write failed")
		}
	}
	return priced, nil
}

// ResolvePlan finds an active plan by canonical code, or by bare provider code
// when exactly one network carries it.
func (s *CatalogServiceImpl) ResolvePlan(ctx context.Context, code string) (*domain.DataPlan, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.ErrPlanNotFound()
	}

	plan, err := s.planRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get plan: %w", err))
	}
	if plan != nil {
		if !plan.IsActive {
			return nil, apperror.ErrPlanNotFound()
		}
		return plan, nil
	}
	if strings.Contains(code, ":") {
		return nil, apperror.ErrPlanNotFound()
	}

	matches, err := s.planRepo.FindBySuffix(ctx, code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find plan by code: %w", err))
	}
	switch len(matches) {
	case 0:
		return nil, apperror.ErrPlanNotFound()
	case 1:
		return &matches[0], nil
	default:
		return nil, apperror.ErrAmbiguousPlanCode()
	}
}

// SyncPlans pulls the provider catalog into the plan table and drops cached lists.
func (s *CatalogServiceImpl) SyncPlans(ctx context.Context) (*ports.SyncResult, error) {
	catalog, err := s.provider.FetchCatalog(ctx)
	if err != nil {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("fetch catalog: %w", err))
	}

	result := &ports.SyncResult{Fetched: len(catalog)}
	now := time.Now().UTC()
	for _, item := range catalog {
		network := strings.ToLower(strings.TrimSpace(item.Network))
		if network == "" || strings.TrimSpace(item.Code) == "" {
			continue
		}
		plan := &domain.DataPlan{
			ID:        uuid.New(),
			Network:   network,
			PlanCode:  domain.CanonicalPlanCode(network, item.Code),
			PlanName:  item.Name,
			DataSize:  item.Size,
			Validity:  item.Validity,
			BasePrice: domain.Money(item.Price),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		created, err := s.planRepo.Upsert(ctx, plan)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("upsert plan %s: %w", plan.PlanCode, err))
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	s.InvalidatePrices(ctx)

	s.log.Info().
		Int("fetched", result.Fetched).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Msg("plan catalog synced")
	return result, nil
}

// InvalidatePrices drops cached plan lists after a margin change.
func (s *CatalogServiceImpl) InvalidatePrices(ctx context.Context) {
	if err := s.cache.Delete(ctx, planCacheKey(domain.PricingRoleUser), planCacheKey(domain.PricingRoleReseller)); err != nil {
		s.log.Warn().Err(err).Msg("plan cache invalidation failed")
	}
}
