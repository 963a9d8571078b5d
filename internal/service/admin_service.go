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
)

const defaultAdminFundDescription = "Admin wallet funding"

// AdminServiceImpl implements ports.AdminService.
type AdminServiceImpl struct {
	userRepo ports.UserRepository
	pricing  ports.PricingService
	catalog  ports.CatalogService
	wallet   ports.WalletService
	auditSvc ports.AuditService
	log      zerolog.Logger
}

// NewAdminService creates a new AdminServiceImpl.
func NewAdminService(
	userRepo ports.UserRepository,
	pricing ports.PricingService,
	catalog ports.CatalogService,
	wallet ports.WalletService,
	auditSvc ports.AuditService,
	log zerolog.Logger,
) *AdminServiceImpl {
	return &AdminServiceImpl{
		userRepo: userRepo,
		pricing:  pricing,
		catalog:  catalog,
		wallet:   wallet,
		auditSvc: auditSvc,
		log:      log,
	}
}

// UpsertPricing sets the margin for a network or service key.
func (s *AdminServiceImpl) UpsertPricing(ctx context.Context, admin domain.Actor, req ports.PricingUpdate) (*domain.PricingRule, error) {
	role, err := domain.ParsePricingRole(req.Role)
	if err != nil {
		return nil, apperror.Validation("role must be user or reseller")
	}
	key := domain.NormalizePricingKey(req.Key)
	if key == "" {
		return nil, apperror.Validation("network/key is required")
	}

	rule, err := s.pricing.UpsertRule(ctx, key, role, req.Margin)
	if err != nil {
		return nil, err
	}
	s.catalog.InvalidatePrices(ctx)

	s.audit(ctx, admin, domain.AuditActionPricingUpsert, "pricing_rule", key,
		fmt.Sprintf(`{"role":%q,"margin":%q}`, role, rule.Margin.String()))
	return rule, nil
}

// FundWallet credits a user's wallet directly. No transaction record is
// created; the ledger entry carries the ADMIN_ reference.
func (s *AdminServiceImpl) FundWallet(ctx context.Context, admin domain.Actor, req ports.AdminFundRequest) (*domain.LedgerEntry, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if _, err := s.mustUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = defaultAdminFundDescription
	}
	entry, err := s.wallet.Credit(ctx, req.UserID, req.Amount, domain.AdminFundReference(req.UserID), description)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, admin, domain.AuditActionAdminFund, "wallet", req.UserID.String(),
		fmt.Sprintf(`{"amount":%q}`, entry.Amount.StringFixed(domain.MoneyPlaces)))
	s.log.Info().
		Str("admin_id", admin.UserID.String()).
		Str("user_id", req.UserID.String()).
		Str("amount", entry.Amount.String()).
		Msg("admin funded wallet")
	return entry, nil
}

// SetUserActive suspends or re-activates an account.
func (s *AdminServiceImpl) SetUserActive(ctx context.Context, admin domain.Actor, userID uuid.UUID, active bool) error {
	if _, err := s.mustUser(ctx, userID); err != nil {
		return err
	}
	if userID == admin.UserID && !active {
		return apperror.Validation("admins cannot suspend themselves")
	}
	if err := s.userRepo.SetActive(ctx, userID, active); err != nil {
		return apperror.InternalError(fmt.Errorf("set user active: %w", err))
	}

	action := domain.AuditActionUserSuspend
	if active {
		action = domain.AuditActionUserActivate
	}
	s.audit(ctx, admin, action, "user", userID.String(), "")
	return nil
}

// SetWalletLocked gates all mutations on a user's wallet.
func (s *AdminServiceImpl) SetWalletLocked(ctx context.Context, admin domain.Actor, userID uuid.UUID, locked bool) error {
	if _, err := s.mustUser(ctx, userID); err != nil {
		return err
	}
	if err := s.wallet.SetLocked(ctx, userID, locked); err != nil {
		return err
	}

	action := domain.AuditActionWalletUnlock
	if locked {
		action = domain.AuditActionWalletLock
	}
	s.audit(ctx, admin, action, "wallet", userID.String(), "")
	return nil
}

// SyncPlans refreshes the plan catalog from the data provider.
func (s *AdminServiceImpl) SyncPlans(ctx context.Context, admin domain.Actor) (*ports.SyncResult, error) {
	result, err := s.catalog.SyncPlans(ctx)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, admin, domain.AuditActionPlanSync, "data_plan", "",
		fmt.Sprintf(`{"fetched":%d,"created":%d,"updated":%d}`, result.Fetched, result.Created, result.Updated))
	return result, nil
}

func (s *AdminServiceImpl) mustUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrUserNotFound()
	}
	return user, nil
}

func (s *AdminServiceImpl) audit(ctx context.Context, admin domain.Actor, action domain.AuditAction, resourceType, resourceID, details string) {
	adminID := admin.UserID
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ActorID:      &adminID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    admin.IP,
	})
}
