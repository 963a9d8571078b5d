package handler

import (
	"vtu-backend/internal/adapter/http/dto"
	"vtu-backend/internal/adapter/http/middleware"
	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/apperror"
	"vtu-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler handles the /admin endpoints. Routes are guarded by
// middleware.RequireAdmin.
type AdminHandler struct {
	adminSvc     ports.AdminService
	reportingSvc ports.ReportingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminSvc ports.AdminService, reportingSvc ports.ReportingService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc, reportingSvc: reportingSvc}
}

// Analytics handles GET /api/v1/admin/analytics.
func (h *AdminHandler) Analytics(c *gin.Context) {
	stats, err := h.reportingSvc.Analytics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// UpsertPricing handles POST /api/v1/admin/pricing.
func (h *AdminHandler) UpsertPricing(c *gin.Context) {
	admin, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	rule, err := h.adminSvc.UpsertPricing(c.Request.Context(), admin, ports.PricingUpdate{
		Key:    req.Key,
		Role:   req.Role,
		Margin: req.Margin,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rule)
}

// FundWallet handles POST /api/v1/admin/fund-wallet.
func (h *AdminHandler) FundWallet(c *gin.Context) {
	admin, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.AdminFundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	entry, err := h.adminSvc.FundWallet(c.Request.Context(), admin, ports.AdminFundRequest{
		UserID:      uuid.MustParse(req.UserID),
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}

// SuspendUser handles POST /api/v1/admin/users/:id/suspend.
func (h *AdminHandler) SuspendUser(c *gin.Context) { h.setUserActive(c, false) }

// ActivateUser handles POST /api/v1/admin/users/:id/activate.
func (h *AdminHandler) ActivateUser(c *gin.Context) { h.setUserActive(c, true) }

func (h *AdminHandler) setUserActive(c *gin.Context, active bool) {
	admin, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid user id"))
		return
	}

	if err := h.adminSvc.SetUserActive(c.Request.Context(), admin, userID, active); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"user_id": userID, "is_active": active})
}

// LockWallet handles POST /api/v1/admin/wallets/:user_id/lock.
func (h *AdminHandler) LockWallet(c *gin.Context) { h.setWalletLocked(c, true) }

// UnlockWallet handles POST /api/v1/admin/wallets/:user_id/unlock.
func (h *AdminHandler) UnlockWallet(c *gin.Context) { h.setWalletLocked(c, false) }

func (h *AdminHandler) setWalletLocked(c *gin.Context, locked bool) {
	admin, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid user id"))
		return
	}

	if err := h.adminSvc.SetWalletLocked(c.Request.Context(), admin, userID, locked); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"user_id": userID, "is_locked": locked})
}

// SyncPlans handles POST /api/v1/admin/plans/sync.
func (h *AdminHandler) SyncPlans(c *gin.Context) {
	admin, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	result, err := h.adminSvc.SyncPlans(c.Request.Context(), admin)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
