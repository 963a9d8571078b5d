package handler

import (
	"strings"

	"vtu-backend/internal/adapter/http/dto"
	"vtu-backend/internal/adapter/http/middleware"
	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/apperror"
	"vtu-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// PurchaseHandler handles data and bill purchases and the plan catalog.
type PurchaseHandler struct {
	settlementSvc ports.SettlementService
	catalogSvc    ports.CatalogService
}

// NewPurchaseHandler creates a new PurchaseHandler.
func NewPurchaseHandler(settlementSvc ports.SettlementService, catalogSvc ports.CatalogService) *PurchaseHandler {
	return &PurchaseHandler{settlementSvc: settlementSvc, catalogSvc: catalogSvc}
}

// ListPlans handles GET /api/v1/data/plans.
func (h *PurchaseHandler) ListPlans(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	plans, err := h.catalogSvc.ListPlans(c.Request.Context(), actor.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, plans)
}

// PurchaseData handles POST /api/v1/data/purchase.
func (h *PurchaseHandler) PurchaseData(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DataPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.settlementSvc.PurchaseData(c.Request.Context(), actor, ports.DataPurchaseRequest{
		PlanCode:     strings.TrimSpace(req.PlanCode),
		MobileNumber: dto.NormalizePhone(req.MobileNumber),
		Ported:       req.Ported,
	})
	writePurchase(c, result, err)
}

// ServiceCatalog handles GET /api/v1/services/catalog.
func (h *PurchaseHandler) ServiceCatalog(c *gin.Context) {
	catalog := make(map[string][]string, len(domain.ServiceCatalog))
	for txType, providers := range domain.ServiceCatalog {
		catalog[string(txType)] = providers
	}
	response.OK(c, gin.H{
		"services":       catalog,
		"exam_pin_price": domain.ExamPinUnitPrice.StringFixed(domain.MoneyPlaces),
		"exam_quantity":  gin.H{"min": domain.MinExamQuantity, "max": domain.MaxExamQuantity},
	})
}

// BuyAirtime handles POST /api/v1/services/airtime.
func (h *PurchaseHandler) BuyAirtime(c *gin.Context) {
	var req dto.AirtimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	h.purchaseService(c, ports.ServicePurchaseRequest{
		TxType:   domain.TxTypeAirtime,
		Provider: req.Network,
		Customer: dto.NormalizePhone(req.Phone),
		Amount:   req.Amount,
	})
}

// BuyCable handles POST /api/v1/services/cable.
func (h *PurchaseHandler) BuyCable(c *gin.Context) {
	var req dto.CableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	h.purchaseService(c, ports.ServicePurchaseRequest{
		TxType:      domain.TxTypeCable,
		Provider:    req.Provider,
		Customer:    req.SmartcardNumber,
		ProductCode: req.PackageCode,
		Amount:      req.Amount,
	})
}

// BuyElectricity handles POST /api/v1/services/electricity.
func (h *PurchaseHandler) BuyElectricity(c *gin.Context) {
	var req dto.ElectricityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	h.purchaseService(c, ports.ServicePurchaseRequest{
		TxType:      domain.TxTypeElectricity,
		Provider:    req.Disco,
		Customer:    req.MeterNumber,
		ProductCode: req.MeterType,
		Amount:      req.Amount,
	})
}

// BuyExam handles POST /api/v1/services/exam.
func (h *PurchaseHandler) BuyExam(c *gin.Context) {
	var req dto.ExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	h.purchaseService(c, ports.ServicePurchaseRequest{
		TxType:   domain.TxTypeExam,
		Provider: req.ExamType,
		Customer: dto.NormalizePhone(req.Phone),
		Quantity: req.Quantity,
	})
}

func (h *PurchaseHandler) purchaseService(c *gin.Context, req ports.ServicePurchaseRequest) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	result, err := h.settlementSvc.PurchaseService(c.Request.Context(), actor, req)
	writePurchase(c, result, err)
}

// writePurchase maps a settled purchase to 200 and a still-pending one to 202.
// A refunded purchase is a completed request, so it is a 200 as well.
func writePurchase(c *gin.Context, result *ports.PurchaseResult, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}

	out := dto.PurchaseResponse{
		Reference: result.Reference,
		Status:    string(result.Status),
		Message:   result.Message,
		Amount:    result.Amount,
	}
	if result.Transaction != nil {
		out.Meta = result.Transaction.Meta
	}

	if result.Status == domain.TxStatusPending {
		response.Accepted(c, out)
		return
	}
	response.OK(c, out)
}
