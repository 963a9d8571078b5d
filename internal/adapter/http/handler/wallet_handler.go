package handler

import (
	"io"
	"strings"

	"vtu-backend/internal/adapter/gateway"
	"vtu-backend/internal/adapter/http/dto"
	"vtu-backend/internal/adapter/http/middleware"
	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/apperror"
	"vtu-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

const ledgerPageSize = 50

// WalletHandler handles balance, ledger and funding endpoints.
type WalletHandler struct {
	walletSvc  ports.WalletService
	fundingSvc ports.FundingService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, fundingSvc ports.FundingService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, fundingSvc: fundingSvc}
}

// GetBalance handles GET /api/v1/wallet/me.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.walletSvc.GetOrCreate(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletResponse{
		Balance:  wallet.Balance,
		IsLocked: wallet.IsLocked,
		Currency: "NGN",
	})
}

// GetLedger handles GET /api/v1/wallet/ledger.
func (h *WalletHandler) GetLedger(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	entries, err := h.walletSvc.Ledger(c.Request.Context(), actor.UserID, ledgerPageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// Fund handles POST /api/v1/wallet/fund.
func (h *WalletHandler) Fund(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	checkout, err := h.fundingSvc.Fund(c.Request.Context(), actor, ports.FundRequest{
		Amount:      req.Amount,
		CallbackURL: strings.TrimSpace(req.CallbackURL),
		Gateway:     req.Gateway,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, checkout)
}

// Verify handles GET /api/v1/wallet/verify/:gateway/:reference.
func (h *WalletHandler) Verify(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	result, err := h.fundingSvc.Verify(c.Request.Context(), actor, c.Param("gateway"), c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// PaystackWebhook handles POST /api/v1/wallet/paystack/webhook.
func (h *WalletHandler) PaystackWebhook(c *gin.Context) {
	h.webhook(c, gateway.PaystackName, "x-paystack-signature")
}

// MonnifyWebhook handles POST /api/v1/wallet/monnify/webhook.
func (h *WalletHandler) MonnifyWebhook(c *gin.Context) {
	h.webhook(c, gateway.MonnifyName, "monnify-signature")
}

// webhook verifies the signature over the raw body. Once the signature is
// good the gateway always gets a 200 so it stops redelivering.
func (h *WalletHandler) webhook(c *gin.Context, gatewayName, signatureHeader string) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	if err := h.fundingSvc.HandleWebhook(c.Request.Context(), gatewayName, body, c.GetHeader(signatureHeader)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"status": "ok"})
}
