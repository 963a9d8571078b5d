package handler

import (
	"vtu-backend/internal/adapter/http/middleware"
	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/apperror"
	"vtu-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

const historyPageSize = 50

// TransactionHandler serves the caller's transaction history.
type TransactionHandler struct {
	reportingSvc ports.ReportingService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(reportingSvc ports.ReportingService) *TransactionHandler {
	return &TransactionHandler{reportingSvc: reportingSvc}
}

// ListMine handles GET /api/v1/transactions/me.
func (h *TransactionHandler) ListMine(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	txns, err := h.reportingSvc.ListTransactions(c.Request.Context(), actor.UserID, historyPageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, txns)
}

// GetByReference handles GET /api/v1/transactions/:reference.
func (h *TransactionHandler) GetByReference(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	txn, err := h.reportingSvc.GetTransaction(c.Request.Context(), actor, c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, txn)
}
