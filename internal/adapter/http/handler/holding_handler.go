package handler

import (
	"settlement-ledger/internal/adapter/http/dto"
	"settlement-ledger/internal/adapter/http/middleware"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/pkg/apperror"
	"settlement-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// HoldingHandler exposes the operator surface of the holding vault.
type HoldingHandler struct {
	holdingSvc ports.HoldingService
}

// NewHoldingHandler creates a new HoldingHandler.
func NewHoldingHandler(holdingSvc ports.HoldingService) *HoldingHandler {
	return &HoldingHandler{holdingSvc: holdingSvc}
}

// OpenHolding handles POST /api/v1/holdings.
func (h *HoldingHandler) OpenHolding(c *gin.Context) {
	var req dto.OpenHoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	holding, err := h.holdingSvc.OpenHolding(c.Request.Context(), req.Owner, req.Asset)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, holding.Address.String())
	response.Created(c, holding)
}

// Deposit handles POST /api/v1/holdings/:address/deposits.
func (h *HoldingHandler) Deposit(c *gin.Context) {
	addr, ok := pathAddress(c)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	holding, err := h.holdingSvc.Deposit(c.Request.Context(), addr, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, holding)
}

// GetHolding handles GET /api/v1/holdings/:address.
func (h *HoldingHandler) GetHolding(c *gin.Context) {
	addr, ok := pathAddress(c)
	if !ok {
		return
	}
	holding, err := h.holdingSvc.GetHolding(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, holding)
}
