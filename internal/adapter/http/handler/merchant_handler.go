package handler

import (
	"settlement-ledger/internal/adapter/http/dto"
	"settlement-ledger/internal/adapter/http/middleware"
	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/pkg/apperror"
	"settlement-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// MerchantHandler handles merchant registration and payment requests.
type MerchantHandler struct {
	merchantSvc ports.MerchantService
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(merchantSvc ports.MerchantService) *MerchantHandler {
	return &MerchantHandler{merchantSvc: merchantSvc}
}

// InitializeMerchant handles POST /api/v1/merchants.
func (h *MerchantHandler) InitializeMerchant(c *gin.Context) {
	var req dto.InitializeMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	merchant, err := h.merchantSvc.InitializeMerchant(c.Request.Context(), ports.InitializeMerchantInput{
		Signers:     middleware.Signers(c),
		Owner:       req.Owner,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, merchant.Address.String())
	response.Created(c, merchant)
}

// CreateRequest handles POST /api/v1/merchants/me/requests. The merchant is
// the one owned by the signer unless the body names another owner.
func (h *MerchantHandler) CreateRequest(c *gin.Context) {
	signer, ok := middleware.Signer(c)
	if !ok {
		response.Error(c, apperror.ErrMissingSigner())
		return
	}

	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	owner := signer
	if req.Owner != nil {
		owner = *req.Owner
	}

	pr, err := h.merchantSvc.CreateRequest(c.Request.Context(), ports.CreateRequestInput{
		Signers:   middleware.Signers(c),
		Owner:     owner,
		RequestID: req.RequestID,
		Amount:    req.Amount,
		Asset:     req.Asset,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, pr.Address.String())
	response.Created(c, pr)
}

// GetMerchant handles GET /api/v1/merchants/:address.
func (h *MerchantHandler) GetMerchant(c *gin.Context) {
	addr, ok := pathAddress(c)
	if !ok {
		return
	}
	merchant, err := h.merchantSvc.GetMerchant(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchant)
}

// GetRequest handles GET /api/v1/requests/:address.
func (h *MerchantHandler) GetRequest(c *gin.Context) {
	addr, ok := pathAddress(c)
	if !ok {
		return
	}
	pr, err := h.merchantSvc.GetRequest(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, pr)
}

// pathAddress parses the :address route parameter, writing a REQ_001
// response when it is not a bech32 address.
func pathAddress(c *gin.Context) (domain.Address, bool) {
	addr, err := domain.ParseAddress(c.Param("address"))
	if err != nil {
		response.Error(c, apperror.Validation("address: "+err.Error()))
		return domain.Address{}, false
	}
	return addr, true
}
