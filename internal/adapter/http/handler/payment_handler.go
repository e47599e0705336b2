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

const defaultEventsPage = 50

// PaymentHandler handles settlement, refund and receipt endpoints.
type PaymentHandler struct {
	settlementSvc ports.SettlementService
	refundSvc     ports.RefundService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(settlementSvc ports.SettlementService, refundSvc ports.RefundService) *PaymentHandler {
	return &PaymentHandler{settlementSvc: settlementSvc, refundSvc: refundSvc}
}

// Pay handles POST /api/v1/payments.
func (h *PaymentHandler) Pay(c *gin.Context) {
	var req dto.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.settlementSvc.Pay(c.Request.Context(), toPayInput(c, req))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.Receipt.Address.String())
	response.Created(c, result)
}

// PayWithSplit handles POST /api/v1/payments/split.
func (h *PaymentHandler) PayWithSplit(c *gin.Context) {
	var req dto.PayWithSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.settlementSvc.PayWithSplit(c.Request.Context(), ports.PayWithSplitInput{
		PayInput:        toPayInput(c, req.PayRequest),
		PlatformHolding: req.PlatformHolding,
		FeeBps:          req.FeeBps,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.Receipt.Address.String())
	response.Created(c, result)
}

// Refund handles POST /api/v1/receipts/:address/refunds. A body amount makes
// it a partial refund.
func (h *PaymentHandler) Refund(c *gin.Context) {
	signer, ok := middleware.Signer(c)
	if !ok {
		response.Error(c, apperror.ErrMissingSigner())
		return
	}
	receipt, ok := pathAddress(c)
	if !ok {
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	in := ports.RefundInput{
		Signers:         middleware.Signers(c),
		MerchantOwner:   signer,
		Receipt:         receipt,
		MerchantHolding: req.MerchantHolding,
		PayerHolding:    req.PayerHolding,
	}

	var (
		result *ports.RefundResult
		err    error
	)
	if req.Amount != nil {
		result, err = h.refundSvc.RefundPartial(c.Request.Context(), ports.RefundPartialInput{RefundInput: in, Amount: *req.Amount})
	} else {
		result, err = h.refundSvc.Refund(c.Request.Context(), in)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// GetReceipt handles GET /api/v1/receipts/:address.
func (h *PaymentHandler) GetReceipt(c *gin.Context) {
	addr, ok := pathAddress(c)
	if !ok {
		return
	}
	receipt, err := h.settlementSvc.GetReceipt(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, receipt)
}

// ListEvents handles GET /api/v1/events.
func (h *PaymentHandler) ListEvents(c *gin.Context) {
	var q dto.EventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultEventsPage
	}

	events, err := h.settlementSvc.ListEvents(c.Request.Context(), q.After, q.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	next := q.After
	if n := len(events); n > 0 {
		next = events[n-1].Sequence
	}
	response.OK(c, dto.EventsResponse{Events: events, Next: next})
}

func toPayInput(c *gin.Context, req dto.PayRequest) ports.PayInput {
	in := ports.PayInput{
		Signers:         middleware.Signers(c),
		Payer:           req.Payer,
		Merchant:        req.Merchant,
		ReceiptID:       req.ReceiptID,
		Amount:          req.Amount,
		Asset:           req.Asset,
		PayerHolding:    req.PayerHolding,
		MerchantHolding: req.MerchantHolding,
	}
	// the zero address means "no request" on the wire too
	if req.Request != nil && *req.Request != (domain.Address{}) {
		in.Request = req.Request
	}
	return in
}
