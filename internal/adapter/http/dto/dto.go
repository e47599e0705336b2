package dto

import (
	"time"

	"settlement-ledger/internal/core/domain"
)

// ==================== Merchant DTOs ====================

// InitializeMerchantRequest is the body of POST /api/v1/merchants.
type InitializeMerchantRequest struct {
	Owner       domain.Identity `json:"owner" binding:"required"`
	DisplayName string          `json:"display_name" binding:"omitempty,max=64,printable"`
}

// CreateRequestRequest is the body of POST /api/v1/merchants/me/requests.
// Owner defaults to the request signer.
type CreateRequestRequest struct {
	Owner     *domain.Identity `json:"owner"`
	RequestID string           `json:"request_id"`
	Amount    uint64           `json:"amount"`
	Asset     domain.AssetID   `json:"asset" binding:"required"`
	ExpiresAt *int64           `json:"expires_at"`
}

// ==================== Payment DTOs ====================

// PayRequest is the body of POST /api/v1/payments.
type PayRequest struct {
	Payer           domain.Identity `json:"payer" binding:"required"`
	Merchant        domain.Address  `json:"merchant" binding:"required"`
	Request         *domain.Address `json:"request"`
	ReceiptID       string          `json:"receipt_id"`
	Amount          uint64          `json:"amount"`
	Asset           domain.AssetID  `json:"asset" binding:"required"`
	PayerHolding    domain.Address  `json:"payer_holding" binding:"required"`
	MerchantHolding domain.Address  `json:"merchant_holding" binding:"required"`
}

// PayWithSplitRequest is the body of POST /api/v1/payments/split.
type PayWithSplitRequest struct {
	PayRequest
	PlatformHolding domain.Address `json:"platform_holding" binding:"required"`
	FeeBps          uint32         `json:"fee_bps"`
}

// RefundRequest is the body of POST /api/v1/receipts/:address/refunds.
// A present Amount asks for a partial refund.
type RefundRequest struct {
	MerchantHolding domain.Address `json:"merchant_holding" binding:"required"`
	PayerHolding    domain.Address `json:"payer_holding" binding:"required"`
	Amount          *uint64        `json:"amount"`
}

// EventsQuery holds query params for GET /api/v1/events.
type EventsQuery struct {
	After uint64 `form:"after"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// EventsResponse is one page of the event log.
type EventsResponse struct {
	Events []domain.Event `json:"events"`
	Next   uint64         `json:"next"` // pass as ?after= to continue
}

// ==================== Dashboard DTOs ====================

type AssetVolumeResponse struct {
	Asset    domain.AssetID `json:"asset"`
	Receipts int64          `json:"receipts"`
	Volume   string         `json:"volume"` // decimal; may exceed 2^64
}

type DashboardStatsResponse struct {
	Merchant domain.Address        `json:"merchant"`
	Period   string                `json:"period"`
	Receipts int64                 `json:"receipts"`
	Assets   []AssetVolumeResponse `json:"assets"`
}

// RecentReceiptsResponse lists payment events, newest first.
type RecentReceiptsResponse struct {
	Merchant domain.Address `json:"merchant"`
	Receipts []domain.Event `json:"receipts"`
}

// ==================== Holding DTOs ====================

type OpenHoldingRequest struct {
	Owner domain.Identity `json:"owner" binding:"required"`
	Asset domain.AssetID  `json:"asset" binding:"required"`
}

type DepositRequest struct {
	Amount uint64 `json:"amount"`
}

// ==================== Operator DTOs ====================

type OperatorTokenRequest struct {
	Name string `json:"name" binding:"required,operator_name"`
	Key  string `json:"key" binding:"required,max=256"`
}

type OperatorTokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiresIn   int64     `json:"expires_in"` // seconds
}
