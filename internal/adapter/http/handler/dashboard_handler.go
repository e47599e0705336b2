package handler

import (
	"strconv"

	"settlement-ledger/internal/adapter/http/dto"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// DashboardHandler serves per-merchant payment reports.
type DashboardHandler struct {
	reportingSvc ports.ReportingService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(reportingSvc ports.ReportingService) *DashboardHandler {
	return &DashboardHandler{reportingSvc: reportingSvc}
}

// GetStats handles GET /api/v1/merchants/:address/stats.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	merchant, ok := pathAddress(c)
	if !ok {
		return
	}

	period := c.DefaultQuery("period", "all")
	stats, err := h.reportingSvc.MerchantStats(c.Request.Context(), merchant, period)
	if err != nil {
		response.Error(c, err)
		return
	}

	assets := make([]dto.AssetVolumeResponse, 0, len(stats.Assets))
	for _, av := range stats.Assets {
		assets = append(assets, dto.AssetVolumeResponse{
			Asset:    av.Asset,
			Receipts: av.Receipts,
			Volume:   av.Volume.Dec(),
		})
	}
	response.OK(c, dto.DashboardStatsResponse{
		Merchant: merchant,
		Period:   period,
		Receipts: stats.Receipts,
		Assets:   assets,
	})
}

// RecentReceipts handles GET /api/v1/merchants/:address/receipts.
func (h *DashboardHandler) RecentReceipts(c *gin.Context) {
	merchant, ok := pathAddress(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	events, err := h.reportingSvc.RecentReceipts(c.Request.Context(), merchant, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.RecentReceiptsResponse{Merchant: merchant, Receipts: events})
}
