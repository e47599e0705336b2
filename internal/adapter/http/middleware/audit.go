package middleware

import (
	"encoding/json"
	"net/http"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type auditedRoute struct {
	action   domain.AuditAction
	resource string
}

// auditedRoutes lists the POST routes that leave an audit trail, keyed by
// the gin route pattern.
var auditedRoutes = map[string]auditedRoute{
	"/api/v1/merchants":                  {domain.AuditActionInitializeMerchant, "merchant"},
	"/api/v1/merchants/me/requests":      {domain.AuditActionCreateRequest, "payment_request"},
	"/api/v1/payments":                   {domain.AuditActionPay, "receipt"},
	"/api/v1/payments/split":             {domain.AuditActionPayWithSplit, "receipt"},
	"/api/v1/receipts/:address/refunds":  {domain.AuditActionRefund, "receipt"},
	"/api/v1/holdings":                   {domain.AuditActionOpenHolding, "holding"},
	"/api/v1/holdings/:address/deposits": {domain.AuditActionDeposit, "holding"},
	"/api/v1/operators/token":            {domain.AuditActionOperatorLogin, "operator"},
}

// AuditLog hands every successful audited write to auditSvc once the
// handler has answered. Failed requests leave no entry.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}
		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		entry := &domain.AuditLog{
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID(c),
			Operator:     c.GetString(CtxOperator),
			IPAddress:    c.ClientIP(),
		}
		if signer, ok := Signer(c); ok {
			entry.Signer = &signer
		}
		details, _ := json.Marshal(struct {
			RequestID string `json:"request_id,omitempty"`
			Path      string `json:"path"`
			Status    int    `json:"status"`
		}{c.GetString(response.RequestIDKey), c.Request.URL.Path, status})
		entry.Details = string(details)

		auditSvc.Log(c.Request.Context(), entry)
	}
}

// resourceID prefers what the handler recorded, then the :address param,
// then the operator name for logins.
func resourceID(c *gin.Context) string {
	if id := c.GetString(CtxResourceID); id != "" {
		return id
	}
	if addr := c.Param("address"); addr != "" {
		return addr
	}
	return c.GetString(CtxOperator)
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	if method != http.MethodPost {
		return "", ""
	}
	r, ok := auditedRoutes[route]
	if !ok {
		return "", ""
	}
	return r.action, r.resource
}
