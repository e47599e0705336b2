package handler

import (
	"time"

	"settlement-ledger/internal/adapter/http/dto"
	"settlement-ledger/internal/adapter/http/middleware"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/pkg/apperror"
	"settlement-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler exchanges operator credentials for bearer tokens.
type AuthHandler struct {
	authSvc ports.OperatorAuthService
}

func NewAuthHandler(authSvc ports.OperatorAuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// IssueToken handles POST /api/v1/operators/token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req dto.OperatorTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	token, expiresAt, err := h.authSvc.Login(c.Request.Context(), req.Name, req.Key)
	if err != nil {
		response.Error(c, err)
		return
	}
	// Later audit entries for this request name the operator.
	c.Set(middleware.CtxOperator, req.Name)

	c.Header("Cache-Control", "no-store")
	response.OK(c, dto.OperatorTokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	})
}
