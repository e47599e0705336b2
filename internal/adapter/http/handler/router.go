package handler

import (
	"net/http"

	"settlement-ledger/internal/adapter/http/middleware"
	redisStore "settlement-ledger/internal/adapter/storage/redis"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	MerchantSvc    ports.MerchantService
	SettlementSvc  ports.SettlementService
	RefundSvc      ports.RefundService
	HoldingSvc     ports.HoldingService
	ReportingSvc   ports.ReportingService
	OperatorSvc    ports.OperatorAuthService
	Verifier       ports.SignatureVerifier
	NonceStore     ports.NonceStore
	TokenSvc       ports.TokenService
	SignerAuth     middleware.SignerAuthConfig
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	RateLimits     middleware.RateLimits      // nil = DefaultRateLimits
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Metrics        *observability.Metrics
	MetricsPath    string // empty = not exposed
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Deep health check over the substrate and Redis
	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.MetricsPath != "" {
		r.GET(deps.MetricsPath, gin.WrapH(deps.Metrics.Handler()))
	}

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	limits := deps.RateLimits
	if limits == nil {
		limits = middleware.DefaultRateLimits()
	}
	rl := func(group middleware.RouteGroup) gin.HandlerFunc {
		return limits.Middleware(deps.RateLimitStore, group, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	merchantHandler := NewMerchantHandler(deps.MerchantSvc)
	paymentHandler := NewPaymentHandler(deps.SettlementSvc, deps.RefundSvc)
	dashboardHandler := NewDashboardHandler(deps.ReportingSvc)

	// --- Public reads ---
	v1.GET("/merchants/:address", rl(middleware.GroupQueries), merchantHandler.GetMerchant)
	v1.GET("/merchants/:address/stats", rl(middleware.GroupQueries), dashboardHandler.GetStats)
	v1.GET("/merchants/:address/receipts", rl(middleware.GroupQueries), dashboardHandler.RecentReceipts)
	v1.GET("/requests/:address", rl(middleware.GroupQueries), merchantHandler.GetRequest)
	v1.GET("/receipts/:address", rl(middleware.GroupQueries), paymentHandler.GetReceipt)
	v1.GET("/events", rl(middleware.GroupQueries), paymentHandler.ListEvents)

	// --- Signed routes ---
	signed := middleware.SignerAuth(deps.Verifier, deps.NonceStore, deps.SignerAuth, deps.Logger)

	v1.POST("/merchants", rl(middleware.GroupMerchants), signed, merchantHandler.InitializeMerchant)
	v1.POST("/merchants/me/requests", rl(middleware.GroupMerchants), signed, merchantHandler.CreateRequest)

	payments := v1.Group("/payments", rl(middleware.GroupPayments), signed)
	{
		payments.POST("", paymentHandler.Pay)
		payments.POST("/split", paymentHandler.PayWithSplit)
	}
	v1.POST("/receipts/:address/refunds", rl(middleware.GroupRefunds), signed, paymentHandler.Refund)

	// --- Operator routes ---
	authHandler := NewAuthHandler(deps.OperatorSvc)
	v1.POST("/operators/token", rl(middleware.GroupOperatorToken), authHandler.IssueToken)

	operator := middleware.OperatorAuth(deps.TokenSvc, ports.RoleOperator, deps.Logger)
	holdingHandler := NewHoldingHandler(deps.HoldingSvc)
	holdings := v1.Group("/holdings", operator, rl(middleware.GroupHoldings))
	{
		holdings.POST("", holdingHandler.OpenHolding)
		holdings.GET("/:address", holdingHandler.GetHolding)
		holdings.POST("/:address/deposits", holdingHandler.Deposit)
	}

	return r
}

// Instrument wraps the engine with OpenTelemetry HTTP server spans.
func Instrument(engine http.Handler) http.Handler {
	return otelhttp.NewHandler(engine, "settlement-ledger",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
