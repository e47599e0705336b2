package ports

import "context"

//go:generate mockgen -destination=mocks/mocks.go -package=mocks settlement-ledger/internal/core/ports AssetTransferer,AuditRepository,AuditService,Clock,EventPublisher,HashService,HealthChecker,HoldingService,MerchantService,NonceStore,OperatorAuthService,RecordCache,RefundService,ReportingService,SettlementService,SignatureVerifier,TokenService

// HealthChecker is one dependency behind GET /health.
type HealthChecker interface {
	// Ping returns nil when the dependency can serve ledger traffic.
	Ping(ctx context.Context) error
	Name() string
}
