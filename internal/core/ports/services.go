package ports

import (
	"context"
	"time"

	"settlement-ledger/internal/core/domain"
)

// Clock supplies the current unix time in seconds.
type Clock interface {
	Now() int64
}

// TransferRequest moves Amount from one holding to another on behalf of
// Authority, which must own From.
type TransferRequest struct {
	From      domain.Address
	To        domain.Address
	Authority domain.Identity
	Amount    uint64
}

// AssetTransferer performs value transfers inside an atomic unit, so a failed
// unit also undoes its transfers.
type AssetTransferer interface {
	Transfer(ctx context.Context, u Unit, req TransferRequest) error
}

// EventPublisher delivers committed events to an observer. Delivery is
// best-effort and never affects the unit that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, ev *domain.Event) error
	Name() string
}

// RecordCache is a read-through cache for immutable records.
type RecordCache interface {
	Get(ctx context.Context, addr domain.Address) (*domain.Record, error) // nil on miss
	Set(ctx context.Context, rec *domain.Record, ttl time.Duration) error
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, signer string, nonce string, ttl time.Duration) (bool, error)
}

// SignatureVerifier checks request signatures made with a signer's ed25519 key.
type SignatureVerifier interface {
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
	Verify(signer domain.Identity, payload string, signature string) bool
}

// RoleOperator is the token role allowed to manage holding accounts.
const RoleOperator = "operator"

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(subject string, role string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	ID        string
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// HashService hashes and verifies operator keys.
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, encodedHash string) (bool, error)
}

// OperatorAuthService exchanges operator credentials for a JWT.
type OperatorAuthService interface {
	Login(ctx context.Context, name string, key string) (string, time.Time, error)
}

// AuditService records audit entries without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// MerchantService registers merchants and publishes their payment requests.
type MerchantService interface {
	InitializeMerchant(ctx context.Context, in InitializeMerchantInput) (*domain.Merchant, error)
	CreateRequest(ctx context.Context, in CreateRequestInput) (*domain.PaymentRequest, error)
	GetMerchant(ctx context.Context, addr domain.Address) (*domain.Merchant, error)
	GetRequest(ctx context.Context, addr domain.Address) (*domain.PaymentRequest, error)
}

// InitializeMerchantInput holds validated input for merchant registration.
type InitializeMerchantInput struct {
	Signers     domain.Signers
	Owner       domain.Identity
	DisplayName string
}

// CreateRequestInput holds validated input for publishing a payment request.
type CreateRequestInput struct {
	Signers   domain.Signers
	Owner     domain.Identity // merchant owner
	RequestID string
	Amount    uint64
	Asset     domain.AssetID
	ExpiresAt *int64
}

// SettlementService settles payments and exposes their receipts.
type SettlementService interface {
	Pay(ctx context.Context, in PayInput) (*SettlementResult, error)
	PayWithSplit(ctx context.Context, in PayWithSplitInput) (*SettlementResult, error)
	GetReceipt(ctx context.Context, addr domain.Address) (*domain.PaymentReceipt, error)
	ListEvents(ctx context.Context, after uint64, limit int) ([]domain.Event, error)
}

// PayInput holds validated input for a settlement.
type PayInput struct {
	Signers         domain.Signers
	Payer           domain.Identity
	Merchant        domain.Address
	Request         *domain.Address // nil for ad hoc payments
	ReceiptID       string
	Amount          uint64
	Asset           domain.AssetID
	PayerHolding    domain.Address
	MerchantHolding domain.Address
}

// PayWithSplitInput adds the platform fee leg to a settlement.
type PayWithSplitInput struct {
	PayInput
	PlatformHolding domain.Address
	FeeBps          uint32
}

// SettlementResult is the outcome of a committed settlement.
type SettlementResult struct {
	Receipt        *domain.PaymentReceipt `json:"receipt"`
	FeeAmount      uint64                 `json:"fee_amount"`
	MerchantAmount uint64                 `json:"merchant_amount"`
	Event          *domain.Event          `json:"event"`
}

// RefundService returns settled value to payers.
type RefundService interface {
	Refund(ctx context.Context, in RefundInput) (*RefundResult, error)
	RefundPartial(ctx context.Context, in RefundPartialInput) (*RefundResult, error)
}

// RefundInput holds validated input for a full refund.
type RefundInput struct {
	Signers         domain.Signers
	MerchantOwner   domain.Identity
	Receipt         domain.Address
	MerchantHolding domain.Address
	PayerHolding    domain.Address
}

// RefundPartialInput refunds Amount instead of the receipt amount.
type RefundPartialInput struct {
	RefundInput
	Amount uint64
}

// RefundResult is the outcome of a committed refund.
type RefundResult struct {
	Receipt *domain.PaymentReceipt `json:"receipt"`
	Amount  uint64                 `json:"amount"`
	Partial bool                   `json:"partial"`
}

// HoldingService is the operator surface of the holding vault.
type HoldingService interface {
	OpenHolding(ctx context.Context, owner domain.Identity, asset domain.AssetID) (*domain.HoldingAccount, error)
	Deposit(ctx context.Context, addr domain.Address, amount uint64) (*domain.HoldingAccount, error)
	GetHolding(ctx context.Context, addr domain.Address) (*domain.HoldingAccount, error)
}

// ReportingService summarizes a merchant's settled payments from the event
// log.
type ReportingService interface {
	// MerchantStats aggregates payments over period: day, week, month or
	// all. An empty period means all.
	MerchantStats(ctx context.Context, merchant domain.Address, period string) (*PaymentStats, error)
	RecentReceipts(ctx context.Context, merchant domain.Address, limit int) ([]domain.Event, error)
}
