package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionInitializeMerchant AuditAction = "INITIALIZE_MERCHANT"
	AuditActionCreateRequest      AuditAction = "CREATE_REQUEST"
	AuditActionPay                AuditAction = "PAY"
	AuditActionPayWithSplit       AuditAction = "PAY_WITH_SPLIT"
	AuditActionRefund             AuditAction = "REFUND"
	AuditActionOpenHolding        AuditAction = "OPEN_HOLDING"
	AuditActionDeposit            AuditAction = "DEPOSIT"
	AuditActionOperatorLogin      AuditAction = "OPERATOR_LOGIN"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Signer       *Identity   `json:"signer,omitempty"`
	Operator     string      `json:"operator,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
