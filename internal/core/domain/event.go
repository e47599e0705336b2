package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an entry of the fact stream.
type EventType string

const EventPaymentCompleted EventType = "payment.completed"

// PaymentCompleted is the fact emitted for every committed settlement.
type PaymentCompleted struct {
	Receipt   Address  `json:"receipt"`
	Merchant  Address  `json:"merchant"`
	Payer     Identity `json:"payer"`
	Amount    uint64   `json:"amount"`
	Asset     AssetID  `json:"asset"`
	Timestamp int64    `json:"timestamp"`
}

// Event is an entry of the append-only fact stream. Sequence is assigned by
// the event log when the entry is appended.
type Event struct {
	Sequence  uint64           `json:"sequence"`
	ID        uuid.UUID        `json:"id"`
	Type      EventType        `json:"type"`
	Payload   PaymentCompleted `json:"payload"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewPaymentCompleted builds the event for a freshly written receipt.
func NewPaymentCompleted(r *PaymentReceipt, now time.Time) *Event {
	return &Event{
		ID:   uuid.New(),
		Type: EventPaymentCompleted,
		Payload: PaymentCompleted{
			Receipt:   r.Address,
			Merchant:  r.Merchant,
			Payer:     r.Payer,
			Amount:    r.Amount,
			Asset:     r.Asset,
			Timestamp: r.Timestamp,
		},
		CreatedAt: now,
	}
}
