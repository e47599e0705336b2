package ports

import (
	"context"
	"time"

	"settlement-ledger/internal/core/domain"

	"github.com/holiman/uint256"
)

// RecordStore persists addressable records. Records are write-once: there is
// no update and no delete.
type RecordStore interface {
	// Create writes rec at rec.Address. Returns domain.ErrAddressOccupied when
	// the address already holds data.
	Create(ctx context.Context, rec *domain.Record) error
	// Get returns nil, nil when nothing lives at addr.
	Get(ctx context.Context, addr domain.Address) (*domain.Record, error)
}

// HoldingStore persists holding accounts. Inside an atomic unit, Get locks the
// row for the remainder of the unit.
type HoldingStore interface {
	Create(ctx context.Context, h *domain.HoldingAccount) error
	Get(ctx context.Context, addr domain.Address) (*domain.HoldingAccount, error)
	UpdateBalance(ctx context.Context, addr domain.Address, balance uint64) error
}

// EventLog is the append-only log of settlement facts.
type EventLog interface {
	// Append assigns ev.Sequence.
	Append(ctx context.Context, ev *domain.Event) error
	// List returns up to limit events with Sequence > after, oldest first.
	List(ctx context.Context, after uint64, limit int) ([]domain.Event, error)
	// ListByMerchant returns up to limit payment events of merchant, newest
	// first.
	ListByMerchant(ctx context.Context, merchant domain.Address, limit int) ([]domain.Event, error)
	// MerchantStats aggregates the payment events of merchant created at or
	// after since. A zero since covers the whole log.
	MerchantStats(ctx context.Context, merchant domain.Address, since time.Time) (*PaymentStats, error)
}

// AssetVolume is the settled total of one asset.
type AssetVolume struct {
	Asset    domain.AssetID
	Receipts int64
	Volume   *uint256.Int
}

// PaymentStats aggregates a merchant's completed payments. Volumes of
// different assets are never summed.
type PaymentStats struct {
	Receipts int64
	Assets   []AssetVolume
}

// Unit is a view of the substrate. Writes through a unit handed out by
// Substrate.Atomically become visible all at once on commit, or not at all.
type Unit interface {
	Records() RecordStore
	Holdings() HoldingStore
	Events() EventLog
}

// Substrate executes atomic units of work.
type Substrate interface {
	// Atomically runs fn inside one unit. Any error returned by fn discards
	// every write made through the unit.
	Atomically(ctx context.Context, fn func(ctx context.Context, u Unit) error) error
	// Reader returns a unit for queries outside any atomic unit. Writes through
	// it fail with domain.ErrReadOnlyUnit.
	Reader() Unit
}

// AuditRepository persists audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}
