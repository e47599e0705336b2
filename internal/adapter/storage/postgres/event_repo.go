package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
)

// EventRepo implements ports.EventLog on a BIGSERIAL-ordered table.
type EventRepo struct {
	q        Querier
	readOnly bool
}

// NewEventRepo creates an EventRepo bound to q.
func NewEventRepo(q Querier) *EventRepo {
	return &EventRepo{q: q}
}

// Append inserts ev and stores the assigned sequence on it.
func (r *EventRepo) Append(ctx context.Context, ev *domain.Event) error {
	if r.readOnly {
		return domain.ErrReadOnlyUnit
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	query := `INSERT INTO ledger_events (id, type, payload, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING sequence`

	var seq int64
	if err := r.q.QueryRow(ctx, query, ev.ID, string(ev.Type), payload, ev.CreatedAt).Scan(&seq); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	ev.Sequence = uint64(seq)
	return nil
}

// List returns events after the given sequence, oldest first.
func (r *EventRepo) List(ctx context.Context, after uint64, limit int) ([]domain.Event, error) {
	query := `SELECT sequence, id, type, payload, created_at
		FROM ledger_events WHERE sequence > $1
		ORDER BY sequence ASC LIMIT $2`

	rows, err := r.q.Query(ctx, query, int64(after), limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByMerchant returns the merchant's payment events, newest first.
func (r *EventRepo) ListByMerchant(ctx context.Context, merchant domain.Address, limit int) ([]domain.Event, error) {
	query := `SELECT sequence, id, type, payload, created_at
		FROM ledger_events WHERE type = $1 AND payload->>'merchant' = $2
		ORDER BY sequence DESC LIMIT $3`

	rows, err := r.q.Query(ctx, query, string(domain.EventPaymentCompleted), merchant.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list merchant events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// MerchantStats sums payment amounts per asset. Amounts are summed as
// NUMERIC, so totals past 2^64 survive the round trip as decimal text.
func (r *EventRepo) MerchantStats(ctx context.Context, merchant domain.Address, since time.Time) (*ports.PaymentStats, error) {
	query := `SELECT payload->>'asset', COUNT(*), SUM((payload->>'amount')::NUMERIC)::TEXT
		FROM ledger_events
		WHERE type = $1 AND payload->>'merchant' = $2 AND created_at >= $3
		GROUP BY payload->>'asset'`

	rows, err := r.q.Query(ctx, query, string(domain.EventPaymentCompleted), merchant.String(), since)
	if err != nil {
		return nil, fmt.Errorf("merchant stats: %w", err)
	}
	defer rows.Close()

	stats := &ports.PaymentStats{}
	for rows.Next() {
		var (
			asset, volume string
			count         int64
		)
		if err := rows.Scan(&asset, &count, &volume); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		av := ports.AssetVolume{Receipts: count}
		if err := av.Asset.UnmarshalText([]byte(asset)); err != nil {
			return nil, fmt.Errorf("decode stats asset %q: %w", asset, err)
		}
		if av.Volume, err = uint256.FromDecimal(volume); err != nil {
			return nil, fmt.Errorf("decode stats volume %q: %w", volume, err)
		}
		stats.Receipts += count
		stats.Assets = append(stats.Assets, av)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats rows: %w", err)
	}
	return stats, nil
}

func scanEvents(rows pgx.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var (
			ev      domain.Event
			seq     int64
			typ     string
			payload []byte
		)
		if err := rows.Scan(&seq, &ev.ID, &typ, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		if err := json.Unmarshal(payload, &ev.Payload); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", seq, err)
		}
		ev.Sequence = uint64(seq)
		ev.Type = domain.EventType(typ)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
