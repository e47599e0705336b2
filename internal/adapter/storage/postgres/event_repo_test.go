package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"settlement-ledger/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent() *domain.Event {
	receipt := &domain.PaymentReceipt{Amount: 1000, Timestamp: 1_700_000_000}
	receipt.Address[0] = 9
	receipt.Merchant[0] = 3
	receipt.Payer[0] = 4
	return domain.NewPaymentCompleted(receipt, time.Now().UTC().Truncate(time.Microsecond))
}

func TestEventRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	ev := newTestEvent()

	mock.ExpectQuery("INSERT INTO ledger_events .+ RETURNING sequence").
		WithArgs(ev.ID, "payment.completed", pgxmock.AnyArg(), ev.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"sequence"}).AddRow(int64(42)))

	err = repo.Append(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), ev.Sequence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	ev := newTestEvent()
	payload, err := json.Marshal(ev.Payload)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .+ FROM ledger_events WHERE sequence").
		WithArgs(int64(10), 50).
		WillReturnRows(pgxmock.NewRows([]string{"sequence", "id", "type", "payload", "created_at"}).
			AddRow(int64(11), ev.ID, "payment.completed", payload, ev.CreatedAt))

	events, err := repo.List(context.Background(), 10, 50)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(11), events[0].Sequence)
	assert.Equal(t, ev.ID, events[0].ID)
	assert.Equal(t, domain.EventPaymentCompleted, events[0].Type)
	assert.Equal(t, ev.Payload, events[0].Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_ListByMerchant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	older, newer := newTestEvent(), newTestEvent()
	merchant := older.Payload.Merchant
	cols := []string{"sequence", "id", "type", "payload", "created_at"}
	rows := pgxmock.NewRows(cols)
	for i, ev := range []*domain.Event{newer, older} {
		payload, err := json.Marshal(ev.Payload)
		require.NoError(t, err)
		rows.AddRow(int64(8-i), ev.ID, "payment.completed", payload, ev.CreatedAt)
	}

	mock.ExpectQuery("FROM ledger_events WHERE type = .+ ORDER BY sequence DESC").
		WithArgs("payment.completed", merchant.String(), 10).
		WillReturnRows(rows)

	events, err := repo.ListByMerchant(context.Background(), merchant, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(8), events[0].Sequence)
	assert.Equal(t, newer.ID, events[0].ID)
	assert.Equal(t, older.ID, events[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_MerchantStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	merchant := domain.Address{3}
	assetA, assetB := domain.AssetID{1}, domain.AssetID{2}
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT payload->>'asset', COUNT.+ GROUP BY").
		WithArgs("payment.completed", merchant.String(), since).
		WillReturnRows(pgxmock.NewRows([]string{"asset", "count", "volume"}).
			AddRow(assetA.String(), int64(2), "1500").
			AddRow(assetB.String(), int64(3), "36893488147419103230"))

	stats, err := repo.MerchantStats(context.Background(), merchant, since)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Receipts)
	require.Len(t, stats.Assets, 2)
	assert.Equal(t, assetA, stats.Assets[0].Asset)
	assert.Equal(t, int64(2), stats.Assets[0].Receipts)
	assert.Equal(t, "1500", stats.Assets[0].Volume.Dec())
	// two max-uint64 payments do not wrap
	assert.Equal(t, "36893488147419103230", stats.Assets[1].Volume.Dec())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_MerchantStats_NoPayments(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("GROUP BY").
		WithArgs("payment.completed", pgxmock.AnyArg(), time.Time{}).
		WillReturnRows(pgxmock.NewRows([]string{"asset", "count", "volume"}))

	stats, err := NewEventRepo(mock).MerchantStats(context.Background(), domain.Address{3}, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, stats.Receipts)
	assert.Empty(t, stats.Assets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_MerchantStats_BadVolume(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("GROUP BY").
		WillReturnRows(pgxmock.NewRows([]string{"asset", "count", "volume"}).
			AddRow(domain.AssetID{1}.String(), int64(1), "-4"))

	_, err = NewEventRepo(mock).MerchantStats(context.Background(), domain.Address{3}, time.Time{})
	assert.ErrorContains(t, err, "decode stats volume")
}
