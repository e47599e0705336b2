package kv

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"

	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	prefixRecord  = "rec/"
	prefixHolding = "hold/"
	prefixEvent   = "evt/"
	metaEventSeq  = "meta/event-seq"
)

func recordKey(a domain.Address) []byte  { return append([]byte(prefixRecord), a[:]...) }
func holdingKey(a domain.Address) []byte { return append([]byte(prefixHolding), a[:]...) }

// eventKey sorts by sequence because the sequence is big-endian.
func eventKey(seq uint64) []byte {
	k := make([]byte, len(prefixEvent)+8)
	copy(k, prefixEvent)
	binary.BigEndian.PutUint64(k[len(prefixEvent):], seq)
	return k
}

// view is the key space a unit sees.
type view interface {
	get(key []byte) ([]byte, bool, error)
	put(key, value []byte) error
	writable() bool
	// pending returns events staged in this unit, oldest first.
	pending() []domain.Event
	committed() *leveldb.DB
}

func dbGet(db *leveldb.DB, key []byte) ([]byte, bool, error) {
	v, err := db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// readUnit sees committed state only.
type readUnit struct {
	db *leveldb.DB
}

func (r *readUnit) get(key []byte) ([]byte, bool, error) { return dbGet(r.db, key) }
func (r *readUnit) put(key, value []byte) error          { return domain.ErrReadOnlyUnit }
func (r *readUnit) writable() bool                       { return false }
func (r *readUnit) pending() []domain.Event              { return nil }
func (r *readUnit) committed() *leveldb.DB               { return r.db }

func (r *readUnit) Records() ports.RecordStore   { return recordStore{v: r} }
func (r *readUnit) Holdings() ports.HoldingStore { return holdingStore{v: r} }
func (r *readUnit) Events() ports.EventLog       { return eventLog{v: r} }

// stagedUnit overlays uncommitted writes on committed state.
type stagedUnit struct {
	db     *leveldb.DB
	writes map[string][]byte
	order  []string
	events []domain.Event
}

func newStagedUnit(db *leveldb.DB) *stagedUnit {
	return &stagedUnit{db: db, writes: make(map[string][]byte)}
}

func (u *stagedUnit) get(key []byte) ([]byte, bool, error) {
	if v, ok := u.writes[string(key)]; ok {
		return v, true, nil
	}
	return dbGet(u.db, key)
}

func (u *stagedUnit) put(key, value []byte) error {
	k := string(key)
	if _, ok := u.writes[k]; !ok {
		u.order = append(u.order, k)
	}
	u.writes[k] = value
	return nil
}

func (u *stagedUnit) writable() bool          { return true }
func (u *stagedUnit) pending() []domain.Event { return u.events }
func (u *stagedUnit) committed() *leveldb.DB  { return u.db }

func (u *stagedUnit) batch() *leveldb.Batch {
	b := new(leveldb.Batch)
	for _, k := range u.order {
		b.Put([]byte(k), u.writes[k])
	}
	return b
}

func (u *stagedUnit) Records() ports.RecordStore   { return recordStore{v: u} }
func (u *stagedUnit) Holdings() ports.HoldingStore { return holdingStore{v: u} }
func (u *stagedUnit) Events() ports.EventLog       { return eventLog{v: u} }

type recordStore struct{ v view }

// Create stores rec as its kind byte followed by the encoded payload.
func (s recordStore) Create(ctx context.Context, rec *domain.Record) error {
	if !s.v.writable() {
		return domain.ErrReadOnlyUnit
	}
	if err := rec.CheckSpace(); err != nil {
		return err
	}
	key := recordKey(rec.Address)
	_, exists, err := s.v.get(key)
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", domain.ErrAddressOccupied, rec.Address)
	}
	value := make([]byte, 0, 1+len(rec.Data))
	value = append(value, byte(rec.Kind))
	value = append(value, rec.Data...)
	return s.v.put(key, value)
}

func (s recordStore) Get(ctx context.Context, addr domain.Address) (*domain.Record, error) {
	raw, ok, err := s.v.get(recordKey(addr))
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	if !ok {
		return nil, nil
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty value at %s", domain.ErrMalformedRecord, addr)
	}
	data := append([]byte(nil), raw[1:]...)
	return &domain.Record{Address: addr, Kind: domain.RecordKind(raw[0]), Data: data}, nil
}

type holdingStore struct{ v view }

func (s holdingStore) Create(ctx context.Context, h *domain.HoldingAccount) error {
	if !s.v.writable() {
		return domain.ErrReadOnlyUnit
	}
	key := holdingKey(h.Address)
	_, exists, err := s.v.get(key)
	if err != nil {
		return fmt.Errorf("load holding: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", domain.ErrAddressOccupied, h.Address)
	}
	return s.store(key, h)
}

func (s holdingStore) Get(ctx context.Context, addr domain.Address) (*domain.HoldingAccount, error) {
	raw, ok, err := s.v.get(holdingKey(addr))
	if err != nil {
		return nil, fmt.Errorf("load holding: %w", err)
	}
	if !ok {
		return nil, nil
	}
	h := &domain.HoldingAccount{}
	if err := json.Unmarshal(raw, h); err != nil {
		return nil, fmt.Errorf("decode holding %s: %w", addr, err)
	}
	return h, nil
}

func (s holdingStore) UpdateBalance(ctx context.Context, addr domain.Address, balance uint64) error {
	if !s.v.writable() {
		return domain.ErrReadOnlyUnit
	}
	h, err := s.Get(ctx, addr)
	if err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("%w: %s", domain.ErrHoldingNotFound, addr)
	}
	h.Balance = balance
	h.UpdatedAt = time.Now().UTC()
	return s.store(holdingKey(addr), h)
}

func (s holdingStore) store(key []byte, h *domain.HoldingAccount) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode holding: %w", err)
	}
	return s.v.put(key, raw)
}

type eventLog struct{ v view }

func (l eventLog) Append(ctx context.Context, ev *domain.Event) error {
	if !l.v.writable() {
		return domain.ErrReadOnlyUnit
	}
	raw, ok, err := l.v.get([]byte(metaEventSeq))
	if err != nil {
		return fmt.Errorf("load event sequence: %w", err)
	}
	var seq uint64
	if ok {
		if len(raw) != 8 {
			return fmt.Errorf("corrupt event sequence")
		}
		seq = binary.BigEndian.Uint64(raw)
	}
	seq++

	ev.Sequence = seq
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	var next [8]byte
	binary.BigEndian.PutUint64(next[:], seq)
	if err := l.v.put(eventKey(seq), body); err != nil {
		return err
	}
	if err := l.v.put([]byte(metaEventSeq), next[:]); err != nil {
		return err
	}
	if u, ok := l.v.(*stagedUnit); ok {
		u.events = append(u.events, *ev)
	}
	return nil
}

// List walks committed events, then events staged in the same unit, which
// always carry higher sequences.
func (l eventLog) List(ctx context.Context, after uint64, limit int) ([]domain.Event, error) {
	if limit <= 0 || after == math.MaxUint64 {
		return nil, nil
	}

	rng := &util.Range{Start: eventKey(after + 1), Limit: util.BytesPrefix([]byte(prefixEvent)).Limit}
	iter := l.v.committed().NewIterator(rng, nil)
	defer iter.Release()

	events := make([]domain.Event, 0)
	for iter.Next() && len(events) < limit {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var ev domain.Event
		if err := json.Unmarshal(iter.Value(), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, ev)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	for _, ev := range l.v.pending() {
		if len(events) >= limit {
			break
		}
		if ev.Sequence > after {
			events = append(events, ev)
		}
	}
	return events, nil
}

// ListByMerchant walks the log backwards. There is no secondary index, so
// the walk is linear in the events newer than the oldest match returned.
func (l eventLog) ListByMerchant(ctx context.Context, merchant domain.Address, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	events := make([]domain.Event, 0)
	pending := l.v.pending()
	for i := len(pending) - 1; i >= 0 && len(events) < limit; i-- {
		if isMerchantPayment(pending[i], merchant) {
			events = append(events, pending[i])
		}
	}

	iter := l.v.committed().NewIterator(util.BytesPrefix([]byte(prefixEvent)), nil)
	defer iter.Release()
	for ok := iter.Last(); ok && len(events) < limit; ok = iter.Prev() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var ev domain.Event
		if err := json.Unmarshal(iter.Value(), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		if isMerchantPayment(ev, merchant) {
			events = append(events, ev)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (l eventLog) MerchantStats(ctx context.Context, merchant domain.Address, since time.Time) (*ports.PaymentStats, error) {
	byAsset := make(map[domain.AssetID]*ports.AssetVolume)
	var order []domain.AssetID
	add := func(ev domain.Event) {
		if !isMerchantPayment(ev, merchant) || ev.CreatedAt.Before(since) {
			return
		}
		av, ok := byAsset[ev.Payload.Asset]
		if !ok {
			av = &ports.AssetVolume{Asset: ev.Payload.Asset, Volume: new(uint256.Int)}
			byAsset[ev.Payload.Asset] = av
			order = append(order, ev.Payload.Asset)
		}
		av.Receipts++
		av.Volume.Add(av.Volume, uint256.NewInt(ev.Payload.Amount))
	}

	iter := l.v.committed().NewIterator(util.BytesPrefix([]byte(prefixEvent)), nil)
	defer iter.Release()
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var ev domain.Event
		if err := json.Unmarshal(iter.Value(), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		add(ev)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	for _, ev := range l.v.pending() {
		add(ev)
	}

	stats := &ports.PaymentStats{}
	for _, asset := range order {
		av := byAsset[asset]
		stats.Receipts += av.Receipts
		stats.Assets = append(stats.Assets, *av)
	}
	return stats, nil
}

func isMerchantPayment(ev domain.Event, merchant domain.Address) bool {
	return ev.Type == domain.EventPaymentCompleted && ev.Payload.Merchant == merchant
}
