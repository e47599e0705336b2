// Package kv is an embedded execution substrate on goleveldb. Units are
// serialized by a store-wide mutex, writes are staged in memory and land in
// one leveldb.Batch on commit.
package kv

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"settlement-ledger/internal/core/ports"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// Store implements ports.Substrate.
type Store struct {
	db *leveldb.DB
	wo *opt.WriteOptions

	mu sync.Mutex
}

// Open opens (or creates) a LevelDB database at path. With sync set every
// committed unit is fsynced before Atomically returns.
func Open(path string, sync bool) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("leveldb path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve leveldb path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return &Store{db: db, wo: &opt.WriteOptions{Sync: sync}}, nil
}

// OpenMemory returns a store backed by memory only. Used by tests and the
// "memory" storage driver.
func OpenMemory() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open memory leveldb: %w", err)
	}
	return &Store{db: db, wo: &opt.WriteOptions{}}, nil
}

// Close releases the underlying LevelDB resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Atomically runs fn against a staged unit. Nothing reaches the database
// unless fn returns nil.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, u ports.Unit) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := newStagedUnit(s.db)
	if err := fn(ctx, u); err != nil {
		return err
	}

	batch := u.batch()
	if batch.Len() == 0 {
		return nil
	}
	if err := s.db.Write(batch, s.wo); err != nil {
		return fmt.Errorf("commit unit: %w", err)
	}
	return nil
}

// Reader returns a read-only view of committed state.
func (s *Store) Reader() ports.Unit {
	return &readUnit{db: s.db}
}

// HealthCheck implements ports.HealthChecker for the embedded store.
type HealthCheck struct {
	store *Store
}

// NewHealthCheck creates a LevelDB health checker.
func NewHealthCheck(store *Store) *HealthCheck {
	return &HealthCheck{store: store}
}

// Ping fails once the database is closed.
func (h *HealthCheck) Ping(ctx context.Context) error {
	_, err := h.store.db.Has([]byte(metaEventSeq), nil)
	if errors.Is(err, leveldb.ErrClosed) {
		return fmt.Errorf("leveldb closed")
	}
	return err
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "leveldb"
}
