// Package syncstatus records the latest state of every batch job in a
// TTL-bounded key-value store and summarizes it per session.
package syncstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"news_ingest/internal/domain"
	"news_ingest/internal/storage/kv"
)

const DefaultTTL = time.Hour

type Store struct {
	kv  kv.Store
	ttl time.Duration
	now func() time.Time
}

func NewStore(store kv.Store, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{kv: store, ttl: ttl, now: time.Now}
}

// Key renders sync_status:{session}:{provider}:{batch}.
func Key(k domain.BatchKey) string {
	return fmt.Sprintf("sync_status:%s:%s:%d", k.SessionID, k.Provider, k.BatchNumber)
}

// Put overwrites the status of one batch.
func (s *Store) Put(ctx context.Context, k domain.BatchKey, state domain.SyncState, data domain.StatusData) error {
	raw, err := json.Marshal(domain.SyncStatus{
		Status:    state,
		Data:      data,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode sync status: %w", err)
	}
	if err := s.kv.Set(ctx, Key(k), raw, s.ttl); err != nil {
		return fmt.Errorf("write sync status: %w", err)
	}
	return nil
}

// Get returns domain.ErrNotFound for unknown or expired batches.
func (s *Store) Get(ctx context.Context, k domain.BatchKey) (*domain.SyncStatus, error) {
	raw, err := s.kv.Get(ctx, Key(k))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read sync status: %w", err)
	}

	var status domain.SyncStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("decode sync status: %w", err)
	}
	return &status, nil
}
