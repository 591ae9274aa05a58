package kv

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	kvBucket    = "kv"
	expiryBytes = 8
)

// BoltStore keeps entries in a single bucket, each value prefixed with its
// expiry as big-endian unix nanoseconds.
type BoltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	cleanupInterval time.Duration
	now             func() time.Time
}

func OpenBolt(path string, cleanupInterval time.Duration) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(kvBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &BoltStore{
		db:              db,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().UnixNano())
	return store, nil
}

func (b *BoltStore) Get(_ context.Context, key string) ([]byte, error) {
	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return nil, err
	}

	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket([]byte(kvBucket)).Get([]byte(key))
		if value == nil {
			return ErrNotFound
		}
		expiry, payload, ok := decode(value)
		if !ok || !expiry.After(now) {
			return ErrNotFound
		}
		out = append([]byte(nil), payload...)
		return nil
	})
	return out, err
}

func (b *BoltStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		buf := make([]byte, expiryBytes+len(value))
		binary.BigEndian.PutUint64(buf, uint64(expiryFor(now, ttl)))
		copy(buf[expiryBytes:], value)
		return tx.Bucket([]byte(kvBucket)).Put([]byte(key), buf)
	})
}

func (b *BoltStore) Delete(_ context.Context, keys ...string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(kvBucket))
		for _, k := range keys {
			if err := bucket.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// maybeCleanupExpired removes expired entries at most once per interval.
func (b *BoltStore) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(0, b.lastCleanup.Load())
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(0, b.lastCleanup.Load())
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		cursor := tx.Bucket([]byte(kvBucket)).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, _, ok := decode(v)
			if !ok || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.UnixNano())
	}
	return err
}

// expiryFor encodes entries without a ttl as never expiring.
func expiryFor(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return math.MaxInt64
	}
	return now.Add(ttl).UnixNano()
}

func decode(value []byte) (time.Time, []byte, bool) {
	if len(value) < expiryBytes {
		return time.Time{}, nil, false
	}
	nanos := int64(binary.BigEndian.Uint64(value[:expiryBytes]))
	if nanos <= 0 {
		return time.Time{}, nil, false
	}
	return time.Unix(0, nanos), value[expiryBytes:], true
}
