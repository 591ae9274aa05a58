// Package kv provides the TTL-bounded key-value store shared by the entity
// caches and the sync status log.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("kv: key not found")

// Store is safe for concurrent use. A ttl <= 0 passed to Set keeps the
// entry until it is deleted.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

type Options struct {
	Redis           *redis.Client
	BoltPath        string
	CleanupInterval time.Duration
}

const defaultCleanupInterval = 10 * time.Minute

// NewStore creates the configured backend. The redis store takes ownership
// of opts.Redis and closes it on Close.
func NewStore(backend string, opts Options) (Store, error) {
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}

	switch strings.TrimSpace(strings.ToLower(backend)) {
	case "", "redis":
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis storage requires a client")
		}
		return NewRedisStore(opts.Redis), nil
	case "bbolt":
		if strings.TrimSpace(opts.BoltPath) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return OpenBolt(opts.BoltPath, opts.CleanupInterval)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", backend)
	}
}
