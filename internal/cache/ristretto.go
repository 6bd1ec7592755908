package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"api-firewall/internal/config"
)

const defaultMaxBytes = 64 << 20

type ristrettoCache struct {
	cache  *ristretto.Cache[string, []byte]
	closed atomic.Bool
}

var _ Cache = (*ristrettoCache)(nil)

func newRistrettoCache(cfg config.CacheConfig) (*ristrettoCache, error) {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &ristrettoCache{cache: cache}, nil
}

func (r *ristrettoCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.closed.Load() {
		return nil, ErrClosed
	}

	value, found := r.cache.Get(key)
	if !found {
		return nil, ErrNotFound
	}
	// Copy so callers cannot mutate the cached bytes.
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (r *ristrettoCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.closed.Load() {
		return ErrClosed
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	r.cache.SetWithTTL(key, stored, int64(len(stored)), ttl)
	r.cache.Wait()
	return nil
}

func (r *ristrettoCache) Close() error {
	if r.closed.CompareAndSwap(false, true) {
		r.cache.Close()
	}
	return nil
}
