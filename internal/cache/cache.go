// Package cache provides response caching for passthrough GET endpoints
// such as model listings, so repeated discovery calls do not burn upstream
// request quota.
//
// Two backends exist: Ristretto for in-memory caching and a no-op backend
// used when caching is disabled. Both are safe for concurrent use.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"api-firewall/internal/config"
)

var (
	// ErrNotFound is returned on cache miss.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("cache: closed")
)

// Cache stores upstream response bodies keyed by request identity.
type Cache interface {
	// Get retrieves a value. Returns ErrNotFound on miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetWithTTL stores a value that expires after ttl.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases backend resources. Idempotent.
	Close() error
}

// New creates the backend selected by configuration.
func New(cfg config.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}
	return newRistrettoCache(cfg)
}

// Key derives a cache key from the request method, path and credential.
// The credential is hashed so two callers with different keys never share
// entries and the key material never appears in cache internals.
func Key(method, path, credential string) string {
	h := sha256.Sum256([]byte(credential))
	return method + ":" + path + ":" + hex.EncodeToString(h[:])[:16]
}
