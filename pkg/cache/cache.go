// Package cache provides response caching for registry clients.
//
// Cache is a pluggable byte-store interface with four backends:
//
//   - [MemoryCache]: process-lifetime map, the default for a single run
//   - [FileCache]: persistent directory of hashed entries with TTL
//   - [RedisCache]: shared cache for setups that reuse results across hosts
//   - [NullCache]: no-op, for tests or --no-cache runs
//
// Keys should be namespaced by data source ("pypi:requests",
// "osv:django") to avoid collisions between clients sharing one backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores raw response bytes under string keys.
//
// Get returns (data, true, nil) on a hit, (nil, false, nil) on a miss.
// Expired entries count as misses. A TTL of 0 on Set means the entry
// never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Hash returns the hex-encoded SHA-256 of data. Used by backends to
// derive filesystem-safe names from arbitrary keys.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
