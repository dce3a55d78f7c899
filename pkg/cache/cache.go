// Package cache keeps JSON documents in Redis under a shared key prefix.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Store is a TTL-bound document cache. FetchMany omits missing keys from its result.
type Store interface {
	Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Fetch(ctx context.Context, key string, dest interface{}) error
	FetchMany(ctx context.Context, keys []string) (map[string][]byte, error)
	Remove(ctx context.Context, keys ...string) error
}
