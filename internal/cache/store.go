// Package cache holds short-lived shared counters and values, such as login
// throttling windows, in either the primary database or Redis.
package cache

import (
	"context"
	"time"
)

// Store is implemented by DatabaseStore and RedisClient. Keys are opaque to the
// store; callers namespace them.
type Store interface {
	// IncrementWithTTL bumps a counter. The first increment opens a window of the
	// given length; the returned duration is what remains of it.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// Set stores value. A non-positive ttl keeps it until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get reports false for missing or expired keys.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
