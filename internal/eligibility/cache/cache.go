// Package cache provides byte-level backends for the eligibility result
// cache. Keys are content-addressed by the caller; backends only store and
// retrieve opaque payloads with a TTL, so swapping memory for Redis changes
// nothing above them.
package cache

import (
	"context"
	"time"
)

// Backend stores serialized eligibility results. Implementations return
// sentinel.ErrNotFound for missing or expired keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}
