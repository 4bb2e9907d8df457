package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"benefitflow/pkg/platform/sentinel"
)

// Memory is an in-process cache backend on go-cache, which handles TTL
// expiry and periodic janitor sweeps for us.
type Memory struct {
	store *gocache.Cache
}

// NewMemory creates an in-memory backend. defaultTTL applies when Set is
// called with a zero TTL.
func NewMemory(defaultTTL time.Duration) *Memory {
	return &Memory{
		store: gocache.New(defaultTTL, 2*defaultTTL),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, fmt.Errorf("cache key %s: %w", key, sentinel.ErrNotFound)
	}
	payload, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("cache key %s holds unexpected type", key)
	}
	return payload, nil
}

func (m *Memory) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.store.Set(key, payload, ttl)
	return nil
}
