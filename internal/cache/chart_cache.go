package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChartTTL is how long a rendered chart is reused.
const DefaultChartTTL = 5 * time.Minute

// ChartCache stores rendered chart images.
type ChartCache interface {
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Set(ctx context.Context, key string, data []byte) error
}

// ChartKey identifies the chart of a product at a given version, so any product update invalidates it.
func ChartKey(productID uuid.UUID, version time.Time) string {
	return fmt.Sprintf("chart:%s:%d", productID, version.UnixNano())
}

// RedisChartCache keeps charts in Redis with a TTL.
type RedisChartCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisChartCache creates a RedisChartCache.
func NewRedisChartCache(client *redis.Client, ttl time.Duration) *RedisChartCache {
	if ttl <= 0 {
		ttl = DefaultChartTTL
	}
	return &RedisChartCache{client: client, ttl: ttl}
}

func (c *RedisChartCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read chart cache: %w", err)
	}
	return data, true, nil
}

func (c *RedisChartCache) Set(ctx context.Context, key string, data []byte) error {
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write chart cache: %w", err)
	}
	return nil
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryChartCache keeps charts in process memory with a TTL.
type MemoryChartCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryChartCache creates a MemoryChartCache.
func NewMemoryChartCache(ttl time.Duration) *MemoryChartCache {
	if ttl <= 0 {
		ttl = DefaultChartTTL
	}
	return &MemoryChartCache{ttl: ttl, now: time.Now, entries: map[string]memoryEntry{}}
}

func (c *MemoryChartCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.data, true, nil
}

func (c *MemoryChartCache) Set(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = memoryEntry{data: data, expiresAt: now.Add(c.ttl)}
	return nil
}
