package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoClient is an in-process Client backed by ristretto.
// Every entry costs 1, so MaxItems bounds the entry count.
type RistrettoClient struct {
	cache *ristretto.Cache
}

// NewRistrettoClient creates an in-process cache holding up to maxItems entries.
func NewRistrettoClient(maxItems int64) (*RistrettoClient, error) {
	if maxItems <= 0 {
		maxItems = 1000
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}

	return &RistrettoClient{cache: c}, nil
}

// Get retrieves a value from cache.
func (c *RistrettoClient) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), b...), nil
}

// Set stores a value with TTL. Writes are buffered; Set waits until the
// value is visible to Get.
func (c *RistrettoClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	c.cache.SetWithTTL(key, append([]byte(nil), value...), 1, ttl)
	c.cache.Wait()
	return nil
}

// Delete removes a value from cache.
func (c *RistrettoClient) Delete(_ context.Context, key string) error {
	c.cache.Del(key)
	return nil
}

// Close stops the cache's background goroutines.
func (c *RistrettoClient) Close() error {
	c.cache.Close()
	return nil
}
