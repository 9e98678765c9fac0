package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseClient(t *testing.T, c Client) {
	t.Helper()
	ctx := context.Background()

	_, err := c.Get(ctx, "livedata:missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "livedata:market", []byte(`{"market.total_sales":7500}`), time.Minute))

	got, err := c.Get(ctx, "livedata:market")
	require.NoError(t, err)
	assert.JSONEq(t, `{"market.total_sales":7500}`, string(got))

	require.NoError(t, c.Delete(ctx, "livedata:market"))
	_, err = c.Get(ctx, "livedata:market")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRistrettoClient(t *testing.T) {
	c, err := NewRistrettoClient(100)
	require.NoError(t, err)
	defer c.Close()

	exerciseClient(t, c)
}

func TestRistrettoClient_CopiesValues(t *testing.T) {
	c, err := NewRistrettoClient(10)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'z'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestRedisClient(t *testing.T) {
	addr := os.Getenv("KEYSTONE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("KEYSTONE_TEST_REDIS_ADDR not set; skipping Redis integration tests")
	}

	c, err := NewRedisClient(context.Background(), RedisConfig{Addr: addr, Prefix: "keystone-test:"})
	require.NoError(t, err)
	defer c.Close()

	exerciseClient(t, c)
}
