package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/eds/backend/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	cfg := PolygonRateLimit(5)

	// Redis 비활성화 시 모든 요청 허용
	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 5, remaining)

	assert.NoError(t, limiter.Wait(context.Background(), cfg))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	var result []string
	found, err := cache.Get(ctx, ExpiriesKey("AAPL"), &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, ExpiriesKey("AAPL"), []string{"2025-01-17"}, TTLMedium))
}

func TestCache_NilSafe(t *testing.T) {
	var cache *Cache
	var dest int
	found, err := cache.Get(context.Background(), "k", &dest)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(context.Background(), "k", 1, time.Minute))
}

func TestKeysAndLimits(t *testing.T) {
	assert.Equal(t, "expiries:AAPL", ExpiriesKey("AAPL"))
	assert.Equal(t, "bars:SPY:2025-01-01:2025-03-01", BarsKey("SPY", "2025-01-01", "2025-03-01"))

	assert.Equal(t, RateLimitConfig{Key: "finnhub", Limit: 60, Window: time.Minute}, FinnhubRateLimit(60))
	assert.Equal(t, "polygon", PolygonRateLimit(300).Key)
}
