package cache

import (
	"context"
	"testing"
	"time"

	"fx-agent/src/logger"
	"fx-agent/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *models.MConfig {
	return &models.MConfig{Cache: models.MCacheConfig{TTLSeconds: 60, HistorySize: 3}}
}

func TestMemoryCacheLatestExpires(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(testConfig(), logger.NewNopLogger())
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return clock }

	require.NoError(t, mc.Put(ctx, models.MDecision{Pair: "usdjpy", Timeframe: "M5", Direction: models.DirectionBuy}))

	d, ok := mc.Latest(ctx, "USDJPY", "M5")
	require.True(t, ok)
	assert.Equal(t, models.DirectionBuy, d.Direction)
	assert.Equal(t, clock, d.CreatedAt)

	_, ok = mc.Latest(ctx, "USDJPY", "H1")
	assert.False(t, ok)

	clock = clock.Add(61 * time.Second)
	_, ok = mc.Latest(ctx, "USDJPY", "M5")
	assert.False(t, ok)
}

func TestMemoryCacheHistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(testConfig(), logger.NewNopLogger())

	for i := 0; i < 5; i++ {
		require.NoError(t, mc.Put(ctx, models.MDecision{Pair: "USDJPY", Timeframe: "M5", Close: float64(i)}))
	}

	all, err := mc.History(ctx, "USDJPY", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []float64{2, 3, 4}, []float64{all[0].Close, all[1].Close, all[2].Close})

	last, err := mc.History(ctx, "usdjpy", 2)
	require.NoError(t, err)
	assert.Equal(t, 4.0, last[1].Close)

	none, err := mc.History(ctx, "EURUSD", 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, mc.Close())
	none, _ = mc.History(ctx, "USDJPY", 5)
	assert.Empty(t, none)
}

func TestNewDecisionCacheWithoutRedis(t *testing.T) {
	c := NewDecisionCache(testConfig(), logger.NewNopLogger())
	_, ok := c.(*MemoryCache)
	assert.True(t, ok)
}
