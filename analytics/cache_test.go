package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/questforge/server/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mutableClock lets a test move time forward past cache expiries.
type mutableClock struct{ t time.Time }

func (c *mutableClock) Now() time.Time          { return c.t }
func (c *mutableClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T) (*Cache, *mutableClock) {
	t.Helper()
	backend, err := cache.New(cache.Config{})
	require.NoError(t, err)
	clock := &mutableClock{t: baseDay}
	return NewCache(backend, clock, zap.NewNop()), clock
}

func sampleAnalytics(userID string, period Period) *Analytics {
	return &Analytics{
		UserID:       userID,
		Period:       period,
		TotalQuests:  3,
		XPEarned:     120,
		CalculatedAt: baseDay,
	}
}

func TestCachePutGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, sampleAnalytics("u1", PeriodWeekly)))

	got, ok, err := c.Get(ctx, "u1", PeriodWeekly)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, PeriodWeekly, got.Period)
	assert.Equal(t, 3, got.TotalQuests)
	assert.Equal(t, 120, got.XPEarned)
}

func TestCacheGetMiss(t *testing.T) {
	c, _ := newTestCache(t)
	_, ok, err := c.Get(context.Background(), "nobody", PeriodDaily)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheLazyExpiry(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, sampleAnalytics("u1", PeriodDaily)))

	clock.Advance(23 * time.Hour)
	_, ok, err := c.Get(ctx, "u1", PeriodDaily)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(2 * time.Hour)
	_, ok, err = c.Get(ctx, "u1", PeriodDaily)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachePeriodsAreIndependent(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, sampleAnalytics("u1", PeriodDaily)))
	require.NoError(t, c.Put(ctx, sampleAnalytics("u1", PeriodWeekly)))

	require.NoError(t, c.Invalidate(ctx, "u1", PeriodDaily))

	_, ok, err := c.Get(ctx, "u1", PeriodDaily)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get(ctx, "u1", PeriodWeekly)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheInvalidateUserDropsAllPeriods(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	for _, p := range Periods {
		require.NoError(t, c.Put(ctx, sampleAnalytics("u1", p)))
	}
	require.NoError(t, c.Put(ctx, sampleAnalytics("u2", PeriodWeekly)))

	require.NoError(t, c.InvalidateUser(ctx, "u1"))

	for _, p := range Periods {
		_, ok, err := c.Get(ctx, "u1", p)
		require.NoError(t, err)
		assert.False(t, ok, "period %s should be gone", p)
	}

	// Other users are untouched.
	_, ok, err := c.Get(ctx, "u2", PeriodWeekly)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheCleanupExpired(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, sampleAnalytics("u1", PeriodDaily)))
	require.NoError(t, c.Put(ctx, sampleAnalytics("u1", PeriodMonthly)))

	removed, err := c.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	// Daily expires after a day; monthly is still fresh.
	clock.Advance(25 * time.Hour)
	removed, err = c.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok, err := c.Get(ctx, "u1", PeriodMonthly)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second sweep finds nothing left to do.
	removed, err = c.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
