package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/questforge/server/cache"
	"go.uber.org/zap"
)

const indexKey = "analytics:index"

// envelope is the stored cache value: the analytics object plus its
// absolute expiry, used for lazy expiry on read.
type envelope struct {
	ExpiresAt time.Time  `json:"expires_at"`
	Analytics *Analytics `json:"analytics"`
}

// Cache stores calculator output keyed by (user, period) with a
// period-dependent TTL. Reads are lazy-expiring: a stale entry is treated
// as absent but left for the sweep. Concurrent writers race last-write-wins,
// which is fine because entries are idempotent to recompute.
type Cache struct {
	backend cache.Cache
	clock   Clock
	logger  *zap.Logger
}

// NewCache creates an analytics cache on the shared cache backend.
func NewCache(backend cache.Cache, clock Clock, logger *zap.Logger) *Cache {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Cache{backend: backend, clock: clock, logger: logger}
}

func cacheKey(userID string, period Period) string {
	return fmt.Sprintf("analytics:%s:%s", userID, period)
}

// Put stores the analytics under its (user, period) key, stamping the
// absolute expiry from the period's TTL.
func (c *Cache) Put(ctx context.Context, a *Analytics) error {
	ttl := a.Period.TTL()
	env := envelope{ExpiresAt: c.clock.Now().Add(ttl), Analytics: a}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("analytics cache: encode: %w", err)
	}
	key := cacheKey(a.UserID, a.Period)
	if err := c.backend.Set(ctx, key, string(data), ttl); err != nil {
		return fmt.Errorf("analytics cache: set %s: %w", key, err)
	}
	// Index for the sweep; the backend has no key iteration.
	if err := c.backend.SAdd(ctx, indexKey, key); err != nil {
		c.logger.Warn("analytics cache index update failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Get returns the cached analytics, or ok=false when absent or expired.
// Expired entries are not deleted here; the sweep reclaims them.
func (c *Cache) Get(ctx context.Context, userID string, period Period) (*Analytics, bool, error) {
	key := cacheKey(userID, period)
	raw, err := c.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("analytics cache: get %s: %w", key, err)
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		c.logger.Warn("analytics cache entry undecodable, dropping", zap.String("key", key), zap.Error(err))
		_ = c.backend.Del(ctx, key)
		return nil, false, nil
	}
	if !c.clock.Now().Before(env.ExpiresAt) {
		return nil, false, nil
	}
	return env.Analytics, true, nil
}

// Invalidate deletes the given periods for the user, or every period when
// none are named.
func (c *Cache) Invalidate(ctx context.Context, userID string, periods ...Period) error {
	if len(periods) == 0 {
		periods = Periods
	}
	keys := make([]string, len(periods))
	for i, p := range periods {
		keys[i] = cacheKey(userID, p)
	}
	if err := c.backend.Del(ctx, keys...); err != nil {
		return fmt.Errorf("analytics cache: invalidate %s: %w", userID, err)
	}
	if err := c.backend.SRem(ctx, indexKey, keys...); err != nil {
		c.logger.Warn("analytics cache index cleanup failed", zap.Error(err))
	}
	return nil
}

// InvalidateUser drops all periods for the user. Satisfies the quest
// service's Invalidator.
func (c *Cache) InvalidateUser(ctx context.Context, userID string) error {
	return c.Invalidate(ctx, userID)
}

// CleanupExpired removes every indexed entry whose expiry has passed and
// returns the count removed. Entries already evicted by the backend's own
// TTL count as removed too, so the index stays bounded.
func (c *Cache) CleanupExpired(ctx context.Context) (int, error) {
	keys, err := c.backend.SMembers(ctx, indexKey)
	if err != nil {
		return 0, fmt.Errorf("analytics cache: sweep index: %w", err)
	}
	now := c.clock.Now()
	removed := 0
	for _, key := range keys {
		raw, err := c.backend.Get(ctx, key)
		if errors.Is(err, cache.ErrNotFound) {
			_ = c.backend.SRem(ctx, indexKey, key)
			removed++
			continue
		}
		if err != nil {
			c.logger.Warn("analytics cache sweep read failed", zap.String("key", key), zap.Error(err))
			continue
		}
		var env envelope
		if jsonErr := json.Unmarshal([]byte(raw), &env); jsonErr != nil || !now.Before(env.ExpiresAt) {
			_ = c.backend.Del(ctx, key)
			_ = c.backend.SRem(ctx, indexKey, key)
			removed++
		}
	}
	return removed, nil
}
