package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/questforge/server/cache"
	"github.com/questforge/server/quest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLister struct {
	quests []quest.Quest
	calls  int
}

func (f *fakeLister) List(_ context.Context, _ string, _ quest.ListFilter) ([]quest.Quest, error) {
	f.calls++
	return f.quests, nil
}

func newTestService(t *testing.T, lister *fakeLister) (*Service, *mutableClock) {
	t.Helper()
	backend, err := cache.New(cache.Config{})
	require.NoError(t, err)
	clock := &mutableClock{t: baseDay}
	c := NewCache(backend, clock, zap.NewNop())
	return NewService(lister, NewCalculator(clock), c, zap.NewNop()), clock
}

func TestServiceGetComputesAndCaches(t *testing.T) {
	created := baseDay.Add(-24 * time.Hour)
	lister := &fakeLister{quests: []quest.Quest{
		completedQuest("q1", quest.CategoryFitness, 100, created, created.Add(time.Hour)),
	}}
	svc, _ := newTestService(t, lister)
	ctx := context.Background()

	first, err := svc.Get(ctx, "u1", PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalQuests)
	assert.Equal(t, 1, lister.calls)

	// Second read is a cache hit; the lister is not consulted again.
	second, err := svc.Get(ctx, "u1", PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, first.CalculatedAt, second.CalculatedAt)
	assert.Equal(t, 1, lister.calls)
}

func TestServiceGetRecomputesAfterExpiry(t *testing.T) {
	lister := &fakeLister{}
	svc, clock := newTestService(t, lister)
	ctx := context.Background()

	_, err := svc.Get(ctx, "u1", PeriodDaily)
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)
	_, err = svc.Get(ctx, "u1", PeriodDaily)
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}
