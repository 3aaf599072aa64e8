package analytics

import (
	"context"

	"github.com/questforge/server/quest"
	"go.uber.org/zap"
)

// QuestLister is the slice of the quest repository the analytics service
// needs: a bulk read of a user's quest snapshots.
type QuestLister interface {
	List(ctx context.Context, userID string, f quest.ListFilter) ([]quest.Quest, error)
}

// Service serves analytics read-through: cache hit, or recompute from the
// full snapshot list and write back.
type Service struct {
	lister QuestLister
	calc   *Calculator
	cache  *Cache
	logger *zap.Logger
}

// NewService creates an analytics Service.
func NewService(lister QuestLister, calc *Calculator, c *Cache, logger *zap.Logger) *Service {
	return &Service{lister: lister, calc: calc, cache: c, logger: logger}
}

// Get returns the user's analytics for the period, computing and caching
// on miss or expiry. A cache write failure is logged, not surfaced: the
// computed value is still good.
func (s *Service) Get(ctx context.Context, userID string, period Period) (*Analytics, error) {
	if cached, ok, err := s.cache.Get(ctx, userID, period); err != nil {
		s.logger.Warn("analytics cache read failed, recomputing",
			zap.String("user_id", userID),
			zap.Error(err))
	} else if ok {
		return cached, nil
	}

	quests, err := s.lister.List(ctx, userID, quest.ListFilter{})
	if err != nil {
		return nil, err
	}
	a := s.calc.Calculate(userID, quests, period)
	if err := s.cache.Put(ctx, a); err != nil {
		s.logger.Warn("analytics cache write failed",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return a, nil
}
