package quest

import (
	"context"

	"github.com/questforge/server/audit"
	"go.uber.org/zap"
)

// Invalidator drops derived analytics for a user after their quest set
// changes. Implemented by the analytics cache.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
}

// Service is the quest lifecycle service: it orchestrates repository
// calls, invalidates derived analytics on mutation, and feeds the
// operational audit log. All per-quest state lives in the store; the
// service itself is safe for concurrent use.
type Service struct {
	repo   *Repository
	inval  Invalidator
	audit  *audit.Service
	logger *zap.Logger
}

// NewService creates a quest Service. inval and auditSvc may be nil.
func NewService(repo *Repository, inval Invalidator, auditSvc *audit.Service, logger *zap.Logger) *Service {
	return &Service{repo: repo, inval: inval, audit: auditSvc, logger: logger}
}

// CreateQuest creates a draft quest owned by userID.
func (svc *Service) CreateQuest(ctx context.Context, userID string, p CreatePayload) (*Quest, error) {
	q, err := svc.repo.Create(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	svc.afterMutation(ctx, userID, q.ID, ActionCreated, nil)
	return q, nil
}

// GetQuest returns a single quest.
func (svc *Service) GetQuest(ctx context.Context, userID, questID string) (*Quest, error) {
	return svc.repo.Get(ctx, userID, questID)
}

// StartQuest transitions draft → active.
func (svc *Service) StartQuest(ctx context.Context, userID, questID string) (*Quest, error) {
	q, err := svc.repo.ChangeStatus(ctx, userID, questID, StatusActive, "")
	if err != nil {
		return nil, err
	}
	svc.afterMutation(ctx, userID, questID, ActionStarted, nil)
	return q, nil
}

// UpdateQuest applies a partial update to a draft quest under optimistic
// concurrency.
func (svc *Service) UpdateQuest(ctx context.Context, userID, questID string, p UpdatePayload, expectedVersion int64) (*Quest, error) {
	q, err := svc.repo.Update(ctx, userID, questID, p, expectedVersion)
	if err != nil {
		return nil, err
	}
	svc.afterMutation(ctx, userID, questID, ActionUpdated, map[string]int64{"version": q.Version})
	return q, nil
}

// CompleteQuest transitions active → completed.
func (svc *Service) CompleteQuest(ctx context.Context, userID, questID string) (*Quest, error) {
	q, err := svc.repo.ChangeStatus(ctx, userID, questID, StatusCompleted, "")
	if err != nil {
		return nil, err
	}
	svc.afterMutation(ctx, userID, questID, ActionCompleted, nil)
	return q, nil
}

// CancelQuest transitions active → cancelled with an optional reason.
func (svc *Service) CancelQuest(ctx context.Context, userID, questID, reason string) (*Quest, error) {
	q, err := svc.repo.ChangeStatus(ctx, userID, questID, StatusCancelled, reason)
	if err != nil {
		return nil, err
	}
	svc.afterMutation(ctx, userID, questID, ActionCancelled, map[string]string{"reason": reason})
	return q, nil
}

// FailQuest transitions active → failed.
func (svc *Service) FailQuest(ctx context.Context, userID, questID string) (*Quest, error) {
	q, err := svc.repo.ChangeStatus(ctx, userID, questID, StatusFailed, "")
	if err != nil {
		return nil, err
	}
	svc.afterMutation(ctx, userID, questID, ActionFailed, nil)
	return q, nil
}

// DeleteQuest removes a quest, admin-gated for non-drafts.
func (svc *Service) DeleteQuest(ctx context.Context, userID, questID string, isAdmin bool) (bool, error) {
	deleted, err := svc.repo.Delete(ctx, userID, questID, isAdmin)
	if err != nil {
		return false, err
	}
	if deleted {
		svc.afterMutation(ctx, userID, questID, "deleted", map[string]bool{"admin": isAdmin})
	}
	return deleted, nil
}

// ListQuests returns the user's quests, optionally filtered.
func (svc *Service) ListQuests(ctx context.Context, userID string, f ListFilter) ([]Quest, error) {
	return svc.repo.List(ctx, userID, f)
}

// afterMutation invalidates derived analytics and records the operational
// audit entry. Both are best effort: the mutation already committed.
func (svc *Service) afterMutation(ctx context.Context, userID, questID, action string, detail interface{}) {
	if svc.inval != nil {
		if err := svc.inval.InvalidateUser(ctx, userID); err != nil {
			svc.logger.Warn("analytics invalidation failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
	if svc.audit != nil {
		svc.audit.Log(audit.Entry{
			UserID:  userID,
			QuestID: questID,
			Action:  action,
			Detail:  detail,
		})
	}
}
