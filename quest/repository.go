package quest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/questforge/server/model"
	"github.com/questforge/server/store"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const storeTimeout = 5 * time.Second

// Repository owns the quest entity's stored representation: a record per
// quest under the owner's partition, with the version column as the
// compare-and-swap token. It holds no cross-request state; all conflict
// detection goes through the store's conditional writes.
type Repository struct {
	store  store.Store
	logger *zap.Logger
}

// NewRepository creates a quest Repository on the given store.
func NewRepository(st store.Store, logger *zap.Logger) *Repository {
	return &Repository{store: st, logger: logger}
}

func partitionKey(userID string) string { return "user#" + userID }
func sortKey(questID string) string     { return "quest#" + questID }

// Create validates the payload, assigns an ID and writes the draft quest,
// failing with ErrAlreadyExists if the generated key is somehow taken.
func (r *Repository) Create(ctx context.Context, userID string, p CreatePayload) (*Quest, error) {
	now := time.Now().UTC()
	q, err := buildNew(userID, p, now)
	if err != nil {
		return nil, err
	}
	q.ID = uuid.New().String()
	q.Version = 1
	q.AuditTrail = []AuditEntry{{Action: ActionCreated, Timestamp: now, Actor: userID}}

	rec, err := toRecord(q)
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := r.store.PutIfAbsent(cctx, rec); err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return nil, fmt.Errorf("%w: quest %s", ErrAlreadyExists, q.ID)
		}
		return nil, r.wrap("create", err)
	}
	return q, nil
}

// Get returns the quest, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, userID, questID string) (*Quest, error) {
	cctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	rec, err := r.store.Get(cctx, partitionKey(userID), sortKey(questID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: quest %s", ErrNotFound, questID)
		}
		return nil, r.wrap("get", err)
	}
	return fromRecord(rec)
}

// Update applies a partial payload to a draft quest, conditional on
// expectedVersion. A losing writer gets ErrVersionConflict and must decide
// for itself whether to re-read and retry.
func (r *Repository) Update(ctx context.Context, userID, questID string, p UpdatePayload, expectedVersion int64) (*Quest, error) {
	q, err := r.Get(ctx, userID, questID)
	if err != nil {
		return nil, err
	}
	if q.Status != StatusDraft {
		return nil, fmt.Errorf("%w: update allowed only in draft, quest is %s", ErrPermissionDenied, q.Status)
	}
	if err := applyUpdate(q, p); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	q.Version = expectedVersion + 1
	q.UpdatedAt = now
	q.AuditTrail = append(q.AuditTrail, AuditEntry{Action: ActionUpdated, Timestamp: now, Actor: userID})

	if err := r.writeVersioned(ctx, q, expectedVersion); err != nil {
		return nil, err
	}
	return q, nil
}

// ChangeStatus validates the lifecycle transition and writes it
// conditionally on the current version. reason is only recorded for
// cancellations.
func (r *Repository) ChangeStatus(ctx context.Context, userID, questID string, to Status, reason string) (*Quest, error) {
	q, err := r.Get(ctx, userID, questID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(q, to); err != nil {
		return nil, err
	}

	note := ""
	if to == StatusCancelled {
		note = sanitizeNote(reason)
		if len([]rune(note)) > reasonMaxLen {
			return nil, fmt.Errorf("%w: reason exceeds %d characters", ErrValidation, reasonMaxLen)
		}
	}

	now := time.Now().UTC()
	baseVersion := q.Version
	q.Status = to
	q.Version = baseVersion + 1
	q.UpdatedAt = now
	if to == StatusCompleted {
		q.CompletedAt = &now
	}
	q.AuditTrail = append(q.AuditTrail, AuditEntry{Action: actionFor(to), Timestamp: now, Actor: userID, Note: note})

	if err := r.writeVersioned(ctx, q, baseVersion); err != nil {
		return nil, err
	}
	return q, nil
}

// List returns the user's quests newest first. Status filters are pushed
// down to the store's index; goal membership is filtered client-side.
func (r *Repository) List(ctx context.Context, userID string, f ListFilter) ([]Quest, error) {
	if f.Status != "" && !statuses[Status(f.Status)] {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
	}

	cctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	recs, err := r.store.QueryByPartition(cctx, partitionKey(userID), store.Filter{StatusEq: f.Status})
	if err != nil {
		return nil, r.wrap("list", err)
	}

	quests := make([]Quest, 0, len(recs))
	for i := range recs {
		q, err := fromRecord(&recs[i])
		if err != nil {
			r.logger.Warn("skipping undecodable quest record",
				zap.String("pk", recs[i].PK),
				zap.String("sk", recs[i].SK),
				zap.Error(err))
			continue
		}
		if f.GoalID != "" && !linksGoal(q, f.GoalID) {
			continue
		}
		quests = append(quests, *q)
	}
	sort.Slice(quests, func(i, j int) bool {
		return quests[i].CreatedAt.After(quests[j].CreatedAt)
	})
	return quests, nil
}

// Delete removes a quest. Drafts may be deleted by their owner; anything
// else requires the admin flag.
func (r *Repository) Delete(ctx context.Context, userID, questID string, isAdmin bool) (bool, error) {
	q, err := r.Get(ctx, userID, questID)
	if err != nil {
		return false, err
	}
	if q.Status != StatusDraft && !isAdmin {
		return false, fmt.Errorf("%w: only admins may delete a %s quest", ErrPermissionDenied, q.Status)
	}

	cctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	deleted, err := r.store.Delete(cctx, partitionKey(userID), sortKey(questID))
	if err != nil {
		return false, r.wrap("delete", err)
	}
	return deleted, nil
}

func (r *Repository) writeVersioned(ctx context.Context, q *Quest, expectedVersion int64) error {
	rec, err := toRecord(q)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := r.store.UpdateIfVersion(cctx, rec, expectedVersion); err != nil {
		switch {
		case errors.Is(err, store.ErrConditionFailed):
			return fmt.Errorf("%w: quest %s expected version %d", ErrVersionConflict, q.ID, expectedVersion)
		case errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("%w: quest %s", ErrNotFound, q.ID)
		default:
			return r.wrap("update", err)
		}
	}
	return nil
}

func (r *Repository) wrap(op string, err error) error {
	r.logger.Error("quest store error", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func linksGoal(q *Quest, goalID string) bool {
	if q.Kind != KindLinked || q.Linked == nil {
		return false
	}
	for _, id := range q.Linked.LinkedGoalIDs {
		if id == goalID {
			return true
		}
	}
	return false
}

func toRecord(q *Quest) (*model.Record, error) {
	doc, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("%w: encode quest: %v", ErrValidation, err)
	}
	return &model.Record{
		PK:        partitionKey(q.UserID),
		SK:        sortKey(q.ID),
		Version:   q.Version,
		Status:    string(q.Status),
		Doc:       datatypes.JSON(doc),
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}, nil
}

func fromRecord(rec *model.Record) (*Quest, error) {
	var q Quest
	if err := json.Unmarshal(rec.Doc, &q); err != nil {
		return nil, fmt.Errorf("decode quest record %s/%s: %w", rec.PK, rec.SK, err)
	}
	return &q, nil
}
