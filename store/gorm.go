package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/questforge/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxAttempts    = 3
	initialBackoff = 50 * time.Millisecond
)

// GormStore implements Store on a relational database through gorm.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormStore creates a Store backed by the given gorm handle.
func NewGormStore(db *gorm.DB, logger *zap.Logger) *GormStore {
	return &GormStore{db: db, logger: logger}
}

func (s *GormStore) Get(ctx context.Context, pk, sk string) (*model.Record, error) {
	var rec model.Record
	err := s.withRetry(ctx, "get", func() error {
		return s.db.WithContext(ctx).
			Where("pk = ? AND sk = ?", pk, sk).
			First(&rec).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) PutIfAbsent(ctx context.Context, rec *model.Record) error {
	err := s.withRetry(ctx, "put_if_absent", func() error {
		return s.db.WithContext(ctx).Create(rec).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConditionFailed
		}
		return err
	}
	return nil
}

func (s *GormStore) UpdateIfVersion(ctx context.Context, rec *model.Record, expectedVersion int64) error {
	var affected int64
	err := s.withRetry(ctx, "update_if_version", func() error {
		res := s.db.WithContext(ctx).Model(&model.Record{}).
			Where("pk = ? AND sk = ? AND version = ?", rec.PK, rec.SK, expectedVersion).
			Updates(map[string]interface{}{
				"version":    rec.Version,
				"status":     rec.Status,
				"doc":        rec.Doc,
				"updated_at": time.Now(),
			})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a vanished record from a lost version race.
		if _, getErr := s.Get(ctx, rec.PK, rec.SK); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrConditionFailed
	}
	return nil
}

func (s *GormStore) QueryByPartition(ctx context.Context, pk string, f Filter) ([]model.Record, error) {
	var recs []model.Record
	err := s.withRetry(ctx, "query_by_partition", func() error {
		q := s.db.WithContext(ctx).Where("pk = ?", pk)
		if f.StatusEq != "" {
			q = q.Where("status = ?", f.StatusEq)
		}
		return q.Order("created_at DESC").Find(&recs).Error
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *GormStore) Delete(ctx context.Context, pk, sk string) (bool, error) {
	var affected int64
	err := s.withRetry(ctx, "delete", func() error {
		res := s.db.WithContext(ctx).
			Where("pk = ? AND sk = ?", pk, sk).
			Delete(&model.Record{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// withRetry retries throttling-class failures with doubling backoff, then
// wraps whatever is left as ErrUnavailable. Condition outcomes (unique
// violations, not-found) pass through untouched for the caller to translate.
func (s *GormStore) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || errors.Is(err, gorm.ErrRecordNotFound) || isUniqueViolation(err) {
			return err
		}
		if !isThrottling(err) {
			break
		}
		if attempt == maxAttempts {
			break
		}
		s.logger.Warn("store retry",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, ctx.Err())
		}
		backoff *= 2
	}
	s.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}

func isThrottling(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "too many connections") ||
		strings.Contains(msg, "try again") ||
		strings.Contains(msg, "timeout")
}
