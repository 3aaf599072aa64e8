package store

import (
	"context"
	"errors"

	"github.com/questforge/server/model"
)

var (
	// ErrNotFound is returned when no record exists for the given key.
	ErrNotFound = errors.New("store: record not found")
	// ErrConditionFailed is returned when a conditional write loses: the key
	// already exists on PutIfAbsent, or the version no longer matches on
	// UpdateIfVersion.
	ErrConditionFailed = errors.New("store: condition failed")
	// ErrUnavailable wraps transient backend failures that survived retry.
	ErrUnavailable = errors.New("store: unavailable")
)

// Filter narrows a partition query. Zero value matches everything.
type Filter struct {
	// StatusEq, when non-empty, is pushed down to the indexed status column.
	StatusEq string
}

// Store is the conditional-write key/value port the repositories build on.
// Any backend with compare-and-swap semantics satisfies it; the gorm
// implementation uses WHERE version = ? updates.
type Store interface {
	// Get returns the record at (pk, sk), or ErrNotFound.
	Get(ctx context.Context, pk, sk string) (*model.Record, error)

	// PutIfAbsent inserts rec, failing with ErrConditionFailed if a record
	// with the same key already exists.
	PutIfAbsent(ctx context.Context, rec *model.Record) error

	// UpdateIfVersion replaces the record's version, status and document,
	// conditional on the stored version still being expectedVersion.
	// Fails with ErrNotFound if the key is absent, ErrConditionFailed if
	// the version moved.
	UpdateIfVersion(ctx context.Context, rec *model.Record, expectedVersion int64) error

	// QueryByPartition returns all records under pk matching the filter,
	// newest first.
	QueryByPartition(ctx context.Context, pk string, f Filter) ([]model.Record, error)

	// Delete removes the record at (pk, sk). Returns false if it was absent.
	Delete(ctx context.Context, pk, sk string) (bool, error)
}
