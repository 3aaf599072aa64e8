package quest

import "errors"

// The domain error taxonomy. Callers branch on these with errors.Is; the
// REST layer maps each kind to a status code. Store failures never escape
// raw — they surface as ErrStoreUnavailable with operation context.
var (
	ErrValidation        = errors.New("quest: validation failed")
	ErrNotFound          = errors.New("quest: not found")
	ErrVersionConflict   = errors.New("quest: version conflict")
	ErrInvalidTransition = errors.New("quest: invalid status transition")
	ErrPermissionDenied  = errors.New("quest: permission denied")
	ErrAlreadyExists     = errors.New("quest: already exists")
	ErrStoreUnavailable  = errors.New("quest: store unavailable")
)
