package quest

import "fmt"

// transitions is the lifecycle graph: draft → active → one of the three
// terminal states. Terminal states have no outgoing edges.
var transitions = map[Status][]Status{
	StatusDraft:  {StatusActive},
	StatusActive: {StatusCompleted, StatusCancelled, StatusFailed},
}

// CanTransition reports whether from → to is an edge of the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// actionFor names the audit action recorded for entering the given status.
func actionFor(to Status) string {
	switch to {
	case StatusActive:
		return ActionStarted
	case StatusCompleted:
		return ActionCompleted
	case StatusCancelled:
		return ActionCancelled
	case StatusFailed:
		return ActionFailed
	default:
		return string(to)
	}
}

// checkTransition validates the edge and its kind-specific preconditions.
func checkTransition(q *Quest, to Status) error {
	if !statuses[to] {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	if !CanTransition(q.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, q.Status, to)
	}
	if q.Status == StatusDraft && to == StatusActive {
		switch q.Kind {
		case KindLinked:
			if !q.Linked.HasLinks() {
				return fmt.Errorf("%w: %s -> %s: linked quest needs at least one linked goal or task", ErrInvalidTransition, q.Status, to)
			}
		case KindQuantitative:
			if q.Quantitative == nil {
				return fmt.Errorf("%w: %s -> %s: quantitative detail missing", ErrInvalidTransition, q.Status, to)
			}
		}
	}
	return nil
}
