package api

import "fmt"

// IsTerminal reports whether a lifecycle status allows no further
// transitions. Once a job is terminal no workflow node runs for it again.
func IsTerminal(s LifecycleStatus) bool {
	switch s {
	case LifecycleCompleted, LifecycleFailed, LifecycleCancelled:
		return true
	}
	return false
}

// ValidateLifecycleTransition checks whether a job lifecycle transition is
// valid. An empty "from" status represents the initial state before any
// status has been set. Terminal states do not allow outgoing transitions.
func ValidateLifecycleTransition(from, to LifecycleStatus) *APIError {
	valid := map[LifecycleStatus][]LifecycleStatus{
		"":                  {LifecycleQueued},
		LifecycleQueued:     {LifecycleProcessing, LifecycleCancelled},
		LifecycleProcessing: {LifecycleCompleted, LifecycleFailed, LifecycleCancelled},
	}

	allowed, exists := valid[from]
	if !exists {
		return NewConflictError(
			fmt.Sprintf("invalid transition from %s to %s", from, to))
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return NewConflictError(
		fmt.Sprintf("invalid transition from %s to %s", from, to))
}
