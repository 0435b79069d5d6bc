package domain

import "fmt"

// RequestState is a step of a single chat request.
type RequestState string

const (
	StateCreated         RequestState = "CREATED"
	StateValidating      RequestState = "VALIDATING"
	StateSessionVerified RequestState = "SESSION_VERIFIED"
	StateRetrieving      RequestState = "RETRIEVING"
	StateComposing       RequestState = "COMPOSING"
	StateGenerating      RequestState = "GENERATING"
	StatePersisting      RequestState = "PERSISTING"
	StateCompleted       RequestState = "COMPLETED"
	StateFailed          RequestState = "FAILED"
)

var nextState = map[RequestState]RequestState{
	StateCreated:         StateValidating,
	StateValidating:      StateSessionVerified,
	StateSessionVerified: StateRetrieving,
	StateRetrieving:      StateComposing,
	StateComposing:       StateGenerating,
	StateGenerating:      StatePersisting,
	StatePersisting:      StateCompleted,
}

// Terminal reports whether no further transition is possible.
func (s RequestState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransition reports whether moving from s to next is allowed.
// Failed is reachable from every non-terminal state.
func (s RequestState) CanTransition(next RequestState) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	return nextState[s] == next
}

// Transition returns next, or an error if the move is not allowed.
func (s RequestState) Transition(next RequestState) (RequestState, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("illegal request state transition %s -> %s", s, next)
	}
	return next, nil
}
