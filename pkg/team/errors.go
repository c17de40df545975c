package team

import "fmt"

// InvalidStateTransitionError indicates an operation that is not legal in
// the team's current lifecycle state.
type InvalidStateTransitionError struct {
	TeamID string
	From   State
	To     State
	Reason string
}

// Error implements the error interface.
func (e *InvalidStateTransitionError) Error() string {
	msg := fmt.Sprintf("team '%s' cannot move from %s to %s", e.TeamID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// NotFoundError indicates a lookup for an unknown team id.
type NotFoundError struct {
	TeamID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("team '%s' not found", e.TeamID)
}
