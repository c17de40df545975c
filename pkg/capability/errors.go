package capability

import "fmt"

// DuplicateAgentError indicates a registration attempt for an agent_id that
// is already present.
type DuplicateAgentError struct {
	AgentID string
}

// Error implements the error interface.
func (e *DuplicateAgentError) Error() string {
	return fmt.Sprintf("agent '%s' is already registered", e.AgentID)
}

// NotFoundError indicates a lookup or deregistration for an unknown agent_id.
type NotFoundError struct {
	AgentID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("agent '%s' not found", e.AgentID)
}
