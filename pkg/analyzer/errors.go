package analyzer

import "fmt"

// AnalysisError indicates a task description that cannot be analyzed at
// all. Provider failures are not analysis errors; they trigger the
// heuristic fallback instead.
type AnalysisError struct {
	Reason string
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	return fmt.Sprintf("task analysis failed: %s", e.Reason)
}
