package assembler

import (
	"fmt"
	"strings"
)

// RequirementCoverage records which chosen agents cover one requirement.
// An empty AgentIDs list means the requirement is unmet.
type RequirementCoverage struct {
	Requirement string   `json:"requirement"`
	AgentIDs    []string `json:"agent_ids"`
}

// CoverageReport maps every requirement of an assembly attempt to the
// chosen agents covering it, in requirement order.
type CoverageReport struct {
	Requirements []RequirementCoverage `json:"requirements"`
}

// Unmet returns the requirements no chosen agent covers.
func (r CoverageReport) Unmet() []string {
	var unmet []string
	for _, rc := range r.Requirements {
		if len(rc.AgentIDs) == 0 {
			unmet = append(unmet, rc.Requirement)
		}
	}
	return unmet
}

// FullyCovered reports whether every requirement has at least one cover.
func (r CoverageReport) FullyCovered() bool {
	return len(r.Unmet()) == 0
}

// InsufficientCapabilityError indicates the registry could not supply a
// valid team: either too few distinct agents for the minimum size, or,
// for full-coverage strategies, requirements left uncovered within the
// maximum size. The report carries the partial coverage so callers can
// retry with relaxed constraints.
type InsufficientCapabilityError struct {
	Strategy    string
	Selected    int
	MinTeamSize int
	Report      CoverageReport
}

// Error implements the error interface.
func (e *InsufficientCapabilityError) Error() string {
	unmet := e.Report.Unmet()
	if len(unmet) > 0 {
		return fmt.Sprintf("insufficient capabilities (%s): %d agent(s) selected, unmet requirements: %s",
			e.Strategy, e.Selected, strings.Join(unmet, "; "))
	}
	return fmt.Sprintf("insufficient capabilities (%s): %d agent(s) selected, minimum team size is %d",
		e.Strategy, e.Selected, e.MinTeamSize)
}
