package analyzer

import (
	"strings"

	"github.com/crewkit/crewkit/pkg/capability"
)

// categoryKeywords maps trigger words in a clause to a category hint.
// First match wins, checked in the order listed.
var categoryKeywords = []struct {
	category capability.Category
	words    []string
}{
	{capability.CategoryCoordination, []string{"coordinate", "orchestrate", "manage", "organize", "schedule", "delegate"}},
	{capability.CategoryAnalysis, []string{"analyze", "analyse", "review", "evaluate", "assess", "audit", "inspect", "investigate"}},
	{capability.CategoryCreation, []string{"write", "create", "design", "draft", "generate", "compose", "build a report", "document"}},
	{capability.CategoryExecution, []string{"implement", "build", "deploy", "execute", "run", "code", "develop", "test", "fix"}},
	{capability.CategoryReasoning, []string{"plan", "reason", "decide", "solve", "research", "strategize", "architect"}},
}

// priorityKeywords raises a clause's priority above the default.
var priorityKeywords = []struct {
	priority Priority
	words    []string
}{
	{PriorityCritical, []string{"critical", "must", "essential", "required", "urgent"}},
	{PriorityHigh, []string{"important", "key", "primary", "core"}},
	{PriorityLow, []string{"optional", "nice to have", "if possible", "eventually"}},
}

// clauseDelimiters split a description into candidate requirements.
var clauseDelimiters = []string{
	"\n", ";", ", and ", " and then ", " then ", ". ", " and ", ",",
}

// fallbackAnalysis splits the description into clauses and tags each with
// a category and priority from keyword lookups. It always yields at least
// one requirement.
func (a *Analyzer) fallbackAnalysis(description string) *Analysis {
	clauses := splitClauses(description)

	requirements := make([]Requirement, 0, len(clauses))
	for _, clause := range clauses {
		requirements = append(requirements, Requirement{
			Text:     clause,
			Priority: inferPriority(clause),
			Category: inferCategory(clause),
		})
	}

	return &Analysis{
		Requirements: requirements,
		Source:       SourceFallback,
	}
}

// splitClauses breaks a description on the first delimiter that actually
// splits it, falling back to the whole trimmed description.
func splitClauses(description string) []string {
	description = strings.TrimSpace(description)

	for _, delim := range clauseDelimiters {
		parts := strings.Split(description, delim)
		if len(parts) < 2 {
			continue
		}
		clauses := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.Trim(strings.TrimSpace(part), ".")
			if len(part) >= 3 {
				clauses = append(clauses, part)
			}
		}
		if len(clauses) >= 2 {
			return clauses
		}
	}

	return []string{strings.Trim(description, ".")}
}

func inferCategory(clause string) capability.Category {
	lower := strings.ToLower(clause)
	for _, entry := range categoryKeywords {
		for _, word := range entry.words {
			if strings.Contains(lower, word) {
				return entry.category
			}
		}
	}
	return capability.CategorySpecialized
}

func inferPriority(clause string) Priority {
	lower := strings.ToLower(clause)
	for _, entry := range priorityKeywords {
		for _, word := range entry.words {
			if strings.Contains(lower, word) {
				return entry.priority
			}
		}
	}
	return PriorityMedium
}
