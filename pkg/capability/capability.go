// Package capability manages agent capability records and their projection
// into the vector index used for semantic matching.
package capability

import (
	"strings"
	"time"
)

// Category classifies an agent's primary mode of work.
type Category string

const (
	CategoryReasoning    Category = "reasoning"
	CategoryCreation     Category = "creation"
	CategoryAnalysis     Category = "analysis"
	CategoryExecution    Category = "execution"
	CategoryCoordination Category = "coordination"
	CategorySpecialized  Category = "specialized"
)

// Categories lists all known categories.
func Categories() []Category {
	return []Category{
		CategoryReasoning,
		CategoryCreation,
		CategoryAnalysis,
		CategoryExecution,
		CategoryCoordination,
		CategorySpecialized,
	}
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryReasoning, CategoryCreation, CategoryAnalysis,
		CategoryExecution, CategoryCoordination, CategorySpecialized:
		return true
	}
	return false
}

// Record describes what a single agent can do. Records are owned by the
// Registry; callers must treat returned records as read-only.
type Record struct {
	AgentID      string         `json:"agent_id" yaml:"agent_id"`
	AgentName    string         `json:"agent_name" yaml:"agent_name"`
	Description  string         `json:"description" yaml:"description"`
	Capabilities []string       `json:"capabilities" yaml:"capabilities"`
	Category     Category       `json:"category" yaml:"category"`
	Keywords     []string       `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchText flattens the record into the text that gets embedded and
// indexed. Registration and query embeddings must go through the same
// embedder so the vectors share a space.
func (r *Record) SearchText() string {
	parts := make([]string, 0, 2+len(r.Capabilities)+len(r.Keywords))
	parts = append(parts, r.AgentName, r.Description)
	parts = append(parts, r.Capabilities...)
	parts = append(parts, r.Keywords...)
	return strings.Join(parts, " ")
}

// HasCapability reports whether the record claims the given capability tag
// (case-insensitive).
func (r *Record) HasCapability(tag string) bool {
	for _, c := range r.Capabilities {
		if strings.EqualFold(c, tag) {
			return true
		}
	}
	return false
}

// MatchesText reports whether the query appears in the record's search
// text or keywords. Used by the keyword fallback search when no vector
// provider is configured.
func (r *Record) MatchesText(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(r.SearchText()), q) {
		return true
	}
	for _, kw := range r.Keywords {
		if strings.Contains(strings.ToLower(kw), q) {
			return true
		}
	}
	return false
}
