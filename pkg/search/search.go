// Package search ranks registered agents against a single requirement.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/crewkit/crewkit/pkg/capability"
)

// DefaultTopK bounds the result list when the caller does not set a limit.
const DefaultTopK = 5

// Candidate is one agent scored against a requirement. Score is in [0, 1],
// higher is a better match.
type Candidate struct {
	Record *capability.Record
	Score  float32
}

// Search finds candidate agents for a requirement, semantically when the
// registry has a vector index and by keyword overlap otherwise.
type Search struct {
	registry *capability.Registry
	timeout  time.Duration
}

// New creates a Search over the given registry. A zero timeout disables
// the per-query deadline.
func New(registry *capability.Registry, timeout time.Duration) *Search {
	return &Search{registry: registry, timeout: timeout}
}

// FindCandidates returns up to topK agents ranked against the requirement,
// best first. Ties are broken by registration order, earliest first.
// Fails with EmptyRegistryError when no agents are registered and with
// SearchTimeoutError when the query deadline is exceeded.
func (s *Search) FindCandidates(ctx context.Context, requirement string, topK int) ([]Candidate, error) {
	if strings.TrimSpace(requirement) == "" {
		return nil, fmt.Errorf("requirement cannot be empty")
	}
	if s.registry.Count() == 0 {
		return nil, &EmptyRegistryError{}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var (
		candidates []Candidate
		err        error
	)
	if s.registry.Index() != nil && s.registry.Embedder() != nil {
		candidates, err = s.semanticCandidates(ctx, requirement, topK)
	} else {
		candidates = s.keywordCandidates(requirement)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &SearchTimeoutError{Requirement: requirement, Timeout: s.timeout}
		}
		return nil, err
	}

	s.rank(candidates)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// semanticCandidates embeds the requirement and queries the vector index.
// Index hits whose agents have since been deregistered are dropped.
func (s *Search) semanticCandidates(ctx context.Context, requirement string, topK int) ([]Candidate, error) {
	vec, err := s.registry.Embedder().Embed(ctx, requirement)
	if err != nil {
		return nil, fmt.Errorf("failed to embed requirement: %w", err)
	}

	// Over-fetch to survive stale index entries.
	results, err := s.registry.Index().Search(ctx, s.registry.Collection(), vec, topK*2)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(results))
	for _, res := range results {
		rec, err := s.registry.Get(res.ID)
		if err != nil {
			continue
		}
		candidates = append(candidates, Candidate{Record: rec, Score: clampScore(res.Score)})
	}
	return candidates, nil
}

// keywordCandidates scores every record by the fraction of requirement
// tokens appearing in its search text.
func (s *Search) keywordCandidates(requirement string) []Candidate {
	tokens := strings.Fields(strings.ToLower(requirement))
	if len(tokens) == 0 {
		return nil
	}

	var candidates []Candidate
	for rec := range s.registry.ListAll() {
		text := strings.ToLower(rec.SearchText())
		matched := 0
		for _, tok := range tokens {
			if strings.Contains(text, tok) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			Record: rec,
			Score:  float32(matched) / float32(len(tokens)),
		})
	}
	return candidates
}

// rank orders candidates by descending score, then by registration order.
func (s *Search) rank(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return s.registry.Position(candidates[i].Record.AgentID) <
			s.registry.Position(candidates[j].Record.AgentID)
	})
}

func clampScore(score float32) float32 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
