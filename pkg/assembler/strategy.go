package assembler

import (
	"fmt"
	"sort"

	"github.com/crewkit/crewkit/pkg/analyzer"
	"github.com/crewkit/crewkit/pkg/search"
)

// Strategy names accepted in configuration and per-call overrides.
const (
	StrategySemantic = "semantic"
	StrategyWeighted = "weighted"
	StrategyGreedy   = "greedy"
	StrategyEnsemble = "ensemble"
)

// RequirementMatches pairs one requirement with its ranked candidates,
// best first.
type RequirementMatches struct {
	Requirement analyzer.Requirement
	Candidates  []search.Candidate
}

// Selection is the input to a strategy: per-requirement candidate
// rankings over a stable registry snapshot, plus floor members that
// adaptation carries in pre-chosen.
type Selection struct {
	Matches  []RequirementMatches
	Config   Config
	Position func(agentID string) int
	Floor    []string
}

// Strategy picks an ordered list of agent ids from a Selection. The
// returned order becomes the team's member order. Strategies requiring
// full coverage return InsufficientCapabilityError alongside their
// partial pick.
type Strategy interface {
	Name() string
	Select(sel *Selection) ([]string, error)
}

// newStrategy resolves a strategy name. The set is closed; new
// strategies are added here, not registered at runtime.
func newStrategy(name string) (Strategy, error) {
	switch name {
	case StrategySemantic:
		return &semanticStrategy{}, nil
	case StrategyWeighted:
		return &weightedStrategy{}, nil
	case StrategyGreedy:
		return &greedyStrategy{}, nil
	case StrategyEnsemble:
		return &ensembleStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown selection strategy: %q", name)
	}
}

// coverage returns the requirement indices the agent appears in.
func (s *Selection) coverage(agentID string) []int {
	var covered []int
	for i, m := range s.Matches {
		for _, c := range m.Candidates {
			if c.Record.AgentID == agentID {
				covered = append(covered, i)
				break
			}
		}
	}
	return covered
}

// score returns the agent's similarity for one requirement.
func (s *Selection) score(agentID string, reqIdx int) (float32, bool) {
	for _, c := range s.Matches[reqIdx].Candidates {
		if c.Record.AgentID == agentID {
			return c.Score, true
		}
	}
	return 0, false
}

// bestScore returns the agent's highest similarity across requirements.
func (s *Selection) bestScore(agentID string) float32 {
	var best float32
	for i := range s.Matches {
		if sc, ok := s.score(agentID, i); ok && sc > best {
			best = sc
		}
	}
	return best
}

// orderedAgents lists every candidate agent once, in first-appearance
// order across the requirement list. Gives strategies a deterministic
// iteration order without ranging over maps.
func (s *Selection) orderedAgents() []string {
	seen := make(map[string]bool)
	var agents []string
	for _, m := range s.Matches {
		for _, c := range m.Candidates {
			if !seen[c.Record.AgentID] {
				seen[c.Record.AgentID] = true
				agents = append(agents, c.Record.AgentID)
			}
		}
	}
	return agents
}

// semanticStrategy walks requirements in priority order and picks the
// best unchosen candidate for each until the optimal size is reached.
type semanticStrategy struct{}

func (s *semanticStrategy) Name() string { return StrategySemantic }

func (s *semanticStrategy) Select(sel *Selection) ([]string, error) {
	chosen := append([]string(nil), sel.Floor...)
	chosenSet := toSet(chosen)

	for _, m := range sel.Matches {
		if len(chosen) >= sel.Config.OptimalTeamSize {
			break
		}
		for _, c := range m.Candidates {
			if chosenSet[c.Record.AgentID] {
				continue
			}
			chosen = append(chosen, c.Record.AgentID)
			chosenSet[c.Record.AgentID] = true
			break
		}
	}
	return chosen, nil
}

// weightedStrategy ranks every (requirement, candidate) pair globally by
// similarity times category, keyword, and priority bonuses, covers each
// requirement from the top of that ranking, then fills remaining seats.
// Uncovered requirements are recorded, not fatal.
type weightedStrategy struct{}

func (s *weightedStrategy) Name() string { return StrategyWeighted }

type weightedEntry struct {
	agentID string
	reqIdx  int
	weight  float64
}

func (s *weightedStrategy) Select(sel *Selection) ([]string, error) {
	entries := s.rank(sel)

	chosen := append([]string(nil), sel.Floor...)
	chosenSet := toSet(chosen)
	covered := coveredBy(sel, chosen)

	// Coverage pass: serve each requirement from the global ranking.
	for _, e := range entries {
		if covered[e.reqIdx] {
			continue
		}
		if chosenSet[e.agentID] {
			covered[e.reqIdx] = true
			continue
		}
		if len(chosen) >= sel.Config.MaxTeamSize {
			continue
		}
		chosen = append(chosen, e.agentID)
		chosenSet[e.agentID] = true
		covered[e.reqIdx] = true
	}

	// Fill pass: top up to the optimal size from the same ranking.
	for _, e := range entries {
		if len(chosen) >= sel.Config.OptimalTeamSize {
			break
		}
		if chosenSet[e.agentID] {
			continue
		}
		chosen = append(chosen, e.agentID)
		chosenSet[e.agentID] = true
	}

	return chosen, nil
}

func (s *weightedStrategy) rank(sel *Selection) []weightedEntry {
	var entries []weightedEntry
	for i, m := range sel.Matches {
		for _, c := range m.Candidates {
			w := float64(c.Score)
			if m.Requirement.Category != "" && c.Record.Category == m.Requirement.Category {
				w *= float64(sel.Config.CategoryBonus)
			}
			if keywordOverlap(m.Requirement.Text, c.Record.Keywords) {
				w *= float64(sel.Config.KeywordBonus)
			}
			w *= float64(m.Requirement.Priority.Weight())
			entries = append(entries, weightedEntry{agentID: c.Record.AgentID, reqIdx: i, weight: w})
		}
	}
	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].weight != entries[b].weight {
			return entries[a].weight > entries[b].weight
		}
		pa, pb := sel.Position(entries[a].agentID), sel.Position(entries[b].agentID)
		if pa != pb {
			return pa < pb
		}
		return entries[a].reqIdx < entries[b].reqIdx
	})
	return entries
}

// greedyStrategy is a set-cover heuristic: repeatedly pick the agent
// covering the most still-uncovered requirements, ties broken by
// similarity then registration order. Unlike the other strategies it
// demands full coverage and fails when the size cap prevents it.
type greedyStrategy struct{}

func (s *greedyStrategy) Name() string { return StrategyGreedy }

func (s *greedyStrategy) Select(sel *Selection) ([]string, error) {
	agents := sel.orderedAgents()
	agentCoverage := make(map[string][]int, len(agents))
	for _, id := range agents {
		agentCoverage[id] = sel.coverage(id)
	}

	chosen := append([]string(nil), sel.Floor...)
	chosenSet := toSet(chosen)
	covered := coveredBy(sel, chosen)

	for len(covered) < len(sel.Matches) && len(chosen) < sel.Config.MaxTeamSize {
		best := ""
		bestMarginal := 0
		var bestScore float32
		for _, id := range agents {
			if chosenSet[id] {
				continue
			}
			marginal := 0
			for _, reqIdx := range agentCoverage[id] {
				if !covered[reqIdx] {
					marginal++
				}
			}
			if marginal == 0 {
				continue
			}
			score := sel.bestScore(id)
			switch {
			case marginal > bestMarginal:
			case marginal == bestMarginal && score > bestScore:
			case marginal == bestMarginal && score == bestScore &&
				sel.Position(id) < sel.Position(best):
			default:
				continue
			}
			best, bestMarginal, bestScore = id, marginal, score
		}
		if best == "" {
			break // nothing left adds coverage
		}
		chosen = append(chosen, best)
		chosenSet[best] = true
		for _, reqIdx := range agentCoverage[best] {
			covered[reqIdx] = true
		}
	}

	if len(covered) < len(sel.Matches) {
		return chosen, &InsufficientCapabilityError{
			Strategy:    StrategyGreedy,
			Selected:    len(chosen),
			MinTeamSize: sel.Config.MinTeamSize,
			Report:      buildReport(sel, chosen),
		}
	}
	return chosen, nil
}

// ensembleStrategy unions the picks of all other strategies in order,
// then trims overflow by keeping the highest-similarity agents.
type ensembleStrategy struct{}

func (s *ensembleStrategy) Name() string { return StrategyEnsemble }

func (s *ensembleStrategy) Select(sel *Selection) ([]string, error) {
	var union []string
	seen := make(map[string]bool)
	for _, strat := range []Strategy{&semanticStrategy{}, &weightedStrategy{}, &greedyStrategy{}} {
		// A greedy coverage failure still contributes its partial pick.
		picks, _ := strat.Select(sel)
		for _, id := range picks {
			if !seen[id] {
				seen[id] = true
				union = append(union, id)
			}
		}
	}

	if len(union) <= sel.Config.MaxTeamSize {
		return union, nil
	}

	// Trim the lowest-similarity agents, floor members excepted.
	ranked := append([]string(nil), union...)
	sort.SliceStable(ranked, func(a, b int) bool {
		sa, sb := sel.bestScore(ranked[a]), sel.bestScore(ranked[b])
		if sa != sb {
			return sa > sb
		}
		return sel.Position(ranked[a]) < sel.Position(ranked[b])
	})
	keep := make(map[string]bool)
	for _, id := range sel.Floor {
		keep[id] = true
	}
	for _, id := range ranked {
		if len(keep) >= sel.Config.MaxTeamSize {
			break
		}
		keep[id] = true
	}

	trimmed := make([]string, 0, sel.Config.MaxTeamSize)
	for _, id := range union {
		if keep[id] {
			trimmed = append(trimmed, id)
		}
	}
	return trimmed, nil
}

// coveredBy marks the requirements served by an already-chosen set.
func coveredBy(sel *Selection, chosen []string) map[int]bool {
	covered := make(map[int]bool)
	for _, id := range chosen {
		for _, reqIdx := range sel.coverage(id) {
			covered[reqIdx] = true
		}
	}
	return covered
}

// buildReport computes requirement coverage for a chosen set.
func buildReport(sel *Selection, chosen []string) CoverageReport {
	chosenSet := toSet(chosen)
	report := CoverageReport{Requirements: make([]RequirementCoverage, 0, len(sel.Matches))}
	for _, m := range sel.Matches {
		rc := RequirementCoverage{Requirement: m.Requirement.Text}
		for _, c := range m.Candidates {
			if chosenSet[c.Record.AgentID] {
				rc.AgentIDs = append(rc.AgentIDs, c.Record.AgentID)
			}
		}
		report.Requirements = append(report.Requirements, rc)
	}
	return report
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
