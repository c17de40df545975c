// Package assembler turns requirement lists and candidate rankings into
// teams: pluggable selection strategies followed by deterministic role
// assignment.
package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/crewkit/crewkit/pkg/analyzer"
	"github.com/crewkit/crewkit/pkg/capability"
	"github.com/crewkit/crewkit/pkg/observability"
	"github.com/crewkit/crewkit/pkg/search"
	"github.com/crewkit/crewkit/pkg/team"
)

// Config tunes selection and team sizing.
type Config struct {
	Strategy        string  `yaml:"strategy" mapstructure:"strategy"`
	MinTeamSize     int     `yaml:"min_team_size" mapstructure:"min_team_size"`
	MaxTeamSize     int     `yaml:"max_team_size" mapstructure:"max_team_size"`
	OptimalTeamSize int     `yaml:"optimal_team_size" mapstructure:"optimal_team_size"`
	TopK            int     `yaml:"top_k" mapstructure:"top_k"`
	CategoryBonus   float32 `yaml:"category_bonus" mapstructure:"category_bonus"`
	KeywordBonus    float32 `yaml:"keyword_bonus" mapstructure:"keyword_bonus"`
}

// SetDefaults applies default configuration values.
func (c *Config) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = StrategySemantic
	}
	if c.MinTeamSize == 0 {
		c.MinTeamSize = 1
	}
	if c.MaxTeamSize == 0 {
		c.MaxTeamSize = 5
	}
	if c.OptimalTeamSize == 0 {
		c.OptimalTeamSize = 3
	}
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.CategoryBonus == 0 {
		c.CategoryBonus = 1.25
	}
	if c.KeywordBonus == 0 {
		c.KeywordBonus = 1.10
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if _, err := newStrategy(c.Strategy); err != nil {
		return err
	}
	if c.MinTeamSize < 1 {
		return fmt.Errorf("min_team_size must be at least 1")
	}
	if c.MinTeamSize > c.OptimalTeamSize || c.OptimalTeamSize > c.MaxTeamSize {
		return fmt.Errorf("team sizes must satisfy min <= optimal <= max, got %d/%d/%d",
			c.MinTeamSize, c.OptimalTeamSize, c.MaxTeamSize)
	}
	if c.CategoryBonus < 1 || c.KeywordBonus < 1 {
		return fmt.Errorf("scoring bonuses must be at least 1.0")
	}
	return nil
}

// Assembler composes teams from a registry snapshot. One Assemble call
// assumes a stable registry for its duration; concurrent assemblies over
// overlapping agents need external serialization.
type Assembler struct {
	registry *capability.Registry
	search   *search.Search
	cfg      Config
	logger   *slog.Logger
}

// New creates an Assembler. logger may be nil.
func New(registry *capability.Registry, srch *search.Search, cfg Config, logger *slog.Logger) (*Assembler, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{registry: registry, search: srch, cfg: cfg, logger: logger}, nil
}

// Assemble selects members for the given requirements and assigns roles.
// The returned member order is the selection order; identical inputs
// over the same registry snapshot produce identical output.
func (a *Assembler) Assemble(ctx context.Context, req team.AssembleRequest) (*team.Assembly, error) {
	if len(req.Requirements) == 0 {
		return nil, fmt.Errorf("at least one requirement is required")
	}

	strategyName := req.Strategy
	if strategyName == "" {
		strategyName = a.cfg.Strategy
	}
	strat, err := newStrategy(strategyName)
	if err != nil {
		return nil, err
	}

	matches, err := a.gatherMatches(ctx, req.Requirements)
	if err != nil {
		observability.AssembliesTotal.WithLabelValues(strategyName, "failure").Inc()
		return nil, err
	}

	sel := &Selection{Matches: matches, Config: a.cfg, Position: a.registry.Position}
	sel.Floor = a.floorIDs(sel, req.Floor)

	chosen, err := strat.Select(sel)
	if err != nil {
		observability.AssembliesTotal.WithLabelValues(strategyName, "failure").Inc()
		return nil, err
	}

	chosen = a.trimToMax(sel, chosen)
	chosen, err = a.padToMin(sel, chosen, strategyName)
	if err != nil {
		observability.AssembliesTotal.WithLabelValues(strategyName, "failure").Inc()
		return nil, err
	}

	members := a.buildMembers(sel, chosen)
	assignRoles(members, sel)

	report := buildReport(sel, chosen)
	observability.AssembliesTotal.WithLabelValues(strategyName, "success").Inc()
	a.logger.Debug("Assembly complete",
		"strategy", strategyName,
		"members", len(members),
		"unmet", len(report.Unmet()))

	return &team.Assembly{
		Members:  members,
		Unmet:    report.Unmet(),
		Strategy: strategyName,
	}, nil
}

// gatherMatches runs one candidate search per requirement.
func (a *Assembler) gatherMatches(ctx context.Context, requirements []analyzer.Requirement) ([]RequirementMatches, error) {
	matches := make([]RequirementMatches, 0, len(requirements))
	for _, r := range requirements {
		candidates, err := a.search.FindCandidates(ctx, r.Text, a.cfg.TopK)
		if err != nil {
			return nil, err
		}
		matches = append(matches, RequirementMatches{Requirement: r, Candidates: candidates})
	}
	return matches, nil
}

// floorIDs keeps adaptation floor members that still exist and still
// cover at least one requirement. A floor member whose coverage dropped
// to zero may be removed.
func (a *Assembler) floorIDs(sel *Selection, floor []team.Member) []string {
	var ids []string
	for _, m := range floor {
		id := m.Record.AgentID
		if _, err := a.registry.Get(id); err != nil {
			continue
		}
		if len(sel.coverage(id)) == 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// trimToMax drops the weakest members of an oversized pick, floor
// members excepted, preserving selection order for the survivors.
func (a *Assembler) trimToMax(sel *Selection, chosen []string) []string {
	if len(chosen) <= sel.Config.MaxTeamSize {
		return chosen
	}

	ranked := append([]string(nil), chosen...)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri := float64(len(sel.coverage(ranked[i]))) * float64(sel.bestScore(ranked[i]))
		rj := float64(len(sel.coverage(ranked[j]))) * float64(sel.bestScore(ranked[j]))
		if ri != rj {
			return ri > rj
		}
		return sel.Position(ranked[i]) < sel.Position(ranked[j])
	})

	keep := toSet(sel.Floor)
	for _, id := range ranked {
		if len(keep) >= sel.Config.MaxTeamSize {
			break
		}
		keep[id] = true
	}

	trimmed := make([]string, 0, sel.Config.MaxTeamSize)
	for _, id := range chosen {
		if keep[id] {
			trimmed = append(trimmed, id)
		}
	}
	return trimmed
}

// padToMin grows an undersized pick from the remaining candidate pool,
// best similarity first. Fails with InsufficientCapabilityError when the
// registry cannot supply enough distinct agents.
func (a *Assembler) padToMin(sel *Selection, chosen []string, strategyName string) ([]string, error) {
	if len(chosen) >= sel.Config.MinTeamSize {
		return chosen, nil
	}

	pool := sel.orderedAgents()
	sort.SliceStable(pool, func(i, j int) bool {
		si, sj := sel.bestScore(pool[i]), sel.bestScore(pool[j])
		if si != sj {
			return si > sj
		}
		return sel.Position(pool[i]) < sel.Position(pool[j])
	})

	chosenSet := toSet(chosen)
	for _, id := range pool {
		if len(chosen) >= sel.Config.MinTeamSize {
			break
		}
		if chosenSet[id] {
			continue
		}
		chosen = append(chosen, id)
		chosenSet[id] = true
	}

	if len(chosen) < sel.Config.MinTeamSize {
		return nil, &InsufficientCapabilityError{
			Strategy:    strategyName,
			Selected:    len(chosen),
			MinTeamSize: sel.Config.MinTeamSize,
			Report:      buildReport(sel, chosen),
		}
	}
	return chosen, nil
}

// buildMembers materializes the chosen ids as team members in selection
// order, each tagged with the requirements it covers and its average
// similarity across them.
func (a *Assembler) buildMembers(sel *Selection, chosen []string) []team.Member {
	members := make([]team.Member, 0, len(chosen))
	for _, id := range chosen {
		rec, err := a.registry.Get(id)
		if err != nil {
			continue
		}

		covered := sel.coverage(id)
		texts := make([]string, 0, len(covered))
		var sum float32
		for _, reqIdx := range covered {
			texts = append(texts, sel.Matches[reqIdx].Requirement.Text)
			if sc, ok := sel.score(id, reqIdx); ok {
				sum += sc
			}
		}
		var avg float32
		if len(covered) > 0 {
			avg = sum / float32(len(covered))
		}

		members = append(members, team.Member{
			Record:       rec,
			Score:        avg,
			Requirements: texts,
		})
	}
	return members
}

// Ensure Assembler satisfies the manager's dependency.
var _ team.Assembler = (*Assembler)(nil)
