package assembler

import (
	"context"
	"errors"
	"testing"

	"github.com/crewkit/crewkit/pkg/analyzer"
	"github.com/crewkit/crewkit/pkg/capability"
	"github.com/crewkit/crewkit/pkg/search"
	"github.com/crewkit/crewkit/pkg/team"
)

func newTestAssembler(t *testing.T, cfg Config, records ...*capability.Record) *Assembler {
	t.Helper()
	reg := capability.NewRegistry(nil, nil, "")
	for _, rec := range records {
		if err := reg.Register(context.Background(), rec); err != nil {
			t.Fatalf("Register(%s) error = %v", rec.AgentID, err)
		}
	}
	a, err := New(reg, search.New(reg, 0), cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func record(id string, category capability.Category, caps ...string) *capability.Record {
	return &capability.Record{
		AgentID:      id,
		AgentName:    "Agent " + id,
		Description:  "registered agent",
		Capabilities: caps,
		Category:     category,
	}
}

func reqs(texts ...string) []analyzer.Requirement {
	out := make([]analyzer.Requirement, len(texts))
	for i, t := range texts {
		out[i] = analyzer.Requirement{Text: t, Priority: analyzer.PriorityMedium}
	}
	return out
}

func memberIDs(members []team.Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.Record.AgentID
	}
	return ids
}

func TestAssemble_SemanticScenario(t *testing.T) {
	a := newTestAssembler(t, Config{},
		record("A", capability.CategoryExecution, "codegeneration", "refactoring"),
		record("B", capability.CategoryAnalysis, "analysis", "statistics"),
		record("C", capability.CategoryCreation, "visualization"),
	)

	assembly, err := a.Assemble(context.Background(), team.AssembleRequest{
		Strategy:     StrategySemantic,
		Requirements: reqs("analysis", "visualization"),
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	got := memberIDs(assembly.Members)
	if len(got) != 2 || got[0] != "B" || got[1] != "C" {
		t.Fatalf("members = %v, want [B C]", got)
	}
	if assembly.Members[0].Role != team.RoleLeader {
		t.Errorf("B role = %q, want leader", assembly.Members[0].Role)
	}
	if assembly.Members[1].Role != team.RoleSpecialist {
		t.Errorf("C role = %q, want specialist", assembly.Members[1].Role)
	}
	if len(assembly.Unmet) != 0 {
		t.Errorf("unmet = %v, want none", assembly.Unmet)
	}
}

func TestAssemble_GreedyFailsWithoutFullCoverage(t *testing.T) {
	a := newTestAssembler(t,
		Config{MinTeamSize: 1, OptimalTeamSize: 2, MaxTeamSize: 2},
		record("A", capability.CategorySpecialized, "alpha"),
		record("B", capability.CategorySpecialized, "beta"),
		record("C", capability.CategorySpecialized, "gamma"),
	)

	_, err := a.Assemble(context.Background(), team.AssembleRequest{
		Strategy:     StrategyGreedy,
		Requirements: reqs("alpha", "beta", "gamma"),
	})

	var insErr *InsufficientCapabilityError
	if !errors.As(err, &insErr) {
		t.Fatalf("Assemble() error = %v, want InsufficientCapabilityError", err)
	}
	if len(insErr.Report.Requirements) != 3 {
		t.Fatalf("report has %d requirements, want all 3", len(insErr.Report.Requirements))
	}
	if unmet := insErr.Report.Unmet(); len(unmet) != 1 || unmet[0] != "gamma" {
		t.Errorf("unmet = %v, want [gamma]", unmet)
	}
}

func TestAssemble_GreedyCoversWithFewestAgents(t *testing.T) {
	a := newTestAssembler(t, Config{},
		record("narrow1", capability.CategorySpecialized, "alpha"),
		record("narrow2", capability.CategorySpecialized, "beta"),
		record("wide", capability.CategorySpecialized, "alpha", "beta", "gamma"),
	)

	assembly, err := a.Assemble(context.Background(), team.AssembleRequest{
		Strategy:     StrategyGreedy,
		Requirements: reqs("alpha", "beta", "gamma"),
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	got := memberIDs(assembly.Members)
	if len(got) != 1 || got[0] != "wide" {
		t.Errorf("members = %v, want [wide]", got)
	}
}

func TestAssemble_WeightedCategoryBonus(t *testing.T) {
	a := newTestAssembler(t,
		Config{MinTeamSize: 1, OptimalTeamSize: 1, MaxTeamSize: 5},
		record("plain", capability.CategorySpecialized, "auditing"),
		record("expert", capability.CategoryAnalysis, "auditing"),
	)

	assembly, err := a.Assemble(context.Background(), team.AssembleRequest{
		Strategy: StrategyWeighted,
		Requirements: []analyzer.Requirement{
			{Text: "auditing", Priority: analyzer.PriorityMedium, Category: capability.CategoryAnalysis},
		},
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	got := memberIDs(assembly.Members)
	if len(got) != 1 || got[0] != "expert" {
		t.Errorf("members = %v, want [expert] (category bonus should win)", got)
	}
}

func TestAssemble_WeightedRecordsUncoveredWithoutFailing(t *testing.T) {
	a := newTestAssembler(t, Config{},
		record("A", capability.CategorySpecialized, "alpha"),
	)

	assembly, err := a.Assemble(context.Background(), team.AssembleRequest{
		Strategy:     StrategyWeighted,
		Requirements: reqs("alpha", "omega"),
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(assembly.Unmet) != 1 || assembly.Unmet[0] != "omega" {
		t.Errorf("unmet = %v, want [omega]", assembly.Unmet)
	}
}

func TestAssemble_PadsToMinTeamSize(t *testing.T) {
	a := newTestAssembler(t,
		Config{MinTeamSize: 2, OptimalTeamSize: 2, MaxTeamSize: 3},
		record("best", capability.CategorySpecialized, "alpha"),
		record("spare", capability.CategorySpecialized, "alpha"),
	)

	// One requirement, so semantic picks a single agent; the minimum
	// forces a second one in.
	assembly, err := a.Assemble(context.Background(), team.AssembleRequest{
		Strategy:     StrategySemantic,
		Requirements: reqs("alpha"),
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(assembly.Members) != 2 {
		t.Errorf("got %d members, want 2 after padding", len(assembly.Members))
	}
}

func TestAssemble_InsufficientAgentsForMin(t *testing.T) {
	a := newTestAssembler(t,
		Config{MinTeamSize: 3, OptimalTeamSize: 3, MaxTeamSize: 5},
		record("only", capability.CategorySpecialized, "alpha"),
	)

	_, err := a.Assemble(context.Background(), team.AssembleRequest{
		Strategy:     StrategySemantic,
		Requirements: reqs("alpha"),
	})
	var insErr *InsufficientCapabilityError
	if !errors.As(err, &insErr) {
		t.Fatalf("Assemble() error = %v, want InsufficientCapabilityError", err)
	}
	if insErr.Selected != 1 || insErr.MinTeamSize != 3 {
		t.Errorf("Selected/MinTeamSize = %d/%d, want 1/3", insErr.Selected, insErr.MinTeamSize)
	}
}

func TestAssemble_EmptyRegistry(t *testing.T) {
	a := newTestAssembler(t, Config{})

	_, err := a.Assemble(context.Background(), team.AssembleRequest{
		Requirements: reqs("anything"),
	})
	var emptyErr *search.EmptyRegistryError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("Assemble() error = %v, want EmptyRegistryError", err)
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	a := newTestAssembler(t, Config{},
		record("a1", capability.CategoryAnalysis, "parsing", "reporting"),
		record("a2", capability.CategorySpecialized, "validation"),
		record("a3", capability.CategorySpecialized, "storage"),
		record("a4", capability.CategorySpecialized, "reporting"),
	)
	req := team.AssembleRequest{
		Strategy:     StrategyEnsemble,
		Requirements: reqs("parsing", "validation", "storage", "reporting"),
	}

	first, err := a.Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("first Assemble() error = %v", err)
	}
	second, err := a.Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("second Assemble() error = %v", err)
	}

	firstIDs, secondIDs := memberIDs(first.Members), memberIDs(second.Members)
	if len(firstIDs) != len(secondIDs) {
		t.Fatalf("member counts differ: %v vs %v", firstIDs, secondIDs)
	}
	for i := range firstIDs {
		if firstIDs[i] != secondIDs[i] {
			t.Errorf("member %d differs: %q vs %q", i, firstIDs[i], secondIDs[i])
		}
		if first.Members[i].Role != second.Members[i].Role {
			t.Errorf("role %d differs: %q vs %q", i, first.Members[i].Role, second.Members[i].Role)
		}
	}
}

func TestAssemble_RolePolicy(t *testing.T) {
	a := newTestAssembler(t,
		Config{MinTeamSize: 1, OptimalTeamSize: 4, MaxTeamSize: 5},
		record("lead", capability.CategoryAnalysis, "parsing", "reporting"),
		record("exec", capability.CategoryExecution, "validation"),
		record("spec", capability.CategorySpecialized, "storage"),
		record("rev", capability.CategorySpecialized, "reporting"),
	)

	requirements := reqs("parsing", "validation", "storage", "reporting")
	requirements[3].Priority = analyzer.PriorityLow

	assembly, err := a.Assemble(context.Background(), team.AssembleRequest{
		Strategy:     StrategySemantic,
		Requirements: requirements,
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	roles := make(map[string]team.Role)
	leaders := 0
	for _, m := range assembly.Members {
		roles[m.Record.AgentID] = m.Role
		if m.Role == team.RoleLeader {
			leaders++
		}
	}
	if leaders != 1 {
		t.Fatalf("got %d leaders, want exactly 1", leaders)
	}
	if roles["lead"] != team.RoleLeader {
		t.Errorf("lead role = %q, want leader (covers two requirements)", roles["lead"])
	}
	if roles["exec"] != team.RoleExecutor {
		t.Errorf("exec role = %q, want executor", roles["exec"])
	}
	if roles["spec"] != team.RoleSpecialist {
		t.Errorf("spec role = %q, want specialist", roles["spec"])
	}
	if roles["rev"] != team.RoleReviewer {
		t.Errorf("rev role = %q, want reviewer (lowest priority match, not a sole cover)", roles["rev"])
	}
}

func TestAssemble_CoordinatorRole(t *testing.T) {
	a := newTestAssembler(t, Config{},
		record("lead", capability.CategoryAnalysis, "analysis", "reporting"),
		record("coord", capability.CategoryCoordination, "coordinate", "coordination"),
		record("spec", capability.CategorySpecialized, "storage"),
	)

	assembly, err := a.Assemble(context.Background(), team.AssembleRequest{
		Strategy:     StrategySemantic,
		Requirements: reqs("analysis", "coordinate the rollout", "storage", "reporting"),
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	roles := make(map[string]team.Role)
	for _, m := range assembly.Members {
		roles[m.Record.AgentID] = m.Role
	}
	if roles["coord"] != team.RoleCoordinator {
		t.Errorf("coord role = %q, want coordinator", roles["coord"])
	}
}

func TestAssemble_AdaptationFloor(t *testing.T) {
	stillUseful := record("keep", capability.CategorySpecialized, "alpha")
	obsolete := record("drop", capability.CategorySpecialized, "omega")
	a := newTestAssembler(t, Config{},
		stillUseful,
		obsolete,
		record("new", capability.CategorySpecialized, "beta"),
	)

	assembly, err := a.Assemble(context.Background(), team.AssembleRequest{
		Strategy:     StrategyGreedy,
		Requirements: reqs("alpha", "beta"),
		Floor: []team.Member{
			{Record: stillUseful},
			{Record: obsolete},
		},
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	got := memberIDs(assembly.Members)
	if len(got) != 2 || got[0] != "keep" || got[1] != "new" {
		t.Errorf("members = %v, want [keep new] (floor kept, zero-coverage member dropped)", got)
	}
}

func TestAssemble_UnknownStrategy(t *testing.T) {
	a := newTestAssembler(t, Config{},
		record("A", capability.CategorySpecialized, "alpha"),
	)
	if _, err := a.Assemble(context.Background(), team.AssembleRequest{
		Strategy:     "random",
		Requirements: reqs("alpha"),
	}); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"min above optimal", Config{MinTeamSize: 4, OptimalTeamSize: 3, MaxTeamSize: 5}, true},
		{"optimal above max", Config{MinTeamSize: 1, OptimalTeamSize: 6, MaxTeamSize: 5}, true},
		{"bad strategy", Config{Strategy: "psychic"}, true},
		{"bonus below one", Config{CategoryBonus: 0.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.SetDefaults()
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
