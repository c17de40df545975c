package team

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crewkit/crewkit/pkg/analyzer"
	"github.com/crewkit/crewkit/pkg/capability"
)

type fakeAssembler struct {
	calls int
	err   error
	unmet []string
}

func (f *fakeAssembler) Assemble(ctx context.Context, req AssembleRequest) (*Assembly, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	members := testMembers("a", "b")
	if len(req.Floor) > 0 {
		members = append(req.Floor, Member{
			Record: &capability.Record{AgentID: "added"},
			Role:   RoleSpecialist,
		})
	}
	return &Assembly{Members: members, Unmet: f.unmet, Strategy: req.Strategy}, nil
}

func managerReqs(texts ...string) []analyzer.Requirement {
	out := make([]analyzer.Requirement, len(texts))
	for i, t := range texts {
		out[i] = analyzer.Requirement{Text: t, Priority: analyzer.PriorityMedium}
	}
	return out
}

func newTestManager(assembler Assembler, cfg ManagerConfig) *Manager {
	return NewManager(assembler, cfg, nil)
}

func TestManager_CreateAndGet(t *testing.T) {
	m := newTestManager(&fakeAssembler{}, ManagerConfig{})

	tm, err := m.Create(context.Background(), TypeEphemeral, AssembleRequest{
		Name:         "job",
		Requirements: managerReqs("alpha"),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if tm.State() != StateActive {
		t.Errorf("state = %q, want active right after assembly", tm.State())
	}

	got, err := m.Get(tm.ID())
	if err != nil || got.ID() != tm.ID() {
		t.Errorf("Get() = %v, %v", got, err)
	}

	var nfErr *NotFoundError
	if _, err := m.Get("ghost"); !errors.As(err, &nfErr) {
		t.Errorf("Get(ghost) error = %v, want NotFoundError", err)
	}
}

func TestManager_CreateValidation(t *testing.T) {
	m := newTestManager(&fakeAssembler{}, ManagerConfig{})
	ctx := context.Background()

	if _, err := m.Create(ctx, "imaginary", AssembleRequest{Requirements: managerReqs("x")}); err == nil {
		t.Error("expected error for unknown team type")
	}
	if _, err := m.Create(ctx, TypeEphemeral, AssembleRequest{}); err == nil {
		t.Error("expected error for empty requirements")
	}
}

func TestManager_AssemblyErrorPropagates(t *testing.T) {
	m := newTestManager(&fakeAssembler{err: errors.New("no agents")}, ManagerConfig{})

	if _, err := m.Create(context.Background(), TypeEphemeral, AssembleRequest{
		Requirements: managerReqs("alpha"),
	}); err == nil {
		t.Fatal("expected assembly error to propagate")
	}
	if len(m.List()) != 0 {
		t.Error("failed assembly must not leave a team behind")
	}
}

func TestManager_EphemeralDissolvesOnTaskCompletion(t *testing.T) {
	m := newTestManager(&fakeAssembler{}, ManagerConfig{})

	tm, err := m.Create(context.Background(), TypeEphemeral, AssembleRequest{
		Requirements: managerReqs("alpha"),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := m.CompleteTask(tm.ID()); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if tm.State() != StateDissolved {
		t.Errorf("state = %q, want dissolved after single task", tm.State())
	}

	var stateErr *InvalidStateTransitionError
	if err := m.CompleteTask(tm.ID()); !errors.As(err, &stateErr) {
		t.Errorf("CompleteTask() on dissolved team error = %v, want InvalidStateTransitionError", err)
	}
}

func TestManager_PersistentSurvivesTaskCompletion(t *testing.T) {
	m := newTestManager(&fakeAssembler{}, ManagerConfig{})

	tm, _ := m.Create(context.Background(), TypePersistent, AssembleRequest{
		Requirements: managerReqs("alpha"),
	})
	if err := m.CompleteTask(tm.ID()); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if tm.State() != StateActive {
		t.Errorf("state = %q, want active (persistent teams outlive tasks)", tm.State())
	}
	if tm.TasksCompleted() != 1 {
		t.Errorf("TasksCompleted() = %d, want 1", tm.TasksCompleted())
	}
}

func TestManager_Adapt(t *testing.T) {
	fa := &fakeAssembler{}
	m := newTestManager(fa, ManagerConfig{})

	tm, _ := m.Create(context.Background(), TypePersistent, AssembleRequest{
		Requirements: managerReqs("alpha"),
	})

	adapted, err := m.Adapt(context.Background(), tm.ID(), "", managerReqs("alpha", "beta"))
	if err != nil {
		t.Fatalf("Adapt() error = %v", err)
	}
	if adapted.State() != StateActive {
		t.Errorf("state = %q after adapt, want active", adapted.State())
	}
	if adapted.Size() != 3 {
		t.Errorf("Size() = %d, want floor plus one added member", adapted.Size())
	}
	if fa.calls != 2 {
		t.Errorf("assembler calls = %d, want 2 (create + adapt)", fa.calls)
	}
}

func TestManager_AdaptEphemeralRefused(t *testing.T) {
	m := newTestManager(&fakeAssembler{}, ManagerConfig{})

	tm, _ := m.Create(context.Background(), TypeEphemeral, AssembleRequest{
		Requirements: managerReqs("alpha"),
	})

	var stateErr *InvalidStateTransitionError
	if _, err := m.Adapt(context.Background(), tm.ID(), "", managerReqs("beta")); !errors.As(err, &stateErr) {
		t.Fatalf("Adapt() on ephemeral team error = %v, want InvalidStateTransitionError", err)
	}
}

func TestManager_AdaptFailureReactivates(t *testing.T) {
	fa := &fakeAssembler{}
	m := newTestManager(fa, ManagerConfig{})

	tm, _ := m.Create(context.Background(), TypePersistent, AssembleRequest{
		Requirements: managerReqs("alpha"),
	})

	fa.err = errors.New("registry unavailable")
	if _, err := m.Adapt(context.Background(), tm.ID(), "", managerReqs("beta")); err == nil {
		t.Fatal("expected adapt failure")
	}
	if tm.State() != StateActive {
		t.Errorf("state = %q after failed adapt, want active", tm.State())
	}
}

func TestManager_Disband(t *testing.T) {
	m := newTestManager(&fakeAssembler{}, ManagerConfig{})

	tm, _ := m.Create(context.Background(), TypePersistent, AssembleRequest{
		Requirements: managerReqs("alpha"),
	})
	if err := m.Disband(tm.ID()); err != nil {
		t.Fatalf("Disband() error = %v", err)
	}
	if tm.State() != StateDissolved {
		t.Errorf("state = %q, want dissolved", tm.State())
	}

	var stateErr *InvalidStateTransitionError
	if err := m.Disband(tm.ID()); !errors.As(err, &stateErr) {
		t.Errorf("Disband() twice error = %v, want InvalidStateTransitionError", err)
	}
}

func TestManager_CacheReusesLiveTeam(t *testing.T) {
	fa := &fakeAssembler{}
	m := newTestManager(fa, ManagerConfig{})
	req := AssembleRequest{Name: "recurring", Requirements: managerReqs("alpha", "beta")}

	first, err := m.Create(context.Background(), TypeHybrid, req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := m.Create(context.Background(), TypeHybrid, req)
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if first.ID() != second.ID() {
		t.Error("same task signature should reuse the cached team")
	}
	if fa.calls != 1 {
		t.Errorf("assembler calls = %d, want 1 (second create served from cache)", fa.calls)
	}

	// A dissolved team must never be handed out again.
	if err := m.Disband(first.ID()); err != nil {
		t.Fatalf("Disband() error = %v", err)
	}
	third, err := m.Create(context.Background(), TypeHybrid, req)
	if err != nil {
		t.Fatalf("third Create() error = %v", err)
	}
	if third.ID() == first.ID() {
		t.Error("cache returned a dissolved team")
	}
}

func TestManager_CacheRespectsRequestedType(t *testing.T) {
	fa := &fakeAssembler{}
	m := newTestManager(fa, ManagerConfig{})
	req := AssembleRequest{Name: "recurring", Requirements: managerReqs("alpha", "beta")}

	hybrid, err := m.Create(context.Background(), TypeHybrid, req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	persistent, err := m.Create(context.Background(), TypePersistent, req)
	if err != nil {
		t.Fatalf("persistent Create() error = %v", err)
	}

	if persistent.ID() == hybrid.ID() {
		t.Error("persistent request served a hybrid team from the cache")
	}
	if persistent.Type() != TypePersistent {
		t.Errorf("Type() = %q, want persistent", persistent.Type())
	}
	if fa.calls != 2 {
		t.Errorf("assembler calls = %d, want 2 (type mismatch must miss)", fa.calls)
	}
}

func TestManager_CacheHitRefreshesActivity(t *testing.T) {
	m := newTestManager(&fakeAssembler{}, ManagerConfig{IdleTimeout: time.Minute})
	req := AssembleRequest{Name: "recurring", Requirements: managerReqs("alpha")}

	tm, err := m.Create(context.Background(), TypeHybrid, req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Age the team to just inside its idle budget.
	tm.mu.Lock()
	tm.lastActiveAt = time.Now().Add(-45 * time.Second)
	tm.mu.Unlock()

	reused, err := m.Create(context.Background(), TypeHybrid, req)
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if reused.ID() != tm.ID() {
		t.Fatal("team inside its idle budget should be reused")
	}

	// Without the refresh the sweep 30s later would see 75s of idleness
	// and dissolve a team that just received a task.
	if expired := m.ExpireIdle(time.Now().Add(30 * time.Second)); len(expired) != 0 {
		t.Errorf("expired = %v, reused team must not be swept", expired)
	}
	if tm.State() != StateActive {
		t.Errorf("state = %q, want active", tm.State())
	}
}

func TestManager_CacheSkipsIdleExpiredTeam(t *testing.T) {
	fa := &fakeAssembler{}
	m := newTestManager(fa, ManagerConfig{IdleTimeout: time.Minute})
	req := AssembleRequest{Name: "recurring", Requirements: managerReqs("alpha")}

	stale, err := m.Create(context.Background(), TypeHybrid, req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Age the team past the point the sweeper would have dissolved it.
	stale.mu.Lock()
	stale.lastActiveAt = time.Now().Add(-5 * time.Minute)
	stale.mu.Unlock()

	fresh, err := m.Create(context.Background(), TypeHybrid, req)
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if fresh.ID() == stale.ID() {
		t.Error("idle-expired team must not be handed out on a cache hit")
	}
	if stale.State() != StateDissolved {
		t.Errorf("stale team state = %q, want dissolved", stale.State())
	}
	if fa.calls != 2 {
		t.Errorf("assembler calls = %d, want 2", fa.calls)
	}
}

func TestManager_EphemeralNeverCached(t *testing.T) {
	fa := &fakeAssembler{}
	m := newTestManager(fa, ManagerConfig{})
	req := AssembleRequest{Name: "oneoff", Requirements: managerReqs("alpha")}

	a, _ := m.Create(context.Background(), TypeEphemeral, req)
	b, _ := m.Create(context.Background(), TypeEphemeral, req)
	if a.ID() == b.ID() {
		t.Error("ephemeral teams must not be reused")
	}
	if fa.calls != 2 {
		t.Errorf("assembler calls = %d, want 2", fa.calls)
	}
}

func TestManager_ExpireIdle(t *testing.T) {
	m := newTestManager(&fakeAssembler{}, ManagerConfig{IdleTimeout: time.Minute})
	ctx := context.Background()

	hybrid, _ := m.Create(ctx, TypeHybrid, AssembleRequest{Name: "h", Requirements: managerReqs("alpha")})
	persistent, _ := m.Create(ctx, TypePersistent, AssembleRequest{Name: "p", Requirements: managerReqs("beta")})

	expired := m.ExpireIdle(time.Now().Add(10 * time.Minute))
	if len(expired) != 1 || expired[0] != hybrid.ID() {
		t.Fatalf("expired = %v, want only the hybrid team", expired)
	}
	if hybrid.State() != StateDissolved {
		t.Errorf("hybrid state = %q, want dissolved", hybrid.State())
	}
	if persistent.State() != StateActive {
		t.Errorf("persistent state = %q, want active", persistent.State())
	}

	var stateErr *InvalidStateTransitionError
	if err := m.CompleteTask(hybrid.ID()); !errors.As(err, &stateErr) {
		t.Errorf("CompleteTask() on expired team error = %v, want InvalidStateTransitionError", err)
	}
}

func TestManager_Stats(t *testing.T) {
	m := newTestManager(&fakeAssembler{}, ManagerConfig{})
	ctx := context.Background()

	eph, _ := m.Create(ctx, TypeEphemeral, AssembleRequest{Name: "e", Requirements: managerReqs("alpha")})
	m.Create(ctx, TypePersistent, AssembleRequest{Name: "p", Requirements: managerReqs("beta")})
	m.CompleteTask(eph.ID())

	stats := m.Stats()
	if stats.TeamsCreated != 2 {
		t.Errorf("TeamsCreated = %d, want 2", stats.TeamsCreated)
	}
	if stats.TeamsDissolved != 1 {
		t.Errorf("TeamsDissolved = %d, want 1", stats.TeamsDissolved)
	}
	if stats.TasksCompleted != 1 {
		t.Errorf("TasksCompleted = %d, want 1", stats.TasksCompleted)
	}
	if stats.ActiveByType[TypePersistent] != 1 || stats.ActiveByType[TypeEphemeral] != 0 {
		t.Errorf("ActiveByType = %v", stats.ActiveByType)
	}
}
