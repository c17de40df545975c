// Package team models assembled agent teams and their lifecycle:
// ephemeral, persistent, and hybrid teams moving through
// Forming, Active, Adapting, and Dissolved states.
package team

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crewkit/crewkit/pkg/capability"
)

// Type controls how a team's lifecycle ends.
type Type string

const (
	// TypeEphemeral teams dissolve as soon as their single task completes.
	TypeEphemeral Type = "ephemeral"
	// TypePersistent teams live until explicitly disbanded.
	TypePersistent Type = "persistent"
	// TypeHybrid teams persist but auto-dissolve after an idle period.
	TypeHybrid Type = "hybrid"
)

// ValidType reports whether t is a known team type.
func ValidType(t Type) bool {
	switch t {
	case TypeEphemeral, TypePersistent, TypeHybrid:
		return true
	}
	return false
}

// State is a team's lifecycle state.
type State string

const (
	StateForming   State = "forming"
	StateActive    State = "active"
	StateAdapting  State = "adapting"
	StateDissolved State = "dissolved"
)

// Role is a member's function within the team.
type Role string

const (
	RoleLeader      Role = "leader"
	RoleCoordinator Role = "coordinator"
	RoleSpecialist  Role = "specialist"
	RoleExecutor    Role = "executor"
	RoleReviewer    Role = "reviewer"
)

// Member is one agent's seat on a team.
type Member struct {
	Record       *capability.Record `json:"record"`
	Role         Role               `json:"role"`
	Score        float32            `json:"score"`
	Requirements []string           `json:"requirements"`
}

// validTransitions is the lifecycle state machine. Dissolved is terminal.
var validTransitions = map[State][]State{
	StateForming:  {StateActive, StateDissolved},
	StateActive:   {StateAdapting, StateDissolved},
	StateAdapting: {StateActive, StateDissolved},
}

// Team is an assembled group of agents. All mutation goes through its
// methods; state transitions are atomic per team instance.
type Team struct {
	mu sync.Mutex

	id       string
	name     string
	teamType Type
	members  []Member
	state    State
	unmet    []string // requirements left uncovered at assembly

	createdAt      time.Time
	lastActiveAt   time.Time
	tasksCompleted int
}

// New creates a team in the Forming state. An empty name gets a generated
// one derived from the team id.
func New(name string, teamType Type, members []Member, unmet []string) *Team {
	id := uuid.NewString()
	if name == "" {
		name = "team-" + id[:8]
	}
	now := time.Now().UTC()
	return &Team{
		id:           id,
		name:         name,
		teamType:     teamType,
		members:      members,
		state:        StateForming,
		unmet:        unmet,
		createdAt:    now,
		lastActiveAt: now,
	}
}

// ID returns the team's unique id.
func (t *Team) ID() string { return t.id }

// Name returns the team's display name.
func (t *Team) Name() string { return t.name }

// Type returns the team type.
func (t *Team) Type() Type { return t.teamType }

// State returns the current lifecycle state.
func (t *Team) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Members returns a copy of the member list in assembly order.
func (t *Team) Members() []Member {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Member, len(t.members))
	copy(out, t.members)
	return out
}

// Size returns the current member count.
func (t *Team) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.members)
}

// Leader returns the member holding the Leader role.
func (t *Team) Leader() (Member, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range t.members {
		if m.Role == RoleLeader {
			return m, true
		}
	}
	return Member{}, false
}

// UnmetRequirements returns requirements assembly could not cover.
func (t *Team) UnmetRequirements() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.unmet))
	copy(out, t.unmet)
	return out
}

// CreatedAt returns the creation timestamp.
func (t *Team) CreatedAt() time.Time { return t.createdAt }

// LastActiveAt returns the last task activity timestamp.
func (t *Team) LastActiveAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActiveAt
}

// TasksCompleted returns how many tasks the team has finished.
func (t *Team) TasksCompleted() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tasksCompleted
}

// Activate moves the team into Active, from Forming after assembly or
// from Adapting once membership changes are applied.
func (t *Team) Activate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.transition(StateActive); err != nil {
		return err
	}
	t.lastActiveAt = time.Now().UTC()
	return nil
}

// BeginAdapting moves an Active team into Adapting. Ephemeral teams never
// adapt.
func (t *Team) BeginAdapting() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.teamType == TypeEphemeral {
		return &InvalidStateTransitionError{
			TeamID: t.id,
			From:   t.state,
			To:     StateAdapting,
			Reason: "ephemeral teams cannot adapt",
		}
	}
	return t.transition(StateAdapting)
}

// SetMembers replaces the member list. Only legal while Adapting.
func (t *Team) SetMembers(members []Member, unmet []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateAdapting {
		return fmt.Errorf("team '%s' is %s, membership can only change while adapting", t.id, t.state)
	}
	t.members = members
	t.unmet = unmet
	return nil
}

// Dissolve moves the team to the terminal Dissolved state.
func (t *Team) Dissolve() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(StateDissolved)
}

// MarkTaskComplete records a finished task and refreshes the activity
// timestamp. Only legal while Active.
func (t *Team) MarkTaskComplete() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateActive {
		return &InvalidStateTransitionError{
			TeamID: t.id,
			From:   t.state,
			To:     StateActive,
			Reason: "tasks can only complete on an active team",
		}
	}
	t.tasksCompleted++
	t.lastActiveAt = time.Now().UTC()
	return nil
}

// touch refreshes the activity timestamp of an Active team. Reuse of a
// cached team counts as activity for the idle sweeper.
func (t *Team) touch(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateActive {
		t.lastActiveAt = now
	}
}

// shouldAutoDissolve decides the hybrid keep-vs-disband tradeoff. Holding
// an idle team costs idle/timeout units; re-assembling it later costs one
// unit plus one per requirement that was never covered. The team goes
// once holding it costs more than rebuilding it would.
func (t *Team) shouldAutoDissolve(now time.Time, idleTimeout time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.teamType != TypeHybrid || t.state != StateActive || idleTimeout <= 0 {
		return false
	}
	idle := now.Sub(t.lastActiveAt)
	if idle < idleTimeout {
		return false
	}
	holdingCost := float64(idle) / float64(idleTimeout)
	reassemblyCost := 1.0 + float64(len(t.unmet))
	return holdingCost > reassemblyCost
}

// transition applies a state change or fails with
// InvalidStateTransitionError. Caller must hold t.mu.
func (t *Team) transition(to State) error {
	for _, allowed := range validTransitions[t.state] {
		if allowed == to {
			t.state = to
			return nil
		}
	}
	return &InvalidStateTransitionError{TeamID: t.id, From: t.state, To: to}
}
