package team

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crewkit/crewkit/pkg/analyzer"
	"github.com/crewkit/crewkit/pkg/observability"
)

// AssembleRequest carries everything an assembler needs to compose a
// team. Floor holds existing members that adaptation must keep unless
// their requirement coverage drops to zero.
type AssembleRequest struct {
	Name         string
	Strategy     string
	Requirements []analyzer.Requirement
	Floor        []Member
}

// Assembly is the composition an assembler produced: ordered members
// with roles assigned, plus the requirements nobody covered.
type Assembly struct {
	Members  []Member
	Unmet    []string
	Strategy string
}

// Assembler turns requirements into a team composition.
type Assembler interface {
	Assemble(ctx context.Context, req AssembleRequest) (*Assembly, error)
}

// ManagerConfig tunes team lifecycle behavior.
type ManagerConfig struct {
	DefaultType   Type          `yaml:"default_team_type" mapstructure:"default_team_type"`
	IdleTimeout   time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	CacheTTL      time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// SetDefaults applies default configuration values.
func (c *ManagerConfig) SetDefaults() {
	if c.DefaultType == "" {
		c.DefaultType = TypeHybrid
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 10 * time.Minute
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 30 * time.Second
	}
}

// Validate checks configuration consistency.
func (c *ManagerConfig) Validate() error {
	if !ValidType(c.DefaultType) {
		return fmt.Errorf("unknown default team type: %q", c.DefaultType)
	}
	if c.IdleTimeout < 0 || c.CacheTTL < 0 || c.SweepInterval < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	return nil
}

// Stats is a point-in-time summary of manager activity.
type Stats struct {
	TeamsCreated   int            `json:"teams_created"`
	TeamsDissolved int            `json:"teams_dissolved"`
	TasksCompleted int            `json:"tasks_completed"`
	ActiveByType   map[Type]int   `json:"active_by_type"`
	CacheEntries   int            `json:"cache_entries"`
	CacheHits      int            `json:"cache_hits"`
}

// Manager owns team lifecycle: creation through an Assembler, task
// completion, adaptation, explicit disband, and hybrid idle expiry.
// Mutations are serialized per team; the manager itself may be shared.
type Manager struct {
	mu        sync.Mutex
	cfg       ManagerConfig
	assembler Assembler
	teams     map[string]*Team
	order     []string
	cache     *Cache
	logger    *slog.Logger

	created   int
	dissolved int
	completed int
}

// NewManager creates a Manager. logger may be nil.
func NewManager(assembler Assembler, cfg ManagerConfig, logger *slog.Logger) *Manager {
	cfg.SetDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:       cfg,
		assembler: assembler,
		teams:     make(map[string]*Team),
		cache:     NewCache(cfg.CacheTTL),
		logger:    logger,
	}
}

// Create assembles and activates a new team. For persistent and hybrid
// types a cached team with the same task signature is reused instead of
// assembling a new one.
func (m *Manager) Create(ctx context.Context, teamType Type, req AssembleRequest) (*Team, error) {
	if teamType == "" {
		teamType = m.cfg.DefaultType
	}
	if !ValidType(teamType) {
		return nil, fmt.Errorf("unknown team type: %q", teamType)
	}
	if len(req.Requirements) == 0 {
		return nil, fmt.Errorf("at least one requirement is needed to assemble a team")
	}

	sig := Signature(req.Name, requirementTexts(req.Requirements))
	if teamType != TypeEphemeral {
		if t := m.cachedTeam(sig, teamType); t != nil {
			observability.CacheHits.Inc()
			m.logger.Debug("Reusing cached team", "team", t.ID(), "signature", sig)
			return t, nil
		}
		observability.CacheMisses.Inc()
	}

	assembly, err := m.assembler.Assemble(ctx, req)
	if err != nil {
		return nil, err
	}

	t := New(req.Name, teamType, assembly.Members, assembly.Unmet)
	if err := t.Activate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.teams[t.ID()] = t
	m.order = append(m.order, t.ID())
	m.created++
	m.mu.Unlock()

	if teamType != TypeEphemeral {
		m.cache.Put(sig, t.ID(), time.Now())
	}

	observability.ActiveTeams.WithLabelValues(string(teamType)).Inc()
	m.logger.Info("Team assembled",
		"team", t.ID(),
		"name", t.Name(),
		"type", teamType,
		"strategy", assembly.Strategy,
		"members", len(assembly.Members),
		"unmet", len(assembly.Unmet))
	return t, nil
}

// Get returns the team with the given id.
// Fails with NotFoundError if absent.
func (m *Manager) Get(teamID string) (*Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return nil, &NotFoundError{TeamID: teamID}
	}
	return t, nil
}

// List returns all teams in creation order, dissolved ones included.
func (m *Manager) List() []*Team {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Team, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.teams[id])
	}
	return out
}

// CompleteTask records a finished task. Ephemeral teams dissolve
// immediately afterwards; other types stay active.
func (m *Manager) CompleteTask(teamID string) error {
	t, err := m.Get(teamID)
	if err != nil {
		return err
	}
	if err := t.MarkTaskComplete(); err != nil {
		return err
	}

	m.mu.Lock()
	m.completed++
	m.mu.Unlock()

	if t.Type() == TypeEphemeral {
		return m.dissolve(t, "task complete")
	}
	return nil
}

// Adapt re-assembles a persistent or hybrid team for a new set of
// requirements, keeping existing members as a floor. The team returns to
// Active on success and on assembly failure alike.
func (m *Manager) Adapt(ctx context.Context, teamID string, strategy string, requirements []analyzer.Requirement) (*Team, error) {
	t, err := m.Get(teamID)
	if err != nil {
		return nil, err
	}
	if err := t.BeginAdapting(); err != nil {
		return nil, err
	}

	assembly, err := m.assembler.Assemble(ctx, AssembleRequest{
		Name:         t.Name(),
		Strategy:     strategy,
		Requirements: requirements,
		Floor:        t.Members(),
	})
	if err != nil {
		if actErr := t.Activate(); actErr != nil {
			m.logger.Error("Failed to reactivate team after failed adaptation",
				"team", t.ID(), "error", actErr)
		}
		return nil, err
	}

	if err := t.SetMembers(assembly.Members, assembly.Unmet); err != nil {
		return nil, err
	}
	if err := t.Activate(); err != nil {
		return nil, err
	}

	m.logger.Info("Team adapted",
		"team", t.ID(),
		"members", len(assembly.Members),
		"unmet", len(assembly.Unmet))
	return t, nil
}

// Disband explicitly dissolves a team of any type.
func (m *Manager) Disband(teamID string) error {
	t, err := m.Get(teamID)
	if err != nil {
		return err
	}
	return m.dissolve(t, "explicit disband")
}

// ExpireIdle dissolves hybrid teams whose idle-holding cost has outgrown
// their re-assembly cost. Returns the ids of dissolved teams.
func (m *Manager) ExpireIdle(now time.Time) []string {
	var expired []string
	for _, t := range m.List() {
		if !t.shouldAutoDissolve(now, m.cfg.IdleTimeout) {
			continue
		}
		if err := m.dissolve(t, "idle timeout"); err != nil {
			m.logger.Error("Failed to dissolve idle team", "team", t.ID(), "error", err)
			continue
		}
		expired = append(expired, t.ID())
	}
	return expired
}

// Run sweeps for idle hybrid teams until ctx is canceled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ExpireIdle(time.Now())
		}
	}
}

// Stats returns a summary of manager activity.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make(map[Type]int)
	for _, t := range m.teams {
		if t.State() != StateDissolved {
			active[t.Type()]++
		}
	}
	return Stats{
		TeamsCreated:   m.created,
		TeamsDissolved: m.dissolved,
		TasksCompleted: m.completed,
		ActiveByType:   active,
		CacheEntries:   m.cache.Len(),
		CacheHits:      m.cache.Hits(),
	}
}

// cachedTeam resolves a signature to a live Active team of the requested
// type, dropping cache entries that point at dissolved or adapting teams.
// A team that has already outlived its idle budget is dissolved here
// rather than handed out with a sweep pending. A hit counts as task
// activity: the reused team's idle clock restarts.
func (m *Manager) cachedTeam(sig string, teamType Type) *Team {
	teamID, ok := m.cache.Get(sig, time.Now())
	if !ok {
		return nil
	}
	t, err := m.Get(teamID)
	if err != nil || t.State() != StateActive {
		m.cache.Invalidate(teamID)
		return nil
	}
	if t.Type() != teamType {
		return nil
	}
	now := time.Now()
	if t.shouldAutoDissolve(now, m.cfg.IdleTimeout) {
		if err := m.dissolve(t, "idle timeout"); err != nil {
			m.logger.Error("Failed to dissolve idle team", "team", t.ID(), "error", err)
		}
		return nil
	}
	t.touch(now)
	return t
}

func (m *Manager) dissolve(t *Team, reason string) error {
	if err := t.Dissolve(); err != nil {
		return err
	}

	m.mu.Lock()
	m.dissolved++
	m.mu.Unlock()

	m.cache.Invalidate(t.ID())
	observability.ActiveTeams.WithLabelValues(string(t.Type())).Dec()
	m.logger.Info("Team dissolved", "team", t.ID(), "reason", reason)
	return nil
}

func requirementTexts(requirements []analyzer.Requirement) []string {
	texts := make([]string, len(requirements))
	for i, r := range requirements {
		texts[i] = r.Text
	}
	return texts
}
