// Package runtime wires the capability registry, search, analyzer,
// assembler, and team manager into one explicitly constructed instance.
// There is no process-wide singleton; callers build a Runtime at startup
// and close it at shutdown.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crewkit/crewkit/pkg/analyzer"
	"github.com/crewkit/crewkit/pkg/assembler"
	"github.com/crewkit/crewkit/pkg/capability"
	"github.com/crewkit/crewkit/pkg/config"
	"github.com/crewkit/crewkit/pkg/embedder"
	"github.com/crewkit/crewkit/pkg/llms"
	"github.com/crewkit/crewkit/pkg/observability"
	"github.com/crewkit/crewkit/pkg/search"
	"github.com/crewkit/crewkit/pkg/team"
	"github.com/crewkit/crewkit/pkg/vector"
)

// Runtime owns the full matching and assembly pipeline.
type Runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	index    vector.Provider
	embed    embedder.Embedder
	llm      llms.Provider
	registry *capability.Registry
	search   *search.Search
	analyzer *analyzer.Analyzer
	manager  *team.Manager
}

// New constructs a Runtime from configuration. The LLM provider is
// optional in practice: if it cannot be created the analyzer runs on its
// heuristic fallback alone.
func New(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	index, err := vector.NewProvider(&cfg.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector provider: %w", err)
	}

	embed, err := embedder.New(&cfg.Embedding)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	llm, err := llms.New(&cfg.TaskAnalysis)
	if err != nil {
		logger.Warn("LLM provider unavailable, task analysis will use the heuristic fallback", "error", err)
		llm = nil
	}

	registry := capability.NewRegistry(index, embed, cfg.Collection)
	srch := search.New(registry, cfg.Search.Timeout)

	asm, err := assembler.New(registry, srch, cfg.TeamAssembly, logger)
	if err != nil {
		index.Close()
		embed.Close()
		return nil, err
	}

	return &Runtime{
		cfg:      cfg,
		logger:   logger,
		index:    index,
		embed:    embed,
		llm:      llm,
		registry: registry,
		search:   srch,
		analyzer: analyzer.New(llm, logger),
		manager:  team.NewManager(asm, cfg.Teams, logger),
	}, nil
}

// Registry returns the capability registry.
func (r *Runtime) Registry() *capability.Registry { return r.registry }

// Manager returns the team manager.
func (r *Runtime) Manager() *team.Manager { return r.manager }

// RegisterAgent adds an agent capability record.
func (r *Runtime) RegisterAgent(ctx context.Context, rec *capability.Record) error {
	if err := r.registry.Register(ctx, rec); err != nil {
		return err
	}
	observability.AgentRegistrations.Inc()
	r.logger.Info("Agent registered", "agent", rec.AgentID, "category", rec.Category)
	return nil
}

// DeregisterAgent removes an agent capability record.
func (r *Runtime) DeregisterAgent(ctx context.Context, agentID string) error {
	if err := r.registry.Deregister(ctx, agentID); err != nil {
		return err
	}
	r.logger.Info("Agent deregistered", "agent", agentID)
	return nil
}

// FindCandidates ranks agents against a single requirement.
func (r *Runtime) FindCandidates(ctx context.Context, requirement string, topK int) ([]search.Candidate, error) {
	candidates, err := r.search.FindCandidates(ctx, requirement, topK)
	if err != nil {
		observability.SearchesTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	observability.SearchesTotal.WithLabelValues("success").Inc()
	return candidates, nil
}

// AnalyzeTask decomposes a task description into requirements.
func (r *Runtime) AnalyzeTask(ctx context.Context, description string) (*analyzer.Analysis, error) {
	analysis, err := r.analyzer.Analyze(ctx, description)
	if err != nil {
		return nil, err
	}
	observability.AnalysesTotal.WithLabelValues(string(analysis.Source)).Inc()
	return analysis, nil
}

// BuildTeam analyzes a task description and assembles a team for it.
func (r *Runtime) BuildTeam(ctx context.Context, description string, teamType team.Type, strategy string) (*team.Team, *analyzer.Analysis, error) {
	analysis, err := r.AnalyzeTask(ctx, description)
	if err != nil {
		return nil, nil, err
	}

	t, err := r.manager.Create(ctx, teamType, team.AssembleRequest{
		Name:         description,
		Strategy:     strategy,
		Requirements: analysis.Requirements,
	})
	if err != nil {
		return nil, analysis, err
	}
	return t, analysis, nil
}

// AdaptTeam re-assembles an existing team for a new task description.
func (r *Runtime) AdaptTeam(ctx context.Context, teamID, description, strategy string) (*team.Team, error) {
	analysis, err := r.AnalyzeTask(ctx, description)
	if err != nil {
		return nil, err
	}
	return r.manager.Adapt(ctx, teamID, strategy, analysis.Requirements)
}

// Stats summarizes registry and team activity.
type Stats struct {
	RegisteredAgents int        `json:"registered_agents"`
	Teams            team.Stats `json:"teams"`
}

// Stats returns a point-in-time summary.
func (r *Runtime) Stats() Stats {
	return Stats{
		RegisteredAgents: r.registry.Count(),
		Teams:            r.manager.Stats(),
	}
}

// Run starts background maintenance (hybrid idle sweeping) until ctx is
// canceled.
func (r *Runtime) Run(ctx context.Context) {
	r.manager.Run(ctx)
}

// Close releases all providers.
func (r *Runtime) Close() error {
	var firstErr error
	if r.llm != nil {
		if err := r.llm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := r.embed.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.index.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
