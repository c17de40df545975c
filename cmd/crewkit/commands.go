package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/crewkit/crewkit"
	"github.com/crewkit/crewkit/pkg/capability"
	"github.com/crewkit/crewkit/pkg/config"
	"github.com/crewkit/crewkit/pkg/observability"
	"github.com/crewkit/crewkit/pkg/team"
)

// VersionCmd prints build information.
type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	fmt.Println(crewkit.GetVersion())
	return nil
}

// RegisterCmd adds an agent capability record to the registry and, when an
// agents file is configured, persists it there.
type RegisterCmd struct {
	ID           string   `required:"" help:"Unique agent id."`
	Name         string   `required:"" help:"Human-readable agent name."`
	Description  string   `help:"What the agent does."`
	Capabilities []string `required:"" help:"Capability tags (comma-separated)."`
	Category     string   `help:"Category (reasoning, creation, analysis, execution, coordination, specialized)." default:"specialized"`
	Keywords     []string `help:"Extra matching keywords (comma-separated)."`
}

func (c *RegisterCmd) Run(cli *CLI) error {
	ctx := context.Background()
	rt, err := cli.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	rec := &capability.Record{
		AgentID:      c.ID,
		AgentName:    c.Name,
		Description:  c.Description,
		Capabilities: c.Capabilities,
		Category:     capability.Category(c.Category),
		Keywords:     c.Keywords,
	}
	if err := rt.RegisterAgent(ctx, rec); err != nil {
		return err
	}

	if cli.Agents != "" {
		if err := appendAgentsFile(cli.Agents, rec); err != nil {
			return fmt.Errorf("agent registered but not persisted: %w", err)
		}
	}
	fmt.Printf("Registered agent '%s' (%s)\n", rec.AgentID, rec.Category)
	return nil
}

// DeregisterCmd removes an agent capability record.
type DeregisterCmd struct {
	ID string `arg:"" help:"Agent id to remove."`
}

func (c *DeregisterCmd) Run(cli *CLI) error {
	ctx := context.Background()
	rt, err := cli.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.DeregisterAgent(ctx, c.ID); err != nil {
		return err
	}
	if cli.Agents != "" {
		if err := removeFromAgentsFile(cli.Agents, c.ID); err != nil {
			return fmt.Errorf("agent deregistered but file not updated: %w", err)
		}
	}
	fmt.Printf("Deregistered agent '%s'\n", c.ID)
	return nil
}

// ListAgentsCmd lists registered agents in registration order.
type ListAgentsCmd struct{}

func (c *ListAgentsCmd) Run(cli *CLI) error {
	ctx := context.Background()
	rt, err := cli.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	count := 0
	for rec := range rt.Registry().ListAll() {
		fmt.Printf("%-20s %-14s %s\n", rec.AgentID, rec.Category, strings.Join(rec.Capabilities, ", "))
		count++
	}
	if count == 0 {
		fmt.Println("No agents registered")
	}
	return nil
}

// SearchCmd ranks agents against a single requirement.
type SearchCmd struct {
	Requirement string `arg:"" help:"Requirement text to match against."`
	TopK        int    `help:"Maximum candidates to return." default:"5"`
}

func (c *SearchCmd) Run(cli *CLI) error {
	ctx := context.Background()
	rt, err := cli.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	candidates, err := rt.FindCandidates(ctx, c.Requirement, c.TopK)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("No matching agents")
		return nil
	}
	for i, cand := range candidates {
		fmt.Printf("%d. %-20s score=%.3f  %s\n", i+1, cand.Record.AgentID, cand.Score, cand.Record.AgentName)
	}
	return nil
}

// AnalyzeCmd decomposes a task description into capability requirements.
type AnalyzeCmd struct {
	Description string `arg:"" help:"Task description to analyze."`
}

func (c *AnalyzeCmd) Run(cli *CLI) error {
	ctx := context.Background()
	rt, err := cli.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	analysis, err := rt.AnalyzeTask(ctx, c.Description)
	if err != nil {
		return err
	}

	fmt.Printf("Source: %s\n", analysis.Source)
	for i, req := range analysis.Requirements {
		line := fmt.Sprintf("%d. [%s] %s", i+1, req.Priority, req.Text)
		if req.Category != "" {
			line += fmt.Sprintf(" (%s)", req.Category)
		}
		fmt.Println(line)
	}
	return nil
}

// BuildTeamCmd analyzes a task and assembles a team for it.
type BuildTeamCmd struct {
	Description string `arg:"" help:"Task description."`
	Type        string `help:"Team type (ephemeral, persistent, hybrid)."`
	Strategy    string `help:"Assembly strategy (semantic, weighted, greedy, ensemble)."`
}

func (c *BuildTeamCmd) Run(cli *CLI) error {
	ctx := context.Background()
	rt, err := cli.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	t, analysis, err := rt.BuildTeam(ctx, c.Description, team.Type(c.Type), c.Strategy)
	if err != nil {
		return err
	}

	fmt.Printf("Team %s (%s, %s)\n", t.ID(), t.Type(), t.State())
	fmt.Println("Requirements:")
	for _, req := range analysis.Requirements {
		fmt.Printf("  - [%s] %s\n", req.Priority, req.Text)
	}
	fmt.Println("Members:")
	for _, m := range t.Members() {
		fmt.Printf("  %-12s %-20s score=%.3f  covers: %s\n",
			m.Role, m.Record.AgentID, m.Score, strings.Join(m.Requirements, "; "))
	}
	if unmet := t.UnmetRequirements(); len(unmet) > 0 {
		fmt.Println("Unmet requirements:")
		for _, u := range unmet {
			fmt.Printf("  - %s\n", u)
		}
	}
	return nil
}

// ListTeamsCmd lists all teams with their lifecycle states.
type ListTeamsCmd struct{}

func (c *ListTeamsCmd) Run(cli *CLI) error {
	ctx := context.Background()
	rt, err := cli.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	teams := rt.Manager().List()
	if len(teams) == 0 {
		fmt.Println("No teams")
		return nil
	}
	for _, t := range teams {
		fmt.Printf("%s  %-10s %-10s members=%d tasks=%d  %s\n",
			t.ID(), t.Type(), t.State(), t.Size(), t.TasksCompleted(), t.Name())
	}
	return nil
}

// AdaptTeamCmd re-assembles an existing team for a new task.
type AdaptTeamCmd struct {
	TeamID      string `arg:"" help:"Team id to adapt."`
	Description string `arg:"" help:"New task description."`
	Strategy    string `help:"Assembly strategy override."`
}

func (c *AdaptTeamCmd) Run(cli *CLI) error {
	ctx := context.Background()
	rt, err := cli.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	t, err := rt.AdaptTeam(ctx, c.TeamID, c.Description, c.Strategy)
	if err != nil {
		return err
	}
	fmt.Printf("Team %s adapted, %d members\n", t.ID(), t.Size())
	for _, m := range t.Members() {
		fmt.Printf("  %-12s %s\n", m.Role, m.Record.AgentID)
	}
	return nil
}

// CompleteTaskCmd marks a team's current task as complete.
type CompleteTaskCmd struct {
	TeamID string `arg:"" help:"Team id."`
}

func (c *CompleteTaskCmd) Run(cli *CLI) error {
	ctx := context.Background()
	rt, err := cli.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Manager().CompleteTask(c.TeamID); err != nil {
		return err
	}
	t, err := rt.Manager().Get(c.TeamID)
	if err != nil {
		return err
	}
	fmt.Printf("Task complete, team %s is now %s\n", t.ID(), t.State())
	return nil
}

// DisbandTeamCmd explicitly dissolves a team.
type DisbandTeamCmd struct {
	TeamID string `arg:"" help:"Team id to disband."`
}

func (c *DisbandTeamCmd) Run(cli *CLI) error {
	ctx := context.Background()
	rt, err := cli.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Manager().Disband(c.TeamID); err != nil {
		return err
	}
	fmt.Printf("Team %s disbanded\n", c.TeamID)
	return nil
}

// StatsCmd prints registry and team statistics as JSON.
type StatsCmd struct{}

func (c *StatsCmd) Run(cli *CLI) error {
	ctx := context.Background()
	rt, err := cli.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	out, err := json.MarshalIndent(rt.Stats(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// ValidateCmd validates the configuration file.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("--config is required for validate")
	}
	cfg, loader, err := config.LoadFile(context.Background(), cli.Config)
	if err != nil {
		return err
	}
	defer loader.Close()

	fmt.Printf("Configuration valid: strategy=%s, team sizes %d..%d\n",
		cfg.TeamAssembly.Strategy, cfg.TeamAssembly.MinTeamSize, cfg.TeamAssembly.MaxTeamSize)
	return nil
}

// ServeCmd runs the idle sweeper and metrics endpoint until interrupted.
// The configuration file is watched and reloads are logged; applying
// structural changes requires a restart.
type ServeCmd struct{}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := cli.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := config.Default()
	if cli.Config != "" {
		loaded, loader, err := config.LoadFile(ctx, cli.Config)
		if err != nil {
			return err
		}
		defer loader.Close()
		cfg = loaded

		go func() {
			if err := loader.Watch(ctx); err != nil && ctx.Err() == nil {
				fmt.Fprintf(os.Stderr, "Config watch stopped: %v\n", err)
			}
		}()
	}

	var server *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		server = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "Metrics server failed: %v\n", err)
			}
		}()
		fmt.Printf("Metrics on %s/metrics\n", cfg.Metrics.Addr)
	}

	fmt.Println("crewkit running, press Ctrl+C to stop")
	rt.Run(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
