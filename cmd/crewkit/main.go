// Command crewkit assembles task-specific teams of software agents by
// matching required capabilities against a registry of agent capability
// descriptors.
//
// Usage:
//
//	crewkit register --agents agents.yaml --id coder --name "Code Writer" --capabilities coding,refactoring
//	crewkit build-team --agents agents.yaml "Analyze sales data and create visualizations"
//	crewkit serve --config crewkit.yaml --agents agents.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/crewkit/crewkit/pkg/config"
	"github.com/crewkit/crewkit/pkg/logger"
	"github.com/crewkit/crewkit/pkg/runtime"
)

// CLI defines the command-line interface.
type CLI struct {
	Version      VersionCmd      `cmd:"" help:"Show version information."`
	Register     RegisterCmd     `cmd:"" help:"Register an agent capability record."`
	Deregister   DeregisterCmd   `cmd:"" help:"Remove an agent capability record."`
	ListAgents   ListAgentsCmd   `cmd:"" name:"list-agents" help:"List registered agents in registration order."`
	Search       SearchCmd       `cmd:"" help:"Rank agents against a single requirement."`
	Analyze      AnalyzeCmd      `cmd:"" help:"Decompose a task description into requirements."`
	BuildTeam    BuildTeamCmd    `cmd:"" name:"build-team" help:"Analyze a task and assemble a team for it."`
	ListTeams    ListTeamsCmd    `cmd:"" name:"list-teams" help:"List teams and their lifecycle states."`
	AdaptTeam    AdaptTeamCmd    `cmd:"" name:"adapt-team" help:"Re-assemble an existing team for a new task."`
	CompleteTask CompleteTaskCmd `cmd:"" name:"complete-task" help:"Mark a team's current task as complete."`
	DisbandTeam  DisbandTeamCmd  `cmd:"" name:"disband-team" help:"Explicitly dissolve a team."`
	Stats        StatsCmd        `cmd:"" help:"Show registry and team statistics."`
	Validate     ValidateCmd     `cmd:"" help:"Validate the configuration file."`
	Schema       SchemaCmd       `cmd:"" help:"Generate JSON Schema for the configuration."`
	Serve        ServeCmd        `cmd:"" help:"Run the idle sweeper and metrics endpoint."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	Agents    string `short:"a" help:"Path to the agents YAML file loaded into the registry." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (text or json)." default:"text"`
}

// loadConfig resolves the effective configuration: the file when given,
// defaults otherwise.
func (cli *CLI) loadConfig(ctx context.Context) (*config.Config, error) {
	if cli.Config == "" {
		return config.Default(), nil
	}
	cfg, loader, err := config.LoadFile(ctx, cli.Config)
	if err != nil {
		return nil, err
	}
	loader.Close()
	return cfg, nil
}

// buildRuntime constructs the pipeline and seeds the registry from the
// agents file when one is given.
func (cli *CLI) buildRuntime(ctx context.Context) (*runtime.Runtime, error) {
	cfg, err := cli.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	rt, err := runtime.New(cfg, slog.Default())
	if err != nil {
		return nil, err
	}

	if cli.Agents != "" {
		records, err := loadAgentsFile(cli.Agents)
		if err != nil {
			rt.Close()
			return nil, err
		}
		for _, rec := range records {
			if err := rt.RegisterAgent(ctx, rec); err != nil {
				rt.Close()
				return nil, fmt.Errorf("failed to load agent '%s': %w", rec.AgentID, err)
			}
		}
	}
	return rt, nil
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("crewkit"),
		kong.Description("crewkit - capability-matching and team-assembly engine for software agents"),
		kong.UsageOnError(),
	)

	logger.Setup(logger.Options{Level: cli.LogLevel, Format: cli.LogFormat})

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
