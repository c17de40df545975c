// Package crewkit is a capability-matching and team-assembly engine for
// software agents.
//
// Agents publish capability records describing what they can do. Task
// descriptions are decomposed into capability requirements, candidates are
// ranked by semantic similarity against a vector index (with a keyword
// fallback), and a team is assembled under one of several strategies with
// functional roles assigned to each member. Assembled teams move through a
// lifecycle of forming, active, adapting, and dissolved, with ephemeral,
// persistent, and hybrid retention policies.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/crewkit/crewkit/cmd/crewkit@latest
//
// Register agents and build a team:
//
//	crewkit register --agents agents.yaml --id coder --name "Code Writer" \
//	    --capabilities coding,refactoring --category execution
//	crewkit build-team --agents agents.yaml \
//	    "Analyze sales data and create visualizations"
//
// Or embed the engine:
//
//	cfg := config.Default()
//	rt, err := runtime.New(cfg, slog.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	rt.RegisterAgent(ctx, &capability.Record{
//	    AgentID:      "analyst",
//	    AgentName:    "Data Analyst",
//	    Capabilities: []string{"data analysis", "statistics"},
//	    Category:     capability.CategoryAnalysis,
//	})
//	team, analysis, err := rt.BuildTeam(ctx, "Analyze quarterly sales", "", "")
//
// See the pkg/runtime package for the embedding surface and pkg/config for
// the configuration file format.
package crewkit
