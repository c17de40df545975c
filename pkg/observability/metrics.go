// Package observability exposes Prometheus metrics for the matching and
// assembly pipeline.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AgentRegistrations counts successful capability registrations.
	AgentRegistrations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crewkit",
		Name:      "agent_registrations_total",
		Help:      "Successful agent capability registrations.",
	})

	// SearchesTotal counts candidate searches by outcome.
	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crewkit",
		Name:      "searches_total",
		Help:      "Candidate searches by outcome.",
	}, []string{"outcome"})

	// AnalysesTotal counts task analyses by source (llm or fallback).
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crewkit",
		Name:      "task_analyses_total",
		Help:      "Task analyses by source path.",
	}, []string{"source"})

	// AssembliesTotal counts team assemblies by strategy and outcome.
	AssembliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crewkit",
		Name:      "team_assemblies_total",
		Help:      "Team assemblies by strategy and outcome.",
	}, []string{"strategy", "outcome"})

	// ActiveTeams tracks live (non-dissolved) teams by type.
	ActiveTeams = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "crewkit",
		Name:      "active_teams",
		Help:      "Teams not yet dissolved, by team type.",
	}, []string{"type"})

	// CacheHits counts team cache lookups that returned a reusable team.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crewkit",
		Name:      "team_cache_hits_total",
		Help:      "Team cache lookups that found a reusable team.",
	})

	// CacheMisses counts team cache lookups that found nothing.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crewkit",
		Name:      "team_cache_misses_total",
		Help:      "Team cache lookups that found no reusable team.",
	})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
