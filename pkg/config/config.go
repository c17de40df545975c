// Package config loads, validates, and watches the crewkit configuration.
package config

import (
	"fmt"
	"time"

	"github.com/crewkit/crewkit/pkg/assembler"
	"github.com/crewkit/crewkit/pkg/embedder"
	"github.com/crewkit/crewkit/pkg/llms"
	"github.com/crewkit/crewkit/pkg/team"
	"github.com/crewkit/crewkit/pkg/vector"
)

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SetDefaults applies default values.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
}

// SearchConfig tunes candidate search.
type SearchConfig struct {
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SetDefaults applies default values.
func (c *SearchConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr"`
}

// SetDefaults applies default values.
func (c *MetricsConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":9090"
	}
}

// Config is the root configuration.
type Config struct {
	Logging      LoggingConfig         `yaml:"logging" mapstructure:"logging"`
	Embedding    embedder.Config       `yaml:"embedding" mapstructure:"embedding"`
	VectorStore  vector.ProviderConfig `yaml:"vector_store" mapstructure:"vector_store"`
	Collection   string                `yaml:"collection" mapstructure:"collection"`
	Search       SearchConfig          `yaml:"search" mapstructure:"search"`
	TaskAnalysis llms.Config           `yaml:"task_analysis" mapstructure:"task_analysis"`
	TeamAssembly assembler.Config      `yaml:"team_assembly" mapstructure:"team_assembly"`
	Teams        team.ManagerConfig    `yaml:"teams" mapstructure:"teams"`
	Metrics      MetricsConfig         `yaml:"metrics" mapstructure:"metrics"`
}

// SetDefaults applies defaults across all sections.
func (c *Config) SetDefaults() {
	c.Logging.SetDefaults()
	c.Embedding.SetDefaults()
	c.VectorStore.SetDefaults()
	c.Search.SetDefaults()
	c.TaskAnalysis.SetDefaults()
	c.TeamAssembly.SetDefaults()
	c.Teams.SetDefaults()
	c.Metrics.SetDefaults()
}

// Validate checks all sections for consistency.
func (c *Config) Validate() error {
	if err := c.Embedding.Validate(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := c.VectorStore.Validate(); err != nil {
		return fmt.Errorf("vector_store: %w", err)
	}
	if err := c.TaskAnalysis.Validate(); err != nil {
		return fmt.Errorf("task_analysis: %w", err)
	}
	if err := c.TeamAssembly.Validate(); err != nil {
		return fmt.Errorf("team_assembly: %w", err)
	}
	if err := c.Teams.Validate(); err != nil {
		return fmt.Errorf("teams: %w", err)
	}
	if c.Search.Timeout < 0 {
		return fmt.Errorf("search: timeout cannot be negative")
	}
	return nil
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}
