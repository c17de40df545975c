package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crewkit/crewkit/pkg/team"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crewkit.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
}

func TestLoadFile(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfigFile(t, `
logging:
  level: debug
search:
  timeout: 5s
task_analysis:
  type: ollama
  model: llama3.2
team_assembly:
  strategy: greedy
  min_team_size: 2
  optimal_team_size: 3
  max_team_size: 4
teams:
  default_team_type: persistent
  idle_timeout: 2m
`)

	cfg, loader, err := LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	defer loader.Close()

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Search.Timeout != 5*time.Second {
		t.Errorf("Search.Timeout = %s, want 5s", cfg.Search.Timeout)
	}
	if cfg.TeamAssembly.Strategy != "greedy" || cfg.TeamAssembly.MaxTeamSize != 4 {
		t.Errorf("TeamAssembly = %+v", cfg.TeamAssembly)
	}
	if cfg.Teams.DefaultType != team.TypePersistent {
		t.Errorf("Teams.DefaultType = %q, want persistent", cfg.Teams.DefaultType)
	}
	if cfg.Teams.IdleTimeout != 2*time.Minute {
		t.Errorf("Teams.IdleTimeout = %s, want 2m", cfg.Teams.IdleTimeout)
	}

	// Untouched sections still get defaults.
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("Metrics.Addr = %q, want default :9090", cfg.Metrics.Addr)
	}
	if cfg.TeamAssembly.CategoryBonus != 1.25 {
		t.Errorf("CategoryBonus = %f, want default 1.25", cfg.TeamAssembly.CategoryBonus)
	}
}

func TestLoadFile_EnvExpansion(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("CREWKIT_TEST_LEVEL", "warn")
	path := writeConfigFile(t, `
logging:
  level: ${CREWKIT_TEST_LEVEL}
  format: ${CREWKIT_TEST_FORMAT:-json}
task_analysis:
  type: ollama
`)

	cfg, loader, err := LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	defer loader.Close()

	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want expanded warn", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want default json", cfg.Logging.Format)
	}
}

func TestLoadFile_ValidationFailure(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfigFile(t, `
task_analysis:
  type: ollama
team_assembly:
  min_team_size: 5
  optimal_team_size: 2
  max_team_size: 3
`)

	if _, _, err := LoadFile(context.Background(), path); err == nil {
		t.Fatal("expected validation error for inconsistent team sizes")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, _, err := LoadFile(context.Background(), "/nonexistent/crewkit.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	clearProviderEnv(t)
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate, got %v", err)
	}
	if cfg.TeamAssembly.MinTeamSize != 1 || cfg.TeamAssembly.MaxTeamSize != 5 {
		t.Errorf("team sizes = %d/%d, want 1/5", cfg.TeamAssembly.MinTeamSize, cfg.TeamAssembly.MaxTeamSize)
	}
}
