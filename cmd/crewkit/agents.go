package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crewkit/crewkit/pkg/capability"
)

// agentsFile is the on-disk shape of the agents YAML file: a flat list of
// capability records under a single key.
type agentsFile struct {
	Agents []*capability.Record `yaml:"agents"`
}

// loadAgentsFile reads capability records from the agents YAML file. A
// missing file is an empty registry, not an error.
func loadAgentsFile(path string) ([]*capability.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read agents file: %w", err)
	}

	var file agentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse agents file: %w", err)
	}
	return file.Agents, nil
}

func saveAgentsFile(path string, records []*capability.Record) error {
	data, err := yaml.Marshal(&agentsFile{Agents: records})
	if err != nil {
		return fmt.Errorf("failed to encode agents file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write agents file: %w", err)
	}
	return nil
}

// appendAgentsFile adds a record to the agents file, replacing any entry
// with the same agent id.
func appendAgentsFile(path string, rec *capability.Record) error {
	records, err := loadAgentsFile(path)
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range records {
		if existing.AgentID == rec.AgentID {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	return saveAgentsFile(path, records)
}

// removeFromAgentsFile drops the record with the given agent id.
func removeFromAgentsFile(path string, agentID string) error {
	records, err := loadAgentsFile(path)
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, rec := range records {
		if rec.AgentID != agentID {
			kept = append(kept, rec)
		}
	}
	return saveAgentsFile(path, kept)
}
