package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/crewkit/crewkit/pkg/config"
)

// SchemaCmd generates JSON Schema for the configuration file. Output goes
// to stdout so it can be redirected.
type SchemaCmd struct {
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		// Inline all definitions (no $ref) so editors can consume the
		// schema without resolving references.
		DoNotReference: true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "crewkit Configuration Schema"
	schema.Description = "Configuration schema for the crewkit team-assembly engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}
