package vector

import (
	"fmt"
)

// ProviderType identifies a vector provider implementation.
type ProviderType string

const (
	// ProviderChromem uses chromem-go for embedded vector storage.
	// Zero-config, no external dependencies. Best for development and small registries.
	ProviderChromem ProviderType = "chromem"

	// ProviderQdrant uses Qdrant vector database.
	// High-performance, supports distributed deployments.
	ProviderQdrant ProviderType = "qdrant"

	// ProviderPinecone uses Pinecone managed vector database.
	// Fully managed cloud service.
	ProviderPinecone ProviderType = "pinecone"
)

// ProviderConfig is the configuration for creating vector providers.
type ProviderConfig struct {
	// Type identifies which provider to create.
	Type ProviderType `yaml:"type"`

	// Chromem configuration (used when Type == "chromem").
	Chromem *ChromemConfig `yaml:"chromem,omitempty"`

	// Qdrant configuration (used when Type == "qdrant").
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`

	// Pinecone configuration (used when Type == "pinecone").
	Pinecone *PineconeConfig `yaml:"pinecone,omitempty"`
}

// SetDefaults applies default values.
func (c *ProviderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = ProviderChromem
	}
	if c.Type == ProviderChromem && c.Chromem == nil {
		c.Chromem = &ChromemConfig{}
	}
}

// Validate checks the configuration.
func (c *ProviderConfig) Validate() error {
	switch c.Type {
	case ProviderChromem:
		// Chromem has no required fields
		return nil
	case ProviderQdrant:
		if c.Qdrant == nil {
			return fmt.Errorf("qdrant configuration is required")
		}
		if c.Qdrant.Host == "" {
			return fmt.Errorf("qdrant host is required")
		}
		return nil
	case ProviderPinecone:
		if c.Pinecone == nil {
			return fmt.Errorf("pinecone configuration is required")
		}
		if c.Pinecone.APIKey == "" {
			return fmt.Errorf("pinecone api_key is required")
		}
		return nil
	case "":
		return fmt.Errorf("provider type is required")
	default:
		return fmt.Errorf("unknown provider type: %q", c.Type)
	}
}

// NewProvider creates a vector provider from configuration.
func NewProvider(cfg *ProviderConfig) (Provider, error) {
	if cfg == nil {
		return NewChromemProvider(ChromemConfig{})
	}

	switch cfg.Type {
	case ProviderChromem:
		chromemCfg := ChromemConfig{}
		if cfg.Chromem != nil {
			chromemCfg = *cfg.Chromem
		}
		return NewChromemProvider(chromemCfg)

	case ProviderQdrant:
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant configuration is required")
		}
		return NewQdrantProvider(*cfg.Qdrant)

	case ProviderPinecone:
		if cfg.Pinecone == nil {
			return nil, fmt.Errorf("pinecone configuration is required")
		}
		return NewPineconeProvider(*cfg.Pinecone)

	default:
		return nil, fmt.Errorf("unknown provider type: %q", cfg.Type)
	}
}
