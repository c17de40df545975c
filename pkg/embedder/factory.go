package embedder

import (
	"fmt"
	"os"
)

// ProviderType identifies an embedder implementation.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the configuration for creating embedders.
type Config struct {
	// Type identifies which embedder to create.
	Type ProviderType `yaml:"type"`

	// OpenAI configuration (used when Type == "openai").
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`

	// Ollama configuration (used when Type == "ollama").
	Ollama *OllamaConfig `yaml:"ollama,omitempty"`
}

// SetDefaults applies default values. Without explicit configuration the
// embedder is chosen from the environment: OpenAI when OPENAI_API_KEY is
// set, local Ollama otherwise.
func (c *Config) SetDefaults() {
	if c.Type == "" {
		if os.Getenv("OPENAI_API_KEY") != "" {
			c.Type = ProviderOpenAI
		} else {
			c.Type = ProviderOllama
		}
	}
	if c.Type == ProviderOpenAI && c.OpenAI == nil {
		c.OpenAI = &OpenAIConfig{APIKey: os.Getenv("OPENAI_API_KEY")}
	}
	if c.Type == ProviderOpenAI && c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Type == ProviderOllama && c.Ollama == nil {
		c.Ollama = &OllamaConfig{}
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Type {
	case ProviderOpenAI:
		if c.OpenAI == nil || c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai api_key is required (set OPENAI_API_KEY or embedder.openai.api_key)")
		}
		return nil
	case ProviderOllama:
		return nil
	case "":
		return fmt.Errorf("embedder type is required")
	default:
		return fmt.Errorf("unknown embedder type: %q", c.Type)
	}
}

// New creates an embedder from configuration.
func New(cfg *Config) (Embedder, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.SetDefaults()

	switch cfg.Type {
	case ProviderOpenAI:
		openAICfg := OpenAIConfig{}
		if cfg.OpenAI != nil {
			openAICfg = *cfg.OpenAI
		}
		return NewOpenAIEmbedder(openAICfg)

	case ProviderOllama:
		ollamaCfg := OllamaConfig{}
		if cfg.Ollama != nil {
			ollamaCfg = *cfg.Ollama
		}
		return NewOllamaEmbedder(ollamaCfg)

	default:
		return nil, fmt.Errorf("unknown embedder type: %q", cfg.Type)
	}
}
