// Package llms wraps external text-generation providers behind a narrow
// contract. The core only ever consumes a provider as a fallible,
// timeout-bounded collaborator; callers are expected to degrade gracefully
// when a provider is unreachable.
package llms

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/crewkit/crewkit/pkg/registry"
)

// Provider is the text-generation contract consumed by the task analyzer.
type Provider interface {
	// Generate performs a non-streaming completion request.
	// Returns the generated text and the total token count.
	Generate(ctx context.Context, system string, prompt string) (text string, tokens int, err error)

	GetModelName() string

	GetTemperature() float64

	Close() error
}

// ProviderUnavailableError indicates the provider could not be reached or
// rejected the request for a non-transient reason.
type ProviderUnavailableError struct {
	Provider string // Provider name
	Message  string // Error message
	Err      error  // Underlying error
}

// Error implements the error interface.
func (e *ProviderUnavailableError) Error() string {
	msg := fmt.Sprintf("[%s] provider unavailable: %s", e.Provider, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}

// ProviderTimeoutError indicates the request exceeded its deadline.
type ProviderTimeoutError struct {
	Provider string // Provider name
	Err      error  // Underlying error
}

// Error implements the error interface.
func (e *ProviderTimeoutError) Error() string {
	msg := fmt.Sprintf("[%s] provider request timed out", e.Provider)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ProviderTimeoutError) Unwrap() error {
	return e.Err
}

// wrapTransportError classifies a transport-level failure as timeout or
// unavailability.
func wrapTransportError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderTimeoutError{Provider: provider, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderTimeoutError{Provider: provider, Err: err}
	}
	return &ProviderUnavailableError{Provider: provider, Message: "request failed", Err: err}
}

// Registry manages named LLM providers.
type Registry struct {
	*registry.BaseRegistry[Provider]
}

// NewRegistry creates a new LLM provider registry.
func NewRegistry() *Registry {
	return &Registry{
		BaseRegistry: registry.NewBaseRegistry[Provider](),
	}
}

// RegisterProvider adds a provider to the registry.
func (r *Registry) RegisterProvider(name string, provider Provider) error {
	if name == "" {
		return fmt.Errorf("LLM name cannot be empty")
	}
	if provider == nil {
		return fmt.Errorf("LLM provider cannot be nil")
	}
	return r.Register(name, provider)
}

// GetProvider retrieves a provider by name.
func (r *Registry) GetProvider(name string) (Provider, error) {
	provider, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("LLM provider '%s' not found", name)
	}
	return provider, nil
}

// ProviderType identifies an LLM provider implementation.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the configuration for creating an LLM provider.
type Config struct {
	// Type identifies which provider to create.
	Type ProviderType `yaml:"type"`

	// Model name (provider-specific default if empty).
	Model string `yaml:"model,omitempty"`

	// APIKey for authentication. Defaults to the provider's environment variable.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// Temperature for generation.
	Temperature float64 `yaml:"temperature,omitempty"`

	// MaxTokens limits response length.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Timeout in seconds for API requests.
	Timeout int `yaml:"timeout,omitempty"`
}

// SetDefaults applies default values, detecting the provider from the
// environment when unset.
func (c *Config) SetDefaults() {
	if c.Type == "" {
		switch {
		case os.Getenv("ANTHROPIC_API_KEY") != "":
			c.Type = ProviderAnthropic
		case os.Getenv("OPENAI_API_KEY") != "":
			c.Type = ProviderOpenAI
		default:
			c.Type = ProviderOllama
		}
	}
	if c.Model == "" {
		switch c.Type {
		case ProviderAnthropic:
			c.Model = "claude-sonnet-4-20250514"
		case ProviderOpenAI:
			c.Model = "gpt-4o"
		case ProviderOllama:
			c.Model = "llama3.2"
		}
	}
	if c.APIKey == "" {
		switch c.Type {
		case ProviderAnthropic:
			c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case ProviderOpenAI:
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Type {
	case ProviderOpenAI, ProviderAnthropic:
		if c.APIKey == "" {
			return fmt.Errorf("%s api_key is required", c.Type)
		}
		return nil
	case ProviderOllama:
		return nil
	case "":
		return fmt.Errorf("llm type is required")
	default:
		return fmt.Errorf("unknown LLM type: %q (supported: openai, anthropic, ollama)", c.Type)
	}
}

// New creates an LLM provider from configuration.
func New(cfg *Config) (Provider, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.SetDefaults()

	switch cfg.Type {
	case ProviderOpenAI:
		return NewOpenAIProvider(*cfg)
	case ProviderAnthropic:
		return NewAnthropicProvider(*cfg)
	case ProviderOllama:
		return NewOllamaProvider(*cfg)
	default:
		return nil, fmt.Errorf("unknown LLM type: %q (supported: openai, anthropic, ollama)", cfg.Type)
	}
}
