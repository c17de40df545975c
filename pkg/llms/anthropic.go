package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const anthropicAPIVersion = "2023-06-01"

// AnthropicProvider implements Provider using the Anthropic messages API.
type AnthropicProvider struct {
	config Config
	client *http.Client
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Anthropic provider")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}

	return &AnthropicProvider{
		config: cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}, nil
}

// Generate performs a non-streaming completion request.
func (p *AnthropicProvider) Generate(ctx context.Context, system string, prompt string) (string, int, error) {
	reqBody, err := json.Marshal(anthropicRequest{
		Model:       p.config.Model,
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
		System:      system,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.BaseURL+"/messages", bytes.NewReader(reqBody))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", 0, wrapTransportError("anthropic", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, wrapTransportError("anthropic", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiResp anthropicResponse
		if json.Unmarshal(body, &apiResp) == nil && apiResp.Error != nil {
			return "", 0, &ProviderUnavailableError{
				Provider: "anthropic",
				Message:  apiResp.Error.Message,
			}
		}
		return "", 0, &ProviderUnavailableError{
			Provider: "anthropic",
			Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", 0, fmt.Errorf("failed to decode response: %w", err)
	}

	var text string
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", 0, fmt.Errorf("anthropic response contained no text content")
	}

	tokens := apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens
	return text, tokens, nil
}

// GetModelName returns the configured model.
func (p *AnthropicProvider) GetModelName() string {
	return p.config.Model
}

// GetTemperature returns the configured temperature.
func (p *AnthropicProvider) GetTemperature() float64 {
	return p.config.Temperature
}

// Close releases resources.
func (p *AnthropicProvider) Close() error {
	return nil
}

// Ensure AnthropicProvider implements Provider.
var _ Provider = (*AnthropicProvider)(nil)
