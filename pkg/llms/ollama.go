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

// OllamaProvider implements Provider using a local Ollama server.
type OllamaProvider struct {
	config  Config
	client  *http.Client
	baseURL string
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  *ollamaOptions      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message         ollamaChatMessage `json:"message"`
	Done            bool              `json:"done"`
	PromptEvalCount int               `json:"prompt_eval_count"`
	EvalCount       int               `json:"eval_count"`
	Error           string            `json:"error,omitempty"`
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(cfg Config) (*OllamaProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaProvider{
		config:  cfg,
		client:  &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		baseURL: baseURL,
	}, nil
}

// Generate performs a non-streaming completion request.
func (p *OllamaProvider) Generate(ctx context.Context, system string, prompt string) (string, int, error) {
	messages := make([]ollamaChatMessage, 0, 2)
	if system != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: system})
	}
	messages = append(messages, ollamaChatMessage{Role: "user", Content: prompt})

	reqBody, err := json.Marshal(ollamaChatRequest{
		Model:    p.config.Model,
		Messages: messages,
		Stream:   false,
		Options: &ollamaOptions{
			Temperature: p.config.Temperature,
			NumPredict:  p.config.MaxTokens,
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", 0, wrapTransportError("ollama", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, wrapTransportError("ollama", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, &ProviderUnavailableError{
			Provider: "ollama",
			Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var apiResp ollamaChatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if apiResp.Error != "" {
		return "", 0, &ProviderUnavailableError{Provider: "ollama", Message: apiResp.Error}
	}

	tokens := apiResp.PromptEvalCount + apiResp.EvalCount
	return apiResp.Message.Content, tokens, nil
}

// GetModelName returns the configured model.
func (p *OllamaProvider) GetModelName() string {
	return p.config.Model
}

// GetTemperature returns the configured temperature.
func (p *OllamaProvider) GetTemperature() float64 {
	return p.config.Temperature
}

// Close releases resources.
func (p *OllamaProvider) Close() error {
	return nil
}

// Ensure OllamaProvider implements Provider.
var _ Provider = (*OllamaProvider)(nil)
