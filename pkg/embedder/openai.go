package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	// APIKey is required for authentication.
	APIKey string `yaml:"api_key"`

	// Model name (default: text-embedding-3-small).
	Model string `yaml:"model,omitempty"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// Dimension of the embedding vectors (derived from model if zero).
	Dimension int `yaml:"dimension,omitempty"`

	// Timeout in seconds for API requests.
	Timeout int `yaml:"timeout,omitempty"`

	// MaxRetries for transient failures.
	MaxRetries int `yaml:"max_retries,omitempty"`
}

// OpenAIEmbedder implements Embedder using the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     *http.Client
	apiKey     string
	baseURL    string
	model      string
	dimension  int
	maxRetries int
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// NewOpenAIEmbedder creates a new OpenAI embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for OpenAI embedder")
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	dimension := cfg.Dimension
	if dimension == 0 {
		switch model {
		case "text-embedding-3-large":
			dimension = 3072
		default:
			dimension = 1536
		}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	return &OpenAIEmbedder{
		client:     &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		dimension:  dimension,
		maxRetries: maxRetries,
	}, nil
}

// Embed converts text to a vector embedding.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch converts multiple texts to vector embeddings in one request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody, err := json.Marshal(openAIEmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp *http.Response
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/embeddings", bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

		resp, err = e.client.Do(httpReq)
		if err == nil && resp.StatusCode == http.StatusOK {
			break
		}

		if resp != nil && resp.StatusCode != http.StatusOK {
			if attempt == e.maxRetries-1 {
				defer resp.Body.Close()
				body, _ := io.ReadAll(resp.Body)
				var apiErr openAIErrorResponse
				if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
					return nil, fmt.Errorf("openai API error: %s", apiErr.Error.Message)
				}
				return nil, fmt.Errorf("openai API returned status %d: %s", resp.StatusCode, string(body))
			}
			resp.Body.Close()
		} else if err != nil && attempt == e.maxRetries-1 {
			return nil, fmt.Errorf("failed to send request to OpenAI: %w", err)
		}

		// Exponential backoff
		backoff := time.Duration(attempt+1) * time.Second
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	defer resp.Body.Close()

	var response openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Data))
	}

	// Responses are index-tagged; restore input order.
	vectors := make([][]float32, len(texts))
	for _, d := range response.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, nil
}

// Dimension returns the embedding vector dimension.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// Model returns the model name being used.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Close releases resources.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

// Ensure OpenAIEmbedder implements Embedder.
var _ Embedder = (*OpenAIEmbedder)(nil)
