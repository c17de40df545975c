// Package vector abstracts the external vector index used for capability
// matching. Providers store pre-computed embeddings and answer nearest
// neighbor queries by cosine similarity; embedding itself happens in the
// embedder package.
package vector

import (
	"context"
	"fmt"
)

// Provider is the narrow contract the core consumes. Implementations wrap an
// external index (embedded chromem, Qdrant, Pinecone).
type Provider interface {
	// Upsert adds or replaces a document with its pre-computed vector.
	Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error

	// Search returns the topK most similar documents, best first.
	// Scores are cosine similarities in [0, 1].
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)

	// Delete removes a document by ID.
	Delete(ctx context.Context, collection string, id string) error

	// DeleteCollection removes a collection and all its documents.
	DeleteCollection(ctx context.Context, collection string) error

	// Name returns the provider name.
	Name() string

	// Close releases resources and flushes any persistence.
	Close() error
}

// Result is a single search hit.
type Result struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IndexError represents a failure in the vector index collaborator.
type IndexError struct {
	Provider  string // Provider name
	Operation string // Operation that failed
	Message   string // Error message
	ID        string // Document ID if applicable
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Provider, e.Operation, e.Message)
	if e.ID != "" {
		msg += fmt.Sprintf(" (id: %s)", e.ID)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *IndexError) Unwrap() error {
	return e.Err
}

// NewIndexError creates a new IndexError.
func NewIndexError(provider, operation, message, id string, err error) *IndexError {
	return &IndexError{
		Provider:  provider,
		Operation: operation,
		Message:   message,
		ID:        id,
		Err:       err,
	}
}
