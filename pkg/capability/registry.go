package capability

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crewkit/crewkit/pkg/embedder"
	"github.com/crewkit/crewkit/pkg/registry"
	"github.com/crewkit/crewkit/pkg/vector"
)

// DefaultCollection is the index collection capability vectors live in.
const DefaultCollection = "agent_capabilities"

// reindexConcurrency bounds parallel embedding calls during a full reindex.
const reindexConcurrency = 4

// Registry stores capability records and mirrors them into the vector
// index. Mutations are serialized; reads may run concurrently and tolerate
// snapshot staleness.
type Registry struct {
	mu      sync.Mutex // serializes Register/Deregister/Update
	records *registry.BaseRegistry[*Record]

	index      vector.Provider   // nil disables vector indexing
	embed      embedder.Embedder // nil disables vector indexing
	collection string
}

// NewRegistry creates a capability registry backed by the given index and
// embedder. Both may be nil, in which case only keyword search is available.
func NewRegistry(index vector.Provider, embed embedder.Embedder, collection string) *Registry {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Registry{
		records:    registry.NewBaseRegistry[*Record](),
		index:      index,
		embed:      embed,
		collection: collection,
	}
}

// Register adds a new capability record and indexes its search text.
// Fails with DuplicateAgentError if the agent_id is already present.
func (r *Registry) Register(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if rec.AgentID == "" {
		return fmt.Errorf("agent_id cannot be empty")
	}
	if rec.Category == "" {
		rec.Category = CategorySpecialized
	}
	if !ValidCategory(rec.Category) {
		return fmt.Errorf("unknown capability category: %q", rec.Category)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records.Get(rec.AgentID); exists {
		return &DuplicateAgentError{AgentID: rec.AgentID}
	}

	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.Version = 1

	// Index before exposing the record so a search never returns an
	// agent the index does not know about.
	if err := r.upsertIndex(ctx, rec); err != nil {
		return err
	}

	return r.records.Register(rec.AgentID, rec)
}

// Deregister removes a record and its index entry.
// Fails with NotFoundError if the agent_id is absent.
func (r *Registry) Deregister(ctx context.Context, agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records.Get(agentID); !exists {
		return &NotFoundError{AgentID: agentID}
	}

	if err := r.records.Remove(agentID); err != nil {
		return err
	}

	if r.index != nil {
		if err := r.index.Delete(ctx, r.collection, agentID); err != nil {
			return fmt.Errorf("failed to remove agent from index: %w", err)
		}
	}

	return nil
}

// Update replaces an existing record, bumping its version and re-indexing.
// Fails with NotFoundError if the agent_id is absent.
func (r *Registry) Update(ctx context.Context, rec *Record) error {
	if rec == nil || rec.AgentID == "" {
		return fmt.Errorf("record with agent_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.records.Get(rec.AgentID)
	if !exists {
		return &NotFoundError{AgentID: rec.AgentID}
	}

	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	rec.Version = existing.Version + 1
	if rec.Category == "" {
		rec.Category = existing.Category
	}

	if err := r.upsertIndex(ctx, rec); err != nil {
		return err
	}

	// Install a fresh pointer, keeping registration order. Concurrent
	// readers holding the old record see a stable snapshot instead of
	// fields changing under them.
	return r.records.Replace(rec.AgentID, rec)
}

// Get returns the record for an agent_id.
// Fails with NotFoundError if absent.
func (r *Registry) Get(agentID string) (*Record, error) {
	rec, exists := r.records.Get(agentID)
	if !exists {
		return nil, &NotFoundError{AgentID: agentID}
	}
	return rec, nil
}

// ListAll returns a lazy, restartable sequence of records in registration
// order. Records deregistered between yields are skipped.
func (r *Registry) ListAll() iter.Seq[*Record] {
	return func(yield func(*Record) bool) {
		for _, agentID := range r.records.Names() {
			rec, ok := r.records.Get(agentID)
			if !ok {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	return r.records.Count()
}

// Position returns the registration index of an agent_id, or -1 if absent.
// Earlier positions win score ties during candidate ranking.
func (r *Registry) Position(agentID string) int {
	return r.records.Position(agentID)
}

// SearchByText performs substring matching over record search text.
// Fallback for when no vector provider is configured.
func (r *Registry) SearchByText(query string, limit int) []*Record {
	results := make([]*Record, 0, limit)
	for rec := range r.ListAll() {
		if rec.MatchesText(query) {
			results = append(results, rec)
			if len(results) >= limit {
				break
			}
		}
	}
	return results
}

// Reindex re-embeds and upserts every record. Used after switching
// embedding models, when all stored vectors become stale at once.
func (r *Registry) Reindex(ctx context.Context) error {
	if r.index == nil || r.embed == nil {
		return fmt.Errorf("reindex requires a vector index and an embedder")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reindexConcurrency)

	for _, agentID := range r.records.Names() {
		rec, ok := r.records.Get(agentID)
		if !ok {
			continue
		}
		g.Go(func() error {
			return r.upsertIndex(ctx, rec)
		})
	}

	return g.Wait()
}

// Collection returns the index collection name.
func (r *Registry) Collection() string {
	return r.collection
}

// Index returns the vector provider, or nil if none is configured.
func (r *Registry) Index() vector.Provider {
	return r.index
}

// Embedder returns the embedder, or nil if none is configured.
func (r *Registry) Embedder() embedder.Embedder {
	return r.embed
}

// upsertIndex embeds the record's search text and writes it to the index.
func (r *Registry) upsertIndex(ctx context.Context, rec *Record) error {
	if r.index == nil || r.embed == nil {
		return nil
	}

	vec, err := r.embed.Embed(ctx, rec.SearchText())
	if err != nil {
		return fmt.Errorf("failed to embed capability text for '%s': %w", rec.AgentID, err)
	}

	metadata := map[string]any{
		"agent_id":   rec.AgentID,
		"agent_name": rec.AgentName,
		"category":   string(rec.Category),
	}

	if err := r.index.Upsert(ctx, r.collection, rec.AgentID, vec, metadata); err != nil {
		return fmt.Errorf("failed to index capability for '%s': %w", rec.AgentID, err)
	}

	return nil
}
