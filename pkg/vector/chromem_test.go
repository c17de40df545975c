package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCollection = "agent_capabilities"

func newChromemTestProvider(t *testing.T) *ChromemProvider {
	t.Helper()
	p, err := NewChromemProvider(ChromemConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestChromemProvider_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	p := newChromemTestProvider(t)

	docs := map[string][]float32{
		"coder":    {1, 0, 0},
		"analyst":  {0, 1, 0},
		"reviewer": {0, 0, 1},
	}
	for id, vec := range docs {
		err := p.Upsert(ctx, testCollection, id, vec, map[string]any{"agent_id": id})
		require.NoError(t, err)
	}

	results, err := p.Search(ctx, testCollection, []float32{0.95, 0.05, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "coder", results[0].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, "coder", results[0].Metadata["agent_id"])
}

func TestChromemProvider_SearchEmptyIndex(t *testing.T) {
	p := newChromemTestProvider(t)

	_, err := p.Search(context.Background(), testCollection, []float32{1, 0, 0}, 5)
	require.Error(t, err)

	var idxErr *IndexError
	require.True(t, errors.As(err, &idxErr))
	assert.Equal(t, "chromem", idxErr.Provider)
	assert.Equal(t, "search", idxErr.Operation)
}

func TestChromemProvider_TopKClampedToCount(t *testing.T) {
	ctx := context.Background()
	p := newChromemTestProvider(t)

	require.NoError(t, p.Upsert(ctx, testCollection, "only", []float32{1, 0, 0}, nil))

	results, err := p.Search(ctx, testCollection, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChromemProvider_UpsertEmptyID(t *testing.T) {
	p := newChromemTestProvider(t)

	err := p.Upsert(context.Background(), testCollection, "", []float32{1, 0, 0}, nil)
	require.Error(t, err)
}

func TestChromemProvider_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	p := newChromemTestProvider(t)

	require.NoError(t, p.Upsert(ctx, testCollection, "coder", []float32{1, 0, 0}, map[string]any{"version": 1}))
	require.NoError(t, p.Upsert(ctx, testCollection, "coder", []float32{0, 1, 0}, map[string]any{"version": 2}))

	results, err := p.Search(ctx, testCollection, []float32{0, 1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "coder", results[0].ID)
	assert.Equal(t, "2", results[0].Metadata["version"])
}

func TestChromemProvider_Delete(t *testing.T) {
	ctx := context.Background()
	p := newChromemTestProvider(t)

	require.NoError(t, p.Upsert(ctx, testCollection, "coder", []float32{1, 0, 0}, nil))
	require.NoError(t, p.Upsert(ctx, testCollection, "analyst", []float32{0, 1, 0}, nil))
	require.NoError(t, p.Delete(ctx, testCollection, "coder"))

	results, err := p.Search(ctx, testCollection, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "analyst", results[0].ID)
}

func TestChromemProvider_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p, err := NewChromemProvider(ChromemConfig{PersistPath: dir})
	require.NoError(t, err)
	require.NoError(t, p.Upsert(ctx, testCollection, "coder", []float32{1, 0, 0}, map[string]any{"agent_id": "coder"}))
	require.NoError(t, p.Close())

	reopened, err := NewChromemProvider(ChromemConfig{PersistPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Search(ctx, testCollection, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "coder", results[0].ID)
}

func TestNewProvider_Defaults(t *testing.T) {
	p, err := NewProvider(nil)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, "chromem", p.Name())
}

func TestProviderConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProviderConfig
		wantErr bool
	}{
		{"chromem needs nothing", ProviderConfig{Type: ProviderChromem}, false},
		{"qdrant needs host", ProviderConfig{Type: ProviderQdrant, Qdrant: &QdrantConfig{}}, true},
		{"qdrant with host", ProviderConfig{Type: ProviderQdrant, Qdrant: &QdrantConfig{Host: "localhost"}}, false},
		{"pinecone needs api key", ProviderConfig{Type: ProviderPinecone, Pinecone: &PineconeConfig{}}, true},
		{"empty type", ProviderConfig{}, true},
		{"unknown type", ProviderConfig{Type: "faiss"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
