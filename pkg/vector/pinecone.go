package vector

import (
	"context"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeConfig configures the Pinecone vector provider.
type PineconeConfig struct {
	// APIKey is required for Pinecone authentication.
	APIKey string `yaml:"api_key"`

	// Host is the Pinecone API host (optional, defaults to https://api.pinecone.io).
	Host string `yaml:"host,omitempty"`

	// IndexName is the default index to use.
	IndexName string `yaml:"index_name"`
}

// PineconeProvider implements Provider using the Pinecone managed vector
// database. Indexes must be created out of band; the provider only reads
// and writes vectors.
type PineconeProvider struct {
	client    *pinecone.Client
	config    PineconeConfig
	indexName string
}

// NewPineconeProvider creates a new Pinecone provider.
func NewPineconeProvider(cfg PineconeConfig) (*PineconeProvider, error) {
	if cfg.APIKey == "" {
		return nil, NewIndexError("pinecone", "connect", "API key is required", "", nil)
	}

	clientParams := pinecone.NewClientParams{
		ApiKey: cfg.APIKey,
	}
	if cfg.Host != "" {
		clientParams.Host = cfg.Host
	}

	client, err := pinecone.NewClient(clientParams)
	if err != nil {
		return nil, NewIndexError("pinecone", "connect", "failed to create client", "", err)
	}

	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "crewkit-capabilities"
	}

	return &PineconeProvider{
		client:    client,
		config:    cfg,
		indexName: indexName,
	}, nil
}

// Name returns the provider name.
func (p *PineconeProvider) Name() string {
	return "pinecone"
}

// getIndexConnection gets an IndexConnection for the index.
func (p *PineconeProvider) getIndexConnection(ctx context.Context, indexName string) (*pinecone.IndexConnection, error) {
	index, err := p.client.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, NewIndexError("pinecone", "connect", "failed to describe index "+indexName, "", err)
	}

	indexConn, err := p.client.Index(pinecone.NewIndexConnParams{
		Host:      index.Host,
		Namespace: "",
	})
	if err != nil {
		return nil, NewIndexError("pinecone", "connect", "failed to create index connection", "", err)
	}

	return indexConn, nil
}

// Upsert adds or replaces a document with its vector.
func (p *PineconeProvider) Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error {
	if id == "" {
		return NewIndexError("pinecone", "upsert", "document id cannot be empty", id, nil)
	}

	indexName := collection
	if indexName == "" {
		indexName = p.indexName
	}

	indexConn, err := p.getIndexConnection(ctx, indexName)
	if err != nil {
		return err
	}
	defer indexConn.Close()

	var pineconeMetadata *pinecone.Metadata
	if len(metadata) > 0 {
		pineconeMetadata, err = structpb.NewStruct(metadata)
		if err != nil {
			return NewIndexError("pinecone", "upsert", "failed to convert metadata", id, err)
		}
	}

	pineconeVector := &pinecone.Vector{
		Id:       id,
		Values:   vector,
		Metadata: pineconeMetadata,
	}

	_, err = indexConn.UpsertVectors(ctx, []*pinecone.Vector{pineconeVector})
	if err != nil {
		return NewIndexError("pinecone", "upsert", "failed to upsert vector", id, err)
	}

	return nil
}

// Search finds the most similar vectors.
func (p *PineconeProvider) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	indexName := collection
	if indexName == "" {
		indexName = p.indexName
	}

	indexConn, err := p.getIndexConnection(ctx, indexName)
	if err != nil {
		return nil, err
	}
	defer indexConn.Close()

	queryRequest := &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	}

	queryResponse, err := indexConn.QueryByVectorValues(ctx, queryRequest)
	if err != nil {
		return nil, NewIndexError("pinecone", "search", "query failed", "", err)
	}

	out := make([]Result, 0, len(queryResponse.Matches))
	for _, match := range queryResponse.Matches {
		if match.Vector == nil {
			continue
		}

		metadata := make(map[string]any)
		if match.Vector.Metadata != nil {
			metadata = match.Vector.Metadata.AsMap()
		}

		out = append(out, Result{
			ID:       match.Vector.Id,
			Score:    match.Score,
			Metadata: metadata,
		})
	}

	return out, nil
}

// Delete removes a document by ID.
func (p *PineconeProvider) Delete(ctx context.Context, collection string, id string) error {
	indexName := collection
	if indexName == "" {
		indexName = p.indexName
	}

	indexConn, err := p.getIndexConnection(ctx, indexName)
	if err != nil {
		return err
	}
	defer indexConn.Close()

	err = indexConn.DeleteVectorsById(ctx, []string{id})
	if err != nil {
		return NewIndexError("pinecone", "delete", "failed to delete vector", id, err)
	}

	return nil
}

// DeleteCollection returns an error; Pinecone index deletion is managed out
// of band via the console or API.
func (p *PineconeProvider) DeleteCollection(ctx context.Context, collection string) error {
	indexName := collection
	if indexName == "" {
		indexName = p.indexName
	}
	return NewIndexError("pinecone", "delete_collection",
		"index deletion not supported; delete index "+indexName+" via Pinecone console or API", "", nil)
}

// Close closes the Pinecone client.
func (p *PineconeProvider) Close() error {
	// Pinecone client has no explicit close
	return nil
}

// Ensure PineconeProvider implements Provider.
var _ Provider = (*PineconeProvider)(nil)
