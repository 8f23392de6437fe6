package memory

import (
	"context"
	"fmt"

	"github.com/lueurxax/competitor-radar/internal/core/embeddings"
)

// VectorStore is the durable backend behind the store-backed index. The
// production implementation is the pgvector-backed intel store.
type VectorStore interface {
	UpsertVector(ctx context.Context, id string, embedding []float32, metadata Metadata) error
	SearchVectors(ctx context.Context, embedding []float32, k int, filter Metadata) ([]SearchResult, error)
}

var _ Index = (*Store)(nil)

// Store embeds query text and delegates vector persistence and ranking to
// the backend.
type Store struct {
	embedder embeddings.Client
	backend  VectorStore
}

func NewStore(embedder embeddings.Client, backend VectorStore) *Store {
	return &Store{
		embedder: embedder,
		backend:  backend,
	}
}

func (s *Store) Upsert(ctx context.Context, id, text string, metadata Metadata) error {
	vector, err := s.embedder.GetEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("embed for upsert: %w", err)
	}

	if err = s.backend.UpsertVector(ctx, id, vector, metadata); err != nil {
		return fmt.Errorf("upsert vector %s: %w", id, err)
	}

	return nil
}

func (s *Store) Search(ctx context.Context, text string, k int, filter Metadata) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	vector, err := s.embedder.GetEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed for search: %w", err)
	}

	results, err := s.backend.SearchVectors(ctx, vector, k, filter)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}

	return results, nil
}
