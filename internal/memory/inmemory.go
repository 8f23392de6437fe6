package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lueurxax/competitor-radar/internal/core/embeddings"
)

var _ Index = (*InMemory)(nil)

type inMemoryRecord struct {
	vector   []float32
	metadata Metadata
}

// InMemory keeps vectors in a map. It backs tests and key-less local runs;
// nothing survives a restart.
type InMemory struct {
	embedder embeddings.Client
	mu       sync.RWMutex
	records  map[string]inMemoryRecord
}

func NewInMemory(embedder embeddings.Client) *InMemory {
	return &InMemory{
		embedder: embedder,
		records:  make(map[string]inMemoryRecord),
	}
}

func (m *InMemory) Upsert(ctx context.Context, id, text string, metadata Metadata) error {
	vector, err := m.embedder.GetEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("embed for upsert: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[id] = inMemoryRecord{vector: vector, metadata: metadata}

	return nil
}

func (m *InMemory) Search(ctx context.Context, text string, k int, filter Metadata) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	vector, err := m.embedder.GetEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed for search: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]SearchResult, 0, len(m.records))

	for id, rec := range m.records {
		if !rec.metadata.matches(filter) {
			continue
		}

		results = append(results, SearchResult{
			ID:         id,
			Similarity: CosineSimilarity(vector, rec.vector),
			Metadata:   rec.metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}

		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// Len returns the number of indexed records.
func (m *InMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}

// Reset drops every record.
func (m *InMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = make(map[string]inMemoryRecord)
}
