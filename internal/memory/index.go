// Package memory implements the vector index over historical intel summaries
// used for semantic duplicate detection and novelty scoring. The index itself
// is storage-agnostic: the embedding call is injected, and backends range
// from an in-memory map for tests to pgvector in production.
package memory

import (
	"context"
	"math"
)

// duplicateSearchK is the candidate pool size for duplicate lookup. Wider
// than the usual search so threshold filtering still has enough to rank.
const duplicateSearchK = 10

// Metadata carries scalar attributes stored next to a vector and matched
// exactly on filtered search. Values must be JSON-scalar types.
type Metadata map[string]any

// SearchResult is one nearest-neighbor hit.
type SearchResult struct {
	ID         string
	Similarity float32
	Metadata   Metadata
}

// Index is the vector memory contract. Upsert is idempotent per id; Search
// returns up to k neighbors ranked by cosine similarity (1 - distance),
// optionally restricted to records whose metadata matches filter exactly.
type Index interface {
	Upsert(ctx context.Context, id, text string, metadata Metadata) error
	Search(ctx context.Context, text string, k int, filter Metadata) ([]SearchResult, error)
}

// FindDuplicates searches with a generous k and keeps hits at or above
// threshold, excluding the given ids. Results stay ranked by similarity
// descending.
func FindDuplicates(ctx context.Context, index Index, text string, threshold float32, excludeIDs []string) ([]SearchResult, error) {
	results, err := index.Search(ctx, text, duplicateSearchK, nil)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	var duplicates []SearchResult

	for _, r := range results {
		if _, ok := excluded[r.ID]; ok {
			continue
		}
		if r.Similarity >= threshold {
			duplicates = append(duplicates, r)
		}
	}

	return duplicates, nil
}

// CosineSimilarity returns the cosine of the angle between two vectors, or 0
// when lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

func (m Metadata) matches(filter Metadata) bool {
	for key, want := range filter {
		got, ok := m[key]
		if !ok || got != want {
			return false
		}
	}

	return true
}
