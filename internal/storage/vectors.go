package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/lueurxax/competitor-radar/internal/memory"
)

var _ memory.VectorStore = (*DB)(nil)

// UpsertVector stores or refreshes the embedding for an intel record along
// with the scalar metadata used for filtered search.
func (db *DB) UpsertVector(ctx context.Context, id string, embedding []float32, metadata memory.Metadata) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO intel_vectors (intel_id, embedding, category, impact_score, relevance_score)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (intel_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			category = EXCLUDED.category,
			impact_score = EXCLUDED.impact_score,
			relevance_score = EXCLUDED.relevance_score,
			updated_at = NOW()
	`, toUUID(id), pgvector.NewVector(embedding),
		toText(metadataString(metadata, "category")),
		toFloat4(metadataFloat(metadata, "impact_score")),
		toFloat4(metadataFloat(metadata, "relevance_score")))
	if err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}

	return nil
}

// SearchVectors returns the k nearest stored vectors by cosine similarity,
// most similar first. The only supported filter key is category; scores
// live in columns for reporting, not for lookup.
func (db *DB) SearchVectors(ctx context.Context, embedding []float32, k int, filter memory.Metadata) ([]memory.SearchResult, error) {
	query := `
		SELECT intel_id, 1 - (embedding <=> $1::vector) AS similarity,
			   category, impact_score, relevance_score
		FROM intel_vectors`

	args := []any{pgvector.NewVector(embedding)}

	for key, want := range filter {
		if key != "category" {
			return nil, fmt.Errorf("unsupported vector filter key %q", key)
		}

		args = append(args, fmt.Sprint(want))
		query += fmt.Sprintf(" WHERE category = $%d", len(args))
	}

	args = append(args, k)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1::vector LIMIT $%d", len(args))

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}
	defer rows.Close()

	var results []memory.SearchResult

	for rows.Next() {
		var (
			id         pgtype.UUID
			similarity float64
			category   pgtype.Text
			impact     pgtype.Float4
			relevance  pgtype.Float4
		)

		if err := rows.Scan(&id, &similarity, &category, &impact, &relevance); err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}

		results = append(results, memory.SearchResult{
			ID:         fromUUID(id),
			Similarity: float32(similarity),
			Metadata: memory.Metadata{
				"category":        fromText(category),
				"impact_score":    fromFloat4(impact),
				"relevance_score": fromFloat4(relevance),
			},
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector rows: %w", err)
	}

	return results, nil
}

// ResetVectors drops every stored embedding. The next runs rebuild the
// index as they resolve novelty.
func (db *DB) ResetVectors(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, `TRUNCATE intel_vectors`); err != nil {
		return fmt.Errorf("reset vectors: %w", err)
	}

	return nil
}

func metadataString(md memory.Metadata, key string) string {
	if v, ok := md[key].(string); ok {
		return v
	}

	return ""
}

func metadataFloat(md memory.Metadata, key string) float32 {
	switch v := md[key].(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	case int:
		return float32(v)
	default:
		return 0
	}
}
