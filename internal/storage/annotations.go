package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
)

// SaveAnnotation persists one agent verdict. Each intel item carries at
// most one annotation per role; a concurrent duplicate is dropped and nil
// is returned.
func (db *DB) SaveAnnotation(ctx context.Context, annotation domain.Annotation) (*domain.Annotation, error) {
	var (
		id        pgtype.UUID
		createdAt time.Time
	)

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO annotations (intel_id, agent_role, so_what, risk_opportunity, priority, suggested_action)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (intel_id, agent_role) DO NOTHING
		RETURNING id, created_at
	`, toUUID(annotation.IntelID), annotation.AgentRole,
		toText(annotation.SoWhat), annotation.RiskOpportunity,
		annotation.Priority, toText(annotation.SuggestedAction)).Scan(&id, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			//nolint:nilnil // intentional: the role already annotated this item
			return nil, nil
		}

		return nil, fmt.Errorf("save annotation: %w", err)
	}

	annotation.ID = fromUUID(id)
	annotation.CreatedAt = createdAt

	return &annotation, nil
}

// ListAnnotations returns every annotation on one intel item, oldest first.
func (db *DB) ListAnnotations(ctx context.Context, intelID string) ([]domain.Annotation, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, intel_id, agent_role, so_what, risk_opportunity, priority, suggested_action, created_at
		FROM annotations
		WHERE intel_id = $1
		ORDER BY created_at ASC
	`, toUUID(intelID))
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	var annotations []domain.Annotation

	for rows.Next() {
		var (
			annotation      domain.Annotation
			id              pgtype.UUID
			intel           pgtype.UUID
			soWhat          pgtype.Text
			suggestedAction pgtype.Text
		)

		err := rows.Scan(&id, &intel, &annotation.AgentRole, &soWhat,
			&annotation.RiskOpportunity, &annotation.Priority, &suggestedAction,
			&annotation.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan annotation row: %w", err)
		}

		annotation.ID = fromUUID(id)
		annotation.IntelID = fromUUID(intel)
		annotation.SoWhat = fromText(soWhat)
		annotation.SuggestedAction = fromText(suggestedAction)

		annotations = append(annotations, annotation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotation rows: %w", err)
	}

	return annotations, nil
}

// PendingIntelForRole returns canonical intel created since the given time
// that clears the score minimums, falls in the role's categories, and has
// no annotation from that role yet. Oldest first, so the backlog drains in
// order.
func (db *DB) PendingIntelForRole(ctx context.Context, role string, categories []domain.Category, minImpact, minRelevance float32, since time.Time, limit int) ([]domain.Intel, error) {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}

	rows, err := db.Pool.Query(ctx, intelColumns+`
		FROM intel i
		JOIN articles a ON a.id = i.article_id
		WHERE i.is_duplicate_of IS NULL
		  AND i.created_at >= $2
		  AND i.impact_score >= $3
		  AND i.relevance_score >= $4
		  AND i.category = ANY($5)
		  AND NOT EXISTS (
			SELECT 1 FROM annotations an
			WHERE an.intel_id = i.id AND an.agent_role = $1
		  )
		ORDER BY i.created_at ASC
		LIMIT $6
	`, role, since, minImpact, minRelevance, names, clampIntelLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query pending intel for role: %w", err)
	}
	defer rows.Close()

	return scanIntelRows(rows)
}
