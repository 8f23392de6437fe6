package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
)

// Intel sort orders accepted by ListIntel.
const (
	SortRecent = "recent"
	SortImpact = "impact"
)

// IntelFilter narrows ListIntel results. Zero values mean "no constraint".
type IntelFilter struct {
	Limit        int
	Category     domain.Category
	CompetitorID string
	MinImpact    float32
	MinNovelty   float32
	Sort         string
}

// SaveIntel persists one merged intel record and returns it with id and
// created_at assigned. Novelty fields stay unset until the resolver has
// scored the item.
func (db *DB) SaveIntel(ctx context.Context, merged domain.MergedIntel) (*domain.Intel, error) {
	var (
		id        pgtype.UUID
		createdAt time.Time
	)

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO intel (article_id, summary, category, relevance_score, impact_score, entities, source_count, related_urls)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, toUUID(merged.ArticleID), SanitizeUTF8(merged.Summary), string(merged.Category),
		toFloat4(merged.RelevanceScore), toFloat4(merged.ImpactScore),
		jsonStrings(merged.Entities), toInt4(merged.SourceCount),
		jsonStrings(merged.RelatedURLs)).Scan(&id, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("save intel: %w", err)
	}

	return &domain.Intel{
		ID:             fromUUID(id),
		ArticleID:      merged.ArticleID,
		Summary:        merged.Summary,
		Category:       merged.Category,
		RelevanceScore: merged.RelevanceScore,
		ImpactScore:    merged.ImpactScore,
		Entities:       merged.Entities,
		SourceCount:    merged.SourceCount,
		RelatedURLs:    merged.RelatedURLs,
		CreatedAt:      createdAt,
		CompetitorID:   merged.CompetitorID,
		Title:          merged.Title,
		URL:            merged.URL,
	}, nil
}

// ResolveIntelNovelty writes the resolver's verdict for one item. An empty
// duplicateOf clears the link, which keeps re-resolution idempotent.
func (db *DB) ResolveIntelNovelty(ctx context.Context, id string, novelty float32, duplicateOf string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE intel SET
			novelty_score = $2,
			is_duplicate_of = $3
		WHERE id = $1
	`, toUUID(id), toFloat4(novelty), toUUID(duplicateOf))
	if err != nil {
		return fmt.Errorf("resolve intel novelty: %w", err)
	}

	return nil
}

// RecentIntelWindow returns canonical intel created since the given time,
// oldest first, excluding the run being resolved. This is the comparison
// window the novelty resolver scores new items against.
func (db *DB) RecentIntelWindow(ctx context.Context, since time.Time, excludeRunID string) ([]domain.Intel, error) {
	rows, err := db.Pool.Query(ctx, intelColumns+`
		FROM intel i
		JOIN articles a ON a.id = i.article_id
		WHERE i.created_at >= $1
		  AND i.is_duplicate_of IS NULL
		  AND a.run_id <> $2
		ORDER BY i.created_at ASC
	`, since, toUUID(excludeRunID))
	if err != nil {
		return nil, fmt.Errorf("query intel window: %w", err)
	}
	defer rows.Close()

	return scanIntelRows(rows)
}

// ListIntel returns canonical intel for dashboard reads. Duplicates are
// never listed; their story is reachable through the original.
func (db *DB) ListIntel(ctx context.Context, filter IntelFilter) ([]domain.Intel, error) {
	query := intelColumns + `
		FROM intel i
		JOIN articles a ON a.id = i.article_id
		WHERE i.is_duplicate_of IS NULL`

	var args []any

	if filter.Category != "" {
		args = append(args, string(filter.Category))
		query += fmt.Sprintf(" AND i.category = $%d", len(args))
	}

	if filter.CompetitorID != "" {
		args = append(args, filter.CompetitorID)
		query += fmt.Sprintf(" AND a.competitor_id = $%d", len(args))
	}

	if filter.MinImpact > 0 {
		args = append(args, filter.MinImpact)
		query += fmt.Sprintf(" AND i.impact_score >= $%d", len(args))
	}

	if filter.MinNovelty > 0 {
		args = append(args, filter.MinNovelty)
		query += fmt.Sprintf(" AND i.novelty_score >= $%d", len(args))
	}

	switch filter.Sort {
	case SortImpact:
		query += " ORDER BY i.impact_score DESC, i.relevance_score DESC"
	default:
		query += " ORDER BY i.created_at DESC"
	}

	args = append(args, clampIntelLimit(filter.Limit))
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query intel list: %w", err)
	}
	defer rows.Close()

	return scanIntelRows(rows)
}

// GetIntel returns a single intel record, or nil when the id is unknown.
func (db *DB) GetIntel(ctx context.Context, id string) (*domain.Intel, error) {
	rows, err := db.Pool.Query(ctx, intelColumns+`
		FROM intel i
		JOIN articles a ON a.id = i.article_id
		WHERE i.id = $1
	`, toUUID(id))
	if err != nil {
		return nil, fmt.Errorf("query intel: %w", err)
	}
	defer rows.Close()

	items, err := scanIntelRows(rows)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		//nolint:nilnil // intentional: not found is not an error
		return nil, nil
	}

	return &items[0], nil
}

func clampIntelLimit(limit int) int {
	if limit <= 0 {
		return defaultIntelLimit
	}

	if limit > maxIntelLimit {
		return maxIntelLimit
	}

	return limit
}

const intelColumns = `
		SELECT i.id, i.article_id, i.summary, i.category,
			   i.relevance_score, i.impact_score, i.novelty_score, i.is_duplicate_of,
			   i.entities, i.source_count, i.related_urls, i.created_at,
			   a.competitor_id, a.title, a.url, a.published_at`

func scanIntelRows(rows pgx.Rows) ([]domain.Intel, error) {
	var items []domain.Intel

	for rows.Next() {
		var (
			item        domain.Intel
			id          pgtype.UUID
			articleID   pgtype.UUID
			category    string
			novelty     pgtype.Float4
			duplicateOf pgtype.UUID
			publishedAt pgtype.Timestamptz
		)

		err := rows.Scan(&id, &articleID, &item.Summary, &category,
			&item.RelevanceScore, &item.ImpactScore, &novelty, &duplicateOf,
			&item.Entities, &item.SourceCount, &item.RelatedURLs, &item.CreatedAt,
			&item.CompetitorID, &item.Title, &item.URL, &publishedAt)
		if err != nil {
			return nil, fmt.Errorf("scan intel row: %w", err)
		}

		item.ID = fromUUID(id)
		item.ArticleID = fromUUID(articleID)
		item.Category = domain.Category(category)
		item.NoveltyScore = fromFloat4Ptr(novelty)
		item.IsDuplicateOf = fromUUIDPtr(duplicateOf)
		item.PublishedAt = fromTimestamptz(publishedAt)

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intel rows: %w", err)
	}

	return items, nil
}

// jsonStrings normalizes a nil slice so jsonb columns always hold an array.
func jsonStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}

	return ss
}
