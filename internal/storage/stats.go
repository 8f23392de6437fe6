package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
)

// Stats summarizes the whole intel corpus for the dashboard.
type Stats struct {
	TotalIntel      int
	DuplicateCount  int
	ArticleCount    int
	CompetitorCount int
	AvgImpactScore  float32
	AvgNoveltyScore float32
	ByCategory      map[domain.Category]int
}

// CompetitorStat summarizes one competitor's footprint in the corpus.
type CompetitorStat struct {
	CompetitorID string
	ArticleCount int
	IntelCount   int
	AvgImpact    float32
	LastIntelAt  *time.Time
}

// GetStats aggregates corpus-wide counters. Averages cover canonical intel
// only; duplicates are counted but never averaged in.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByCategory: make(map[domain.Category]int)}

	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE is_duplicate_of IS NULL)::int,
			   COUNT(*) FILTER (WHERE is_duplicate_of IS NOT NULL)::int,
			   COALESCE(AVG(impact_score) FILTER (WHERE is_duplicate_of IS NULL), 0)::float4,
			   COALESCE(AVG(novelty_score) FILTER (WHERE is_duplicate_of IS NULL), 0)::float4
		FROM intel
	`).Scan(&stats.TotalIntel, &stats.DuplicateCount, &stats.AvgImpactScore, &stats.AvgNoveltyScore)
	if err != nil {
		return nil, fmt.Errorf("query intel stats: %w", err)
	}

	err = db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)::int, COUNT(DISTINCT competitor_id)::int
		FROM articles
	`).Scan(&stats.ArticleCount, &stats.CompetitorCount)
	if err != nil {
		return nil, fmt.Errorf("query article stats: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT category, COUNT(*)::int
		FROM intel
		WHERE is_duplicate_of IS NULL
		GROUP BY category
	`)
	if err != nil {
		return nil, fmt.Errorf("query category stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			category string
			count    int
		)

		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scan category stat row: %w", err)
		}

		stats.ByCategory[domain.Category(category)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category stat rows: %w", err)
	}

	return stats, nil
}

// GetCompetitorStats aggregates per-competitor counters, most covered
// competitor first.
func (db *DB) GetCompetitorStats(ctx context.Context) ([]CompetitorStat, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT a.competitor_id,
			   COUNT(DISTINCT a.id)::int,
			   COUNT(i.id)::int,
			   COALESCE(AVG(i.impact_score), 0)::float4,
			   MAX(i.created_at)
		FROM articles a
		LEFT JOIN intel i ON i.article_id = a.id AND i.is_duplicate_of IS NULL
		GROUP BY a.competitor_id
		ORDER BY COUNT(i.id) DESC, a.competitor_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query competitor stats: %w", err)
	}
	defer rows.Close()

	var stats []CompetitorStat

	for rows.Next() {
		var (
			stat        CompetitorStat
			lastIntelAt pgtype.Timestamptz
		)

		err := rows.Scan(&stat.CompetitorID, &stat.ArticleCount, &stat.IntelCount,
			&stat.AvgImpact, &lastIntelAt)
		if err != nil {
			return nil, fmt.Errorf("scan competitor stat row: %w", err)
		}

		stat.LastIntelAt = fromTimestamptzPtr(lastIntelAt)

		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate competitor stat rows: %w", err)
	}

	return stats, nil
}
