package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
)

// SaveArticles persists fetched article candidates for a run and returns
// the stored rows with ids assigned. Candidates whose url is already known
// from an earlier run are skipped, so one article never enters
// classification twice.
func (db *DB) SaveArticles(ctx context.Context, runID string, candidates []domain.ArticleCandidate) ([]domain.Article, error) {
	articles := make([]domain.Article, 0, len(candidates))

	for _, cand := range candidates {
		var (
			id        pgtype.UUID
			fetchedAt pgtype.Timestamptz
		)

		err := db.Pool.QueryRow(ctx, `
			INSERT INTO articles (run_id, competitor_id, source_label, title, url, published_at, raw_snippet, fingerprint)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (url) DO NOTHING
			RETURNING id, fetched_at
		`, toUUID(runID), cand.CompetitorID, toText(cand.SourceLabel),
			SanitizeUTF8(cand.Title), cand.URL, toTimestamptz(cand.PublishedAt),
			toText(cand.RawSnippet), cand.Fingerprint).Scan(&id, &fetchedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}

			return nil, fmt.Errorf("save article: %w", err)
		}

		articles = append(articles, domain.Article{
			ID:           fromUUID(id),
			RunID:        runID,
			CompetitorID: cand.CompetitorID,
			SourceLabel:  cand.SourceLabel,
			Title:        cand.Title,
			URL:          cand.URL,
			PublishedAt:  cand.PublishedAt,
			RawSnippet:   cand.RawSnippet,
			Fingerprint:  cand.Fingerprint,
			FetchedAt:    fromTimestamptz(fetchedAt),
		})
	}

	return articles, nil
}

// ExistingFingerprints reports which of the given fingerprints already have
// a stored article. Used to reject re-fetched stories before they reach the
// classifier.
func (db *DB) ExistingFingerprints(ctx context.Context, fingerprints []string) (map[string]bool, error) {
	if len(fingerprints) == 0 {
		return map[string]bool{}, nil
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT fingerprint
		FROM articles
		WHERE fingerprint = ANY($1)
	`, fingerprints)
	if err != nil {
		return nil, fmt.Errorf("query existing fingerprints: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool, len(fingerprints))

	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint row: %w", err)
		}

		known[fp] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprint rows: %w", err)
	}

	return known, nil
}

// CountArticles returns the total number of stored articles.
func (db *DB) CountArticles(ctx context.Context) (int, error) {
	var count int

	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*)::int FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}

	return count, nil
}
