package db

import (
	"context"
	"fmt"
	"time"
)

type DropReasonStat struct {
	Reason string
	Count  int
}

// SaveDropLog records why an article was rejected before classification.
// One row per fingerprint; repeat rejections refresh the reason.
func (db *DB) SaveDropLog(ctx context.Context, fingerprint, url, stage, reason, detail string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO drop_log (fingerprint, url, stage, reason, detail)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fingerprint) DO UPDATE SET
			url = EXCLUDED.url,
			stage = EXCLUDED.stage,
			reason = EXCLUDED.reason,
			detail = EXCLUDED.detail,
			updated_at = NOW()
	`, fingerprint, toText(url), stage, reason, toText(detail))
	if err != nil {
		return fmt.Errorf("save drop log: %w", err)
	}

	return nil
}

// GetDropReasonStats aggregates recent drops by reason, most common first.
func (db *DB) GetDropReasonStats(ctx context.Context, since time.Time, limit int) ([]DropReasonStat, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT reason, COUNT(*)::int
		FROM drop_log
		WHERE updated_at >= $1
		GROUP BY reason
		ORDER BY COUNT(*) DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query drop reason stats: %w", err)
	}
	defer rows.Close()

	stats := make([]DropReasonStat, 0, limit)

	for rows.Next() {
		var entry DropReasonStat
		if err := rows.Scan(&entry.Reason, &entry.Count); err != nil {
			return nil, fmt.Errorf("scan drop reason stat row: %w", err)
		}

		stats = append(stats, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drop reason stats rows: %w", err)
	}

	return stats, nil
}
