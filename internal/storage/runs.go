package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
)

// StartRun inserts a new run in the running state and returns it.
func (db *DB) StartRun(ctx context.Context) (*domain.Run, error) {
	run := &domain.Run{Status: domain.RunStatusRunning}

	var id pgtype.UUID

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO runs (status)
		VALUES ($1)
		RETURNING id, started_at
	`, string(run.Status)).Scan(&id, &run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	run.ID = fromUUID(id)

	return run, nil
}

// FinishRun stamps the run's finish time and writes its final status and
// counters.
func (db *DB) FinishRun(ctx context.Context, run *domain.Run) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE runs SET
			finished_at = NOW(),
			status = $2,
			articles_fetched = $3,
			intel_created = $4,
			duplicates_found = $5,
			skipped_classifications = $6,
			notes = $7
		WHERE id = $1
	`, toUUID(run.ID), string(run.Status),
		toInt4(run.ArticlesFetched), toInt4(run.IntelCreated),
		toInt4(run.DuplicatesFound), toInt4(run.SkippedClassifications),
		toText(run.Notes))
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	return nil
}

// GetRun returns a single run, or nil when the id is unknown.
func (db *DB) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	rows, err := db.Pool.Query(ctx, runColumns+`
		FROM runs
		WHERE id = $1
	`, toUUID(id))
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		//nolint:nilnil // intentional: not found is not an error
		return nil, nil
	}

	return &runs[0], nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = defaultIntelLimit
	}

	rows, err := db.Pool.Query(ctx, runColumns+`
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

const runColumns = `
		SELECT id, started_at, finished_at, status,
			   articles_fetched, intel_created, duplicates_found,
			   skipped_classifications, notes`

func scanRuns(rows pgx.Rows) ([]domain.Run, error) {
	var runs []domain.Run

	for rows.Next() {
		var (
			run        domain.Run
			id         pgtype.UUID
			finishedAt pgtype.Timestamptz
			status     string
			notes      pgtype.Text
		)

		err := rows.Scan(&id, &run.StartedAt, &finishedAt, &status,
			&run.ArticlesFetched, &run.IntelCreated, &run.DuplicatesFound,
			&run.SkippedClassifications, &notes)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		run.ID = fromUUID(id)
		run.FinishedAt = fromTimestamptzPtr(finishedAt)
		run.Status = domain.RunStatus(status)
		run.Notes = fromText(notes)

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}
