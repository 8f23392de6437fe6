// Package pipeline orchestrates one ingestion run end to end: collect
// candidates from feeds and search, reject known fingerprints, classify,
// merge same-story candidates, persist intel, and resolve novelty against
// the historical window.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	"github.com/lueurxax/competitor-radar/internal/ingest/rss"
	"github.com/lueurxax/competitor-radar/internal/ingest/search"
	"github.com/lueurxax/competitor-radar/internal/platform/observability"
	"github.com/lueurxax/competitor-radar/internal/process/classify"
	"github.com/lueurxax/competitor-radar/internal/process/novelty"
	db "github.com/lueurxax/competitor-radar/internal/storage"
)

type Repository interface {
	StartRun(ctx context.Context) (*domain.Run, error)
	FinishRun(ctx context.Context, run *domain.Run) error
	ExistingFingerprints(ctx context.Context, fingerprints []string) (map[string]bool, error)
	SaveArticles(ctx context.Context, runID string, candidates []domain.ArticleCandidate) ([]domain.Article, error)
	SaveIntel(ctx context.Context, merged domain.MergedIntel) (*domain.Intel, error)
	RecentIntelWindow(ctx context.Context, since time.Time, excludeRunID string) ([]domain.Intel, error)
	ResolveIntelNovelty(ctx context.Context, id string, noveltyScore float32, duplicateOf string) error
	SaveDropLog(ctx context.Context, fingerprint, url, stage, reason, detail string) error
}

// Compile-time assertion that *db.DB implements Repository.
var _ Repository = (*db.DB)(nil)

type Fetcher interface {
	FetchAll(ctx context.Context, feeds []rss.FeedSource) []domain.ArticleCandidate
}

type Searcher interface {
	SearchAll(ctx context.Context, queries []search.CompetitorQuery) []domain.ArticleCandidate
}

type Classifier interface {
	ClassifyAll(ctx context.Context, articles []domain.Article) classify.Result
}

type Grouper interface {
	Group(candidates []domain.IntelCandidate) []domain.MergedIntel
}

type Resolver interface {
	Resolve(ctx context.Context, items, history []domain.Intel) []novelty.Resolution
	IndexResolved(ctx context.Context, items []domain.Intel, resolutions []novelty.Resolution) int
}

// Stages bundles the pipeline's processing seams so tests can stub any one
// of them.
type Stages struct {
	Fetcher    Fetcher
	Searcher   Searcher
	Classifier Classifier
	Grouper    Grouper
	Resolver   Resolver
}

// Config carries the source registry and the cross-run dedup window.
type Config struct {
	Feeds           []rss.FeedSource
	Queries         []search.CompetitorQuery
	DedupWindowDays int
}

func (c Config) withDefaults() Config {
	if c.DedupWindowDays <= 0 {
		c.DedupWindowDays = defaultDedupWindowDays
	}

	return c
}

type Pipeline struct {
	cfg      Config
	database Repository
	stages   Stages
	logger   *zerolog.Logger

	// now is swapped in tests to pin the window cutoff.
	now func() time.Time
}

func New(cfg Config, database Repository, stages Stages, logger *zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg.withDefaults(),
		database: database,
		stages:   stages,
		logger:   logger,
		now:      time.Now,
	}
}

// RunOnce executes one end-to-end ingestion pass. Per-item failures are
// logged, tallied, and leave the run partial; only systemic storage
// failures abort it. The returned run carries final counters and status
// whenever the run row was created, even alongside a non-nil error.
func (p *Pipeline) RunOnce(ctx context.Context) (*domain.Run, error) {
	run, err := p.database.StartRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	start := p.now()
	logger := p.logger.With().Str(logKeyRun, run.ID).Logger()

	logger.Info().
		Int("feeds", len(p.cfg.Feeds)).
		Int("queries", len(p.cfg.Queries)).
		Msg("pipeline run starting")

	notes, runErr := p.execute(ctx, logger, run)

	switch {
	case runErr != nil:
		run.Status = domain.RunStatusFailed
		notes = append(notes, runErr.Error())
	case len(notes) > 0:
		run.Status = domain.RunStatusPartial
	default:
		run.Status = domain.RunStatusSuccess
	}

	run.Notes = strings.Join(notes, "; ")

	duration := p.now().Sub(start)

	observability.PipelineRuns.WithLabelValues(string(run.Status)).Inc()
	observability.PipelineRunDuration.Observe(duration.Seconds())

	// A canceled or timed-out run must still record its outcome.
	//nolint:contextcheck // non-inherited context intentional
	finishCtx, cancel := context.WithTimeout(context.Background(), finishRunTimeout)
	defer cancel()

	if err := p.database.FinishRun(finishCtx, run); err != nil {
		logger.Error().Err(err).Msg("failed to finish run")

		if runErr == nil {
			runErr = fmt.Errorf("finish run: %w", err)
		}
	}

	logger.Info().
		Str("status", string(run.Status)).
		Int("articles_fetched", run.ArticlesFetched).
		Int("intel_created", run.IntelCreated).
		Int("duplicates_found", run.DuplicatesFound).
		Int("skipped_classifications", run.SkippedClassifications).
		Dur("duration", duration).
		Msg("pipeline run finished")

	return run, runErr
}

// execute walks the run through every stage, mutating counters on run as it
// goes. Returned notes describe degradations that leave the run partial; a
// non-nil error means a systemic failure aborted it.
func (p *Pipeline) execute(ctx context.Context, logger zerolog.Logger, run *domain.Run) ([]string, error) {
	var notes []string

	candidates := p.collect(ctx, logger)
	run.ArticlesFetched = len(candidates)

	if len(candidates) == 0 {
		logger.Warn().Msg("no candidates collected, finishing run early")

		return notes, nil
	}

	fresh, err := p.rejectKnown(ctx, logger, candidates)
	if err != nil {
		return notes, err
	}

	if len(fresh) == 0 {
		logger.Info().Msg("every candidate already known, nothing to classify")

		return notes, nil
	}

	articles, err := p.database.SaveArticles(ctx, run.ID, fresh)
	if err != nil {
		return notes, fmt.Errorf("save articles: %w", err)
	}

	result := p.stages.Classifier.ClassifyAll(ctx, articles)
	run.SkippedClassifications = result.Skipped

	if result.FailedBatches > 0 {
		notes = append(notes, fmt.Sprintf("%d classification batches failed", result.FailedBatches))
	}

	// With failed batches a missing verdict is indistinguishable from an
	// oracle skip, so rejections are only recorded on clean passes.
	if result.FailedBatches == 0 {
		p.recordUnclassified(ctx, articles, result.Candidates)
	}

	merged := p.stages.Grouper.Group(result.Candidates)

	items, saveNotes := p.persistIntel(ctx, logger, run, merged)
	notes = append(notes, saveNotes...)

	notes = append(notes, p.resolveNovelty(ctx, logger, run, items)...)

	if ctx.Err() != nil {
		notes = append(notes, "run canceled before completion")
	}

	return notes, nil
}

func (p *Pipeline) collect(ctx context.Context, logger zerolog.Logger) []domain.ArticleCandidate {
	fromFeeds := p.stages.Fetcher.FetchAll(ctx, p.cfg.Feeds)
	observability.ArticlesCollected.WithLabelValues(originRSS).Add(float64(len(fromFeeds)))

	fromSearch := p.stages.Searcher.SearchAll(ctx, p.cfg.Queries)
	observability.ArticlesCollected.WithLabelValues(originSearch).Add(float64(len(fromSearch)))

	logger.Info().
		Int("from_feeds", len(fromFeeds)).
		Int("from_search", len(fromSearch)).
		Msg("candidates collected")

	return append(fromFeeds, fromSearch...)
}

// rejectKnown drops candidates whose fingerprint repeats within the batch
// or matches an article stored by an earlier run, before any oracle cost is
// spent. Rejects land in drop_log, not errors.
func (p *Pipeline) rejectKnown(ctx context.Context, logger zerolog.Logger, candidates []domain.ArticleCandidate) ([]domain.ArticleCandidate, error) {
	seen := make(map[string]struct{}, len(candidates))
	batch := make([]domain.ArticleCandidate, 0, len(candidates))

	for _, cand := range candidates {
		if _, ok := seen[cand.Fingerprint]; ok {
			p.recordDrop(ctx, cand.Fingerprint, cand.URL, db.DropStageFingerprint, dropReasonDuplicateBatch, cand.Title)

			continue
		}

		seen[cand.Fingerprint] = struct{}{}
		batch = append(batch, cand)
	}

	fingerprints := make([]string, 0, len(batch))
	for _, cand := range batch {
		fingerprints = append(fingerprints, cand.Fingerprint)
	}

	stored, err := p.database.ExistingFingerprints(ctx, fingerprints)
	if err != nil {
		return nil, fmt.Errorf("check stored fingerprints: %w", err)
	}

	fresh := make([]domain.ArticleCandidate, 0, len(batch))

	for _, cand := range batch {
		if stored[cand.Fingerprint] {
			p.recordDrop(ctx, cand.Fingerprint, cand.URL, db.DropStageFingerprint, dropReasonAlreadyStored, cand.Title)

			continue
		}

		fresh = append(fresh, cand)
	}

	if dropped := len(candidates) - len(fresh); dropped > 0 {
		logger.Info().
			Int("candidates", len(candidates)).
			Int("fresh", len(fresh)).
			Int("dropped", dropped).
			Msg("fingerprint pre-filter applied")
	}

	return fresh, nil
}

// recordUnclassified logs articles the oracle produced no verdict for. The
// oracle is told to skip articles without citable competitive facts, so
// these are expected rejections, not failures.
func (p *Pipeline) recordUnclassified(ctx context.Context, articles []domain.Article, candidates []domain.IntelCandidate) {
	classified := make(map[string]struct{}, len(candidates))
	for _, cand := range candidates {
		classified[cand.ArticleID] = struct{}{}
	}

	for _, article := range articles {
		if _, ok := classified[article.ID]; ok {
			continue
		}

		p.recordDrop(ctx, article.Fingerprint, article.URL, db.DropStageClassify, dropReasonNotRelevant, article.Title)
	}
}

func (p *Pipeline) persistIntel(ctx context.Context, logger zerolog.Logger, run *domain.Run, merged []domain.MergedIntel) ([]domain.Intel, []string) {
	items := make([]domain.Intel, 0, len(merged))
	failures := 0

	for _, m := range merged {
		intel, err := p.database.SaveIntel(ctx, m)
		if err != nil {
			failures++

			logger.Warn().Err(err).Str(logKeyURL, m.URL).Msg("failed to save intel")

			continue
		}

		observability.IntelCreated.Inc()

		items = append(items, *intel)
	}

	run.IntelCreated = len(items)

	var notes []string
	if failures > 0 {
		notes = append(notes, fmt.Sprintf("%d intel saves failed", failures))
	}

	return items, notes
}

// resolveNovelty scores the run's fresh intel against the historical window
// and publishes the survivors to the vector index. Window reads and
// per-item updates degrade to notes; they never abort the run.
func (p *Pipeline) resolveNovelty(ctx context.Context, logger zerolog.Logger, run *domain.Run, items []domain.Intel) []string {
	if len(items) == 0 {
		return nil
	}

	var notes []string

	since := p.now().AddDate(0, 0, -p.cfg.DedupWindowDays)

	history, err := p.database.RecentIntelWindow(ctx, since, run.ID)
	if err != nil {
		logger.Warn().Err(err).Msg("history window unavailable, resolving against this run only")

		notes = append(notes, "history window unavailable")
	}

	resolutions := p.stages.Resolver.Resolve(ctx, items, history)

	failures := 0

	for _, res := range resolutions {
		if err := p.database.ResolveIntelNovelty(ctx, res.ID, res.Novelty, res.DuplicateOf); err != nil {
			failures++

			logger.Warn().Err(err).Str(logKeyIntel, res.ID).Msg("failed to store novelty resolution")

			continue
		}

		observability.NoveltyScore.Observe(float64(res.Novelty))

		if res.DuplicateOf != "" {
			observability.DuplicatesDetected.Inc()

			run.DuplicatesFound++
		}
	}

	if failures > 0 {
		notes = append(notes, fmt.Sprintf("%d novelty updates failed", failures))
	}

	if len(resolutions) < len(items) {
		notes = append(notes, fmt.Sprintf("%d items left unscored", len(items)-len(resolutions)))
	}

	indexed := p.stages.Resolver.IndexResolved(ctx, items, resolutions)

	logger.Info().
		Int("scored", len(resolutions)).
		Int("duplicates", run.DuplicatesFound).
		Int("indexed", indexed).
		Msg("novelty resolution complete")

	return notes
}

func (p *Pipeline) recordDrop(ctx context.Context, fingerprint, url, stage, reason, detail string) {
	observability.DropsTotal.WithLabelValues(stage, reason).Inc()

	if err := p.database.SaveDropLog(ctx, fingerprint, url, stage, reason, detail); err != nil {
		p.logger.Warn().Err(err).Str(logKeyURL, url).Msg("failed to record drop")
	}
}
