// Package classify turns fetched articles into intel candidates by driving
// the classification oracle over batches in parallel and merging the
// verdicts.
package classify

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	"github.com/lueurxax/competitor-radar/internal/core/llm"
)

const (
	defaultBatchSize = 50
	defaultWorkers   = 4

	logKeyBatch = "batch"
)

// Oracle is the classification call this stage depends on, satisfied by
// llm.Client.
type Oracle interface {
	ClassifyBatch(ctx context.Context, articles []llm.ClassifyInput) (llm.ClassifyResult, error)
}

// Config sizes the worker pool. Each worker makes one blocking oracle call
// per batch.
type Config struct {
	BatchSize int
	Workers   int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}

	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}

	return c
}

// Result is the merged outcome of one classification pass. Skipped counts
// oracle response lines that could not be parsed; FailedBatches counts
// batches that produced nothing, whether the call failed or never ran.
type Result struct {
	Candidates    []domain.IntelCandidate
	Skipped       int
	FailedBatches int
}

// Classifier fans article batches out across a bounded worker pool. Batches
// are independent: one failed oracle call never blocks the others.
type Classifier struct {
	cfg    Config
	oracle Oracle
	logger *zerolog.Logger
}

func New(cfg Config, oracle Oracle, logger *zerolog.Logger) *Classifier {
	return &Classifier{
		cfg:    cfg.withDefaults(),
		oracle: oracle,
		logger: logger,
	}
}

type batchResult struct {
	candidates []domain.IntelCandidate
	skipped    int
	ok         bool
}

// ClassifyAll classifies every article and merges the verdicts, deduplicated
// by title and url across batches, ordered by impact then relevance. Batch
// results land in slots rather than a channel so the merge is deterministic
// no matter which worker finishes first.
func (c *Classifier) ClassifyAll(ctx context.Context, articles []domain.Article) Result {
	if len(articles) == 0 {
		return Result{}
	}

	batches := chunk(articles, c.cfg.BatchSize)
	results := make([]batchResult, len(batches))

	sem := make(chan struct{}, c.cfg.Workers)

	var wg sync.WaitGroup

fanout:
	for i := range batches {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			c.logger.Warn().Err(ctx.Err()).Msg("classification canceled before fan-out completed")

			break fanout
		}

		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = c.classifyBatch(ctx, i, batches[i])
		}(i)
	}

	wg.Wait()

	return c.merge(results)
}

func (c *Classifier) classifyBatch(ctx context.Context, ordinal int, batch []domain.Article) batchResult {
	inputs := make([]llm.ClassifyInput, 0, len(batch))
	for _, article := range batch {
		inputs = append(inputs, llm.ClassifyInput{
			Competitor: article.CompetitorID,
			Title:      article.Title,
			Snippet:    article.RawSnippet,
		})
	}

	verdict, err := c.oracle.ClassifyBatch(ctx, inputs)
	if err != nil {
		c.logger.Warn().Err(err).
			Int(logKeyBatch, ordinal).
			Int("articles", len(batch)).
			Msg("classification batch failed, skipping")

		return batchResult{}
	}

	candidates := make([]domain.IntelCandidate, 0, len(verdict.Classifications))

	for _, cls := range verdict.Classifications {
		idx := cls.Index - 1
		if idx < 0 || idx >= len(batch) {
			continue
		}

		article := batch[idx]

		candidates = append(candidates, domain.IntelCandidate{
			ArticleID:      article.ID,
			CompetitorID:   article.CompetitorID,
			Title:          article.Title,
			URL:            article.URL,
			Summary:        cls.Summary,
			Category:       cls.Category,
			ImpactScore:    cls.ImpactScore,
			RelevanceScore: cls.RelevanceScore,
			Entities:       cls.Entities,
		})
	}

	return batchResult{candidates: candidates, skipped: verdict.Skipped, ok: true}
}

func (c *Classifier) merge(results []batchResult) Result {
	var out Result

	seen := make(map[string]struct{})

	for _, res := range results {
		if !res.ok {
			out.FailedBatches++

			continue
		}

		out.Skipped += res.skipped

		for _, cand := range res.candidates {
			// Industry feeds attribute one article to several competitors;
			// the first verdict for a title and url wins.
			key := cand.Title + "|" + cand.URL
			if _, ok := seen[key]; ok {
				continue
			}

			seen[key] = struct{}{}
			out.Candidates = append(out.Candidates, cand)
		}
	}

	sort.SliceStable(out.Candidates, func(i, j int) bool {
		if out.Candidates[i].ImpactScore != out.Candidates[j].ImpactScore {
			return out.Candidates[i].ImpactScore > out.Candidates[j].ImpactScore
		}

		return out.Candidates[i].RelevanceScore > out.Candidates[j].RelevanceScore
	})

	return out
}

func chunk(articles []domain.Article, size int) [][]domain.Article {
	batches := make([][]domain.Article, 0, (len(articles)+size-1)/size)

	for start := 0; start < len(articles); start += size {
		end := min(start+size, len(articles))
		batches = append(batches, articles[start:end])
	}

	return batches
}
