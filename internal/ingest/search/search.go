// Package search queries news search providers (GDELT, NewsAPI) per
// competitor and maps the hits to article candidates.
package search

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	"github.com/lueurxax/competitor-radar/internal/core/fingerprint"
)

const (
	defaultMaxResultsPerQuery = 5
	searchConcurrency         = 3

	logKeyProvider   = "provider"
	logKeyQuery      = "query"
	logKeyCompetitor = "competitor"
)

// ProviderName identifies a search backend.
type ProviderName string

// Known search providers.
const (
	ProviderGDELT   ProviderName = "gdelt"
	ProviderNewsAPI ProviderName = "newsapi"
)

// Result is one search hit before candidate mapping.
type Result struct {
	URL         string
	Title       string
	Description string
	Domain      string
	PublishedAt time.Time
}

// Provider is a single news search backend.
type Provider interface {
	Name() ProviderName
	IsAvailable() bool
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// CompetitorQuery is the set of search queries configured for one competitor.
type CompetitorQuery struct {
	CompetitorID string
	Queries      []string
}

// Config controls the search fan-out.
type Config struct {
	// MaxResultsPerQuery caps hits taken from one provider for one query.
	MaxResultsPerQuery int
}

// Searcher fans competitor queries out across all available providers and
// merges the results, deduplicating by URL.
type Searcher struct {
	cfg       Config
	providers []Provider
	logger    *zerolog.Logger
}

// NewSearcher creates a searcher over the given providers. Unavailable
// providers are kept and re-checked per query so a key added at runtime is
// picked up without rewiring.
func NewSearcher(cfg Config, providers []Provider, logger *zerolog.Logger) *Searcher {
	if cfg.MaxResultsPerQuery <= 0 {
		cfg.MaxResultsPerQuery = defaultMaxResultsPerQuery
	}

	return &Searcher{
		cfg:       cfg,
		providers: providers,
		logger:    logger,
	}
}

type queryHits struct {
	competitorID string
	provider     ProviderName
	results      []Result
}

// SearchAll runs every configured query against every available provider.
// Provider failures are logged and skipped; the merged candidate list is
// deduplicated by URL, first hit wins.
func (s *Searcher) SearchAll(ctx context.Context, queries []CompetitorQuery) []domain.ArticleCandidate {
	tasks := s.buildTasks(queries)
	if len(tasks) == 0 {
		return nil
	}

	hits := make(chan queryHits, len(tasks))
	sem := make(chan struct{}, searchConcurrency)

	var wg sync.WaitGroup

fanout:
	for _, task := range tasks {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			s.logger.Warn().Err(ctx.Err()).Msg("search canceled before fan-out completed")

			break fanout
		}

		wg.Add(1)

		go func(task searchTask) {
			defer wg.Done()
			defer func() { <-sem }()

			s.runTask(ctx, task, hits)
		}(task)
	}

	wg.Wait()
	close(hits)

	return s.mergeHits(hits)
}

type searchTask struct {
	competitorID string
	query        string
	provider     Provider
}

func (s *Searcher) buildTasks(queries []CompetitorQuery) []searchTask {
	var tasks []searchTask

	for _, cq := range queries {
		for _, q := range cq.Queries {
			if q == "" {
				continue
			}

			for _, p := range s.providers {
				if !p.IsAvailable() {
					continue
				}

				tasks = append(tasks, searchTask{
					competitorID: cq.CompetitorID,
					query:        q,
					provider:     p,
				})
			}
		}
	}

	return tasks
}

func (s *Searcher) runTask(ctx context.Context, task searchTask, hits chan<- queryHits) {
	results, err := task.provider.Search(ctx, task.query, s.cfg.MaxResultsPerQuery)
	if err != nil {
		s.logger.Warn().Err(err).
			Str(logKeyProvider, string(task.provider.Name())).
			Str(logKeyQuery, task.query).
			Str(logKeyCompetitor, task.competitorID).
			Msg("search query failed, skipping")

		return
	}

	hits <- queryHits{
		competitorID: task.competitorID,
		provider:     task.provider.Name(),
		results:      results,
	}
}

func (s *Searcher) mergeHits(hits <-chan queryHits) []domain.ArticleCandidate {
	seen := make(map[string]struct{})

	var candidates []domain.ArticleCandidate

	for batch := range hits {
		for _, r := range batch.results {
			if r.URL == "" || r.Title == "" {
				continue
			}

			if _, dup := seen[r.URL]; dup {
				continue
			}

			seen[r.URL] = struct{}{}

			candidates = append(candidates, domain.ArticleCandidate{
				CompetitorID: batch.competitorID,
				SourceLabel:  string(batch.provider),
				Title:        r.Title,
				URL:          r.URL,
				PublishedAt:  r.PublishedAt,
				RawSnippet:   r.Description,
				Fingerprint:  fingerprint.Identity(batch.competitorID, r.Title, r.URL),
			})
		}
	}

	return candidates
}
