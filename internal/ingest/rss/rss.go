// Package rss fetches configured RSS/Atom feeds and maps their entries to
// article candidates for the pipeline.
package rss

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	"github.com/lueurxax/competitor-radar/internal/core/fingerprint"
)

const (
	defaultFeedTimeout        = 15 * time.Second
	defaultMaxArticlesPerFeed = 20
	defaultLookbackHours      = 48
	defaultMaxConcurrentFeeds = 10
	defaultUserAgent          = "CompetitorRadar/1.0 (Competitive Intelligence Bot)"

	maxSnippetLength = 2000

	logKeyFeed       = "feed"
	logKeyCompetitor = "competitor"
	logKeyURL        = "url"
)

// FeedSource is one configured feed bound to a competitor (or "industry").
type FeedSource struct {
	CompetitorID   string
	Label          string
	URL            string
	FilterKeywords []string
}

// Config controls feed fetching behavior.
type Config struct {
	// LookbackHours drops entries published before now minus this window.
	// Entries without a parseable date are kept.
	LookbackHours int

	// MaxArticlesPerFeed caps how many entries are taken from one feed.
	MaxArticlesPerFeed int

	// FeedTimeout bounds a single feed fetch.
	FeedTimeout time.Duration

	// MaxConcurrentFeeds bounds the fetch fan-out.
	MaxConcurrentFeeds int

	// UserAgent is sent on all feed and page requests.
	UserAgent string
}

func (c Config) withDefaults() Config {
	if c.LookbackHours <= 0 {
		c.LookbackHours = defaultLookbackHours
	}

	if c.MaxArticlesPerFeed <= 0 {
		c.MaxArticlesPerFeed = defaultMaxArticlesPerFeed
	}

	if c.FeedTimeout <= 0 {
		c.FeedTimeout = defaultFeedTimeout
	}

	if c.MaxConcurrentFeeds <= 0 {
		c.MaxConcurrentFeeds = defaultMaxConcurrentFeeds
	}

	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}

	return c
}

// Fetcher fetches feeds with bounded concurrency and maps entries to
// domain.ArticleCandidate.
type Fetcher struct {
	cfg       Config
	feeds     fetchFeedFunc
	extractor *pageExtractor
	logger    *zerolog.Logger

	// now is swapped in tests to pin the lookback cutoff.
	now func() time.Time
}

// fetchFeedFunc retrieves and parses one feed URL.
type fetchFeedFunc func(ctx context.Context, feedURL string) (*gofeed.Feed, error)

// NewFetcher creates a feed fetcher.
func NewFetcher(cfg Config, logger *zerolog.Logger) *Fetcher {
	cfg = cfg.withDefaults()
	client := newFeedClient(cfg.FeedTimeout, cfg.UserAgent)

	return &Fetcher{
		cfg:       cfg,
		feeds:     client.fetch,
		extractor: newPageExtractor(cfg.FeedTimeout, cfg.UserAgent, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// FetchAll fetches every configured feed and returns the merged candidates.
// Per-feed failures are logged and skipped; FetchAll itself only fails when
// the context is canceled before all feeds complete.
func (f *Fetcher) FetchAll(ctx context.Context, feeds []FeedSource) []domain.ArticleCandidate {
	if len(feeds) == 0 {
		return nil
	}

	sem := make(chan struct{}, f.cfg.MaxConcurrentFeeds)
	results := make(chan []domain.ArticleCandidate, len(feeds))

	var wg sync.WaitGroup

fanout:
	for _, src := range feeds {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			f.logger.Warn().Err(ctx.Err()).Msg("feed fetch canceled before fan-out completed")

			break fanout
		}

		wg.Add(1)

		go func(src FeedSource) {
			defer wg.Done()
			defer func() { <-sem }()

			results <- f.fetchOne(ctx, src)
		}(src)
	}

	wg.Wait()
	close(results)

	var all []domain.ArticleCandidate
	for batch := range results {
		all = append(all, batch...)
	}

	return all
}

// fetchOne fetches a single feed and maps its entries. Errors are logged,
// never propagated: one broken feed must not cost the run the others.
func (f *Fetcher) fetchOne(ctx context.Context, src FeedSource) []domain.ArticleCandidate {
	fetchCtx, cancel := context.WithTimeout(ctx, f.cfg.FeedTimeout)
	defer cancel()

	feed, err := f.feeds(fetchCtx, src.URL)
	if err != nil {
		f.logger.Warn().Err(err).
			Str(logKeyFeed, src.Label).
			Str(logKeyURL, src.URL).
			Msg("feed fetch failed, skipping")

		return nil
	}

	candidates := f.mapEntries(ctx, src, feed)

	f.logger.Debug().
		Str(logKeyFeed, src.Label).
		Str(logKeyCompetitor, src.CompetitorID).
		Int("candidates", len(candidates)).
		Msg("feed fetched")

	return candidates
}

func (f *Fetcher) mapEntries(ctx context.Context, src FeedSource, feed *gofeed.Feed) []domain.ArticleCandidate {
	cutoff := f.now().Add(-time.Duration(f.cfg.LookbackHours) * time.Hour)

	candidates := make([]domain.ArticleCandidate, 0, f.cfg.MaxArticlesPerFeed)

	for _, item := range feed.Items {
		if len(candidates) >= f.cfg.MaxArticlesPerFeed {
			break
		}

		candidate, ok := f.mapEntry(ctx, src, item, cutoff)
		if !ok {
			continue
		}

		candidates = append(candidates, candidate)
	}

	return candidates
}

func (f *Fetcher) mapEntry(ctx context.Context, src FeedSource, item *gofeed.Item, cutoff time.Time) (domain.ArticleCandidate, bool) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)

	if title == "" || link == "" {
		return domain.ArticleCandidate{}, false
	}

	publishedAt := entryPublishedAt(item)
	if !publishedAt.IsZero() && publishedAt.Before(cutoff) {
		return domain.ArticleCandidate{}, false
	}

	snippet := entrySnippet(item)
	if snippet == "" {
		snippet = f.extractor.describe(ctx, link)
	}

	if !matchesKeywords(title, snippet, src.FilterKeywords) {
		return domain.ArticleCandidate{}, false
	}

	return domain.ArticleCandidate{
		CompetitorID: src.CompetitorID,
		SourceLabel:  src.Label,
		Title:        title,
		URL:          link,
		PublishedAt:  publishedAt,
		RawSnippet:   snippet,
		Fingerprint:  fingerprint.Identity(src.CompetitorID, title, link),
	}, true
}

// entrySnippet picks the first non-empty description-like field, strips
// markup and clips it.
func entrySnippet(item *gofeed.Item) string {
	raw := item.Description
	if raw == "" {
		raw = item.Content
	}

	if raw == "" {
		return ""
	}

	return clipRunes(stripHTML(raw), maxSnippetLength)
}

// matchesKeywords applies the optional per-feed keyword filter. Industry
// feeds carry keywords so that general trade press is narrowed to relevant
// entries; competitor feeds usually carry none and pass everything.
func matchesKeywords(title, snippet string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	haystack := strings.ToLower(title + " " + snippet)

	for _, kw := range keywords {
		if kw == "" {
			continue
		}

		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}

	return false
}

func clipRunes(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	return string(runes[:maxLen])
}
