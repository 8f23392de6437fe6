package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lueurxax/competitor-radar/internal/api"
	"github.com/lueurxax/competitor-radar/internal/ingest/rss"
	"github.com/lueurxax/competitor-radar/internal/ingest/search"
)

// IndustryCompetitorID attributes articles from industry-wide feeds that
// track the market rather than a single company. The registry rejects it as
// a competitor id.
const IndustryCompetitorID = "industry"

// Registry is the source catalog: which competitors to watch, which feeds to
// pull, and which search queries to run. It lives in a YAML file next to the
// deployment so the watchlist changes without a rebuild.
type Registry struct {
	Competitors   []Competitor `yaml:"competitors"`
	IndustryFeeds []Feed       `yaml:"industry_feeds"`
}

// Competitor is one watched company.
type Competitor struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Feeds   []Feed   `yaml:"feeds"`
	Queries []string `yaml:"queries"`
}

// Feed is one RSS or Atom source. Keywords narrow a feed to matching
// entries; industry feeds use them to keep broad trade coverage on topic.
type Feed struct {
	Label    string   `yaml:"label"`
	URL      string   `yaml:"url"`
	Keywords []string `yaml:"keywords"`
}

// LoadRegistry reads and validates the source registry at path. Unknown YAML
// keys are errors so a typoed field cannot silently drop a source.
func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source registry: %w", err)
	}

	reg := &Registry{}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	if err := dec.Decode(reg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse source registry %s: %w", path, err)
	}

	if err := reg.validate(); err != nil {
		return nil, fmt.Errorf("source registry %s: %w", path, err)
	}

	return reg, nil
}

func (r *Registry) validate() error {
	if len(r.Competitors) == 0 && len(r.IndustryFeeds) == 0 {
		return errors.New("no competitors or industry feeds configured")
	}

	seen := make(map[string]struct{}, len(r.Competitors))

	for i, comp := range r.Competitors {
		if comp.ID == "" {
			return fmt.Errorf("competitor %d: missing id", i)
		}

		if comp.ID == IndustryCompetitorID {
			return fmt.Errorf("competitor id %q is reserved", IndustryCompetitorID)
		}

		if _, ok := seen[comp.ID]; ok {
			return fmt.Errorf("duplicate competitor id %q", comp.ID)
		}

		seen[comp.ID] = struct{}{}

		for _, feed := range comp.Feeds {
			if feed.URL == "" {
				return fmt.Errorf("competitor %q: feed with empty url", comp.ID)
			}
		}
	}

	for i, feed := range r.IndustryFeeds {
		if feed.URL == "" {
			return fmt.Errorf("industry feed %d: empty url", i)
		}
	}

	return nil
}

// FeedSources flattens the registry for the feed fetcher. Industry feeds are
// attributed to the shared industry id and carry their keyword filters.
func (r *Registry) FeedSources() []rss.FeedSource {
	sources := make([]rss.FeedSource, 0, len(r.IndustryFeeds)+len(r.Competitors))

	for _, comp := range r.Competitors {
		for _, feed := range comp.Feeds {
			sources = append(sources, rss.FeedSource{
				CompetitorID:   comp.ID,
				Label:          feedLabel(feed),
				URL:            feed.URL,
				FilterKeywords: feed.Keywords,
			})
		}
	}

	for _, feed := range r.IndustryFeeds {
		sources = append(sources, rss.FeedSource{
			CompetitorID:   IndustryCompetitorID,
			Label:          feedLabel(feed),
			URL:            feed.URL,
			FilterKeywords: feed.Keywords,
		})
	}

	return sources
}

// CompetitorQueries collects the search queries per competitor, skipping
// competitors with none configured.
func (r *Registry) CompetitorQueries() []search.CompetitorQuery {
	queries := make([]search.CompetitorQuery, 0, len(r.Competitors))

	for _, comp := range r.Competitors {
		cleaned := make([]string, 0, len(comp.Queries))

		for _, q := range comp.Queries {
			if q = strings.TrimSpace(q); q != "" {
				cleaned = append(cleaned, q)
			}
		}

		if len(cleaned) == 0 {
			continue
		}

		queries = append(queries, search.CompetitorQuery{
			CompetitorID: comp.ID,
			Queries:      cleaned,
		})
	}

	return queries
}

// APICompetitors exposes the watchlist to the dashboard API. The industry
// pseudo-competitor appears only when industry feeds are configured.
func (r *Registry) APICompetitors() []api.Competitor {
	competitors := make([]api.Competitor, 0, len(r.Competitors)+1)

	for _, comp := range r.Competitors {
		name := comp.Name
		if name == "" {
			name = comp.ID
		}

		competitors = append(competitors, api.Competitor{ID: comp.ID, Name: name})
	}

	if len(r.IndustryFeeds) > 0 {
		competitors = append(competitors, api.Competitor{ID: IndustryCompetitorID, Name: "Industry"})
	}

	return competitors
}

func feedLabel(feed Feed) string {
	if feed.Label != "" {
		return feed.Label
	}

	return feed.URL
}
