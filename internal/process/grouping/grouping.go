// Package grouping merges same-run intel candidates that describe one
// underlying story into a single record with aggregated provenance.
package grouping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	"github.com/lueurxax/competitor-radar/internal/core/fingerprint"
)

// keyEntities bounds how many leading entities feed the coarse group key.
const keyEntities = 3

// Matcher is the lexical same-story decision, satisfied by lexical.Matcher.
type Matcher interface {
	SameStory(a, b string) bool
}

// Grouper clusters candidates within one run. Grouping never crosses runs;
// cross-run duplicates are the resolver's job.
type Grouper struct {
	matcher Matcher
	logger  *zerolog.Logger
}

func New(matcher Matcher, logger *zerolog.Logger) *Grouper {
	return &Grouper{
		matcher: matcher,
		logger:  logger,
	}
}

// Group reduces N candidates to M <= N merged records. Candidates join one
// group when they share a theme key, share a coarse (category, leading
// entities) key, or their summaries pass the same-story check. Union-find
// closes the relation transitively: A~B and B~C merge all three even when
// A vs C was never tested directly.
func (g *Grouper) Group(candidates []domain.IntelCandidate) []domain.MergedIntel {
	if len(candidates) == 0 {
		return nil
	}

	uf := newUnionFind(len(candidates))

	g.unionByThemeKey(candidates, uf)
	g.unionByGroupKey(candidates, uf)
	g.unionBySummary(candidates, uf)

	merged := g.mergeGroups(candidates, uf)

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].ImpactScore != merged[j].ImpactScore {
			return merged[i].ImpactScore > merged[j].ImpactScore
		}

		return merged[i].RelevanceScore > merged[j].RelevanceScore
	})

	if len(merged) < len(candidates) {
		g.logger.Info().
			Int("candidates", len(candidates)).
			Int("merged", len(merged)).
			Msg("theme grouping collapsed candidates")
	}

	return merged
}

// unionByThemeKey unions candidates whose titles normalize to the same
// order-insensitive theme key, within one category. Cheap pre-pass: equal
// keys mean the same headline reworded.
func (g *Grouper) unionByThemeKey(candidates []domain.IntelCandidate, uf *unionFind) {
	seen := make(map[string]int, len(candidates))

	for i, c := range candidates {
		key := string(c.Category) + ":" + fingerprint.ThemeKey(c.Title, c.URL)

		if first, ok := seen[key]; ok {
			uf.union(first, i)

			continue
		}

		seen[key] = i
	}
}

// unionByGroupKey unions candidates sharing the coarse
// (category, sorted leading entities) key. Candidates without entities are
// skipped: a category-only key would collapse unrelated stories whenever the
// oracle returns no entities, and those candidates can still merge through
// the theme key or the summary check.
func (g *Grouper) unionByGroupKey(candidates []domain.IntelCandidate, uf *unionFind) {
	seen := make(map[string]int, len(candidates))

	for i, c := range candidates {
		if len(c.Entities) == 0 {
			continue
		}

		key := groupKey(c)

		if first, ok := seen[key]; ok {
			uf.union(first, i)

			continue
		}

		seen[key] = i
	}
}

// unionBySummary applies the expensive pairwise same-story check to pairs
// not already grouped, within one category.
func (g *Grouper) unionBySummary(candidates []domain.IntelCandidate, uf *unionFind) {
	for i := range candidates {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[i].Category != candidates[j].Category {
				continue
			}

			if uf.find(i) == uf.find(j) {
				continue
			}

			if g.matcher.SameStory(candidates[i].Summary, candidates[j].Summary) {
				uf.union(i, j)
			}
		}
	}
}

// groupKey builds the coarse bucket key: category plus the sorted lowercase
// leading entities.
func groupKey(c domain.IntelCandidate) string {
	entities := c.Entities
	if len(entities) > keyEntities {
		entities = entities[:keyEntities]
	}

	lowered := make([]string, len(entities))
	for i, e := range entities {
		lowered[i] = strings.ToLower(strings.TrimSpace(e))
	}

	sort.Strings(lowered)

	return string(c.Category) + "|" + strings.Join(lowered, "|")
}

func (g *Grouper) mergeGroups(candidates []domain.IntelCandidate, uf *unionFind) []domain.MergedIntel {
	groups := make(map[int][]int)
	order := make([]int, 0)

	for i := range candidates {
		root := uf.find(i)

		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}

		groups[root] = append(groups[root], i)
	}

	merged := make([]domain.MergedIntel, 0, len(order))
	for _, root := range order {
		merged = append(merged, mergeGroup(candidates, groups[root]))
	}

	return merged
}

// mergeGroup collapses one group into a single record. The canonical
// candidate is the highest (impact, relevance) member; scores are the max
// across the group, never the average, so corroboration cannot dilute
// severity.
func mergeGroup(candidates []domain.IntelCandidate, members []int) domain.MergedIntel {
	sort.SliceStable(members, func(a, b int) bool {
		ca, cb := candidates[members[a]], candidates[members[b]]

		if ca.ImpactScore != cb.ImpactScore {
			return ca.ImpactScore > cb.ImpactScore
		}

		return ca.RelevanceScore > cb.RelevanceScore
	})

	base := candidates[members[0]]

	out := domain.MergedIntel{
		ArticleID:      base.ArticleID,
		CompetitorID:   base.CompetitorID,
		Title:          base.Title,
		URL:            base.URL,
		Summary:        base.Summary,
		Category:       base.Category,
		ImpactScore:    base.ImpactScore,
		RelevanceScore: base.RelevanceScore,
		Entities:       mergeEntities(candidates, members),
		SourceCount:    len(members),
	}

	for _, idx := range members[1:] {
		c := candidates[idx]

		out.RelatedURLs = append(out.RelatedURLs, c.URL)

		if c.ImpactScore > out.ImpactScore {
			out.ImpactScore = c.ImpactScore
		}

		if c.RelevanceScore > out.RelevanceScore {
			out.RelevanceScore = c.RelevanceScore
		}
	}

	if len(members) > 1 {
		out.Summary = fmt.Sprintf("[%d sources] %s", len(members), base.Summary)
	}

	return out
}

// mergeEntities unions member entities in first-seen order, capped.
func mergeEntities(candidates []domain.IntelCandidate, members []int) []string {
	seen := make(map[string]struct{})

	var entities []string

	for _, idx := range members {
		for _, e := range candidates[idx].Entities {
			key := strings.ToLower(strings.TrimSpace(e))
			if key == "" {
				continue
			}

			if _, ok := seen[key]; ok {
				continue
			}

			seen[key] = struct{}{}
			entities = append(entities, e)

			if len(entities) >= domain.MaxMergedEntities {
				return entities
			}
		}
	}

	return entities
}
