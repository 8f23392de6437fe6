package grouping

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	"github.com/lueurxax/competitor-radar/internal/core/lexical"
)

func testGrouper() *Grouper {
	nop := zerolog.Nop()

	return New(lexical.NewMatcher(lexical.Config{}), &nop)
}

func cand(article, title, url, summary string, impact, relevance float32, entities ...string) domain.IntelCandidate {
	return domain.IntelCandidate{
		ArticleID:      article,
		CompetitorID:   "roku",
		Title:          title,
		URL:            url,
		Summary:        summary,
		Category:       domain.CategoryStrategic,
		ImpactScore:    impact,
		RelevanceScore: relevance,
		Entities:       entities,
	}
}

func TestGroupEmptyInput(t *testing.T) {
	if got := testGrouper().Group(nil); got != nil {
		t.Errorf("Group(nil) = %v, want nil", got)
	}
}

func TestGroupSingletonPassesThrough(t *testing.T) {
	in := []domain.IntelCandidate{
		cand("a1", "Roku expands ad platform", "https://example.com/1",
			"Roku expanded its ad platform to 12 new markets", 6, 5, "Roku"),
	}

	got := testGrouper().Group(in)

	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}

	m := got[0]

	if m.SourceCount != 1 {
		t.Errorf("source count = %d, want 1", m.SourceCount)
	}

	if len(m.RelatedURLs) != 0 {
		t.Errorf("related urls = %v, want none", m.RelatedURLs)
	}

	if strings.HasPrefix(m.Summary, "[") {
		t.Errorf("singleton summary got a source prefix: %q", m.Summary)
	}
}

func TestGroupMergesSameStory(t *testing.T) {
	in := []domain.IntelCandidate{
		cand("a1", "Roku launches 40 channels", "https://example.com/1",
			"Roku launches 40 channels", 6, 6, "Roku"),
		cand("a2", "Roku launches 40 new channels in UK", "https://example.com/2",
			"Roku launches 40 new channels in UK", 7, 6, "Roku"),
	}

	got := testGrouper().Group(in)

	if len(got) != 1 {
		t.Fatalf("got %d records, want 1 merged", len(got))
	}

	m := got[0]

	if m.ImpactScore != 7 {
		t.Errorf("impact = %v, want max 7", m.ImpactScore)
	}

	if m.SourceCount != 2 {
		t.Errorf("source count = %d, want 2", m.SourceCount)
	}

	if m.URL != "https://example.com/2" {
		t.Errorf("canonical url = %q, want the higher-impact member", m.URL)
	}

	if len(m.RelatedURLs) != 1 || m.RelatedURLs[0] != "https://example.com/1" {
		t.Errorf("related urls = %v, want the non-canonical url", m.RelatedURLs)
	}

	if !strings.HasPrefix(m.Summary, "[2 sources] ") {
		t.Errorf("summary = %q, want the source-count prefix", m.Summary)
	}
}

func TestGroupNumericMismatchStaysSeparate(t *testing.T) {
	in := []domain.IntelCandidate{
		cand("a1", "Netflix to buy Warner", "https://example.com/1",
			"Netflix acquires Warner for $82B", 9, 9, "Netflix", "Warner"),
		cand("a2", "Netflix Warner deal report", "https://example.com/2",
			"Netflix acquires Warner for $72B", 9, 8, "Netflix", "HBO"),
	}

	got := testGrouper().Group(in)

	if len(got) != 2 {
		t.Fatalf("got %d records, want 2: differing deal sizes are different stories", len(got))
	}
}

func TestGroupTransitiveClosure(t *testing.T) {
	// a and b share a coarse entity key; b and c pass the summary check.
	// All three must land in one group even though a vs c matches neither way.
	in := []domain.IntelCandidate{
		cand("a", "Peacock price increase announced", "https://example.com/a",
			"Peacock raises monthly price to $11.99 in August", 6, 5, "Peacock", "NBCUniversal"),
		cand("b", "NBCU bumps Peacock pricing", "https://example.com/b",
			"Peacock raises price to $11.99 starting August", 7, 6, "Peacock", "NBCUniversal"),
		cand("c", "Streaming price hikes continue", "https://example.com/c",
			"Peacock raises price to $11.99 from August", 5, 7, "Comcast"),
	}

	got := testGrouper().Group(in)

	if len(got) != 1 {
		t.Fatalf("got %d records, want 1 transitively merged group", len(got))
	}

	m := got[0]

	if m.SourceCount != 3 {
		t.Errorf("source count = %d, want 3", m.SourceCount)
	}

	if len(m.RelatedURLs) != 2 {
		t.Errorf("related urls = %v, want 2 non-canonical urls", m.RelatedURLs)
	}

	if m.ImpactScore != 7 || m.RelevanceScore != 7 {
		t.Errorf("scores = (%v, %v), want independent maxima (7, 7)", m.ImpactScore, m.RelevanceScore)
	}

	if !strings.HasPrefix(m.Summary, "[3 sources] ") {
		t.Errorf("summary = %q", m.Summary)
	}
}

func TestGroupThemeKeyMergesRewordedTitles(t *testing.T) {
	// Same headline words in a different order, summaries worded apart so
	// only the theme-key pre-pass can connect them.
	in := []domain.IntelCandidate{
		cand("a1", "Fubo rival Pluto adds sports tier", "https://example.com/1",
			"A sports tier arrives on the service", 5, 5, "Pluto"),
		cand("a2", "Pluto adds sports tier, Fubo rival", "https://example.com/2",
			"The platform gains live sports programming today", 6, 4, "Paramount"),
	}

	got := testGrouper().Group(in)

	if len(got) != 1 {
		t.Fatalf("got %d records, want 1 via theme key", len(got))
	}

	if got[0].SourceCount != 2 {
		t.Errorf("source count = %d, want 2", got[0].SourceCount)
	}
}

func TestGroupCategoriesNeverCross(t *testing.T) {
	a := cand("a1", "Netflix ad tier growth", "https://example.com/1",
		"Netflix ad tier reaches 40M users", 6, 6, "Netflix")
	b := cand("a2", "Netflix ad tier growth again", "https://example.com/2",
		"Netflix ad tier reaches 40M users", 6, 6, "Netflix")
	b.Category = domain.CategoryAIAds

	got := testGrouper().Group([]domain.IntelCandidate{a, b})

	if len(got) != 2 {
		t.Fatalf("got %d records, want 2: categories must not merge", len(got))
	}
}

func TestGroupNoEntitiesNoCoarseMerge(t *testing.T) {
	in := []domain.IntelCandidate{
		cand("a1", "Disney reorganizes studio leadership", "https://example.com/1",
			"Disney named a studio chief overseeing film output", 5, 5),
		cand("a2", "Sling drops annual plans", "https://example.com/2",
			"Sling removed annual subscription plans entirely", 5, 5),
	}

	got := testGrouper().Group(in)

	if len(got) != 2 {
		t.Fatalf("got %d records, want 2: entity-less candidates must not bucket together", len(got))
	}
}

func TestGroupEntitiesUnionCapped(t *testing.T) {
	first := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		first = append(first, fmt.Sprintf("Entity%d", i))
	}

	second := []string{"Entity0", "Entity1", "Extra8", "Extra9", "Extra10", "Extra11"}

	a := cand("a1", "Roku launches 40 channels", "https://example.com/1",
		"Roku launches 40 channels", 6, 6, first...)
	b := cand("a2", "Roku launches 40 channels today", "https://example.com/2",
		"Roku launches 40 channels today", 7, 6, second...)

	got := testGrouper().Group([]domain.IntelCandidate{a, b})

	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}

	if len(got[0].Entities) != domain.MaxMergedEntities {
		t.Errorf("entities = %d, want capped at %d", len(got[0].Entities), domain.MaxMergedEntities)
	}

	seen := make(map[string]bool)
	for _, e := range got[0].Entities {
		key := strings.ToLower(e)
		if seen[key] {
			t.Errorf("duplicate entity %q after union", e)
		}

		seen[key] = true
	}
}

func TestGroupOutputSorted(t *testing.T) {
	in := []domain.IntelCandidate{
		cand("a1", "Minor partnership note", "https://example.com/1",
			"Vizio signed a small content partnership", 3, 4, "Vizio"),
		cand("a2", "Major acquisition closes", "https://example.com/2",
			"Amazon completed its MGM integration milestone", 9, 8, "Amazon"),
		cand("a3", "Mid impact item", "https://example.com/3",
			"Hulu tested a new discovery layout", 9, 9, "Hulu"),
	}

	got := testGrouper().Group(in)

	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}

	if got[0].ImpactScore != 9 || got[0].RelevanceScore != 9 {
		t.Errorf("first record = (%v, %v), want ties broken by relevance", got[0].ImpactScore, got[0].RelevanceScore)
	}

	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if cur.ImpactScore > prev.ImpactScore {
			t.Errorf("output not sorted by impact: %v before %v", prev.ImpactScore, cur.ImpactScore)
		}
	}
}

func TestUnionFindTransitivity(t *testing.T) {
	uf := newUnionFind(5)

	uf.union(0, 1)
	uf.union(1, 2)

	if uf.find(0) != uf.find(2) {
		t.Error("0 and 2 not connected after chained unions")
	}

	if uf.find(3) == uf.find(0) {
		t.Error("3 wrongly connected to the 0-1-2 set")
	}

	uf.union(3, 4)
	uf.union(4, 0)

	root := uf.find(0)
	for i := 1; i < 5; i++ {
		if uf.find(i) != root {
			t.Errorf("element %d not in the merged set", i)
		}
	}
}
