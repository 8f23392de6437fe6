package classify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	"github.com/lueurxax/competitor-radar/internal/core/llm"
)

var errOracleDown = errors.New("oracle down")

// stubOracle records every batch it receives. respond must be pure: batches
// arrive concurrently.
type stubOracle struct {
	mu      sync.Mutex
	calls   [][]llm.ClassifyInput
	respond func(inputs []llm.ClassifyInput) (llm.ClassifyResult, error)
}

func (o *stubOracle) ClassifyBatch(ctx context.Context, articles []llm.ClassifyInput) (llm.ClassifyResult, error) {
	if err := ctx.Err(); err != nil {
		return llm.ClassifyResult{}, err
	}

	o.mu.Lock()
	o.calls = append(o.calls, articles)
	o.mu.Unlock()

	if o.respond == nil {
		return llm.ClassifyResult{}, nil
	}

	return o.respond(articles)
}

func testClassifier(cfg Config, oracle Oracle) *Classifier {
	logger := zerolog.Nop()

	return New(cfg, oracle, &logger)
}

func article(id, competitor, title string) domain.Article {
	return domain.Article{
		ID:           id,
		CompetitorID: competitor,
		Title:        title,
		URL:          "https://example.com/" + id,
		RawSnippet:   "snippet for " + title,
	}
}

func TestClassifyAllMapsVerdicts(t *testing.T) {
	oracle := &stubOracle{respond: func(_ []llm.ClassifyInput) (llm.ClassifyResult, error) {
		return llm.ClassifyResult{Classifications: []llm.Classification{
			{Index: 1, Category: domain.CategoryPricing, ImpactScore: 6, RelevanceScore: 7, Entities: []string{"Roku"}, Summary: "Roku raised platform fees for new channels"},
			{Index: 2, Category: domain.CategoryContent, ImpactScore: 8, RelevanceScore: 7, Entities: []string{"Netflix", "A24"}, Summary: "Netflix licensed 30 A24 films"},
		}}, nil
	}}

	c := testClassifier(Config{}, oracle)

	articles := []domain.Article{
		article("a-1", "roku", "Roku platform fee change"),
		article("a-2", "netflix", "Netflix licensing deal"),
	}

	res := c.ClassifyAll(context.Background(), articles)

	require.Len(t, res.Candidates, 2)
	assert.Zero(t, res.Skipped)
	assert.Zero(t, res.FailedBatches)

	first := res.Candidates[0]
	assert.Equal(t, "a-2", first.ArticleID)
	assert.Equal(t, "netflix", first.CompetitorID)
	assert.Equal(t, "Netflix licensing deal", first.Title)
	assert.Equal(t, "https://example.com/a-2", first.URL)
	assert.Equal(t, "Netflix licensed 30 A24 films", first.Summary)
	assert.Equal(t, domain.CategoryContent, first.Category)
	assert.InDelta(t, 8, first.ImpactScore, 1e-6)
	assert.Equal(t, []string{"Netflix", "A24"}, first.Entities)

	assert.Equal(t, "a-1", res.Candidates[1].ArticleID)
	assert.Equal(t, domain.CategoryPricing, res.Candidates[1].Category)
}

func TestClassifyAllSplitsBatches(t *testing.T) {
	oracle := &stubOracle{}
	c := testClassifier(Config{BatchSize: 50, Workers: 4}, oracle)

	articles := make([]domain.Article, 0, 120)
	for i := 0; i < 120; i++ {
		articles = append(articles, article(fmt.Sprintf("a-%d", i), "roku", fmt.Sprintf("story %d", i)))
	}

	res := c.ClassifyAll(context.Background(), articles)

	assert.Empty(t, res.Candidates)
	assert.Zero(t, res.FailedBatches)

	require.Len(t, oracle.calls, 3)

	sizes := make([]int, 0, len(oracle.calls))
	total := 0

	for _, call := range oracle.calls {
		sizes = append(sizes, len(call))
		total += len(call)
	}

	sort.Ints(sizes)
	assert.Equal(t, []int{20, 50, 50}, sizes)
	assert.Equal(t, 120, total)
}

func TestClassifyAllIsolatesFailedBatch(t *testing.T) {
	oracle := &stubOracle{respond: func(inputs []llm.ClassifyInput) (llm.ClassifyResult, error) {
		if inputs[0].Competitor == "broken" {
			return llm.ClassifyResult{}, errOracleDown
		}

		return llm.ClassifyResult{Classifications: []llm.Classification{
			{Index: 1, Category: domain.CategoryStrategic, ImpactScore: 6, RelevanceScore: 6, Summary: "verdict for " + inputs[0].Title},
		}}, nil
	}}

	c := testClassifier(Config{BatchSize: 2, Workers: 2}, oracle)

	articles := []domain.Article{
		article("a-1", "roku", "first story"),
		article("a-2", "roku", "second story"),
		article("a-3", "broken", "third story"),
		article("a-4", "broken", "fourth story"),
		article("a-5", "pluto", "fifth story"),
	}

	res := c.ClassifyAll(context.Background(), articles)

	require.Len(t, res.Candidates, 2)
	assert.Equal(t, 1, res.FailedBatches)

	ids := []string{res.Candidates[0].ArticleID, res.Candidates[1].ArticleID}
	assert.ElementsMatch(t, []string{"a-1", "a-5"}, ids)
}

func TestClassifyAllDedupesAcrossBatches(t *testing.T) {
	oracle := &stubOracle{respond: func(_ []llm.ClassifyInput) (llm.ClassifyResult, error) {
		return llm.ClassifyResult{Classifications: []llm.Classification{
			{Index: 1, Category: domain.CategoryStrategic, ImpactScore: 7, RelevanceScore: 6, Summary: "CTV upfront spend rose 18%"},
		}}, nil
	}}

	c := testClassifier(Config{BatchSize: 1, Workers: 2}, oracle)

	shared := domain.Article{
		ID:           "a-1",
		CompetitorID: "roku",
		Title:        "Upfronts: CTV ad spend up 18%",
		URL:          "https://example.com/upfronts",
		RawSnippet:   "CTV spend grew again this year",
	}

	rival := shared
	rival.ID = "a-2"
	rival.CompetitorID = "pluto"

	res := c.ClassifyAll(context.Background(), []domain.Article{shared, rival})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "a-1", res.Candidates[0].ArticleID)
	assert.Equal(t, "roku", res.Candidates[0].CompetitorID)
}

func TestClassifyAllAggregatesSkipped(t *testing.T) {
	oracle := &stubOracle{respond: func(inputs []llm.ClassifyInput) (llm.ClassifyResult, error) {
		return llm.ClassifyResult{Skipped: len(inputs)}, nil
	}}

	c := testClassifier(Config{BatchSize: 2, Workers: 2}, oracle)

	articles := []domain.Article{
		article("a-1", "roku", "one"),
		article("a-2", "roku", "two"),
		article("a-3", "roku", "three"),
	}

	res := c.ClassifyAll(context.Background(), articles)

	assert.Empty(t, res.Candidates)
	assert.Equal(t, 3, res.Skipped)
}

func TestClassifyAllEmptyInput(t *testing.T) {
	oracle := &stubOracle{}
	c := testClassifier(Config{}, oracle)

	res := c.ClassifyAll(context.Background(), nil)

	assert.Empty(t, res.Candidates)
	assert.Empty(t, oracle.calls)
}

func TestClassifyAllDropsRogueIndex(t *testing.T) {
	oracle := &stubOracle{respond: func(_ []llm.ClassifyInput) (llm.ClassifyResult, error) {
		return llm.ClassifyResult{Classifications: []llm.Classification{
			{Index: 99, Category: domain.CategoryStrategic, ImpactScore: 6, RelevanceScore: 6, Summary: "points nowhere"},
			{Index: 0, Category: domain.CategoryStrategic, ImpactScore: 6, RelevanceScore: 6, Summary: "also nowhere"},
			{Index: 1, Category: domain.CategoryStrategic, ImpactScore: 6, RelevanceScore: 6, Summary: "valid verdict"},
		}}, nil
	}}

	c := testClassifier(Config{}, oracle)

	res := c.ClassifyAll(context.Background(), []domain.Article{article("a-1", "roku", "story")})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "valid verdict", res.Candidates[0].Summary)
}

func TestClassifyAllCancelled(t *testing.T) {
	oracle := &stubOracle{}
	c := testClassifier(Config{BatchSize: 1, Workers: 1}, oracle)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	articles := []domain.Article{
		article("a-1", "roku", "one"),
		article("a-2", "roku", "two"),
		article("a-3", "roku", "three"),
	}

	res := c.ClassifyAll(ctx, articles)

	assert.Empty(t, res.Candidates)
	assert.Equal(t, 3, res.FailedBatches)
}
