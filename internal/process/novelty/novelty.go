// Package novelty scores freshly persisted intel against the historical
// window and pins duplicate links. Scores run 0 to 1: 1 is wholly new, 0 is
// an exact or semantic duplicate of something already seen.
package novelty

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	"github.com/lueurxax/competitor-radar/internal/memory"
)

const (
	defaultSimilarityThreshold = 0.85
	defaultLexicalThreshold    = 0.8

	// noveltySearchK bounds the neighbor pool for non-duplicate scoring;
	// only the closest noveltyTopMatches relevant hits feed the average.
	noveltySearchK    = 10
	noveltyTopMatches = 5

	// relevantFloor is the similarity at or below which a neighbor says
	// nothing about the candidate's novelty.
	relevantFloor = 0.5

	// lexicalSimilarFloor feeds the tier table that approximates vector
	// scoring when embeddings are unavailable.
	lexicalSimilarFloor = 0.4

	// lexicalDuplicateNovelty is the residual score for lexical-only
	// duplicates. A duplicate link implies novelty 0, and the lexical path
	// is not certain enough to set one.
	lexicalDuplicateNovelty = 0.1

	logKeyIntel = "intel_id"
)

// Matcher is the word-overlap similarity used on the degraded path,
// satisfied by lexical.Matcher.
type Matcher interface {
	Overlap(a, b string) float32
}

// Config tunes the duplicate cutoffs.
type Config struct {
	// SimilarityThreshold is the cosine similarity at or above which a
	// vector hit counts as a duplicate.
	SimilarityThreshold float32

	// LexicalThreshold is the word overlap above which the degraded path
	// treats two summaries as the same item.
	LexicalThreshold float32
}

func (c Config) withDefaults() Config {
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = defaultSimilarityThreshold
	}

	if c.LexicalThreshold == 0 {
		c.LexicalThreshold = defaultLexicalThreshold
	}

	return c
}

// Resolution is the scoring outcome for one intel item. DuplicateOf is empty
// unless the item terminally resolved as a duplicate, in which case Novelty
// is always 0.
type Resolution struct {
	ID          string
	Novelty     float32
	DuplicateOf string
}

// Resolver walks each new item through exact, vector, and lexical checks
// against the historical window.
type Resolver struct {
	cfg     Config
	index   memory.Index
	matcher Matcher
	logger  *zerolog.Logger
}

func New(cfg Config, index memory.Index, matcher Matcher, logger *zerolog.Logger) *Resolver {
	return &Resolver{
		cfg:     cfg.withDefaults(),
		index:   index,
		matcher: matcher,
		logger:  logger,
	}
}

// Resolve scores items in order against history plus the non-duplicates
// already resolved in this pass, so an early item can become the canonical
// original a later one points at. History should arrive oldest first: the
// first item seen for a url stays its canonical target. The vector index is
// read-only during the pass; IndexResolved publishes the survivors
// afterwards. On cancellation the resolutions computed so far are returned.
func (r *Resolver) Resolve(ctx context.Context, items, history []domain.Intel) []Resolution {
	s := newSession(history)
	resolutions := make([]Resolution, 0, len(items))

	for i := range items {
		if ctx.Err() != nil {
			r.logger.Warn().
				Int("resolved", len(resolutions)).
				Int("pending", len(items)-len(resolutions)).
				Msg("novelty pass cut short, keeping partial scores")

			break
		}

		res := r.resolveOne(ctx, items[i], s)
		resolutions = append(resolutions, res)

		if res.DuplicateOf == "" {
			s.add(items[i])
		}
	}

	return resolutions
}

func (r *Resolver) resolveOne(ctx context.Context, item domain.Intel, s *session) Resolution {
	if id, ok := s.urlToID[item.URL]; ok && id != item.ID {
		return Resolution{ID: item.ID, Novelty: 0, DuplicateOf: id}
	}

	if !s.vectorDown {
		res, err := r.resolveVector(ctx, item)
		if err == nil {
			return res
		}

		s.vectorDown = true
		r.logger.Warn().Err(err).Str(logKeyIntel, item.ID).Msg("vector search unavailable, degrading to lexical scoring")
	}

	return r.resolveLexical(item, s)
}

// resolveVector checks for a semantic duplicate, then scores novelty from the
// nearest non-duplicate neighbors. Each index call is retried once before the
// item falls through to the lexical path.
func (r *Resolver) resolveVector(ctx context.Context, item domain.Intel) (Resolution, error) {
	duplicates, err := memory.FindDuplicates(ctx, r.index, item.Summary, r.cfg.SimilarityThreshold, []string{item.ID})
	if err != nil {
		r.logger.Debug().Err(err).Str(logKeyIntel, item.ID).Msg("duplicate search failed, retrying")

		duplicates, err = memory.FindDuplicates(ctx, r.index, item.Summary, r.cfg.SimilarityThreshold, []string{item.ID})
	}

	if err != nil {
		return Resolution{}, fmt.Errorf("duplicate search: %w", err)
	}

	if len(duplicates) > 0 {
		return Resolution{ID: item.ID, Novelty: 0, DuplicateOf: duplicates[0].ID}, nil
	}

	return r.scoreVector(ctx, item)
}

func (r *Resolver) scoreVector(ctx context.Context, item domain.Intel) (Resolution, error) {
	results, err := r.index.Search(ctx, item.Summary, noveltySearchK, nil)
	if err != nil {
		r.logger.Debug().Err(err).Str(logKeyIntel, item.ID).Msg("novelty search failed, retrying")

		results, err = r.index.Search(ctx, item.Summary, noveltySearchK, nil)
	}

	if err != nil {
		return Resolution{}, fmt.Errorf("novelty search: %w", err)
	}

	relevant := make([]float32, 0, len(results))

	for _, hit := range results {
		if hit.ID == item.ID || hit.Similarity <= relevantFloor {
			continue
		}

		relevant = append(relevant, hit.Similarity)
	}

	if len(relevant) == 0 {
		return Resolution{ID: item.ID, Novelty: 1}, nil
	}

	// Results arrive ranked, so truncation keeps the closest matches.
	if len(relevant) > noveltyTopMatches {
		relevant = relevant[:noveltyTopMatches]
	}

	var sum float32
	for _, similarity := range relevant {
		sum += similarity
	}

	novelty := 1 - sum/float32(len(relevant))
	if novelty < 0 {
		novelty = 0
	}

	return Resolution{ID: item.ID, Novelty: novelty}, nil
}

func (r *Resolver) resolveLexical(item domain.Intel, s *session) Resolution {
	similar := 0

	for _, entry := range s.entries {
		if entry.id == item.ID {
			continue
		}

		overlap := r.matcher.Overlap(item.Summary, entry.summary)
		if overlap > r.cfg.LexicalThreshold {
			return Resolution{ID: item.ID, Novelty: lexicalDuplicateNovelty}
		}

		if overlap > lexicalSimilarFloor {
			similar++
		}
	}

	return Resolution{ID: item.ID, Novelty: lexicalNoveltyTier(similar)}
}

// lexicalNoveltyTier maps how crowded a topic already is in the window to a
// coarse score: fewer similar items means higher novelty.
func lexicalNoveltyTier(similar int) float32 {
	switch {
	case similar == 0:
		return 1
	case similar < 3:
		return 0.8
	case similar < 5:
		return 0.5
	default:
		return 0.3
	}
}

// IndexResolved publishes non-duplicate items to the vector index. Writes
// are held out of Resolve itself so scoring inside one pass never observes
// neighbors from the same run. Returns the number of items indexed.
func (r *Resolver) IndexResolved(ctx context.Context, items []domain.Intel, resolutions []Resolution) int {
	byID := make(map[string]domain.Intel, len(items))
	for i := range items {
		byID[items[i].ID] = items[i]
	}

	indexed := 0

	for _, res := range resolutions {
		if ctx.Err() != nil {
			break
		}

		if res.DuplicateOf != "" {
			continue
		}

		item, ok := byID[res.ID]
		if !ok {
			continue
		}

		if err := r.index.Upsert(ctx, item.ID, item.Summary, indexMetadata(item)); err != nil {
			r.logger.Warn().Err(err).Str(logKeyIntel, item.ID).Msg("vector index upsert failed")

			continue
		}

		indexed++
	}

	return indexed
}

func indexMetadata(item domain.Intel) memory.Metadata {
	return memory.Metadata{
		"category":        string(item.Category),
		"impact_score":    item.ImpactScore,
		"relevance_score": item.RelevanceScore,
	}
}

// session is the per-pass comparison state: the url lookup and summary
// window grow as non-duplicates resolve, and vector health sticks once lost.
type session struct {
	urlToID    map[string]string
	entries    []windowEntry
	vectorDown bool
}

type windowEntry struct {
	id      string
	summary string
}

func newSession(history []domain.Intel) *session {
	s := &session{urlToID: make(map[string]string, len(history))}

	for i := range history {
		s.add(history[i])
	}

	return s
}

// add appends an item to the comparison window. Resolve only adds
// non-duplicates: later items should point at the canonical original, never
// at another duplicate.
func (s *session) add(item domain.Intel) {
	if item.URL != "" {
		if _, ok := s.urlToID[item.URL]; !ok {
			s.urlToID[item.URL] = item.ID
		}
	}

	s.entries = append(s.entries, windowEntry{id: item.ID, summary: item.Summary})
}
