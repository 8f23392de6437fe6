// Package lexical decides whether two intel summaries describe the same
// underlying story, as opposed to merely sharing a topic. The decision is
// word-set similarity with two hard vetoes: conflicting numeric tokens and
// asymmetric comparison framing.
package lexical

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

const (
	DefaultJaccardThreshold = 0.7
	DefaultMinSharedRatio   = 0.6
	DefaultNumericTolerance = 0.1
)

var (
	numberRe  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// stopwords carry no story identity: function words plus reporting verbs.
var stopwords = wordSet(
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "from", "is", "are", "was", "were", "be", "been",
	"being", "have", "has", "had", "do", "does", "did", "will", "would",
	"could", "should", "may", "might", "must", "shall", "can", "this", "that",
	"its", "their", "it", "they", "new", "says", "said", "reports", "according",
)

// comparisonWords mark a comparative claim. A summary that frames a story as
// "X over Y" is a different narrative than a plain statement of the same fact.
var comparisonWords = wordSet(
	"prefers", "over", "vs", "versus", "compared", "instead", "rather", "chooses",
)

// Config tunes the same-story decision. Zero fields fall back to defaults.
type Config struct {
	JaccardThreshold float32
	MinSharedRatio   float32
	NumericTolerance float32
}

type Matcher struct {
	jaccardThreshold float32
	minSharedRatio   float32
	numericTolerance float64
	caser            cases.Caser
}

func NewMatcher(cfg Config) *Matcher {
	if cfg.JaccardThreshold <= 0 {
		cfg.JaccardThreshold = DefaultJaccardThreshold
	}
	if cfg.MinSharedRatio <= 0 {
		cfg.MinSharedRatio = DefaultMinSharedRatio
	}
	if cfg.NumericTolerance <= 0 {
		cfg.NumericTolerance = DefaultNumericTolerance
	}

	return &Matcher{
		jaccardThreshold: cfg.JaccardThreshold,
		minSharedRatio:   cfg.MinSharedRatio,
		numericTolerance: float64(cfg.NumericTolerance),
		caser:            cases.Fold(),
	}
}

// SameStory reports whether two summaries describe the same story. Numeric
// tokens are compared before any normalization: a deal reported at a
// different price is a different story even with identical wording. The
// remaining content words must clear both the Jaccard threshold and a
// minimum absolute intersection, so two short fragments sharing a couple of
// words never merge.
func (m *Matcher) SameStory(a, b string) bool {
	if m.numbersConflict(a, b) {
		return false
	}

	wordsA := m.contentWords(a)
	wordsB := m.contentWords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}

	if hasComparison(wordsA) != hasComparison(wordsB) {
		return false
	}

	shared := intersectionSize(wordsA, wordsB)
	union := len(wordsA) + len(wordsB) - shared

	jaccard := float32(shared) / float32(union)
	minShared := m.minSharedRatio * float32(min(len(wordsA), len(wordsB)))

	return jaccard >= m.jaccardThreshold && float32(shared) >= minShared
}

// Overlap is the cheap scan signal used when no vector search is available:
// intersection size over the larger set size, on raw case-folded tokens with
// no stopword or punctuation handling.
func (m *Matcher) Overlap(a, b string) float32 {
	wordsA := wordSet(strings.Fields(m.caser.String(a))...)
	wordsB := wordSet(strings.Fields(m.caser.String(b))...)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	shared := intersectionSize(wordsA, wordsB)

	return float32(shared) / float32(max(len(wordsA), len(wordsB)))
}

// numbersConflict extracts numeric tokens from the raw strings and vetoes the
// pair when any cross pair differs by more than the tolerance relative to the
// larger value. Token sets equal verbatim never conflict, so "82" vs "82"
// passes without parsing.
func (m *Matcher) numbersConflict(a, b string) bool {
	numsA := wordSet(numberRe.FindAllString(a, -1)...)
	numsB := wordSet(numberRe.FindAllString(b, -1)...)
	if len(numsA) == 0 || len(numsB) == 0 {
		return false
	}
	if setsEqual(numsA, numsB) {
		return false
	}

	for tokenA := range numsA {
		valueA, err := strconv.ParseFloat(tokenA, 64)
		if err != nil || valueA <= 0 {
			continue
		}
		for tokenB := range numsB {
			valueB, err := strconv.ParseFloat(tokenB, 64)
			if err != nil || valueB <= 0 {
				continue
			}
			if math.Abs(valueA-valueB)/math.Max(valueA, valueB) > m.numericTolerance {
				return true
			}
		}
	}

	return false
}

// contentWords folds case, strips punctuation and splits on whitespace.
// Stopwords and digit-bearing tokens are dropped: numeric evidence is judged
// only by the numeric gate, so "82.0B" and "82.3B" must not also count as
// mismatched words.
func (m *Matcher) contentWords(s string) map[string]struct{} {
	normalized := nonWordRe.ReplaceAllString(m.caser.String(s), "")

	words := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		if _, ok := stopwords[w]; ok {
			continue
		}
		if containsDigit(w) {
			continue
		}
		words[w] = struct{}{}
	}

	return words
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}

	return false
}

func hasComparison(words map[string]struct{}) bool {
	for w := range comparisonWords {
		if _, ok := words[w]; ok {
			return true
		}
	}

	return false
}

func intersectionSize(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}

	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}

	return n
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}

	return true
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}

	return set
}
