package llm

import (
	"strconv"
	"strings"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
)

// Field counts for verdict lines. Summaries and actions may themselves
// contain pipes, so only the leading fields are split positionally and the
// tail is rejoined.
const (
	minClassifyParts = 6
	minAnnotateParts = 5
)

// scoreMin is the lower clamp bound; domain.ScoreMax is the upper.
const scoreMin float32 = 1

// ParseClassifications extracts verdict lines from a raw oracle response.
// Lines without a pipe are prose and ignored silently; pipe-bearing lines
// that fail to parse count as skipped so the run can surface how much of
// the response was unusable.
func ParseClassifications(text string, batchSize int) ClassifyResult {
	var result ClassifyResult

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "|") {
			continue
		}

		c, ok := parseClassificationLine(line, batchSize)
		if !ok {
			result.Skipped++

			continue
		}

		result.Classifications = append(result.Classifications, c)
	}

	return result
}

// parseClassificationLine parses one NUM|CATEGORY|IMPACT|RELEVANCE|ENTITIES|SUMMARY line.
func parseClassificationLine(line string, batchSize int) (Classification, bool) {
	parts := strings.Split(line, "|")
	if len(parts) < minClassifyParts {
		return Classification{}, false
	}

	index, ok := parseOrdinal(parts[0], batchSize)
	if !ok {
		return Classification{}, false
	}

	impact, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 32)
	if err != nil {
		return Classification{}, false
	}

	relevance, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 32)
	if err != nil {
		return Classification{}, false
	}

	summary := strings.TrimSpace(strings.Join(parts[5:], "|"))
	if summary == "" {
		return Classification{}, false
	}

	return Classification{
		Index:          index,
		Category:       domain.ParseCategory(strings.ToLower(strings.TrimSpace(parts[1]))),
		ImpactScore:    clampScore(float32(impact)),
		RelevanceScore: clampScore(float32(relevance)),
		Entities:       splitEntities(parts[4]),
		Summary:        summary,
	}, true
}

// ParseAnnotations extracts INDEX|RISK_OPPORTUNITY|PRIORITY|SO_WHAT|SUGGESTED_ACTION
// lines from a raw annotator response.
func ParseAnnotations(text string, batchSize int) AnnotateResult {
	var result AnnotateResult

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "|") {
			continue
		}

		a, ok := parseAnnotationLine(line, batchSize)
		if !ok {
			result.Skipped++

			continue
		}

		result.Annotations = append(result.Annotations, a)
	}

	return result
}

// parseAnnotationLine parses one annotator verdict line.
func parseAnnotationLine(line string, batchSize int) (Annotation, bool) {
	parts := strings.Split(line, "|")
	if len(parts) < minAnnotateParts {
		return Annotation{}, false
	}

	index, ok := parseOrdinal(parts[0], batchSize)
	if !ok {
		return Annotation{}, false
	}

	soWhat := strings.TrimSpace(parts[3])
	if soWhat == "" {
		return Annotation{}, false
	}

	return Annotation{
		Index:           index,
		RiskOpportunity: normalizeRiskOpportunity(parts[1]),
		Priority:        normalizePriority(parts[2]),
		SoWhat:          soWhat,
		SuggestedAction: strings.TrimSpace(strings.Join(parts[4:], "|")),
	}, true
}

// parseOrdinal converts a 1-based verdict number to a batch index. Models
// sometimes echo the numbered-list dot ("3."), so dots are stripped first.
func parseOrdinal(field string, batchSize int) (int, bool) {
	num, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(field), ".", ""))
	if err != nil {
		return 0, false
	}

	index := num - 1
	if index < 0 || index >= batchSize {
		return 0, false
	}

	return index, true
}

// splitEntities splits the comma-separated entity field, dropping blanks.
func splitEntities(field string) []string {
	var entities []string

	for _, e := range strings.Split(field, ",") {
		if e = strings.TrimSpace(e); e != "" {
			entities = append(entities, e)
		}
	}

	return entities
}

// clampScore bounds an oracle score to [1, 10].
func clampScore(score float32) float32 {
	if score < scoreMin {
		return scoreMin
	}

	if score > domain.ScoreMax {
		return domain.ScoreMax
	}

	return score
}

// normalizeRiskOpportunity folds free-form verdicts onto the known set.
// Anything unrecognized is neutral rather than an error.
func normalizeRiskOpportunity(field string) string {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case domain.RiskOpportunityRisk:
		return domain.RiskOpportunityRisk
	case domain.RiskOpportunityOpportunity:
		return domain.RiskOpportunityOpportunity
	default:
		return domain.RiskOpportunityNeutral
	}
}

// normalizePriority folds free-form priorities onto P0/P1/P2, defaulting
// to the lowest tier.
func normalizePriority(field string) string {
	switch strings.ToUpper(strings.TrimSpace(field)) {
	case domain.PriorityP0:
		return domain.PriorityP0
	case domain.PriorityP1:
		return domain.PriorityP1
	default:
		return domain.PriorityP2
	}
}
