// Package domain holds the core data types shared across the pipeline.
package domain

import "time"

// Category classifies an intel item by the kind of competitive move it describes.
type Category string

// Known intel categories. The classification oracle may return anything;
// unknown values normalize to CategoryStrategic.
const (
	CategoryStrategic Category = "strategic"
	CategoryProduct   Category = "product"
	CategoryContent   Category = "content"
	CategoryMarketing Category = "marketing"
	CategoryAIAds     Category = "ai_ads"
	CategoryPricing   Category = "pricing"
)

// Categories lists every known category, used for validation and API filters.
var Categories = []Category{
	CategoryStrategic,
	CategoryProduct,
	CategoryContent,
	CategoryMarketing,
	CategoryAIAds,
	CategoryPricing,
}

// ParseCategory normalizes an oracle-provided category string.
func ParseCategory(s string) Category {
	for _, c := range Categories {
		if string(c) == s {
			return c
		}
	}

	return CategoryStrategic
}

// RunStatus tracks the lifecycle of one ingestion run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// Annotation priority constants.
const (
	PriorityP0 = "P0"
	PriorityP1 = "P1"
	PriorityP2 = "P2"
)

// Annotation risk/opportunity constants.
const (
	RiskOpportunityRisk        = "risk"
	RiskOpportunityOpportunity = "opportunity"
	RiskOpportunityNeutral     = "neutral"
)

// MaxMergedEntities caps the aggregated entity set of a merged record.
const MaxMergedEntities = 10

// ScoreMax bounds oracle impact and relevance scores.
const ScoreMax float32 = 10

// ArticleCandidate is a raw article as produced by an ingestion source,
// before storage and classification.
type ArticleCandidate struct {
	CompetitorID string
	SourceLabel  string
	Title        string
	URL          string
	PublishedAt  time.Time
	RawSnippet   string
	Fingerprint  string
}

// Article is a stored source article.
type Article struct {
	ID           string
	RunID        string
	CompetitorID string
	SourceLabel  string
	Title        string
	URL          string
	PublishedAt  time.Time
	RawSnippet   string
	Fingerprint  string
	FetchedAt    time.Time
}

// IntelCandidate is the classification oracle's verdict on one article.
// It exists only within a single run until merged and persisted.
type IntelCandidate struct {
	ArticleID      string
	CompetitorID   string
	Title          string
	URL            string
	Summary        string
	Category       Category
	ImpactScore    float32
	RelevanceScore float32
	Entities       []string
}

// MergedIntel is the result of same-run theme grouping: one or more
// candidates describing the same story collapsed into a single record.
// Scores are the max across contributors, not the average; corroboration
// must not dilute severity.
type MergedIntel struct {
	ArticleID      string
	CompetitorID   string
	Title          string
	URL            string
	Summary        string
	Category       Category
	ImpactScore    float32
	RelevanceScore float32
	Entities       []string
	RelatedURLs    []string
	SourceCount    int
}

// Intel is the durable record. NoveltyScore stays nil until the resolver
// has scored the item. IsDuplicateOf is a weak reference used for lookup
// and reporting only; an item with it set always carries novelty 0.0.
type Intel struct {
	ID             string
	ArticleID      string
	Summary        string
	Category       Category
	RelevanceScore float32
	ImpactScore    float32
	NoveltyScore   *float32
	IsDuplicateOf  *string
	Entities       []string
	SourceCount    int
	RelatedURLs    []string
	CreatedAt      time.Time

	// Joined from the source article for resolver and API reads.
	CompetitorID string
	Title        string
	URL          string
	PublishedAt  time.Time
}

// Run is one end-to-end ingestion pass with its summary counters.
type Run struct {
	ID                     string
	StartedAt              time.Time
	FinishedAt             *time.Time
	Status                 RunStatus
	ArticlesFetched        int
	IntelCreated           int
	DuplicatesFound        int
	SkippedClassifications int
	Notes                  string
}

// Annotation is a structured domain-agent comment on one intel item.
type Annotation struct {
	ID              string
	IntelID         string
	AgentRole       string
	SoWhat          string
	RiskOpportunity string
	Priority        string
	SuggestedAction string
	CreatedAt       time.Time
}
