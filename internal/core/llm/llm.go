// Package llm is the classification and annotation oracle client. One
// prompt goes to the highest-priority configured provider; on failure the
// registry walks the fallback chain. Verdicts come back as pipe-delimited
// lines which this package also parses, so callers never see raw
// completions.
package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	"github.com/lueurxax/competitor-radar/internal/core/embeddings"
)

// ClassifyInput is one article presented to the classification oracle.
type ClassifyInput struct {
	Competitor string
	Title      string
	Snippet    string
}

// Classification is one parsed oracle verdict, tied to its input by Index
// (position in the submitted batch).
type Classification struct {
	Index          int
	Category       domain.Category
	ImpactScore    float32
	RelevanceScore float32
	Entities       []string
	Summary        string
}

// ClassifyResult carries the parsed verdicts plus the count of response
// lines that looked like verdicts but could not be parsed. The oracle is
// told to skip articles without citable facts, so fewer classifications
// than inputs is normal and not an error.
type ClassifyResult struct {
	Classifications []Classification
	Skipped         int
}

// AnnotateInput is one intel record presented to a domain annotator.
type AnnotateInput struct {
	Competitor string
	Category   domain.Category
	Impact     float32
	Relevance  float32
	Summary    string
	Entities   []string
}

// Annotation is one parsed annotator verdict, tied to its input by Index.
type Annotation struct {
	Index           int
	RiskOpportunity string
	Priority        string
	SoWhat          string
	SuggestedAction string
}

// AnnotateResult carries parsed annotations plus the skipped-line count.
type AnnotateResult struct {
	Annotations []Annotation
	Skipped     int
}

// Client is the oracle interface the pipeline and the annotator consume.
type Client interface {
	ClassifyBatch(ctx context.Context, articles []ClassifyInput) (ClassifyResult, error)
	Annotate(ctx context.Context, role AnnotatorRole, items []AnnotateInput) (AnnotateResult, error)
	GetProviderStatuses() []ProviderStatus

	// Budget tracking methods
	SetBudgetLimit(limit int64)
	GetBudgetStatus() (dailyTokens, dailyLimit int64, percentage float64)
	SetBudgetAlertCallback(callback func(alert BudgetAlert))

	// SetUsageStore wires the persistent usage sink; until it is called,
	// usage is recorded to metrics and the budget tracker only.
	SetUsageStore(store UsageStore)
}

// Config holds provider credentials and tuning.
type Config struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string

	// Per-task model overrides. Empty uses the task chain defaults.
	ClassifyModel string
	AnnotateModel string

	RateLimitRPS     int
	DailyTokenBudget int64

	CircuitBreakerConfig embeddings.CircuitBreakerConfig
}

// buildCircuitConfig creates a CircuitBreakerConfig with defaults applied.
func buildCircuitConfig(cfg Config) embeddings.CircuitBreakerConfig {
	circuitCfg := cfg.CircuitBreakerConfig

	if circuitCfg.Threshold == 0 {
		circuitCfg.Threshold = defaultCircuitThreshold
	}

	if circuitCfg.ResetAfter == 0 {
		circuitCfg.ResetAfter = defaultCircuitTimeout
	}

	return circuitCfg
}

// registerProviders registers all configured providers with the registry.
func registerProviders(ctx context.Context, registry *Registry, cfg Config, logger *zerolog.Logger, circuitCfg embeddings.CircuitBreakerConfig) {
	if cfg.OpenAIAPIKey != "" && cfg.OpenAIAPIKey != llmAPIKeyMock {
		registry.Register(NewOpenAIProvider(cfg.OpenAIAPIKey, "", cfg.RateLimitRPS, logger), circuitCfg)
	}

	if cfg.AnthropicAPIKey != "" {
		registry.Register(NewAnthropicProvider(cfg.AnthropicAPIKey, "", cfg.RateLimitRPS, logger), circuitCfg)
	}

	if cfg.GoogleAPIKey != "" {
		googleProvider, err := NewGoogleProvider(ctx, cfg.GoogleAPIKey, "", cfg.RateLimitRPS, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create Google LLM provider")
		} else {
			registry.Register(googleProvider, circuitCfg)
		}
	}

	// If no providers configured, use the mock
	if registry.ProviderCount() == 0 {
		registry.Register(NewMockProvider(), circuitCfg)
	}
}

// New creates an oracle client with every configured provider registered.
// With no keys configured it falls back to the deterministic mock, so
// local runs and tests work offline.
func New(ctx context.Context, cfg Config, logger *zerolog.Logger) Client {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	registry := NewRegistry(logger)
	circuitCfg := buildCircuitConfig(cfg)
	registerProviders(ctx, registry, cfg, logger, circuitCfg)

	registry.SetTaskModelOverride(TaskTypeClassify, cfg.ClassifyModel)
	registry.SetTaskModelOverride(TaskTypeAnnotate, cfg.AnnotateModel)
	registry.SetBudgetLimit(cfg.DailyTokenBudget)

	return registry
}
