// Package embeddings turns intel summaries into fixed-dimension vectors for
// the memory index, with multi-provider fallback:
//   - OpenAI text-embedding-3-small / text-embedding-3-large
//   - Cohere embed-multilingual-v3.0
//   - Google gemini-embedding-001
//
// Each provider sits behind a circuit breaker and a rate limiter; vectors are
// padded or truncated to one target dimension so mixed providers stay
// comparable in the same index.
package embeddings

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Client is the embedding operation the rest of the pipeline depends on.
type Client interface {
	// GetEmbedding generates an embedding with consistent dimensions.
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

var _ Client = (*Registry)(nil)

// Config holds configuration for creating an embedding client.
type Config struct {
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIDimensions int
	OpenAIRateLimit  int

	CohereAPIKey    string
	CohereModel     string
	CohereRateLimit int

	GoogleAPIKey    string
	GoogleModel     string
	GoogleRateLimit int

	// Provider order (comma-separated: "openai,cohere,google")
	ProviderOrder string

	CircuitBreakerConfig CircuitBreakerConfig

	// Target dimensions for output vectors
	TargetDimensions int
}

// NewClient creates an embedding client with every configured provider
// registered. With no providers configured it falls back to the deterministic
// mock so local runs and tests work without keys.
func NewClient(ctx context.Context, cfg Config, logger *zerolog.Logger) Client {
	if cfg.TargetDimensions == 0 {
		cfg.TargetDimensions = DefaultDimensions
	}

	registry := NewRegistry(cfg.TargetDimensions, logger)

	for _, provider := range parseProviderOrder(cfg.ProviderOrder) {
		switch provider {
		case "openai":
			registerOpenAI(registry, cfg)
		case "cohere":
			registerCohere(registry, cfg)
		case "google":
			registerGoogle(ctx, registry, cfg, logger)
		}
	}

	if registry.ProviderCount() == 0 {
		logger.Warn().Msg("no embedding providers configured, using mock provider")

		registry.Register(NewMockProvider(), cfg.CircuitBreakerConfig)
	}

	return registry
}

func parseProviderOrder(order string) []string {
	if order == "" {
		return []string{"openai", "cohere", "google"}
	}

	var providers []string

	for _, p := range strings.Split(order, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			providers = append(providers, strings.ToLower(p))
		}
	}

	return providers
}

func registerOpenAI(registry *Registry, cfg Config) {
	if cfg.OpenAIAPIKey != "" && cfg.OpenAIAPIKey != mockAPIKey {
		registry.Register(NewOpenAIProvider(OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			Dimensions: cfg.OpenAIDimensions,
			RateLimit:  cfg.OpenAIRateLimit,
		}), cfg.CircuitBreakerConfig)
	}
}

func registerCohere(registry *Registry, cfg Config) {
	if cfg.CohereAPIKey != "" {
		registry.Register(NewCohereProvider(CohereConfig{
			APIKey:    cfg.CohereAPIKey,
			Model:     cfg.CohereModel,
			RateLimit: cfg.CohereRateLimit,
		}), cfg.CircuitBreakerConfig)
	}
}

func registerGoogle(ctx context.Context, registry *Registry, cfg Config, logger *zerolog.Logger) {
	if cfg.GoogleAPIKey == "" {
		return
	}

	googleProvider, err := NewGoogleProvider(ctx, GoogleConfig{
		APIKey:    cfg.GoogleAPIKey,
		Model:     cfg.GoogleModel,
		RateLimit: cfg.GoogleRateLimit,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create google embedding provider")

		return
	}

	if googleProvider.IsAvailable() {
		registry.Register(googleProvider, cfg.CircuitBreakerConfig)
	}
}
