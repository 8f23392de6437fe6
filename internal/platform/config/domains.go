package config

import (
	"github.com/lueurxax/competitor-radar/internal/api"
	"github.com/lueurxax/competitor-radar/internal/core/embeddings"
	"github.com/lueurxax/competitor-radar/internal/core/lexical"
	"github.com/lueurxax/competitor-radar/internal/core/llm"
	"github.com/lueurxax/competitor-radar/internal/ingest/rss"
	"github.com/lueurxax/competitor-radar/internal/ingest/search"
	"github.com/lueurxax/competitor-radar/internal/process/annotate"
	"github.com/lueurxax/competitor-radar/internal/process/classify"
	"github.com/lueurxax/competitor-radar/internal/process/novelty"
	"github.com/lueurxax/competitor-radar/internal/process/pipeline"
	db "github.com/lueurxax/competitor-radar/internal/storage"
)

// PoolCfg returns the database connection pool configuration.
func (c *Config) PoolCfg() db.PoolOptions {
	return db.PoolOptions{
		MaxConns:          c.DBMaxConnections,
		MinConns:          c.DBMinConnections,
		MaxConnIdleTime:   c.DBMaxConnIdleTime,
		MaxConnLifetime:   c.DBMaxConnLifetime,
		HealthCheckPeriod: c.DBHealthCheckPeriod,
	}
}

// RSSCfg returns the feed fetcher configuration.
func (c *Config) RSSCfg() rss.Config {
	return rss.Config{
		LookbackHours:      c.LookbackHours,
		MaxArticlesPerFeed: c.MaxArticlesPerFeed,
		FeedTimeout:        c.FeedTimeout,
		MaxConcurrentFeeds: c.FeedConcurrency,
	}
}

// SearchCfg returns the search fan-out configuration.
func (c *Config) SearchCfg() search.Config {
	return search.Config{MaxResultsPerQuery: c.SearchMaxResults}
}

// GDELTCfg returns the GDELT provider configuration. The provider shares the
// feed lookback window so both ingestion paths cover the same period.
func (c *Config) GDELTCfg() search.GDELTConfig {
	return search.GDELTConfig{
		Enabled:        c.GDELTEnabled,
		RequestsPerMin: c.GDELTRPM,
		Timeout:        c.GDELTTimeout,
		LookbackHours:  c.LookbackHours,
	}
}

// NewsAPICfg returns the NewsAPI provider configuration.
func (c *Config) NewsAPICfg() search.NewsAPIConfig {
	return search.NewsAPIConfig{
		Enabled:        c.NewsAPIEnabled,
		APIKey:         c.NewsAPIKey,
		RequestsPerMin: c.NewsAPIRPM,
		Timeout:        c.NewsAPITimeout,
		LookbackHours:  c.LookbackHours,
	}
}

// ClassifyCfg returns the classification stage configuration.
func (c *Config) ClassifyCfg() classify.Config {
	return classify.Config{
		BatchSize: c.ClassifyBatchSize,
		Workers:   c.ClassifyWorkers,
	}
}

// LexicalCfg returns the lexical matcher configuration.
func (c *Config) LexicalCfg() lexical.Config {
	return lexical.Config{JaccardThreshold: c.JaccardThreshold}
}

// NoveltyCfg returns the novelty resolver configuration.
func (c *Config) NoveltyCfg() novelty.Config {
	return novelty.Config{
		SimilarityThreshold: c.SimilarityThreshold,
		LexicalThreshold:    c.LexicalThreshold,
	}
}

// LLMCfg returns the LLM provider configuration.
func (c *Config) LLMCfg() llm.Config {
	return llm.Config{
		OpenAIAPIKey:     c.OpenAIAPIKey,
		AnthropicAPIKey:  c.AnthropicAPIKey,
		GoogleAPIKey:     c.GoogleAPIKey,
		ClassifyModel:    c.LLMClassifyModel,
		AnnotateModel:    c.LLMAnnotateModel,
		RateLimitRPS:     c.LLMRateLimitRPS,
		DailyTokenBudget: c.LLMDailyTokenBudget,
		CircuitBreakerConfig: embeddings.CircuitBreakerConfig{
			Threshold:  c.LLMCircuitThreshold,
			ResetAfter: c.LLMCircuitTimeout,
		},
	}
}

// EmbeddingCfg returns the embedding provider configuration. One rate limit
// applies to every provider: only one of them serves traffic at a time.
func (c *Config) EmbeddingCfg() embeddings.Config {
	return embeddings.Config{
		OpenAIAPIKey:     c.OpenAIAPIKey,
		OpenAIModel:      c.OpenAIEmbeddingModel,
		OpenAIDimensions: c.OpenAIEmbeddingDimensions,
		OpenAIRateLimit:  c.EmbeddingRateLimit,
		CohereAPIKey:     c.CohereAPIKey,
		CohereModel:      c.CohereEmbeddingModel,
		CohereRateLimit:  c.EmbeddingRateLimit,
		GoogleAPIKey:     c.GoogleAPIKey,
		GoogleModel:      c.GoogleEmbeddingModel,
		GoogleRateLimit:  c.EmbeddingRateLimit,
		ProviderOrder:    c.EmbeddingProviderOrder,
		CircuitBreakerConfig: embeddings.CircuitBreakerConfig{
			Threshold:  c.EmbeddingCircuitThreshold,
			ResetAfter: c.EmbeddingCircuitTimeout,
		},
		TargetDimensions: c.EmbeddingDimensions,
	}
}

// AnnotateCfg returns the annotation worker configuration.
func (c *Config) AnnotateCfg() annotate.Config {
	return annotate.Config{
		PollInterval: c.AnnotatePollInterval,
		BatchSize:    c.AnnotateBatchSize,
		MinImpact:    c.AnnotateMinImpact,
		MinRelevance: c.AnnotateMinRelevance,
		LookbackDays: c.AnnotateLookbackDays,
	}
}

// PipelineCfg returns the run orchestration configuration for the sources in
// reg.
func (c *Config) PipelineCfg(reg *Registry) pipeline.Config {
	return pipeline.Config{
		Feeds:           reg.FeedSources(),
		Queries:         reg.CompetitorQueries(),
		DedupWindowDays: c.DedupWindowDays,
	}
}

// APICfg returns the REST API configuration for the sources in reg.
func (c *Config) APICfg(reg *Registry) api.Config {
	return api.Config{
		Host:        c.APIHost,
		Port:        c.APIPort,
		CacheTTL:    c.APICacheTTL,
		Competitors: reg.APICompetitors(),
	}
}
