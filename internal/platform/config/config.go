package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
)

const envLocal = "local"

type Config struct {
	AppEnv              string        `env:"APP_ENV" envDefault:"local"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	PostgresDSN         string        `env:"POSTGRES_DSN,required"`
	SourcesPath         string        `env:"SOURCES_PATH" envDefault:"sources.yaml"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	APIHost             string        `env:"API_HOST" envDefault:"0.0.0.0"`
	APIPort             int           `env:"API_PORT" envDefault:"8080"`
	APICacheTTL         time.Duration `env:"API_CACHE_TTL" envDefault:"1m"`
	HealthPort          int           `env:"HEALTH_PORT" envDefault:"8081"`
	LookbackHours       int           `env:"LOOKBACK_HOURS" envDefault:"48"`
	MaxArticlesPerFeed  int           `env:"MAX_ARTICLES_PER_FEED" envDefault:"20"`
	FeedTimeout         time.Duration `env:"FEED_TIMEOUT" envDefault:"15s"`
	FeedConcurrency     int           `env:"FEED_CONCURRENCY" envDefault:"10"`
	ClassifyBatchSize   int           `env:"CLASSIFY_BATCH_SIZE" envDefault:"50"`
	ClassifyWorkers     int           `env:"CLASSIFY_WORKERS" envDefault:"4"`
	SimilarityThreshold float32       `env:"SIMILARITY_THRESHOLD" envDefault:"0.85"`
	LexicalThreshold    float32       `env:"LEXICAL_THRESHOLD" envDefault:"0.8"`
	JaccardThreshold    float32       `env:"JACCARD_THRESHOLD" envDefault:"0.7"`
	DedupWindowDays     int           `env:"DEDUP_WINDOW_DAYS" envDefault:"30"`

	// Search providers
	SearchMaxResults int           `env:"SEARCH_MAX_RESULTS" envDefault:"5"`
	GDELTEnabled     bool          `env:"GDELT_ENABLED" envDefault:"true"`
	GDELTRPM         int           `env:"GDELT_RPM" envDefault:"60"`
	GDELTTimeout     time.Duration `env:"GDELT_TIMEOUT" envDefault:"30s"`
	NewsAPIEnabled   bool          `env:"NEWSAPI_ENABLED" envDefault:"false"`
	NewsAPIKey       string        `env:"NEWSAPI_API_KEY" envDefault:""`
	NewsAPIRPM       int           `env:"NEWSAPI_RPM" envDefault:"10"`
	NewsAPITimeout   time.Duration `env:"NEWSAPI_TIMEOUT" envDefault:"30s"`

	// LLM providers
	OpenAIAPIKey        string        `env:"OPENAI_API_KEY" envDefault:""`
	AnthropicAPIKey     string        `env:"ANTHROPIC_API_KEY" envDefault:""`
	GoogleAPIKey        string        `env:"GOOGLE_API_KEY" envDefault:""`
	CohereAPIKey        string        `env:"COHERE_API_KEY" envDefault:""`
	LLMClassifyModel    string        `env:"LLM_CLASSIFY_MODEL" envDefault:""`
	LLMAnnotateModel    string        `env:"LLM_ANNOTATE_MODEL" envDefault:""`
	LLMRateLimitRPS     int           `env:"LLM_RATE_LIMIT_RPS" envDefault:"1"`
	LLMDailyTokenBudget int64         `env:"LLM_DAILY_TOKEN_BUDGET" envDefault:"0"`
	LLMCircuitThreshold int           `env:"LLM_CIRCUIT_THRESHOLD" envDefault:"5"`
	LLMCircuitTimeout   time.Duration `env:"LLM_CIRCUIT_TIMEOUT" envDefault:"1m"`

	// Embedding providers
	OpenAIEmbeddingModel      string        `env:"OPENAI_EMBEDDING_MODEL" envDefault:""`
	OpenAIEmbeddingDimensions int           `env:"OPENAI_EMBEDDING_DIMENSIONS" envDefault:"0"`
	CohereEmbeddingModel      string        `env:"COHERE_EMBEDDING_MODEL" envDefault:""`
	GoogleEmbeddingModel      string        `env:"GOOGLE_EMBEDDING_MODEL" envDefault:""`
	EmbeddingProviderOrder    string        `env:"EMBEDDING_PROVIDER_ORDER" envDefault:"openai,cohere,google"`
	EmbeddingRateLimit        int           `env:"EMBEDDING_RATE_LIMIT" envDefault:"0"`
	EmbeddingDimensions       int           `env:"EMBEDDING_DIMENSIONS" envDefault:"0"`
	EmbeddingCircuitThreshold int           `env:"EMBEDDING_CIRCUIT_THRESHOLD" envDefault:"5"`
	EmbeddingCircuitTimeout   time.Duration `env:"EMBEDDING_CIRCUIT_TIMEOUT" envDefault:"1m"`

	// Annotation worker
	AnnotatePollInterval time.Duration `env:"ANNOTATE_POLL_INTERVAL" envDefault:"5m"`
	AnnotateBatchSize    int           `env:"ANNOTATE_BATCH_SIZE" envDefault:"10"`
	AnnotateLookbackDays int           `env:"ANNOTATE_LOOKBACK_DAYS" envDefault:"7"`
	AnnotateMinImpact    float32       `env:"ANNOTATE_MIN_IMPACT" envDefault:"3.5"`
	AnnotateMinRelevance float32       `env:"ANNOTATE_MIN_RELEVANCE" envDefault:"3.5"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values that would silently disable deduplication or
// annotation rather than letting them surface mid-run.
func (c *Config) Validate() error {
	thresholds := []struct {
		name  string
		value float32
	}{
		{"SIMILARITY_THRESHOLD", c.SimilarityThreshold},
		{"LEXICAL_THRESHOLD", c.LexicalThreshold},
		{"JACCARD_THRESHOLD", c.JaccardThreshold},
	}

	for _, th := range thresholds {
		if th.value <= 0 || th.value > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", th.name, th.value)
		}
	}

	gates := []struct {
		name  string
		value float32
	}{
		{"ANNOTATE_MIN_IMPACT", c.AnnotateMinImpact},
		{"ANNOTATE_MIN_RELEVANCE", c.AnnotateMinRelevance},
	}

	for _, gate := range gates {
		if gate.value < 0 || gate.value > domain.ScoreMax {
			return fmt.Errorf("%s must be in [0, %v], got %v", gate.name, domain.ScoreMax, gate.value)
		}
	}

	ports := []struct {
		name  string
		value int
	}{
		{"API_PORT", c.APIPort},
		{"HEALTH_PORT", c.HealthPort},
	}

	for _, port := range ports {
		if port.value < 1 || port.value > 65535 {
			return fmt.Errorf("%s must be in [1, 65535], got %d", port.name, port.value)
		}
	}

	if c.LookbackHours <= 0 {
		return fmt.Errorf("LOOKBACK_HOURS must be positive, got %d", c.LookbackHours)
	}

	if c.DedupWindowDays <= 0 {
		return fmt.Errorf("DEDUP_WINDOW_DAYS must be positive, got %d", c.DedupWindowDays)
	}

	if c.NewsAPIEnabled && c.NewsAPIKey == "" {
		return errors.New("NEWSAPI_ENABLED requires NEWSAPI_API_KEY")
	}

	return nil
}

// IsLocal reports whether the process runs in local development.
func (c *Config) IsLocal() bool {
	return c.AppEnv == envLocal
}
