package config

import (
	"os"
	"testing"
	"time"
)

// Test environment variable keys.
const (
	testEnvPostgresDSN = "POSTGRES_DSN"
	testEnvLookback    = "LOOKBACK_HOURS"
	testEnvSimilarity  = "SIMILARITY_THRESHOLD"
	testEnvNewsAPIOn   = "NEWSAPI_ENABLED"
	testEnvNewsAPIKey  = "NEWSAPI_API_KEY"
)

// Test values.
const (
	testPostgresDSN = "postgres://localhost/radar_test"
	testErrLoad     = "Load() error = %v"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv(testEnvPostgresDSN)

	_, err := Load()
	if err == nil {
		t.Error("expected error for missing POSTGRES_DSN")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvLookback, "24")
	t.Setenv(testEnvSimilarity, "0.9")
	t.Setenv(testEnvNewsAPIOn, "true")
	t.Setenv(testEnvNewsAPIKey, "newsapi-test-key")
	t.Setenv("LLM_DAILY_TOKEN_BUDGET", "500000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.PostgresDSN != testPostgresDSN {
		t.Errorf("PostgresDSN = %q, want %q", cfg.PostgresDSN, testPostgresDSN)
	}

	if cfg.LookbackHours != 24 {
		t.Errorf("LookbackHours = %d, want %d", cfg.LookbackHours, 24)
	}

	if cfg.SimilarityThreshold != 0.9 {
		t.Errorf("SimilarityThreshold = %v, want %v", cfg.SimilarityThreshold, 0.9)
	}

	if cfg.NewsAPIKey != "newsapi-test-key" {
		t.Errorf("NewsAPIKey = %q, want %q", cfg.NewsAPIKey, "newsapi-test-key")
	}

	if cfg.LLMDailyTokenBudget != 500000 {
		t.Errorf("LLMDailyTokenBudget = %d, want %d", cfg.LLMDailyTokenBudget, 500000)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	// Explicitly unset variables that might be in .env to test actual defaults
	os.Unsetenv("APP_ENV")
	os.Unsetenv(testEnvLookback)
	os.Unsetenv(testEnvSimilarity)
	os.Unsetenv("API_PORT")
	os.Unsetenv("GDELT_ENABLED")
	os.Unsetenv("CLASSIFY_BATCH_SIZE")
	os.Unsetenv("DEDUP_WINDOW_DAYS")
	os.Unsetenv("ANNOTATE_POLL_INTERVAL")
	os.Unsetenv("EMBEDDING_PROVIDER_ORDER")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.AppEnv != "local" {
		t.Errorf("AppEnv default = %q, want %q", cfg.AppEnv, "local")
	}

	if cfg.LookbackHours != 48 {
		t.Errorf("LookbackHours default = %d, want %d", cfg.LookbackHours, 48)
	}

	if cfg.SimilarityThreshold != 0.85 {
		t.Errorf("SimilarityThreshold default = %v, want %v", cfg.SimilarityThreshold, 0.85)
	}

	if cfg.APIPort != 8080 {
		t.Errorf("APIPort default = %d, want %d", cfg.APIPort, 8080)
	}

	if !cfg.GDELTEnabled {
		t.Error("GDELTEnabled should default to true")
	}

	if cfg.ClassifyBatchSize != 50 {
		t.Errorf("ClassifyBatchSize default = %d, want %d", cfg.ClassifyBatchSize, 50)
	}

	if cfg.DedupWindowDays != 30 {
		t.Errorf("DedupWindowDays default = %d, want %d", cfg.DedupWindowDays, 30)
	}

	if cfg.AnnotatePollInterval != 5*time.Minute {
		t.Errorf("AnnotatePollInterval default = %v, want %v", cfg.AnnotatePollInterval, 5*time.Minute)
	}

	if cfg.EmbeddingProviderOrder != "openai,cohere,google" {
		t.Errorf("EmbeddingProviderOrder default = %q, want %q", cfg.EmbeddingProviderOrder, "openai,cohere,google")
	}
}

func TestLoad_InvalidNumeric(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvLookback, "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid LOOKBACK_HOURS")
	}
}

func TestLoad_ThresholdOutOfRange(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvSimilarity, "1.5")

	_, err := Load()
	if err == nil {
		t.Error("expected error for SIMILARITY_THRESHOLD above 1")
	}
}

func TestLoad_PortOutOfRange(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("API_PORT", "70000")

	_, err := Load()
	if err == nil {
		t.Error("expected error for API_PORT above 65535")
	}
}

func TestLoad_NewsAPIRequiresKey(t *testing.T) {
	setRequiredEnvVars(t)
	os.Unsetenv(testEnvNewsAPIKey)
	t.Setenv(testEnvNewsAPIOn, "true")

	_, err := Load()
	if err == nil {
		t.Error("expected error for NEWSAPI_ENABLED without NEWSAPI_API_KEY")
	}
}

func TestConfig_IsLocal(t *testing.T) {
	cfg := &Config{AppEnv: "local"}
	if !cfg.IsLocal() {
		t.Error("IsLocal() = false for local env")
	}

	cfg.AppEnv = "production"
	if cfg.IsLocal() {
		t.Error("IsLocal() = true for production env")
	}
}

func TestConfig_ComponentCfgs(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("EMBEDDING_RATE_LIMIT", "3")
	t.Setenv(testEnvLookback, "24")
	t.Setenv("LLM_DAILY_TOKEN_BUDGET", "250000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	llmCfg := cfg.LLMCfg()
	if llmCfg.OpenAIAPIKey != "sk-test" {
		t.Errorf("LLMCfg().OpenAIAPIKey = %q, want %q", llmCfg.OpenAIAPIKey, "sk-test")
	}

	if llmCfg.DailyTokenBudget != 250000 {
		t.Errorf("LLMCfg().DailyTokenBudget = %d, want %d", llmCfg.DailyTokenBudget, 250000)
	}

	embCfg := cfg.EmbeddingCfg()
	if embCfg.OpenAIRateLimit != 3 || embCfg.CohereRateLimit != 3 || embCfg.GoogleRateLimit != 3 {
		t.Errorf("EmbeddingCfg() rate limits = %d/%d/%d, want 3 for all providers",
			embCfg.OpenAIRateLimit, embCfg.CohereRateLimit, embCfg.GoogleRateLimit)
	}

	gdeltCfg := cfg.GDELTCfg()
	if gdeltCfg.LookbackHours != 24 {
		t.Errorf("GDELTCfg().LookbackHours = %d, want %d", gdeltCfg.LookbackHours, 24)
	}

	noveltyCfg := cfg.NoveltyCfg()
	if noveltyCfg.SimilarityThreshold != cfg.SimilarityThreshold {
		t.Errorf("NoveltyCfg().SimilarityThreshold = %v, want %v", noveltyCfg.SimilarityThreshold, cfg.SimilarityThreshold)
	}

	rssCfg := cfg.RSSCfg()
	if rssCfg.MaxConcurrentFeeds != cfg.FeedConcurrency {
		t.Errorf("RSSCfg().MaxConcurrentFeeds = %d, want %d", rssCfg.MaxConcurrentFeeds, cfg.FeedConcurrency)
	}
}
