package llm

import "time"

// Model name constants.
const (
	ModelGPT4oMini       = "gpt-4o-mini"
	ModelGPT4o           = "gpt-4o"
	ModelClaudeHaiku     = "claude-haiku-4.5"
	ModelClaudeSonnet    = "claude-sonnet-4.5"
	ModelGeminiFlashLite = "gemini-2.0-flash-lite"
)

// Model name prefixes used to route override names to the right provider.
const (
	modelPrefixGPT    = "gpt"
	modelPrefixClaude = "claude"
	modelPrefixGemini = "gemini"
)

// completionTemperature keeps extraction output stable across runs.
const completionTemperature = 0.1

// llmAPIKeyMock selects the mock provider explicitly.
const llmAPIKeyMock = "mock"

// Rate limiter settings.
const (
	rateLimiterBurst    = 5
	defaultRateLimitRPS = 1
)

// errRateLimiter is the wrap format for rate limiter failures.
const errRateLimiter = "rate limiter: %w"

// Circuit breaker defaults.
const (
	defaultCircuitThreshold = 5
	defaultCircuitTimeout   = 1 * time.Minute
)

// Usage persistence.
const (
	usageStorageTimeout = 5 * time.Second
	usdToMillicents     = 100000.0 // 1 USD = 100,000 millicents
)

// Anthropic responses carry typed content blocks; only text blocks are read.
const contentTypeText = "text"

// Log keys.
const (
	logKeyProvider = "provider"
	logKeyModel    = "model"
	logKeyTask     = "task"
)

// Log messages.
const logMsgCircuitBreakerOpen = "skipping provider - circuit breaker open"

// Status label values for usage metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metric gauge values.
const (
	MetricValueAvailable   = 1.0
	MetricValueUnavailable = 0.0
	MetricValueCBOpen      = 1.0 // Circuit breaker is open (blocking requests)
	MetricValueCBClosed    = 0.0 // Circuit breaker is closed (allowing requests)
)
