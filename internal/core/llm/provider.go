package llm

import "context"

// ProviderName identifies a completion provider.
type ProviderName string

// Provider name constants.
const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGoogle    ProviderName = "google"
	ProviderMock      ProviderName = "mock"
)

// Priority constants for provider ordering.
const (
	PriorityPrimary        = 100 // Primary provider (OpenAI)
	PriorityFallback       = 50  // First fallback (Anthropic)
	PrioritySecondFallback = 25  // Second fallback (Google)
	PriorityMock           = 0   // Mock provider for keyless runs and tests
)

// CompletionRequest is a single prompt sent to a provider. Model may be
// empty, in which case the provider falls back to its default.
type CompletionRequest struct {
	System string
	Prompt string
	Model  string
}

// Completion is a provider response with its token accounting. Providers
// that do not report usage leave the token counts at zero.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Provider is the transport for one LLM vendor. Prompt construction and
// response parsing live in the registry; providers only move text.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// IsAvailable returns true if the provider is configured and available.
	IsAvailable() bool

	// Priority returns the provider priority (higher = preferred).
	Priority() int

	// Complete sends one prompt and returns the raw completion text.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}
