package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// openaiProvider is the primary completion transport.
type openaiProvider struct {
	apiKey      string
	model       string
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewOpenAIProvider creates the OpenAI completion provider. An empty model
// selects the default classification model.
func NewOpenAIProvider(apiKey, model string, rateLimitRPS int, logger *zerolog.Logger) Provider {
	if model == "" {
		model = ModelGPT4oMini
	}

	if rateLimitRPS <= 0 {
		rateLimitRPS = defaultRateLimitRPS
	}

	return &openaiProvider{
		apiKey:      apiKey,
		model:       model,
		client:      openai.NewClient(apiKey),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rateLimitRPS)), rateLimiterBurst),
	}
}

// Name returns the provider identifier.
func (p *openaiProvider) Name() ProviderName {
	return ProviderOpenAI
}

// IsAvailable returns true if an API key is configured.
func (p *openaiProvider) IsAvailable() bool {
	return p.apiKey != "" && p.apiKey != llmAPIKeyMock
}

// Priority returns the provider priority.
func (p *openaiProvider) Priority() int {
	return PriorityPrimary
}

// Model returns the default model, used for metric labels when a task
// chain leaves the model unset.
func (p *openaiProvider) Model() string {
	return p.model
}

// resolveModel maps empty or foreign model names to this provider's default.
func (p *openaiProvider) resolveModel(model string) string {
	if model == "" || !strings.HasPrefix(model, modelPrefixGPT) {
		return p.model
	}

	return model
}

// Complete implements Provider.
func (p *openaiProvider) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return Completion{}, fmt.Errorf(errRateLimiter, err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)

	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.resolveModel(req.Model),
		Temperature: completionTemperature,
		Messages:    messages,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Completion{}, ErrEmptyLLMResponse
	}

	return Completion{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Ensure openaiProvider implements Provider interface.
var _ Provider = (*openaiProvider)(nil)
