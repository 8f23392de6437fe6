package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// anthropicMaxTokens bounds completion length. Verdict lines are short;
// the ceiling only matters for large annotation batches.
const anthropicMaxTokens = 4096

// anthropicProvider is the first fallback completion transport.
type anthropicProvider struct {
	apiKey      string
	model       string
	client      anthropic.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewAnthropicProvider creates the Anthropic completion provider.
func NewAnthropicProvider(apiKey, model string, rateLimitRPS int, logger *zerolog.Logger) Provider {
	if model == "" {
		model = ModelClaudeHaiku
	}

	if rateLimitRPS <= 0 {
		rateLimitRPS = defaultRateLimitRPS
	}

	return &anthropicProvider{
		apiKey:      apiKey,
		model:       model,
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rateLimitRPS)), rateLimiterBurst),
	}
}

// Name returns the provider identifier.
func (p *anthropicProvider) Name() ProviderName {
	return ProviderAnthropic
}

// IsAvailable returns true if an API key is configured.
func (p *anthropicProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Priority returns the provider priority.
func (p *anthropicProvider) Priority() int {
	return PriorityFallback
}

// Model returns the default model, used for metric labels when a task
// chain leaves the model unset.
func (p *anthropicProvider) Model() string {
	return p.model
}

// resolveModel maps empty or foreign model names to this provider's default.
func (p *anthropicProvider) resolveModel(model string) string {
	if strings.HasPrefix(model, modelPrefixClaude) {
		return model
	}

	return p.model
}

// Complete implements Provider. The system prompt is folded into the user
// message so all providers are driven the same way.
func (p *anthropicProvider) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return Completion{}, fmt.Errorf(errRateLimiter, err)
	}

	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.resolveModel(req.Model)),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("anthropic message: %w", err)
	}

	text := extractAnthropicText(resp)
	if text == "" {
		return Completion{}, ErrEmptyLLMResponse
	}

	return Completion{
		Text:             text,
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// extractAnthropicText concatenates the text blocks of a response.
func extractAnthropicText(resp *anthropic.Message) string {
	var result strings.Builder

	for _, block := range resp.Content {
		if block.Type == contentTypeText {
			result.WriteString(block.Text)
		}
	}

	return strings.TrimSpace(result.String())
}

// Ensure anthropicProvider implements Provider interface.
var _ Provider = (*anthropicProvider)(nil)
