package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// googleProvider is the second fallback completion transport.
type googleProvider struct {
	apiKey      string
	model       string
	client      *genai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewGoogleProvider creates the Google Gemini completion provider.
func NewGoogleProvider(ctx context.Context, apiKey, model string, rateLimitRPS int, logger *zerolog.Logger) (Provider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating google genai client: %w", err)
	}

	if model == "" {
		model = ModelGeminiFlashLite
	}

	if rateLimitRPS <= 0 {
		rateLimitRPS = defaultRateLimitRPS
	}

	return &googleProvider{
		apiKey:      apiKey,
		model:       model,
		client:      client,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rateLimitRPS)), rateLimiterBurst),
	}, nil
}

// Close releases the underlying genai client.
func (p *googleProvider) Close() error {
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			return fmt.Errorf("closing google genai client: %w", err)
		}
	}

	return nil
}

// Name returns the provider identifier.
func (p *googleProvider) Name() ProviderName {
	return ProviderGoogle
}

// IsAvailable returns true if an API key is configured.
func (p *googleProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Priority returns the provider priority.
func (p *googleProvider) Priority() int {
	return PrioritySecondFallback
}

// Model returns the default model, used for metric labels when a task
// chain leaves the model unset.
func (p *googleProvider) Model() string {
	return p.model
}

// resolveModel maps empty or foreign model names to this provider's default.
func (p *googleProvider) resolveModel(model string) string {
	if strings.HasPrefix(model, modelPrefixGemini) {
		return model
	}

	return p.model
}

// Complete implements Provider. The system prompt is folded into the user
// message so all providers are driven the same way.
func (p *googleProvider) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return Completion{}, fmt.Errorf(errRateLimiter, err)
	}

	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}

	genModel := p.client.GenerativeModel(p.resolveModel(req.Model))

	resp, err := genModel.GenerateContent(ctx, genai.Text(sanitizeUTF8(prompt)))
	if err != nil {
		return Completion{}, fmt.Errorf("google genai completion: %w", err)
	}

	text := extractGoogleResponseText(resp)
	if text == "" {
		return Completion{}, ErrEmptyLLMResponse
	}

	completion := Completion{Text: strings.TrimSpace(text)}

	if resp.UsageMetadata != nil {
		completion.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		completion.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return completion, nil
}

// extractGoogleResponseText concatenates text parts across candidates.
func extractGoogleResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var result strings.Builder

	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					result.WriteString(string(text))
				}
			}
		}
	}

	return result.String()
}

// sanitizeUTF8 removes invalid UTF-8 sequences. Google's protobuf API
// requires valid UTF-8 and scraped snippets may carry broken bytes.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var builder strings.Builder

	builder.Grow(len(s))

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			builder.WriteRune(utf8.RuneError)

			i++
		} else {
			builder.WriteRune(r)

			i += size
		}
	}

	return builder.String()
}

// Ensure googleProvider implements Provider interface.
var _ Provider = (*googleProvider)(nil)
