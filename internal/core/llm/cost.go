package llm

import "strings"

// Cost per 1M tokens (in USD). Approximate; update as pricing changes.
// Reference: https://openai.com/pricing, https://www.anthropic.com/pricing, https://ai.google.dev/pricing
const (
	costGPT4OPrompt       = 2.50  // $2.50 per 1M prompt tokens
	costGPT4OCompletion   = 10.00 // $10.00 per 1M completion tokens
	costGPT4OMiniPrompt   = 0.15  // $0.15 per 1M prompt tokens
	costGPT4OMiniComplete = 0.60  // $0.60 per 1M completion tokens

	costClaudeHaikuPrompt    = 1.00  // $1.00 per 1M prompt tokens
	costClaudeHaikuComplete  = 5.00  // $5.00 per 1M completion tokens
	costClaudeSonnetPrompt   = 3.00  // $3.00 per 1M prompt tokens
	costClaudeSonnetComplete = 15.00 // $15.00 per 1M completion tokens

	costGeminiFlashPrompt   = 0.10  // $0.10 per 1M prompt tokens
	costGeminiFlashComplete = 0.40  // $0.40 per 1M completion tokens
	costGeminiProPrompt     = 3.50  // $3.50 per 1M prompt tokens
	costGeminiProComplete   = 10.50 // $10.50 per 1M completion tokens

	tokensPerMillion = 1000000.0
)

// estimateCost returns the estimated request cost in USD.
func estimateCost(provider, model string, promptTokens, completionTokens int) float64 {
	promptRate, completionRate := getCostRates(provider, model)

	promptUSD := float64(promptTokens) * promptRate / tokensPerMillion
	completionUSD := float64(completionTokens) * completionRate / tokensPerMillion

	return promptUSD + completionUSD
}

// getCostRates returns the per-1M-token rates for prompt and completion.
// Unknown combinations fall back to GPT-4o-mini rates as a conservative
// estimate.
func getCostRates(provider, model string) (promptRate, completionRate float64) {
	model = strings.ToLower(model)

	switch ProviderName(provider) {
	case ProviderOpenAI:
		if strings.Contains(model, "mini") {
			return costGPT4OMiniPrompt, costGPT4OMiniComplete
		}

		return costGPT4OPrompt, costGPT4OCompletion
	case ProviderAnthropic:
		if strings.Contains(model, "sonnet") {
			return costClaudeSonnetPrompt, costClaudeSonnetComplete
		}

		return costClaudeHaikuPrompt, costClaudeHaikuComplete
	case ProviderGoogle:
		if strings.Contains(model, "pro") {
			return costGeminiProPrompt, costGeminiProComplete
		}

		return costGeminiFlashPrompt, costGeminiFlashComplete
	case ProviderMock:
		return 0, 0
	default:
		return costGPT4OMiniPrompt, costGPT4OMiniComplete
	}
}
