package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Scores the mock assigns to every article.
const (
	mockImpactScore    = 6
	mockRelevanceScore = 6
)

// mockModelName labels mock completions in metrics and usage rows.
const mockModelName = "mock-completion"

// mockArticleLineRe matches the numbered article lines of the
// classification prompt: "1. [netflix] Title text".
var mockArticleLineRe = regexp.MustCompile(`(?m)^(\d+)\. \[([^\]]+)\] (.+)$`)

// mockIntelHeaderRe matches the intel headers of the annotation prompt.
var mockIntelHeaderRe = regexp.MustCompile(`(?m)^\*\*Intel #(\d+)\*\*$`)

// mockProvider is a deterministic offline oracle. It scans the prompt for
// the structures the real prompts carry and echoes well-formed verdict
// lines, so keyless runs exercise the full parse path.
type mockProvider struct{}

// NewMockProvider creates the mock completion provider.
func NewMockProvider() Provider {
	return &mockProvider{}
}

// Name returns the provider identifier.
func (p *mockProvider) Name() ProviderName {
	return ProviderMock
}

// IsAvailable returns true; the mock needs no configuration.
func (p *mockProvider) IsAvailable() bool {
	return true
}

// Priority returns the provider priority.
func (p *mockProvider) Priority() int {
	return PriorityMock
}

// Model returns the mock model label.
func (p *mockProvider) Model() string {
	return mockModelName
}

// Complete implements Provider.
func (p *mockProvider) Complete(_ context.Context, req CompletionRequest) (Completion, error) {
	if intel := mockIntelHeaderRe.FindAllStringSubmatch(req.Prompt, -1); len(intel) > 0 {
		return Completion{Text: mockAnnotationLines(intel)}, nil
	}

	return Completion{Text: mockClassificationLines(req.Prompt)}, nil
}

// mockClassificationLines classifies every article as strategic with mid
// scores, the competitor as the sole entity, and the title as summary.
func mockClassificationLines(prompt string) string {
	var sb strings.Builder

	for _, m := range mockArticleLineRe.FindAllStringSubmatch(prompt, -1) {
		fmt.Fprintf(&sb, "%s|strategic|%d|%d|%s|%s\n", m[1], mockImpactScore, mockRelevanceScore, m[2], m[3])
	}

	return sb.String()
}

// mockAnnotationLines emits one neutral P2 verdict per intel header.
func mockAnnotationLines(headers [][]string) string {
	var sb strings.Builder

	for _, m := range headers {
		fmt.Fprintf(&sb, "%s|neutral|P2|Mock analysis: no provider configured.|\n", m[1])
	}

	return sb.String()
}

// Ensure mockProvider implements Provider interface.
var _ Provider = (*mockProvider)(nil)
