package llm

import (
	"strings"
	"testing"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
)

func TestBuildClassifyPrompt(t *testing.T) {
	articles := []ClassifyInput{
		{Competitor: "netflix", Title: "Netflix acquires Warner Bros", Snippet: "The deal is valued at $82.7 billion."},
		{Competitor: "roku", Title: "Roku adds FAST channels", Snippet: "40 new channels in the UK."},
	}

	prompt := BuildClassifyPrompt(articles)

	if !strings.Contains(prompt, "NUM|CATEGORY|IMPACT|RELEVANCE|ENTITIES|SUMMARY") {
		t.Error("prompt missing output format instruction")
	}

	if !strings.Contains(prompt, "\n1. [netflix] Netflix acquires Warner Bros\n   The deal is valued at $82.7 billion.\n") {
		t.Errorf("prompt missing first article block:\n%s", prompt)
	}

	if !strings.Contains(prompt, "\n2. [roku] Roku adds FAST channels\n") {
		t.Error("prompt missing second article block")
	}

	if !strings.Contains(prompt, "up 12% YoY") {
		t.Error("format verb escaped incorrectly")
	}
}

func TestBuildClassifyPromptTruncates(t *testing.T) {
	longTitle := strings.Repeat("a", 300)
	longSnippet := strings.Repeat("b", 900)

	prompt := BuildClassifyPrompt([]ClassifyInput{{Competitor: "pluto", Title: longTitle, Snippet: longSnippet}})

	if strings.Contains(prompt, strings.Repeat("a", promptTitleLimit+1)) {
		t.Error("title not truncated")
	}

	if !strings.Contains(prompt, strings.Repeat("a", promptTitleLimit)) {
		t.Error("title truncated too aggressively")
	}

	if strings.Contains(prompt, strings.Repeat("b", promptSnippetLimit+1)) {
		t.Error("snippet not truncated")
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{name: "short_unchanged", input: "hello", limit: 10, want: "hello"},
		{name: "exact_unchanged", input: "hello", limit: 5, want: "hello"},
		{name: "clipped", input: "hello world", limit: 5, want: "hello"},
		{name: "multibyte_not_split", input: "héllo wörld", limit: 5, want: "héllo"},
		{name: "empty", input: "", limit: 5, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateRunes(tt.input, tt.limit); got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.input, tt.limit, got, tt.want)
			}
		})
	}
}

func TestBuildAnnotatePrompt(t *testing.T) {
	role := Annotators[0]
	items := []AnnotateInput{
		{
			Competitor: "netflix",
			Category:   domain.CategoryStrategic,
			Impact:     9,
			Relevance:  8.5,
			Summary:    "Netflix acquired Warner Bros for $82.7 billion",
			Entities:   []string{"Netflix", "Warner Bros"},
		},
		{
			Competitor: "roku",
			Category:   domain.CategoryPricing,
			Impact:     6,
			Relevance:  6,
			Summary:    "Roku cut device prices 15%",
		},
	}

	prompt := BuildAnnotatePrompt(role, items)

	if !strings.Contains(prompt, "Analyze the following 2 intel items from your Strategic Updates perspective:") {
		t.Error("prompt missing header")
	}

	if !strings.Contains(prompt, "**Intel #1**\n- Competitor: netflix\n- Category: strategic\n- Impact Score: 9.0/10\n- Relevance Score: 8.5/10") {
		t.Errorf("prompt missing first intel block:\n%s", prompt)
	}

	if !strings.Contains(prompt, "Entities: Netflix, Warner Bros") {
		t.Error("prompt missing entities line")
	}

	if !strings.Contains(prompt, "**Intel #2**") {
		t.Error("prompt missing second intel header")
	}

	// No entities line for the second item
	if strings.Count(prompt, "Entities:") != 1 {
		t.Error("entities line emitted for item without entities")
	}

	if !strings.Contains(prompt, "INDEX|RISK_OPPORTUNITY|PRIORITY|SO_WHAT|SUGGESTED_ACTION") {
		t.Error("prompt missing output format instruction")
	}
}

func TestAnnotatorsCoverEveryCategory(t *testing.T) {
	for _, category := range domain.Categories {
		covered := false

		for _, role := range Annotators {
			if role.Covers(category) {
				covered = true

				break
			}
		}

		if !covered {
			t.Errorf("category %q has no annotator role", category)
		}
	}
}

func TestAnnotatorRoleNamesUnique(t *testing.T) {
	seen := make(map[string]bool)

	for _, role := range Annotators {
		if seen[role.Name] {
			t.Errorf("duplicate annotator role name %q", role.Name)
		}

		seen[role.Name] = true

		if role.System == "" {
			t.Errorf("role %q has no system prompt", role.Name)
		}

		if len(role.Categories) == 0 {
			t.Errorf("role %q filters no categories", role.Name)
		}
	}
}
