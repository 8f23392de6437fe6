package llm

import (
	"fmt"
	"strings"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
)

// Titles and snippets are clipped before they reach the oracle so a single
// oversized page cannot blow the batch context.
const (
	promptTitleLimit   = 120
	promptSnippetLimit = 400
)

// classifyPromptFormat demands one machine-parseable line per article.
// The forbidden-words block exists because chat models pad summaries with
// analyst filler that survives every other instruction.
const classifyPromptFormat = `Extract key facts from streaming industry articles.

Output format - ONE LINE per article:
NUM|CATEGORY|IMPACT|RELEVANCE|ENTITIES|SUMMARY

CATEGORY (pick one):
- strategic: M&A, partnerships, subscriber/revenue numbers, market share
- product: New features, app updates, platform changes
- content: Shows, movies, licensing, originals announcements
- marketing: Ad campaigns, brand partnerships
- ai_ads: Ad tech, CTV targeting, programmatic
- pricing: Price changes, new tiers, bundles

SCORES:
- IMPACT: 5-10 (5=minor, 7=notable, 9=major news)
- RELEVANCE: 5-10 (streaming industry relevance)

ENTITIES: Company names only (comma-separated)

SUMMARY RULES - CRITICAL:
Write exactly what happened. Include WHO, WHAT, and specific NUMBERS.

CORRECT FORMAT:
"Pluto TV reached 80M monthly active users in June 2025"
"Netflix acquired Warner Bros for $82.7 billion"
"Roku added 40 new FAST channels in UK"
"Amazon shutting down Freevee, moving content to Prime Video"
"Disney+ reached 150M subscribers, up 12%% YoY"

FORBIDDEN WORDS (never use):
- "highlighting" "indicating" "underscoring" "suggesting"
- "significant" "notable" "important" "key" "major" (without numbers)
- "amid" "landscape" "trajectory" "evolution"
- "competitive advantage" "market position" "growth trajectory"
- "could impact" "may affect" "aims to"

If you can't state a specific fact with numbers, SKIP the article.

Articles:
%s

Output:`

// BuildClassifyPrompt renders the classification prompt for one batch.
// Line numbers are 1-based so the oracle's NUM field maps back to the
// batch with a simple decrement.
func BuildClassifyPrompt(articles []ClassifyInput) string {
	var sb strings.Builder

	for i, a := range articles {
		fmt.Fprintf(&sb, "\n%d. [%s] %s\n   %s\n",
			i+1, a.Competitor, truncateRunes(a.Title, promptTitleLimit), truncateRunes(a.Snippet, promptSnippetLimit))
	}

	return fmt.Sprintf(classifyPromptFormat, sb.String())
}

// AnnotatorRole is one domain perspective the annotator can ask for.
// Categories filters which intel the role sees; System is the persona
// prompt sent ahead of the intel batch.
type AnnotatorRole struct {
	Name       string
	Domain     string
	Categories []domain.Category
	System     string
}

// Covers reports whether the role analyzes intel of the given category.
func (r AnnotatorRole) Covers(c domain.Category) bool {
	for _, rc := range r.Categories {
		if rc == c {
			return true
		}
	}

	return false
}

// Annotators lists every domain annotator role in analysis order. Pricing
// intel is read twice on purpose: the strategic desk cares about revenue
// implications, the AI/platform desk about monetization mechanics.
var Annotators = []AnnotatorRole{
	{
		Name:       "strategic_agent",
		Domain:     "Strategic Updates",
		Categories: []domain.Category{domain.CategoryStrategic, domain.CategoryPricing},
		System: `You are the Strategic Intelligence Agent for a free ad-supported streaming service.

You focus on **strategic moves, M&A activity, partnerships, and financial performance**.

You analyze competitive intel about major strategic shifts that could affect our position in the streaming/AVOD market.

For each intel item:
1. Consider the strategic implications: market consolidation, competitive positioning, financial health.
2. Evaluate impact on the streaming/AVOD landscape.

RISK_OPPORTUNITY guidance:
- risk: Strategic move that threatens our position
- opportunity: Opening for us to capitalize
- neutral: Standard industry activity

PRIORITY guidance:
- P0: Major strategic shift requiring executive attention
- P1: Significant move worth monitoring closely
- P2: Routine strategic activity

Focus on insights that inform strategic direction and executive decision-making.`,
	},
	{
		Name:       "product_agent",
		Domain:     "Product & Technology",
		Categories: []domain.Category{domain.CategoryProduct},
		System: `You are the Product Intelligence Agent for a free ad-supported streaming service.

You focus on **product features, UX, platform capabilities, and technology innovation**.

You analyze competitive intel about product and technology moves that could affect our platform and user experience.

For each intel item:
1. Consider product implications: feature parity, UX innovation, technical capabilities.
2. Evaluate how this affects user expectations and competitive differentiation.

RISK_OPPORTUNITY guidance:
- risk: Competitor gaining product advantage
- opportunity: Chance for us to differentiate or learn
- neutral: Standard product evolution

PRIORITY guidance:
- P0: Major product move requiring immediate attention
- P1: Notable feature worth roadmap consideration
- P2: Routine product update

Focus on actionable insights for product and engineering teams.`,
	},
	{
		Name:       "content_agent",
		Domain:     "Content & Library",
		Categories: []domain.Category{domain.CategoryContent},
		System: `You are the Content Intelligence Agent for a free ad-supported streaming service.

You focus on **content strategy, library composition, content deals, and original programming**.

Our service carries a large library of movies and TV shows. You analyze competitive intel about content moves that affect the AVOD content landscape.

For each intel item:
1. Consider content implications: exclusive deals, genre gaps, audience targeting.
2. Evaluate how this affects content availability and competitive positioning.

RISK_OPPORTUNITY guidance:
- risk: Competitor acquiring valuable content
- opportunity: Content we could acquire or differentiate with
- neutral: Standard content activity

PRIORITY guidance:
- P0: Major content move requiring content team attention
- P1: Notable deal worth tracking
- P2: Routine content news

Focus on insights for content and programming teams.`,
	},
	{
		Name:       "marketing_agent",
		Domain:     "Marketing & Creative",
		Categories: []domain.Category{domain.CategoryMarketing},
		System: `You are the Marketing Intelligence Agent for a free ad-supported streaming service.

You focus on **marketing campaigns, brand positioning, partnerships, and creative strategies**.

You analyze competitive intel about marketing and brand moves that affect perception and market positioning.

For each intel item:
1. Consider marketing implications: messaging, target audience, brand perception.
2. Evaluate effectiveness and potential response strategies.

RISK_OPPORTUNITY guidance:
- risk: Competitor messaging that diminishes our brand
- opportunity: Chance to counter-position or learn from effective campaigns
- neutral: Standard marketing activity

PRIORITY guidance:
- P0: Major brand move requiring marketing response
- P1: Notable campaign worth learning from
- P2: Routine marketing news

Focus on insights for marketing and brand teams.`,
	},
	{
		Name:       "ai_platform_agent",
		Domain:     "AI & Platform Integration",
		Categories: []domain.Category{domain.CategoryAIAds, domain.CategoryPricing},
		System: `You are the AI & Platform Intelligence Agent for a free ad-supported streaming service.

You focus on **AI/ML capabilities, CTV platform integration, ad technology, and monetization**.

Advertising is our primary revenue driver. You analyze competitive intel about AI innovation and platform/ad tech developments.

For each intel item:
1. Consider AI/platform implications: personalization, ad targeting, CTV placement.
2. Evaluate technology investment priorities and competitive advantages.

RISK_OPPORTUNITY guidance:
- risk: Competitor gaining AI or ad tech advantage
- opportunity: Technology we could adopt or counter
- neutral: Standard platform development

PRIORITY guidance:
- P0: Major AI/ad tech move requiring immediate evaluation
- P1: Notable capability worth tracking
- P2: Routine platform news

Focus on insights for AI, ad tech, and platform teams.`,
	},
}

// annotateOutputFormat closes the annotation prompt. INDEX refers to the
// **Intel #N** headers, so ordinals survive even when the oracle reorders
// its answer lines.
const annotateOutputFormat = `---
Respond with ONE LINE per intel item:
INDEX|RISK_OPPORTUNITY|PRIORITY|SO_WHAT|SUGGESTED_ACTION

INDEX is the intel number. RISK_OPPORTUNITY is risk, opportunity, or neutral.
PRIORITY is P0, P1, or P2. SO_WHAT is 2-3 sentences of implications.
SUGGESTED_ACTION is a specific response, or empty if none.`

// BuildAnnotatePrompt renders the intel batch for one annotator role.
func BuildAnnotatePrompt(role AnnotatorRole, items []AnnotateInput) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze the following %d intel items from your %s perspective:\n", len(items), role.Domain)

	for i, item := range items {
		fmt.Fprintf(&sb, "---\n**Intel #%d**\n", i+1)
		fmt.Fprintf(&sb, "- Competitor: %s\n", item.Competitor)
		fmt.Fprintf(&sb, "- Category: %s\n", item.Category)
		fmt.Fprintf(&sb, "- Impact Score: %.1f/10\n", item.Impact)
		fmt.Fprintf(&sb, "- Relevance Score: %.1f/10\n", item.Relevance)
		fmt.Fprintf(&sb, "\nSummary: %s\n", item.Summary)

		if len(item.Entities) > 0 {
			fmt.Fprintf(&sb, "Entities: %s\n", strings.Join(item.Entities, ", "))
		}

		sb.WriteString("\n")
	}

	sb.WriteString(annotateOutputFormat)

	return sb.String()
}

// truncateRunes clips by runes, not bytes, so multi-byte titles never get
// cut mid-character.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}
