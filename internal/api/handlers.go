package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	db "github.com/lueurxax/competitor-radar/internal/storage"
)

type intelItem struct {
	ID             string     `json:"id"`
	CompetitorID   string     `json:"competitor_id"`
	Title          string     `json:"title"`
	URL            string     `json:"url"`
	Summary        string     `json:"summary"`
	Category       string     `json:"category"`
	ImpactScore    float32    `json:"impact_score"`
	RelevanceScore float32    `json:"relevance_score"`
	NoveltyScore   *float32   `json:"novelty_score,omitempty"`
	SourceCount    int        `json:"source_count"`
	RelatedURLs    []string   `json:"related_urls,omitempty"`
	Entities       []string   `json:"entities,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type annotationItem struct {
	ID              string    `json:"id"`
	IntelID         string    `json:"intel_id"`
	AgentRole       string    `json:"agent_role"`
	SoWhat          string    `json:"so_what"`
	RiskOpportunity string    `json:"risk_opportunity"`
	Priority        string    `json:"priority"`
	SuggestedAction string    `json:"suggested_action"`
	CreatedAt       time.Time `json:"created_at"`
}

type runItem struct {
	ID                     string     `json:"id"`
	StartedAt              time.Time  `json:"started_at"`
	FinishedAt             *time.Time `json:"finished_at,omitempty"`
	Status                 string     `json:"status"`
	ArticlesFetched        int        `json:"articles_fetched"`
	IntelCreated           int        `json:"intel_created"`
	DuplicatesFound        int        `json:"duplicates_found"`
	SkippedClassifications int        `json:"skipped_classifications"`
	Notes                  string     `json:"notes,omitempty"`
}

type competitorItem struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	ArticleCount int        `json:"article_count"`
	IntelCount   int        `json:"intel_count"`
	AvgImpact    float32    `json:"avg_impact"`
	LastIntelAt  *time.Time `json:"last_intel_at,omitempty"`
}

type dropReasonItem struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

type statsResponse struct {
	TotalIntel      int              `json:"total_intel"`
	DuplicateCount  int              `json:"duplicate_count"`
	ArticleCount    int              `json:"article_count"`
	CompetitorCount int              `json:"competitor_count"`
	AvgImpactScore  float32          `json:"avg_impact_score"`
	AvgNoveltyScore float32          `json:"avg_novelty_score"`
	ByCategory      map[string]int   `json:"by_category"`
	DropReasons     []dropReasonItem `json:"drop_reasons"`
}

type usageBucket struct {
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	Requests         int64   `json:"requests"`
	CostUSD          float64 `json:"cost_usd"`
}

type usageSummaryItem struct {
	PromptTokens     int64                  `json:"prompt_tokens"`
	CompletionTokens int64                  `json:"completion_tokens"`
	Requests         int64                  `json:"requests"`
	CostUSD          float64                `json:"cost_usd"`
	ByProvider       map[string]usageBucket `json:"by_provider"`
	ByTask           map[string]usageBucket `json:"by_task"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "competitor-radar",
		"time":    s.now().UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	payload, err := s.cached(cacheKeyStats, func() (any, error) {
		return s.queryStats(c.Request().Context())
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")

		return internalError(c, "Failed to load stats")
	}

	return success(c, payload)
}

func (s *Server) queryStats(ctx context.Context) (*statsResponse, error) {
	stats, err := s.database.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("query corpus stats: %w", err)
	}

	since := s.now().AddDate(0, 0, -dropStatsWindowDays)

	dropStats, err := s.database.GetDropReasonStats(ctx, since, dropStatsLimit)
	if err != nil {
		return nil, fmt.Errorf("query drop reason stats: %w", err)
	}

	byCategory := make(map[string]int, len(stats.ByCategory))
	for category, count := range stats.ByCategory {
		byCategory[string(category)] = count
	}

	dropReasons := make([]dropReasonItem, 0, len(dropStats))
	for _, stat := range dropStats {
		dropReasons = append(dropReasons, dropReasonItem{Reason: stat.Reason, Count: stat.Count})
	}

	return &statsResponse{
		TotalIntel:      stats.TotalIntel,
		DuplicateCount:  stats.DuplicateCount,
		ArticleCount:    stats.ArticleCount,
		CompetitorCount: stats.CompetitorCount,
		AvgImpactScore:  stats.AvgImpactScore,
		AvgNoveltyScore: stats.AvgNoveltyScore,
		ByCategory:      byCategory,
		DropReasons:     dropReasons,
	}, nil
}

func (s *Server) handleIntelList(c echo.Context) error {
	filter, fieldErrors := parseIntelFilter(c)
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	return s.listIntel(c, filter)
}

func (s *Server) handleCompetitorIntel(c echo.Context) error {
	competitorID := strings.TrimSpace(c.Param("id"))
	if competitorID == "" {
		return failValidation(c, map[string]string{"id": "is required"})
	}

	filter, fieldErrors := parseIntelFilter(c)
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	filter.CompetitorID = competitorID

	return s.listIntel(c, filter)
}

func (s *Server) listIntel(c echo.Context, filter db.IntelFilter) error {
	payload, err := s.cached(intelCacheKey(filter), func() (any, error) {
		items, err := s.database.ListIntel(c.Request().Context(), filter)
		if err != nil {
			return nil, fmt.Errorf("query intel list: %w", err)
		}

		return intelListPayload(items, filter), nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("query intel failed")

		return internalError(c, "Failed to load intel")
	}

	return success(c, payload)
}

func (s *Server) handleIntelDetail(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))

	intel, err := s.database.GetIntel(c.Request().Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str(logKeyIntel, id).Msg("query intel failed")

		return internalError(c, "Failed to load intel")
	}

	if intel == nil {
		return failNotFound(c, "Intel not found")
	}

	annotations, err := s.database.ListAnnotations(c.Request().Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str(logKeyIntel, id).Msg("query annotations failed")

		return internalError(c, "Failed to load annotations")
	}

	return success(c, map[string]any{
		"intel":       toIntelItem(*intel),
		"annotations": toAnnotationItems(annotations),
	})
}

func (s *Server) handleIntelAnnotations(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))

	annotations, err := s.database.ListAnnotations(c.Request().Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str(logKeyIntel, id).Msg("query annotations failed")

		return internalError(c, "Failed to load annotations")
	}

	return success(c, map[string]any{
		"items": toAnnotationItems(annotations),
	})
}

func (s *Server) handleCompetitors(c echo.Context) error {
	stats, err := s.database.GetCompetitorStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query competitor stats failed")

		return internalError(c, "Failed to load competitors")
	}

	byID := make(map[string]db.CompetitorStat, len(stats))
	for _, stat := range stats {
		byID[stat.CompetitorID] = stat
	}

	items := make([]competitorItem, 0, len(s.cfg.Competitors)+len(stats))
	seen := make(map[string]bool, len(s.cfg.Competitors))

	for _, competitor := range s.cfg.Competitors {
		stat := byID[competitor.ID]
		items = append(items, competitorItem{
			ID:           competitor.ID,
			Name:         competitor.Name,
			ArticleCount: stat.ArticleCount,
			IntelCount:   stat.IntelCount,
			AvgImpact:    stat.AvgImpact,
			LastIntelAt:  stat.LastIntelAt,
		})
		seen[competitor.ID] = true
	}

	// Competitors dropped from the registry keep their stored footprint.
	for _, stat := range stats {
		if seen[stat.CompetitorID] {
			continue
		}

		items = append(items, competitorItem{
			ID:           stat.CompetitorID,
			Name:         stat.CompetitorID,
			ArticleCount: stat.ArticleCount,
			IntelCount:   stat.IntelCount,
			AvgImpact:    stat.AvgImpact,
			LastIntelAt:  stat.LastIntelAt,
		})
	}

	return success(c, map[string]any{"items": items})
}

func (s *Server) handleRuns(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultRunsLimit, 1, maxRunsLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	runs, err := s.database.ListRuns(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query runs failed")

		return internalError(c, "Failed to load runs")
	}

	items := make([]runItem, 0, len(runs))
	for _, run := range runs {
		items = append(items, toRunItem(run))
	}

	return success(c, map[string]any{"items": items})
}

func (s *Server) handleRunDetail(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))

	run, err := s.database.GetRun(c.Request().Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str(logKeyRun, id).Msg("query run failed")

		return internalError(c, "Failed to load run")
	}

	if run == nil {
		return failNotFound(c, "Run not found")
	}

	return success(c, toRunItem(*run))
}

func (s *Server) handleUsage(c echo.Context) error {
	daily, err := s.database.GetDailyLLMUsage(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query daily usage failed")

		return internalError(c, "Failed to load usage")
	}

	monthly, err := s.database.GetMonthlyLLMUsage(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query monthly usage failed")

		return internalError(c, "Failed to load usage")
	}

	return success(c, map[string]any{
		"daily":   toUsageSummaryItem(daily),
		"monthly": toUsageSummaryItem(monthly),
	})
}

func parseIntelFilter(c echo.Context) (db.IntelFilter, map[string]string) {
	fieldErrors := map[string]string{}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultIntelLimit, 1, maxIntelLimit)
	if err != nil {
		fieldErrors["limit"] = err.Error()
	}

	category := strings.TrimSpace(strings.ToLower(c.QueryParam("category")))
	if category != "" && !knownCategory(category) {
		fieldErrors["category"] = "unknown category"
	}

	minImpact, err := parseScore(c.QueryParam("min_impact"), domain.ScoreMax)
	if err != nil {
		fieldErrors["min_impact"] = err.Error()
	}

	minNovelty, err := parseScore(c.QueryParam("min_novelty"), 1)
	if err != nil {
		fieldErrors["min_novelty"] = err.Error()
	}

	sort := strings.TrimSpace(strings.ToLower(c.QueryParam("sort")))
	switch sort {
	case "", db.SortRecent, db.SortImpact:
	default:
		fieldErrors["sort"] = "must be recent or impact"
	}

	if len(fieldErrors) > 0 {
		return db.IntelFilter{}, fieldErrors
	}

	return db.IntelFilter{
		Limit:        limit,
		Category:     domain.Category(category),
		CompetitorID: strings.TrimSpace(c.QueryParam("competitor")),
		MinImpact:    minImpact,
		MinNovelty:   minNovelty,
		Sort:         sort,
	}, nil
}

func knownCategory(raw string) bool {
	for _, category := range domain.Categories {
		if string(category) == raw {
			return true
		}
	}

	return false
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}

	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}

	return value, nil
}

func parseScore(raw string, maxValue float32) (float32, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}

	value, err := strconv.ParseFloat(trimmed, 32)
	if err != nil {
		return 0, fmt.Errorf("must be a number")
	}

	if value < 0 || float32(value) > maxValue {
		return 0, fmt.Errorf("must be between 0 and %g", maxValue)
	}

	return float32(value), nil
}

func intelListPayload(items []domain.Intel, filter db.IntelFilter) map[string]any {
	return map[string]any{
		"items": toIntelItems(items),
		"filters": map[string]any{
			"limit":       filter.Limit,
			"category":    string(filter.Category),
			"competitor":  filter.CompetitorID,
			"min_impact":  filter.MinImpact,
			"min_novelty": filter.MinNovelty,
			"sort":        filter.Sort,
		},
	}
}

func toIntelItems(items []domain.Intel) []intelItem {
	out := make([]intelItem, 0, len(items))
	for _, item := range items {
		out = append(out, toIntelItem(item))
	}

	return out
}

func toIntelItem(intel domain.Intel) intelItem {
	return intelItem{
		ID:             intel.ID,
		CompetitorID:   intel.CompetitorID,
		Title:          intel.Title,
		URL:            intel.URL,
		Summary:        intel.Summary,
		Category:       string(intel.Category),
		ImpactScore:    intel.ImpactScore,
		RelevanceScore: intel.RelevanceScore,
		NoveltyScore:   intel.NoveltyScore,
		SourceCount:    intel.SourceCount,
		RelatedURLs:    intel.RelatedURLs,
		Entities:       intel.Entities,
		PublishedAt:    timePtr(intel.PublishedAt),
		CreatedAt:      intel.CreatedAt,
	}
}

func toAnnotationItems(annotations []domain.Annotation) []annotationItem {
	out := make([]annotationItem, 0, len(annotations))
	for _, annotation := range annotations {
		out = append(out, annotationItem{
			ID:              annotation.ID,
			IntelID:         annotation.IntelID,
			AgentRole:       annotation.AgentRole,
			SoWhat:          annotation.SoWhat,
			RiskOpportunity: annotation.RiskOpportunity,
			Priority:        annotation.Priority,
			SuggestedAction: annotation.SuggestedAction,
			CreatedAt:       annotation.CreatedAt,
		})
	}

	return out
}

func toRunItem(run domain.Run) runItem {
	return runItem{
		ID:                     run.ID,
		StartedAt:              run.StartedAt,
		FinishedAt:             run.FinishedAt,
		Status:                 string(run.Status),
		ArticlesFetched:        run.ArticlesFetched,
		IntelCreated:           run.IntelCreated,
		DuplicatesFound:        run.DuplicatesFound,
		SkippedClassifications: run.SkippedClassifications,
		Notes:                  run.Notes,
	}
}

func toUsageSummaryItem(summary *db.LLMUsageSummary) usageSummaryItem {
	item := usageSummaryItem{
		PromptTokens:     summary.TotalPromptTokens,
		CompletionTokens: summary.TotalCompletionTokens,
		Requests:         summary.TotalRequests,
		CostUSD:          summary.TotalCostUSD,
		ByProvider:       make(map[string]usageBucket, len(summary.ByProvider)),
		ByTask:           make(map[string]usageBucket, len(summary.ByTask)),
	}

	for name, usage := range summary.ByProvider {
		item.ByProvider[name] = usageBucket{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			Requests:         usage.RequestCount,
			CostUSD:          usage.CostUSD,
		}
	}

	for name, usage := range summary.ByTask {
		item.ByTask[name] = usageBucket{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			Requests:         usage.RequestCount,
			CostUSD:          usage.CostUSD,
		}
	}

	return item
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}
