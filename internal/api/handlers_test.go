package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	db "github.com/lueurxax/competitor-radar/internal/storage"
)

var errBackendDown = errors.New("backend down")

// stubRepo is an in-memory Repository double. Unset fields read as empty;
// call counters record what the handlers asked for.
type stubRepo struct {
	statsErr error
	listErr  error

	stats           *db.Stats
	dropStats       []db.DropReasonStat
	competitorStats []db.CompetitorStat
	intel           []domain.Intel
	intelByID       map[string]*domain.Intel
	annotations     map[string][]domain.Annotation
	runs            []domain.Run
	runByID         map[string]*domain.Run
	daily           *db.LLMUsageSummary
	monthly         *db.LLMUsageSummary

	statsCalls   int
	listCalls    int
	gotFilters   []db.IntelFilter
	gotRunLimits []int
	gotDropSince time.Time
}

func (s *stubRepo) GetStats(_ context.Context) (*db.Stats, error) {
	s.statsCalls++

	if s.statsErr != nil {
		return nil, s.statsErr
	}

	if s.stats == nil {
		return &db.Stats{ByCategory: map[domain.Category]int{}}, nil
	}

	return s.stats, nil
}

func (s *stubRepo) GetCompetitorStats(_ context.Context) ([]db.CompetitorStat, error) {
	return s.competitorStats, nil
}

func (s *stubRepo) GetDropReasonStats(_ context.Context, since time.Time, _ int) ([]db.DropReasonStat, error) {
	s.gotDropSince = since

	return s.dropStats, nil
}

func (s *stubRepo) ListIntel(_ context.Context, filter db.IntelFilter) ([]domain.Intel, error) {
	s.listCalls++
	s.gotFilters = append(s.gotFilters, filter)

	if s.listErr != nil {
		return nil, s.listErr
	}

	return s.intel, nil
}

func (s *stubRepo) GetIntel(_ context.Context, id string) (*domain.Intel, error) {
	//nolint:nilnil // mirrors the storage not-found contract
	return s.intelByID[id], nil
}

func (s *stubRepo) ListAnnotations(_ context.Context, intelID string) ([]domain.Annotation, error) {
	return s.annotations[intelID], nil
}

func (s *stubRepo) ListRuns(_ context.Context, limit int) ([]domain.Run, error) {
	s.gotRunLimits = append(s.gotRunLimits, limit)

	return s.runs, nil
}

func (s *stubRepo) GetRun(_ context.Context, id string) (*domain.Run, error) {
	//nolint:nilnil // mirrors the storage not-found contract
	return s.runByID[id], nil
}

func (s *stubRepo) GetDailyLLMUsage(_ context.Context) (*db.LLMUsageSummary, error) {
	if s.daily == nil {
		return &db.LLMUsageSummary{}, nil
	}

	return s.daily, nil
}

func (s *stubRepo) GetMonthlyLLMUsage(_ context.Context) (*db.LLMUsageSummary, error) {
	if s.monthly == nil {
		return &db.LLMUsageSummary{}, nil
	}

	return s.monthly, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer(repo *stubRepo, competitors ...Competitor) *Server {
	logger := zerolog.Nop()

	return New(Config{Competitors: competitors}, repo, NewTTLCache(time.Minute), &logger)
}

func doGet(t *testing.T, server *Server, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	server.router().ServeHTTP(rec, req)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return rec, body
}

func testIntel(id, competitor, title string, impact float32) domain.Intel {
	novelty := float32(0.9)

	return domain.Intel{
		ID:             id,
		ArticleID:      "article-" + id,
		Summary:        title + " summary",
		Category:       domain.CategoryProduct,
		RelevanceScore: 6,
		ImpactScore:    impact,
		NoveltyScore:   &novelty,
		Entities:       []string{competitor},
		SourceCount:    1,
		CreatedAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		CompetitorID:   competitor,
		Title:          title,
		URL:            "https://example.com/" + id,
		PublishedAt:    time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(&stubRepo{})

	rec, body := doGet(t, server, "/api/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body.Status)
}

func TestHandleStatsAggregates(t *testing.T) {
	repo := &stubRepo{
		stats: &db.Stats{
			TotalIntel:      12,
			DuplicateCount:  3,
			ArticleCount:    40,
			CompetitorCount: 5,
			AvgImpactScore:  6.5,
			AvgNoveltyScore: 0.8,
			ByCategory:      map[domain.Category]int{domain.CategoryPricing: 4, domain.CategoryProduct: 8},
		},
		dropStats: []db.DropReasonStat{{Reason: "already_stored", Count: 9}},
	}
	server := newTestServer(repo)

	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	server.now = func() time.Time { return fixed }

	rec, body := doGet(t, server, "/api/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", body.Status)

	var data struct {
		TotalIntel     int            `json:"total_intel"`
		DuplicateCount int            `json:"duplicate_count"`
		ByCategory     map[string]int `json:"by_category"`
		DropReasons    []struct {
			Reason string `json:"reason"`
			Count  int    `json:"count"`
		} `json:"drop_reasons"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))

	assert.Equal(t, 12, data.TotalIntel)
	assert.Equal(t, 3, data.DuplicateCount)
	assert.Equal(t, map[string]int{"pricing": 4, "product": 8}, data.ByCategory)
	require.Len(t, data.DropReasons, 1)
	assert.Equal(t, "already_stored", data.DropReasons[0].Reason)
	assert.Equal(t, fixed.AddDate(0, 0, -dropStatsWindowDays), repo.gotDropSince)
}

func TestHandleStatsCachesResponse(t *testing.T) {
	repo := &stubRepo{}
	server := newTestServer(repo)

	rec, _ := doGet(t, server, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doGet(t, server, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, repo.statsCalls)
}

func TestHandleStatsErrorNotCached(t *testing.T) {
	repo := &stubRepo{statsErr: errBackendDown}
	server := newTestServer(repo)

	rec, body := doGet(t, server, "/api/stats")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body.Status)

	doGet(t, server, "/api/stats")
	assert.Equal(t, 2, repo.statsCalls)
}

func TestHandleIntelListParsesFilters(t *testing.T) {
	repo := &stubRepo{intel: []domain.Intel{testIntel("intel-1", "roku", "Roku ad platform update", 7)}}
	server := newTestServer(repo)

	rec, body := doGet(t, server,
		"/api/intel?limit=5&category=pricing&competitor=roku&min_impact=6&min_novelty=0.5&sort=impact")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", body.Status)

	require.Len(t, repo.gotFilters, 1)
	assert.Equal(t, db.IntelFilter{
		Limit:        5,
		Category:     domain.CategoryPricing,
		CompetitorID: "roku",
		MinImpact:    6,
		MinNovelty:   0.5,
		Sort:         db.SortImpact,
	}, repo.gotFilters[0])

	var data struct {
		Items []struct {
			ID           string   `json:"id"`
			CompetitorID string   `json:"competitor_id"`
			Title        string   `json:"title"`
			ImpactScore  float32  `json:"impact_score"`
			NoveltyScore *float32 `json:"novelty_score"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))

	require.Len(t, data.Items, 1)
	assert.Equal(t, "intel-1", data.Items[0].ID)
	assert.Equal(t, "roku", data.Items[0].CompetitorID)
	assert.InDelta(t, 7, data.Items[0].ImpactScore, 0.01)
	require.NotNil(t, data.Items[0].NoveltyScore)
	assert.InDelta(t, 0.9, *data.Items[0].NoveltyScore, 0.01)
}

func TestHandleIntelListRejectsBadParams(t *testing.T) {
	repo := &stubRepo{}
	server := newTestServer(repo)

	rec, body := doGet(t, server, "/api/intel?limit=abc&sort=sideways&category=gossip&min_impact=11")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "fail", body.Status)
	assert.Zero(t, repo.listCalls)

	var data struct {
		ValidationErrors map[string]string `json:"validation_errors"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))

	for _, field := range []string{"limit", "sort", "category", "min_impact"} {
		assert.Contains(t, data.ValidationErrors, field)
	}
}

func TestHandleIntelListCachedPerFilter(t *testing.T) {
	repo := &stubRepo{}
	server := newTestServer(repo)

	doGet(t, server, "/api/intel?category=pricing")
	doGet(t, server, "/api/intel?category=pricing")
	assert.Equal(t, 1, repo.listCalls)

	doGet(t, server, "/api/intel?category=product")
	assert.Equal(t, 2, repo.listCalls)
}

func TestHandleIntelDetail(t *testing.T) {
	intel := testIntel("11111111-1111-1111-1111-111111111111", "peacock", "Peacock price change", 8)
	repo := &stubRepo{
		intelByID: map[string]*domain.Intel{intel.ID: &intel},
		annotations: map[string][]domain.Annotation{
			intel.ID: {
				{ID: "ann-1", IntelID: intel.ID, AgentRole: "pricing_agent",
					SoWhat: "undercuts our ad tier", RiskOpportunity: domain.RiskOpportunityRisk,
					Priority: domain.PriorityP1, SuggestedAction: "review tier pricing"},
			},
		},
	}
	server := newTestServer(repo)

	rec, body := doGet(t, server, "/api/intel/"+intel.ID)

	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Intel struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"intel"`
		Annotations []struct {
			AgentRole string `json:"agent_role"`
			Priority  string `json:"priority"`
		} `json:"annotations"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))

	assert.Equal(t, intel.ID, data.Intel.ID)
	assert.Equal(t, "Peacock price change", data.Intel.Title)
	require.Len(t, data.Annotations, 1)
	assert.Equal(t, "pricing_agent", data.Annotations[0].AgentRole)
	assert.Equal(t, domain.PriorityP1, data.Annotations[0].Priority)
}

func TestHandleIntelDetailNotFound(t *testing.T) {
	server := newTestServer(&stubRepo{})

	rec, body := doGet(t, server, "/api/intel/22222222-2222-2222-2222-222222222222")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "fail", body.Status)
	assert.Equal(t, "Intel not found", body.Message)
}

func TestHandleIntelAnnotationsEmptyForUnknown(t *testing.T) {
	server := newTestServer(&stubRepo{})

	rec, body := doGet(t, server, "/api/intel/unknown/annotations")

	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Items []annotationItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Empty(t, data.Items)
}

func TestHandleCompetitorsMergesRegistryAndStats(t *testing.T) {
	lastSeen := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := &stubRepo{
		competitorStats: []db.CompetitorStat{
			{CompetitorID: "roku", ArticleCount: 20, IntelCount: 8, AvgImpact: 6.2, LastIntelAt: &lastSeen},
			{CompetitorID: "pluto-tv", ArticleCount: 4, IntelCount: 1, AvgImpact: 5},
		},
	}
	server := newTestServer(repo,
		Competitor{ID: "roku", Name: "Roku"},
		Competitor{ID: "peacock", Name: "Peacock"},
	)

	rec, body := doGet(t, server, "/api/competitors")

	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Items []competitorItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))

	require.Len(t, data.Items, 3)

	assert.Equal(t, "roku", data.Items[0].ID)
	assert.Equal(t, "Roku", data.Items[0].Name)
	assert.Equal(t, 8, data.Items[0].IntelCount)
	require.NotNil(t, data.Items[0].LastIntelAt)

	// Registry entries without stored data still appear, zeroed.
	assert.Equal(t, "peacock", data.Items[1].ID)
	assert.Zero(t, data.Items[1].ArticleCount)

	// Stored data without a registry entry falls back to the id as name.
	assert.Equal(t, "pluto-tv", data.Items[2].ID)
	assert.Equal(t, "pluto-tv", data.Items[2].Name)
	assert.Equal(t, 4, data.Items[2].ArticleCount)
}

func TestHandleCompetitorIntelPathOverridesQuery(t *testing.T) {
	repo := &stubRepo{}
	server := newTestServer(repo)

	rec, _ := doGet(t, server, "/api/competitors/roku/intel?competitor=peacock&sort=impact")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.gotFilters, 1)
	assert.Equal(t, "roku", repo.gotFilters[0].CompetitorID)
	assert.Equal(t, db.SortImpact, repo.gotFilters[0].Sort)
}

func TestHandleRuns(t *testing.T) {
	finished := time.Date(2026, 3, 1, 6, 5, 0, 0, time.UTC)
	repo := &stubRepo{
		runs: []domain.Run{{
			ID:              "run-1",
			StartedAt:       time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
			FinishedAt:      &finished,
			Status:          domain.RunStatusPartial,
			ArticlesFetched: 30,
			IntelCreated:    12,
			Notes:           "2 intel saves failed",
		}},
	}
	server := newTestServer(repo)

	rec, body := doGet(t, server, "/api/runs?limit=3")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int{3}, repo.gotRunLimits)

	var data struct {
		Items []runItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))

	require.Len(t, data.Items, 1)
	assert.Equal(t, "run-1", data.Items[0].ID)
	assert.Equal(t, string(domain.RunStatusPartial), data.Items[0].Status)
	assert.Equal(t, 12, data.Items[0].IntelCreated)
	assert.Equal(t, "2 intel saves failed", data.Items[0].Notes)
}

func TestHandleRunsDefaultLimit(t *testing.T) {
	repo := &stubRepo{}
	server := newTestServer(repo)

	rec, _ := doGet(t, server, "/api/runs")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{defaultRunsLimit}, repo.gotRunLimits)
}

func TestHandleRunDetailNotFound(t *testing.T) {
	server := newTestServer(&stubRepo{})

	rec, body := doGet(t, server, "/api/runs/33333333-3333-3333-3333-333333333333")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Run not found", body.Message)
}

func TestHandleUsage(t *testing.T) {
	repo := &stubRepo{
		daily: &db.LLMUsageSummary{
			TotalPromptTokens:     1000,
			TotalCompletionTokens: 200,
			TotalRequests:         4,
			TotalCostUSD:          0.12,
			ByProvider: map[string]db.ProviderUsage{
				"openai": {Provider: "openai", PromptTokens: 1000, CompletionTokens: 200, RequestCount: 4, CostUSD: 0.12},
			},
			ByTask: map[string]db.TaskUsage{
				"classify": {Task: "classify", PromptTokens: 1000, CompletionTokens: 200, RequestCount: 4, CostUSD: 0.12},
			},
		},
		monthly: &db.LLMUsageSummary{TotalPromptTokens: 50000, TotalRequests: 120, TotalCostUSD: 3.4},
	}
	server := newTestServer(repo)

	rec, body := doGet(t, server, "/api/usage")

	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Daily   usageSummaryItem `json:"daily"`
		Monthly usageSummaryItem `json:"monthly"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))

	assert.Equal(t, int64(1000), data.Daily.PromptTokens)
	assert.InDelta(t, 0.12, data.Daily.CostUSD, 0.001)
	require.Contains(t, data.Daily.ByProvider, "openai")
	assert.Equal(t, int64(4), data.Daily.ByProvider["openai"].Requests)
	require.Contains(t, data.Daily.ByTask, "classify")

	assert.Equal(t, int64(50000), data.Monthly.PromptTokens)
	assert.Equal(t, int64(120), data.Monthly.Requests)
}

func TestMetricsEndpointExposesCounters(t *testing.T) {
	server := newTestServer(&stubRepo{})

	// Prime the request counter through a routed call first.
	rec, _ := doGet(t, server, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	server.router().ServeHTTP(metricsRec, req)

	require.Equal(t, http.StatusOK, metricsRec.Code)
	assert.True(t, strings.Contains(metricsRec.Body.String(), "radar_http_requests_total"))
}

func TestHandleUnknownRouteReturnsEnvelope(t *testing.T) {
	server := newTestServer(&stubRepo{})

	rec, body := doGet(t, server, "/api/nope")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "fail", body.Status)
}
