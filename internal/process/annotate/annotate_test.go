package annotate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	"github.com/lueurxax/competitor-radar/internal/core/llm"
)

var errBackendDown = errors.New("backend down")

type stubRepo struct {
	pending map[string][]domain.Intel
	loadErr error
	saveErr error

	// conflicts holds intel IDs the role has already annotated.
	conflicts map[string]bool

	saved    []domain.Annotation
	loadedAt []time.Time
}

func (s *stubRepo) PendingIntelForRole(_ context.Context, role string, _ []domain.Category, _, _ float32, since time.Time, _ int) ([]domain.Intel, error) {
	s.loadedAt = append(s.loadedAt, since)

	if s.loadErr != nil {
		return nil, s.loadErr
	}

	return s.pending[role], nil
}

func (s *stubRepo) SaveAnnotation(_ context.Context, annotation domain.Annotation) (*domain.Annotation, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}

	if s.conflicts[annotation.IntelID] {
		return nil, nil //nolint:nilnil // mirrors the storage conflict contract
	}

	s.saved = append(s.saved, annotation)

	return &annotation, nil
}

type stubOracle struct {
	result llm.AnnotateResult
	err    error
	calls  int
	roles  []string
}

func (s *stubOracle) Annotate(_ context.Context, role llm.AnnotatorRole, _ []llm.AnnotateInput) (llm.AnnotateResult, error) {
	s.calls++
	s.roles = append(s.roles, role.Name)

	if s.err != nil {
		return llm.AnnotateResult{}, s.err
	}

	return s.result, nil
}

func testRole(name string) llm.AnnotatorRole {
	return llm.AnnotatorRole{
		Name:       name,
		Domain:     "Test Desk",
		Categories: []domain.Category{domain.CategoryStrategic},
	}
}

func testIntel(id, competitor, summary string) domain.Intel {
	return domain.Intel{
		ID:             id,
		CompetitorID:   competitor,
		Summary:        summary,
		Category:       domain.CategoryStrategic,
		ImpactScore:    7,
		RelevanceScore: 6,
	}
}

func testWorker(repo *stubRepo, oracle *stubOracle, roles ...llm.AnnotatorRole) *Worker {
	logger := zerolog.Nop()

	return NewWorker(Config{Roles: roles}, repo, oracle, &logger)
}

func TestRunCycleAnnotatesPending(t *testing.T) {
	repo := &stubRepo{pending: map[string][]domain.Intel{
		"strategic_desk": {
			testIntel("intel-1", "roku", "Roku signs a retail media partnership"),
			testIntel("intel-2", "peacock", "Peacock raises ad-free pricing"),
		},
	}}
	oracle := &stubOracle{result: llm.AnnotateResult{Annotations: []llm.Annotation{
		{Index: 1, RiskOpportunity: domain.RiskOpportunityRisk, Priority: domain.PriorityP1, SoWhat: "Ad inventory pressure", SuggestedAction: "Brief the ads team"},
		{Index: 2, RiskOpportunity: domain.RiskOpportunityOpportunity, Priority: domain.PriorityP2, SoWhat: "Price umbrella widens", SuggestedAction: "Revisit tier pricing"},
	}}}

	w := testWorker(repo, oracle, testRole("strategic_desk"))
	w.runCycle(context.Background())

	require.Len(t, repo.saved, 2)
	assert.Equal(t, "intel-1", repo.saved[0].IntelID)
	assert.Equal(t, "strategic_desk", repo.saved[0].AgentRole)
	assert.Equal(t, domain.RiskOpportunityRisk, repo.saved[0].RiskOpportunity)
	assert.Equal(t, domain.PriorityP1, repo.saved[0].Priority)
	assert.Equal(t, "Ad inventory pressure", repo.saved[0].SoWhat)
	assert.Equal(t, "intel-2", repo.saved[1].IntelID)
}

func TestRunCycleEmptyBacklogSkipsOracle(t *testing.T) {
	repo := &stubRepo{}
	oracle := &stubOracle{}

	w := testWorker(repo, oracle, testRole("strategic_desk"))
	w.runCycle(context.Background())

	assert.Zero(t, oracle.calls)
	assert.Empty(t, repo.saved)
}

func TestRunCycleOracleFailureSkipsCycle(t *testing.T) {
	repo := &stubRepo{pending: map[string][]domain.Intel{
		"strategic_desk": {testIntel("intel-1", "fubo", "Fubo lands a league streaming deal")},
	}}
	oracle := &stubOracle{err: errBackendDown}

	w := testWorker(repo, oracle, testRole("strategic_desk"))
	w.runCycle(context.Background())

	assert.Equal(t, 1, oracle.calls)
	assert.Empty(t, repo.saved)
}

func TestRunCycleRolesIndependent(t *testing.T) {
	repo := &stubRepo{pending: map[string][]domain.Intel{
		"product_desk": {testIntel("intel-9", "plex", "Plex redesigns its discovery surface")},
	}}
	oracle := &stubOracle{result: llm.AnnotateResult{Annotations: []llm.Annotation{
		{Index: 1, RiskOpportunity: domain.RiskOpportunityNeutral, Priority: domain.PriorityP2, SoWhat: "UX parity check"},
	}}}

	w := testWorker(repo, oracle, testRole("strategic_desk"), testRole("product_desk"))
	w.runCycle(context.Background())

	// strategic_desk has no backlog; product_desk still annotates.
	assert.Equal(t, []string{"product_desk"}, oracle.roles)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "intel-9", repo.saved[0].IntelID)
}

func TestSaveAnnotationsIgnoresOutOfRangeIndex(t *testing.T) {
	repo := &stubRepo{pending: map[string][]domain.Intel{
		"strategic_desk": {testIntel("intel-1", "sling", "Sling reshuffles its base packages")},
	}}
	oracle := &stubOracle{result: llm.AnnotateResult{Annotations: []llm.Annotation{
		{Index: 0, SoWhat: "bad index"},
		{Index: 5, SoWhat: "bad index"},
		{Index: 1, RiskOpportunity: domain.RiskOpportunityNeutral, Priority: domain.PriorityP2, SoWhat: "Packaging follow-up"},
	}}}

	w := testWorker(repo, oracle, testRole("strategic_desk"))
	w.runCycle(context.Background())

	require.Len(t, repo.saved, 1)
	assert.Equal(t, "Packaging follow-up", repo.saved[0].SoWhat)
}

func TestRunCycleConflictNotSavedTwice(t *testing.T) {
	repo := &stubRepo{
		pending: map[string][]domain.Intel{
			"strategic_desk": {testIntel("intel-1", "xumo", "Xumo expands retail distribution")},
		},
		conflicts: map[string]bool{"intel-1": true},
	}
	oracle := &stubOracle{result: llm.AnnotateResult{Annotations: []llm.Annotation{
		{Index: 1, RiskOpportunity: domain.RiskOpportunityNeutral, Priority: domain.PriorityP2, SoWhat: "Distribution watch"},
	}}}

	w := testWorker(repo, oracle, testRole("strategic_desk"))
	w.runCycle(context.Background())

	assert.Empty(t, repo.saved)
}

func TestRunCycleUsesLookbackCutoff(t *testing.T) {
	repo := &stubRepo{}
	oracle := &stubOracle{}

	w := testWorker(repo, oracle, testRole("strategic_desk"))
	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	w.runCycle(context.Background())

	require.Len(t, repo.loadedAt, 1)
	assert.Equal(t, fixed.AddDate(0, 0, -defaultLookbackDays), repo.loadedAt[0])
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, defaultPollInterval, cfg.PollInterval)
	assert.Equal(t, defaultBatchSize, cfg.BatchSize)
	assert.InDelta(t, defaultMinImpact, cfg.MinImpact, 0.001)
	assert.Equal(t, len(llm.Annotators), len(cfg.Roles))
}
