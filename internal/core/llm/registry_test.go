package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	"github.com/lueurxax/competitor-radar/internal/core/embeddings"
)

var errProviderDown = errors.New("provider down")

// stubProvider scripts one provider's behaviour for registry tests.
type stubProvider struct {
	name      ProviderName
	priority  int
	available bool
	text      string
	err       error
	calls     int
	lastReq   CompletionRequest
}

func (s *stubProvider) Name() ProviderName { return s.name }
func (s *stubProvider) IsAvailable() bool  { return s.available }
func (s *stubProvider) Priority() int      { return s.priority }

func (s *stubProvider) Complete(_ context.Context, req CompletionRequest) (Completion, error) {
	s.calls++
	s.lastReq = req

	if s.err != nil {
		return Completion{}, s.err
	}

	return Completion{Text: s.text, PromptTokens: 100, CompletionTokens: 20}, nil
}

func testRegistry(t *testing.T, providers ...Provider) *Registry {
	t.Helper()

	nop := zerolog.Nop()
	registry := NewRegistry(&nop)

	cfg := embeddings.CircuitBreakerConfig{Threshold: 5, ResetAfter: time.Minute}
	for _, p := range providers {
		registry.Register(p, cfg)
	}

	return registry
}

func TestClassifyBatchUsesPrimary(t *testing.T) {
	primary := &stubProvider{
		name:      ProviderOpenAI,
		priority:  PriorityPrimary,
		available: true,
		text:      "1|product|7|8|Netflix|Netflix launched a games tier",
	}
	fallback := &stubProvider{name: ProviderAnthropic, priority: PriorityFallback, available: true}

	registry := testRegistry(t, primary, fallback)

	result, err := registry.ClassifyBatch(context.Background(), []ClassifyInput{
		{Competitor: "netflix", Title: "Netflix launches games", Snippet: "A new tier."},
	})
	if err != nil {
		t.Fatalf("ClassifyBatch() error = %v", err)
	}

	if len(result.Classifications) != 1 {
		t.Fatalf("got %d classifications, want 1", len(result.Classifications))
	}

	if result.Classifications[0].Category != domain.CategoryProduct {
		t.Errorf("category = %q, want product", result.Classifications[0].Category)
	}

	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want 1", primary.calls)
	}

	if fallback.calls != 0 {
		t.Errorf("fallback calls = %d, want 0", fallback.calls)
	}
}

func TestClassifyBatchFallsBack(t *testing.T) {
	primary := &stubProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: true, err: errProviderDown}
	fallback := &stubProvider{
		name:      ProviderAnthropic,
		priority:  PriorityFallback,
		available: true,
		text:      "1|pricing|6|6|Roku|Roku cut prices 15%",
	}

	registry := testRegistry(t, primary, fallback)

	result, err := registry.ClassifyBatch(context.Background(), []ClassifyInput{
		{Competitor: "roku", Title: "Roku price cut", Snippet: "15% off devices."},
	})
	if err != nil {
		t.Fatalf("ClassifyBatch() error = %v", err)
	}

	if len(result.Classifications) != 1 || result.Classifications[0].Category != domain.CategoryPricing {
		t.Errorf("fallback result not used: %+v", result.Classifications)
	}

	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.calls, fallback.calls)
	}
}

func TestClassifyBatchAllProvidersFail(t *testing.T) {
	primary := &stubProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: true, err: errProviderDown}

	registry := testRegistry(t, primary)

	_, err := registry.ClassifyBatch(context.Background(), []ClassifyInput{
		{Competitor: "netflix", Title: "t", Snippet: "s"},
	})
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Errorf("error = %v, want ErrAllProvidersFailed", err)
	}

	if !errors.Is(err, errProviderDown) {
		t.Errorf("error chain lost the provider error: %v", err)
	}
}

func TestClassifyBatchNoProviders(t *testing.T) {
	registry := testRegistry(t)

	_, err := registry.ClassifyBatch(context.Background(), []ClassifyInput{
		{Competitor: "netflix", Title: "t", Snippet: "s"},
	})
	if !errors.Is(err, ErrNoProvidersAvailable) {
		t.Errorf("error = %v, want ErrNoProvidersAvailable", err)
	}
}

func TestClassifyBatchEmptyInput(t *testing.T) {
	primary := &stubProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: true}

	registry := testRegistry(t, primary)

	result, err := registry.ClassifyBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("ClassifyBatch() error = %v", err)
	}

	if len(result.Classifications) != 0 || primary.calls != 0 {
		t.Errorf("empty batch should not call providers")
	}
}

func TestCircuitBreakerSkipsProvider(t *testing.T) {
	failing := &stubProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: true, err: errProviderDown}

	nop := zerolog.Nop()
	registry := NewRegistry(&nop)
	registry.Register(failing, embeddings.CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Minute})

	input := []ClassifyInput{{Competitor: "netflix", Title: "t", Snippet: "s"}}

	for i := 0; i < 2; i++ {
		if _, err := registry.ClassifyBatch(context.Background(), input); !errors.Is(err, ErrAllProvidersFailed) {
			t.Fatalf("attempt %d: error = %v, want ErrAllProvidersFailed", i, err)
		}
	}

	// Circuit is now open; the provider must not be called again.
	if _, err := registry.ClassifyBatch(context.Background(), input); !errors.Is(err, ErrNoProvidersAvailable) {
		t.Errorf("error = %v, want ErrNoProvidersAvailable while circuit open", err)
	}

	if failing.calls != 2 {
		t.Errorf("calls = %d, want 2 (circuit open)", failing.calls)
	}
}

func TestTaskModelOverride(t *testing.T) {
	primary := &stubProvider{
		name:      ProviderOpenAI,
		priority:  PriorityPrimary,
		available: true,
		text:      "1|strategic|7|7|Netflix|Netflix did a thing with numbers 42",
	}

	registry := testRegistry(t, primary)
	registry.SetTaskModelOverride(TaskTypeClassify, "gpt-4.1-mini")

	if _, err := registry.ClassifyBatch(context.Background(), []ClassifyInput{{Competitor: "netflix", Title: "t", Snippet: "s"}}); err != nil {
		t.Fatalf("ClassifyBatch() error = %v", err)
	}

	if primary.lastReq.Model != "gpt-4.1-mini" {
		t.Errorf("model = %q, want override", primary.lastReq.Model)
	}
}

func TestAnnotateCarriesSystemPrompt(t *testing.T) {
	primary := &stubProvider{
		name:      ProviderOpenAI,
		priority:  PriorityPrimary,
		available: true,
		text:      "1|risk|P0|Consolidation removes a partner.|Track the deal",
	}

	registry := testRegistry(t, primary)

	role := Annotators[0]

	result, err := registry.Annotate(context.Background(), role, []AnnotateInput{
		{Competitor: "netflix", Category: domain.CategoryStrategic, Impact: 9, Relevance: 9, Summary: "Netflix acquired Warner Bros for $82.7 billion"},
	})
	if err != nil {
		t.Fatalf("Annotate() error = %v", err)
	}

	if primary.lastReq.System != role.System {
		t.Error("system prompt not forwarded to provider")
	}

	if len(result.Annotations) != 1 || result.Annotations[0].Priority != domain.PriorityP0 {
		t.Errorf("annotation not parsed: %+v", result.Annotations)
	}
}

func TestGetProviderStatusesOrdered(t *testing.T) {
	second := &stubProvider{name: ProviderAnthropic, priority: PriorityFallback, available: true}
	first := &stubProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: false}

	registry := testRegistry(t, second, first)

	statuses := registry.GetProviderStatuses()
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}

	if statuses[0].Name != ProviderOpenAI || statuses[1].Name != ProviderAnthropic {
		t.Errorf("statuses not in priority order: %+v", statuses)
	}

	if statuses[0].Available {
		t.Error("unavailable provider reported as available")
	}
}

func TestUnavailableProviderSkipped(t *testing.T) {
	unavailable := &stubProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: false}
	mock := &stubProvider{
		name:      ProviderMock,
		priority:  PriorityMock,
		available: true,
		text:      "1|strategic|6|6|Netflix|Netflix counted to 10",
	}

	registry := testRegistry(t, unavailable, mock)

	result, err := registry.ClassifyBatch(context.Background(), []ClassifyInput{{Competitor: "netflix", Title: "t", Snippet: "s"}})
	if err != nil {
		t.Fatalf("ClassifyBatch() error = %v", err)
	}

	if unavailable.calls != 0 {
		t.Error("unavailable provider was called")
	}

	if len(result.Classifications) != 1 {
		t.Errorf("mock fallback not used: %+v", result)
	}
}
