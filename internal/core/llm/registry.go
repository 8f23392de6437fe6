package llm

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/core/embeddings"
	"github.com/lueurxax/competitor-radar/internal/platform/observability"
)

// Registry errors.
var (
	ErrNoProvidersAvailable = errors.New("no LLM providers available")
	ErrAllProvidersFailed   = errors.New("all LLM providers failed")
	ErrEmptyLLMResponse     = errors.New("empty LLM response")
)

// UsageStore persists per-provider token usage counters.
type UsageStore interface {
	IncrementLLMUsage(ctx context.Context, provider, model, task string, promptTokens, completionTokens int, cost float64) error
}

// Registry manages completion providers with fallback support and
// implements Client.
type Registry struct {
	mu              sync.RWMutex
	providers       map[ProviderName]Provider
	order           []ProviderName // Priority order (highest first)
	circuitBreakers map[ProviderName]*embeddings.CircuitBreaker
	taskConfig      map[TaskType]TaskProviderChain
	modelOverrides  map[TaskType]string
	budgetTracker   *BudgetTracker
	usage           UsageRecorder
	logger          *zerolog.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	bt := NewBudgetTracker(0, logger) // 0 means no limit

	return &Registry{
		providers:       make(map[ProviderName]Provider),
		order:           make([]ProviderName, 0),
		circuitBreakers: make(map[ProviderName]*embeddings.CircuitBreaker),
		taskConfig:      DefaultTaskConfig(),
		modelOverrides:  make(map[TaskType]string),
		budgetTracker:   bt,
		usage:           NewUsageRecorder(bt, nil, logger),
		logger:          logger,
	}
}

// SetUsageStore wires the database usage sink. Until it is called, usage
// is recorded to metrics and the budget tracker only.
func (r *Registry) SetUsageStore(store UsageStore) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.usage = NewUsageRecorder(r.budgetTracker, store, r.logger)
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider, cfg embeddings.CircuitBreakerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	r.providers[name] = p
	r.order = append(r.order, name)
	r.circuitBreakers[name] = embeddings.NewCircuitBreaker(cfg, r.logger)

	// Sort by priority (descending)
	r.sortProvidersByPriority()

	available := MetricValueUnavailable
	if p.IsAvailable() {
		available = MetricValueAvailable
	}

	observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(available)

	r.logger.Info().
		Str(logKeyProvider, string(name)).
		Int("priority", p.Priority()).
		Msg("registered LLM provider")
}

// ProviderCount returns the number of registered providers.
func (r *Registry) ProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.providers)
}

// SetTaskModelOverride forces a model for one task type across the whole
// provider chain. Providers map foreign model names to their own default.
func (r *Registry) SetTaskModelOverride(taskType TaskType, model string) {
	if model == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.modelOverrides[taskType] = model

	r.logger.Debug().
		Str(logKeyTask, string(taskType)).
		Str(logKeyModel, model).
		Msg("set task model override")
}

// getTaskModelOverride returns the model override for a task, if set.
func (r *Registry) getTaskModelOverride(taskType TaskType) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.modelOverrides[taskType]
}

// ClassifyBatch implements Client. It renders the batch prompt, walks the
// provider chain, and parses whatever verdict lines come back. A partial
// parse is a success; only total provider failure is an error.
func (r *Registry) ClassifyBatch(ctx context.Context, articles []ClassifyInput) (ClassifyResult, error) {
	if len(articles) == 0 {
		return ClassifyResult{}, nil
	}

	req := CompletionRequest{Prompt: BuildClassifyPrompt(articles)}

	completion, err := r.completeWithFallback(ctx, TaskTypeClassify, req)
	if err != nil {
		return ClassifyResult{}, err
	}

	result := ParseClassifications(completion.Text, len(articles))
	if result.Skipped > 0 {
		r.logger.Warn().
			Int("skipped", result.Skipped).
			Int("parsed", len(result.Classifications)).
			Msg("classification response had unparseable verdict lines")
	}

	return result, nil
}

// Annotate implements Client.
func (r *Registry) Annotate(ctx context.Context, role AnnotatorRole, items []AnnotateInput) (AnnotateResult, error) {
	if len(items) == 0 {
		return AnnotateResult{}, nil
	}

	req := CompletionRequest{
		System: role.System,
		Prompt: BuildAnnotatePrompt(role, items),
	}

	completion, err := r.completeWithFallback(ctx, TaskTypeAnnotate, req)
	if err != nil {
		return AnnotateResult{}, err
	}

	result := ParseAnnotations(completion.Text, len(items))
	if result.Skipped > 0 {
		r.logger.Warn().
			Str("role", role.Name).
			Int("skipped", result.Skipped).
			Int("parsed", len(result.Annotations)).
			Msg("annotation response had unparseable verdict lines")
	}

	return result, nil
}

// getProviderChainForTask returns the provider/model chain for a task:
// the task-specific chain first, then any remaining registered providers
// as last-resort fallbacks.
func (r *Registry) getProviderChainForTask(taskType TaskType) []ProviderModel {
	r.mu.RLock()
	taskChain, hasConfig := r.taskConfig[taskType]
	order := r.order
	r.mu.RUnlock()

	var providerModels []ProviderModel

	if hasConfig {
		providerModels = taskChain.GetProviderChain()
	}

	seen := make(map[ProviderName]bool)

	for _, pm := range providerModels {
		seen[pm.Provider] = true
	}

	for _, name := range order {
		if !seen[name] {
			providerModels = append(providerModels, ProviderModel{Provider: name, Model: ""})
			seen[name] = true
		}
	}

	return providerModels
}

// completeWithFallback walks the task's provider chain until one call
// succeeds, recording fallback hops.
func (r *Registry) completeWithFallback(ctx context.Context, taskType TaskType, req CompletionRequest) (Completion, error) {
	providerModels := r.getProviderChainForTask(taskType)
	if len(providerModels) == 0 {
		return Completion{}, ErrNoProvidersAvailable
	}

	modelOverride := r.getTaskModelOverride(taskType)

	var lastErr error

	var previousProvider ProviderName

	isFirstProvider := true

	for _, pm := range providerModels {
		model := pm.Model
		if modelOverride != "" {
			model = modelOverride
		}

		result, success, err := r.tryProvider(ctx, pm.Provider, model, taskType, req)
		if err != nil {
			lastErr = err

			if isFirstProvider {
				previousProvider = pm.Provider
			}

			isFirstProvider = false

			continue
		}

		if !success {
			continue
		}

		if !isFirstProvider && previousProvider != "" {
			observability.LLMFallbacks.WithLabelValues(
				string(previousProvider),
				string(pm.Provider),
				string(taskType),
			).Inc()

			r.logger.Info().
				Str(logKeyProvider, string(pm.Provider)).
				Str("from_provider", string(previousProvider)).
				Str(logKeyTask, string(taskType)).
				Msg("used fallback LLM provider")
		}

		return result, nil
	}

	if lastErr != nil {
		return Completion{}, errors.Join(ErrAllProvidersFailed, lastErr)
	}

	return Completion{}, ErrNoProvidersAvailable
}

// tryProvider attempts a completion with one provider, handling circuit
// breaker state, latency metrics, and usage accounting.
func (r *Registry) tryProvider(ctx context.Context, name ProviderName, model string, taskType TaskType, req CompletionRequest) (Completion, bool, error) {
	r.mu.RLock()
	p, exists := r.providers[name]
	r.mu.RUnlock()

	if !exists || !p.IsAvailable() {
		return Completion{}, false, nil
	}

	cb := r.getCircuitBreaker(name)

	if !cb.CanAttempt() {
		observability.LLMCircuitBreakerState.WithLabelValues(string(name)).Set(MetricValueCBOpen)
		observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(MetricValueUnavailable)

		r.logger.Debug().
			Str(logKeyProvider, string(name)).
			Str(logKeyTask, string(taskType)).
			Msg(logMsgCircuitBreakerOpen)

		return Completion{}, false, nil
	}

	req.Model = model
	modelLabel := providerModelLabel(p, model)

	start := time.Now()

	completion, err := p.Complete(ctx, req)

	duration := time.Since(start)

	observability.LLMRequestLatency.WithLabelValues(
		string(name),
		modelLabel,
		string(taskType),
	).Observe(duration.Seconds())

	if err != nil {
		wasOpen := !cb.CanAttempt()
		cb.RecordFailure(embeddings.ProviderName(name))
		isNowOpen := !cb.CanAttempt()

		if !wasOpen && isNowOpen {
			observability.LLMCircuitBreakerOpens.WithLabelValues(string(name)).Inc()
			observability.LLMCircuitBreakerState.WithLabelValues(string(name)).Set(MetricValueCBOpen)
			observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(MetricValueUnavailable)
		}

		r.usage.RecordTokenUsage(string(name), modelLabel, string(taskType), 0, 0, false)

		r.logger.Warn().
			Err(err).
			Str(logKeyProvider, string(name)).
			Str(logKeyModel, modelLabel).
			Str(logKeyTask, string(taskType)).
			Float64("duration_seconds", duration.Seconds()).
			Msg("LLM provider failed, trying fallback")

		return Completion{}, false, err
	}

	cb.RecordSuccess()

	// Circuit breaker recovered - mark as closed and provider as available
	observability.LLMCircuitBreakerState.WithLabelValues(string(name)).Set(MetricValueCBClosed)
	observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(MetricValueAvailable)

	r.usage.RecordTokenUsage(string(name), modelLabel, string(taskType), completion.PromptTokens, completion.CompletionTokens, true)

	return completion, true, nil
}

// providerModelLabel resolves the model name used for metric labels and
// usage rows when the chain leaves the model unset.
func providerModelLabel(p Provider, model string) string {
	if model != "" {
		return model
	}

	if m, ok := p.(interface{ Model() string }); ok {
		return m.Model()
	}

	return ""
}

// sortProvidersByPriority sorts providers by priority in descending order.
func (r *Registry) sortProvidersByPriority() {
	sort.SliceStable(r.order, func(i, j int) bool {
		pi := r.providers[r.order[i]].Priority()
		pj := r.providers[r.order[j]].Priority()

		return pi > pj
	})
}

// getCircuitBreaker returns the circuit breaker for a provider.
func (r *Registry) getCircuitBreaker(name ProviderName) *embeddings.CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.circuitBreakers[name]
}

// ProviderStatus holds status information for a provider.
type ProviderStatus struct {
	Name             ProviderName
	Priority         int
	Available        bool
	CircuitBreakerOK bool
}

// GetProviderStatuses returns status information for all registered providers.
func (r *Registry) GetProviderStatuses() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]ProviderStatus, 0, len(r.order))

	for _, name := range r.order {
		p := r.providers[name]
		cb := r.circuitBreakers[name]

		statuses = append(statuses, ProviderStatus{
			Name:             name,
			Priority:         p.Priority(),
			Available:        p.IsAvailable(),
			CircuitBreakerOK: cb.CanAttempt(),
		})
	}

	return statuses
}

// SetBudgetLimit sets the daily token budget limit.
func (r *Registry) SetBudgetLimit(limit int64) {
	r.budgetTracker.SetDailyLimit(limit)
}

// GetBudgetStatus returns the current budget status.
func (r *Registry) GetBudgetStatus() (dailyTokens, dailyLimit int64, percentage float64) {
	return r.budgetTracker.GetStatus()
}

// SetBudgetAlertCallback sets the callback for budget alerts.
func (r *Registry) SetBudgetAlertCallback(callback func(alert BudgetAlert)) {
	r.budgetTracker.SetAlertCallback(callback)
}

// Ensure Registry implements Client interface.
var _ Client = (*Registry)(nil)
