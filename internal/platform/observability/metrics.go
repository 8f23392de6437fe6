package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_pipeline_runs_total",
		Help: "The total number of pipeline runs by final status",
	}, []string{"status"})

	PipelineRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "radar_pipeline_run_duration_seconds",
		Help:    "Duration in seconds of a full pipeline run",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300, 600},
	})

	ArticlesCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_articles_collected_total",
		Help: "Total number of article candidates collected by origin",
	}, []string{"origin"})

	DropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_drops_total",
		Help: "Total number of dropped candidates by stage and reason",
	}, []string{"stage", "reason"})

	IntelCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_intel_created_total",
		Help: "Total number of intel items created",
	})

	DuplicatesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_duplicates_detected_total",
		Help: "Total number of intel items marked as duplicates of earlier intel",
	})

	NoveltyScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "radar_novelty_score",
		Help:    "Distribution of novelty scores assigned to intel items",
		Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	// Annotation worker metrics
	AnnotationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_annotations_total",
		Help: "Total number of annotations produced by agent role",
	}, []string{"role"})

	AnnotationBacklog = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "radar_annotation_backlog",
		Help: "Number of intel items awaiting annotation per agent role",
	}, []string{"role"})

	// HTTP API metrics
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_http_requests_total",
		Help: "Total number of API requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radar_http_request_duration_seconds",
		Help:    "Duration of API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	APICacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_api_cache_hits_total",
		Help: "Total number of API response cache hits",
	})

	APICacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_api_cache_misses_total",
		Help: "Total number of API response cache misses",
	})

	// LLM token usage metrics
	LLMTokensPrompt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_llm_tokens_prompt_total",
		Help: "Total number of prompt tokens used",
	}, []string{"provider", "model", "task"})

	LLMTokensCompletion = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_llm_tokens_completion_total",
		Help: "Total number of completion tokens used",
	}, []string{"provider", "model", "task"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_llm_requests_total",
		Help: "Total number of LLM requests",
	}, []string{"provider", "model", "task", "status"})

	// LLM fallback and circuit breaker metrics
	LLMFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_llm_fallbacks_total",
		Help: "Total number of LLM fallback events",
	}, []string{"from_provider", "to_provider", "task"})

	LLMCircuitBreakerOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_llm_circuit_breaker_opens_total",
		Help: "Total number of times LLM circuit breaker opened",
	}, []string{"provider"})

	LLMCircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "radar_llm_circuit_breaker_state",
		Help: "Current state of LLM circuit breaker (0=closed, 1=open)",
	}, []string{"provider"})

	// LLM latency by provider and task
	LLMRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radar_llm_request_latency_seconds",
		Help:    "Latency of LLM requests by provider and task",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"provider", "model", "task"})

	// LLM estimated costs (in millicents to avoid floating point issues)
	LLMEstimatedCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_llm_estimated_cost_millicents_total",
		Help: "Estimated LLM cost in millicents (0.001 cents)",
	}, []string{"provider", "model", "task"})

	// LLM provider availability
	LLMProviderAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "radar_llm_provider_available",
		Help: "Whether LLM provider is currently available (0=no, 1=yes)",
	}, []string{"provider"})

	// Embedding metrics
	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_embedding_requests_total",
		Help: "Total number of embedding requests",
	}, []string{"provider", "model", "status"})

	EmbeddingTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_embedding_tokens_total",
		Help: "Total number of tokens processed for embeddings",
	}, []string{"provider", "model"})

	EmbeddingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radar_embedding_latency_seconds",
		Help:    "Latency of embedding requests by provider",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider", "model"})

	EmbeddingEstimatedCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_embedding_estimated_cost_millicents_total",
		Help: "Estimated embedding cost in millicents (0.001 cents)",
	}, []string{"provider", "model"})

	EmbeddingProviderAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "radar_embedding_provider_available",
		Help: "Whether embedding provider is currently available (0=no, 1=yes)",
	}, []string{"provider"})

	EmbeddingFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_embedding_fallbacks_total",
		Help: "Total number of embedding fallback events",
	}, []string{"from_provider", "to_provider"})
)
