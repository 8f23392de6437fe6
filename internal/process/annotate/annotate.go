// Package annotate runs the domain annotator: a polling worker that asks
// the oracle for structured so-what commentary on fresh high-score intel,
// one role at a time. Strictly call-and-parse; a failed call skips the
// cycle and the backlog drains on the next poll.
package annotate

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	"github.com/lueurxax/competitor-radar/internal/core/llm"
	"github.com/lueurxax/competitor-radar/internal/platform/observability"
	db "github.com/lueurxax/competitor-radar/internal/storage"
)

const (
	defaultPollInterval = 5 * time.Minute
	defaultBatchSize    = 10
	defaultMinImpact    = 3.5
	defaultMinRelevance = 3.5
	defaultLookbackDays = 7

	logKeyRole  = "role"
	logKeyIntel = "intel_id"
)

type Repository interface {
	PendingIntelForRole(ctx context.Context, role string, categories []domain.Category, minImpact, minRelevance float32, since time.Time, limit int) ([]domain.Intel, error)
	SaveAnnotation(ctx context.Context, annotation domain.Annotation) (*domain.Annotation, error)
}

// Compile-time assertion that *db.DB implements Repository.
var _ Repository = (*db.DB)(nil)

// Oracle is the annotation call this worker depends on, satisfied by
// llm.Client.
type Oracle interface {
	Annotate(ctx context.Context, role llm.AnnotatorRole, items []llm.AnnotateInput) (llm.AnnotateResult, error)
}

// Config tunes polling and the selection cutoffs.
type Config struct {
	PollInterval time.Duration
	BatchSize    int

	// MinImpact and MinRelevance gate which intel is worth an oracle call.
	MinImpact    float32
	MinRelevance float32

	// LookbackDays bounds how far back a role's backlog reaches.
	LookbackDays int

	// Roles defaults to the built-in annotator registry.
	Roles []llm.AnnotatorRole
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}

	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}

	if c.MinImpact == 0 {
		c.MinImpact = defaultMinImpact
	}

	if c.MinRelevance == 0 {
		c.MinRelevance = defaultMinRelevance
	}

	if c.LookbackDays <= 0 {
		c.LookbackDays = defaultLookbackDays
	}

	if len(c.Roles) == 0 {
		c.Roles = llm.Annotators
	}

	return c
}

type Worker struct {
	cfg      Config
	database Repository
	oracle   Oracle
	logger   *zerolog.Logger

	// now is swapped in tests to pin the lookback cutoff.
	now func() time.Time
}

func NewWorker(cfg Config, database Repository, oracle Oracle, logger *zerolog.Logger) *Worker {
	return &Worker{
		cfg:      cfg.withDefaults(),
		database: database,
		oracle:   oracle,
		logger:   logger,
		now:      time.Now,
	}
}

// Run polls until the context ends. Cycles are strictly sequential, so a
// slow oracle call delays the next poll instead of overlapping it.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().
		Dur("poll_interval", w.cfg.PollInterval).
		Int("roles", len(w.cfg.Roles)).
		Msg("annotation worker starting")

	for {
		w.runCycle(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// runCycle drains at most one batch per role.
func (w *Worker) runCycle(ctx context.Context) {
	since := w.now().AddDate(0, 0, -w.cfg.LookbackDays)

	for _, role := range w.cfg.Roles {
		if ctx.Err() != nil {
			return
		}

		w.processRole(ctx, role, since)
	}
}

func (w *Worker) processRole(ctx context.Context, role llm.AnnotatorRole, since time.Time) {
	pending, err := w.database.PendingIntelForRole(ctx, role.Name, role.Categories, w.cfg.MinImpact, w.cfg.MinRelevance, since, w.cfg.BatchSize)
	if err != nil {
		w.logger.Error().Err(err).Str(logKeyRole, role.Name).Msg("failed to load annotation backlog")

		return
	}

	observability.AnnotationBacklog.WithLabelValues(role.Name).Set(float64(len(pending)))

	if len(pending) == 0 {
		return
	}

	inputs := make([]llm.AnnotateInput, 0, len(pending))
	for _, item := range pending {
		inputs = append(inputs, llm.AnnotateInput{
			Competitor: item.CompetitorID,
			Category:   item.Category,
			Impact:     item.ImpactScore,
			Relevance:  item.RelevanceScore,
			Summary:    item.Summary,
			Entities:   item.Entities,
		})
	}

	result, err := w.oracle.Annotate(ctx, role, inputs)
	if err != nil {
		w.logger.Warn().Err(err).
			Str(logKeyRole, role.Name).
			Int("pending", len(pending)).
			Msg("annotation call failed, skipping cycle")

		return
	}

	saved := w.saveAnnotations(ctx, role, pending, result.Annotations)

	w.logger.Info().
		Str(logKeyRole, role.Name).
		Int("pending", len(pending)).
		Int("annotated", saved).
		Int("skipped", result.Skipped).
		Msg("annotation cycle complete")
}

func (w *Worker) saveAnnotations(ctx context.Context, role llm.AnnotatorRole, pending []domain.Intel, annotations []llm.Annotation) int {
	saved := 0

	for _, a := range annotations {
		idx := a.Index - 1
		if idx < 0 || idx >= len(pending) {
			continue
		}

		item := pending[idx]

		stored, err := w.database.SaveAnnotation(ctx, domain.Annotation{
			IntelID:         item.ID,
			AgentRole:       role.Name,
			SoWhat:          a.SoWhat,
			RiskOpportunity: a.RiskOpportunity,
			Priority:        a.Priority,
			SuggestedAction: a.SuggestedAction,
		})
		if err != nil {
			w.logger.Warn().Err(err).Str(logKeyIntel, item.ID).Msg("failed to save annotation")

			continue
		}

		if stored == nil {
			// The role already annotated this item in an earlier cycle.
			continue
		}

		observability.AnnotationsCreated.WithLabelValues(role.Name).Inc()

		saved++
	}

	return saved
}
