// Package app wires the process dependencies and exposes one method per
// operational mode:
//
//   - Run mode: one end-to-end ingestion pass (collect, classify, merge,
//     persist, score novelty), then exit
//   - Serve mode: the read-only dashboard REST API
//   - Annotate mode: the polling worker that drafts role annotations
//   - All mode: API and annotation worker in one process
//
// The batch mode returns when its pass finishes; serving modes run until the
// context is canceled.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/api"
	"github.com/lueurxax/competitor-radar/internal/core/embeddings"
	"github.com/lueurxax/competitor-radar/internal/core/lexical"
	"github.com/lueurxax/competitor-radar/internal/core/llm"
	"github.com/lueurxax/competitor-radar/internal/ingest/rss"
	"github.com/lueurxax/competitor-radar/internal/ingest/search"
	"github.com/lueurxax/competitor-radar/internal/memory"
	"github.com/lueurxax/competitor-radar/internal/platform/config"
	"github.com/lueurxax/competitor-radar/internal/platform/observability"
	"github.com/lueurxax/competitor-radar/internal/process/annotate"
	"github.com/lueurxax/competitor-radar/internal/process/classify"
	"github.com/lueurxax/competitor-radar/internal/process/grouping"
	"github.com/lueurxax/competitor-radar/internal/process/novelty"
	"github.com/lueurxax/competitor-radar/internal/process/pipeline"
	db "github.com/lueurxax/competitor-radar/internal/storage"
)

const (
	logFieldRun       = "run_id"
	logFieldComponent = "component"
)

// App holds the process dependencies and provides one method per mode.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates an App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the liveness and metrics server. The serve mode
// exposes the same endpoints on the API port, so this one exists for the
// batch and worker modes.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunPipeline executes one ingestion pass and exits.
func (a *App) RunPipeline(ctx context.Context) error {
	a.logger.Info().Msg("starting ingestion run")

	reg, err := config.LoadRegistry(a.cfg.SourcesPath)
	if err != nil {
		return fmt.Errorf("load source registry: %w", err)
	}

	oracle := a.newLLMClient(ctx)
	matcher := lexical.NewMatcher(a.cfg.LexicalCfg())
	index := memory.NewStore(a.newEmbeddingClient(ctx), a.database)

	stages := pipeline.Stages{
		Fetcher:    rss.NewFetcher(a.cfg.RSSCfg(), a.logger),
		Searcher:   search.NewSearcher(a.cfg.SearchCfg(), a.searchProviders(), a.logger),
		Classifier: classify.New(a.cfg.ClassifyCfg(), oracle, a.logger),
		Grouper:    grouping.New(matcher, a.logger),
		Resolver:   novelty.New(a.cfg.NoveltyCfg(), index, matcher, a.logger),
	}

	run, err := pipeline.New(a.cfg.PipelineCfg(reg), a.database, stages, a.logger).RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	a.logger.Info().
		Str(logFieldRun, run.ID).
		Str("status", string(run.Status)).
		Int("articles", run.ArticlesFetched).
		Int("intel", run.IntelCreated).
		Int("duplicates", run.DuplicatesFound).
		Msg("ingestion run finished")

	return nil
}

// RunServe serves the dashboard REST API until the context is canceled.
func (a *App) RunServe(ctx context.Context) error {
	a.logger.Info().Msg("starting api mode")

	reg, err := config.LoadRegistry(a.cfg.SourcesPath)
	if err != nil {
		return fmt.Errorf("load source registry: %w", err)
	}

	apiCfg := a.cfg.APICfg(reg)
	server := api.New(apiCfg, a.database, api.NewTTLCache(apiCfg.CacheTTL), a.logger)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	return nil
}

// RunAnnotator runs the annotation worker until the context is canceled.
func (a *App) RunAnnotator(ctx context.Context) error {
	a.logger.Info().Msg("starting annotate mode")

	oracle := a.newLLMClient(ctx)
	worker := annotate.NewWorker(a.cfg.AnnotateCfg(), a.database, oracle, a.logger)

	return worker.Run(ctx) //nolint:wrapcheck
}

// RunAll serves the API and runs the annotation worker in one process.
func (a *App) RunAll(ctx context.Context) error {
	go func() {
		if err := a.RunAnnotator(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error().Err(err).Msg("annotation worker stopped")
		}
	}()

	return a.RunServe(ctx)
}

func (a *App) searchProviders() []search.Provider {
	return []search.Provider{
		search.NewGDELTProvider(a.cfg.GDELTCfg()),
		search.NewNewsAPIProvider(a.cfg.NewsAPICfg()),
	}
}

func (a *App) newLLMClient(ctx context.Context) llm.Client {
	logger := a.logger.With().Str(logFieldComponent, "llm").Logger()

	client := llm.New(ctx, a.cfg.LLMCfg(), &logger)
	client.SetUsageStore(a.database)

	return client
}

func (a *App) newEmbeddingClient(ctx context.Context) embeddings.Client {
	logger := a.logger.With().Str(logFieldComponent, "embeddings").Logger()

	return embeddings.NewClient(ctx, a.cfg.EmbeddingCfg(), &logger)
}
