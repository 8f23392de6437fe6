package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/app"
	"github.com/lueurxax/competitor-radar/internal/platform/config"
	db "github.com/lueurxax/competitor-radar/internal/storage"
)

func main() {
	mode := flag.String("mode", "", "Service mode (run, serve, annotate, all)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewWithOptions(ctx, cfg.PostgresDSN, cfg.PoolCfg(), &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application := app.New(cfg, database, &logger)

	// The serve modes expose metrics on the API port themselves.
	if *mode == "run" || *mode == "annotate" {
		go func() {
			if err := application.StartHealthServer(ctx); err != nil {
				logger.Error().Err(err).Msg("health server error")
			}
		}()
	}

	if err := runMode(ctx, application, *mode); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, err //nolint:wrapcheck
	}

	if cfg.IsLocal() {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

		return zerolog.New(writer).Level(level).With().Timestamp().Logger(), nil
	}

	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(), nil
}

func runMode(ctx context.Context, application *app.App, mode string) error {
	switch mode {
	case "run":
		return application.RunPipeline(ctx)
	case "serve":
		return application.RunServe(ctx)
	case "annotate":
		return application.RunAnnotator(ctx)
	case "all":
		return application.RunAll(ctx)
	default:
		log.Fatalf("Usage: %s --mode=[run|serve|annotate|all]", os.Args[0])

		return nil
	}
}
