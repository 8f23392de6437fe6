// Package api serves the dashboard read API: corpus stats, intel listings
// with filters, competitor summaries, runs, annotations and oracle usage,
// all as JSON over echo. Reads only surface canonical intel; duplicates stay
// reachable through their original record.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lueurxax/competitor-radar/internal/core/domain"
	"github.com/lueurxax/competitor-radar/internal/platform/observability"
	db "github.com/lueurxax/competitor-radar/internal/storage"
)

const (
	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultCacheTTL        = time.Minute

	defaultIntelLimit = 50
	maxIntelLimit     = 200
	defaultRunsLimit  = 20
	maxRunsLimit      = 100

	dropStatsWindowDays = 7
	dropStatsLimit      = 10

	cacheKeyStats = "stats"

	logKeyIntel = "intel_id"
	logKeyRun   = "run_id"
)

// Competitor identifies one tracked competitor from the source registry.
type Competitor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Config holds the API server settings.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CacheTTL        time.Duration
	Competitors     []Competitor
}

func (cfg Config) withDefaults() Config {
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}

	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	return cfg
}

// Repository is the slice of the storage layer the read API consumes.
type Repository interface {
	GetStats(ctx context.Context) (*db.Stats, error)
	GetCompetitorStats(ctx context.Context) ([]db.CompetitorStat, error)
	GetDropReasonStats(ctx context.Context, since time.Time, limit int) ([]db.DropReasonStat, error)
	ListIntel(ctx context.Context, filter db.IntelFilter) ([]domain.Intel, error)
	GetIntel(ctx context.Context, id string) (*domain.Intel, error)
	ListAnnotations(ctx context.Context, intelID string) ([]domain.Annotation, error)
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	GetDailyLLMUsage(ctx context.Context) (*db.LLMUsageSummary, error)
	GetMonthlyLLMUsage(ctx context.Context) (*db.LLMUsageSummary, error)
}

var _ Repository = (*db.DB)(nil)

// Server is the dashboard read API.
type Server struct {
	cfg      Config
	database Repository
	cache    Cache
	logger   *zerolog.Logger
	now      func() time.Time
}

// New creates an API server. The cache is injected so callers decide its
// scope and tests can observe it.
func New(cfg Config, database Repository, cache Cache, logger *zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg.withDefaults(),
		database: database,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// Start serves the API until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	e := s.router()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		//nolint:contextcheck // shutdown must not inherit the canceled run context
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("api server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start api server: %w", err)
	}

	s.logger.Info().Msg("api server stopped")

	return nil
}

// router builds the echo instance with all routes and middleware. Split from
// Start so tests can drive it through httptest without binding a port.
func (s *Server) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(s.metricsMiddleware)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/api/health"
		},
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Debug()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}

			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("http request")

			return nil
		},
	}))

	api := e.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/intel", s.handleIntelList)
	api.GET("/intel/:id", s.handleIntelDetail)
	api.GET("/intel/:id/annotations", s.handleIntelAnnotations)
	api.GET("/competitors", s.handleCompetitors)
	api.GET("/competitors/:id/intel", s.handleCompetitorIntel)
	api.GET("/runs", s.handleRuns)
	api.GET("/runs/:id", s.handleRunDetail)
	api.GET("/usage", s.handleUsage)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

// metricsMiddleware records request counts and latency per route template,
// not per raw URI, so label cardinality stays bounded.
func (s *Server) metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		path := c.Path()
		if path == "" {
			path = "unmatched"
		}

		observability.HTTPRequests.WithLabelValues(
			c.Request().Method, path, strconv.Itoa(c.Response().Status)).Inc()
		observability.HTTPRequestDuration.WithLabelValues(
			c.Request().Method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := http.StatusText(status)

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code

		if text, ok := httpErr.Message.(string); ok && strings.TrimSpace(text) != "" {
			message = text
		} else {
			message = http.StatusText(status)
		}
	}

	if status >= http.StatusInternalServerError {
		//nolint:errcheck // response write failures have nowhere to go
		_ = internalError(c, "Internal server error")

		return
	}

	//nolint:errcheck // response write failures have nowhere to go
	_ = fail(c, status, message, nil)
}

// cached returns the stored payload for key, or builds it with fetch and
// stores it. Errors are never cached.
func (s *Server) cached(key string, fetch func() (any, error)) (any, error) {
	if value, ok := s.cache.Get(key); ok {
		observability.APICacheHits.Inc()

		return value, nil
	}

	observability.APICacheMisses.Inc()

	value, err := fetch()
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, value)

	return value, nil
}

func intelCacheKey(filter db.IntelFilter) string {
	return fmt.Sprintf("intel:%s:%s:%g:%g:%s:%d",
		filter.Category, filter.CompetitorID,
		filter.MinImpact, filter.MinNovelty,
		filter.Sort, filter.Limit)
}
