// Package server exposes the adaptation engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wayfarer/internal/config"
	"wayfarer/internal/domain"
	"wayfarer/internal/logging"
)

// Engine is the part of adaptation.Engine the facade drives.
type Engine interface {
	AnalyzeContext(ctx context.Context, sample domain.LocationSample, movement domain.MovementAnalysis, reading *domain.WeatherData) domain.ContextualEnvironment
	GenerateInsights(ctx context.Context, env domain.ContextualEnvironment) domain.ContextualInsights
	Adapt(ctx context.Context, contentID string, env domain.ContextualEnvironment, insights domain.ContextualInsights, prefs domain.Preferences) (*domain.AdaptedContent, bool)
	Recommend(ctx context.Context, env domain.ContextualEnvironment, insights domain.ContextualInsights, maxResults int) []domain.ContentRecommendation
	Metrics() domain.AdaptationMetrics
	Reset()
}

// Stories is the writable story library.
type Stories interface {
	Add(story *domain.StoryContent) (string, error)
	Remove(id string) bool
	Get(id string) (*domain.StoryContent, bool)
	All() []*domain.StoryContent
	Len() int
}

// Server is the HTTP facade.
type Server struct {
	engine   Engine
	stories  Stories
	cfg      config.ServerConfig
	gatherer prometheus.Gatherer
	logger   logging.Logger
	now      func() time.Time
	started  time.Time

	router     *gin.Engine
	httpServer *http.Server
}

// Option customises a Server.
type Option func(*Server)

// WithGatherer serves /metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the request and error logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) { s.logger = logging.OrNop(logger) }
}

// WithClock overrides time.Now for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds the router. It does not listen until Run is called.
func New(engine Engine, stories Stories, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		stories:  stories,
		cfg:      cfg,
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()

	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(s.logger))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", requestIDHeader}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	router.Use(cors.New(corsConfig))

	s.router = router
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := s.router.Group("/api")
	api.Use(jsonMiddleware(), errorMiddleware(s.logger))

	api.GET("/health", s.handleHealth)
	api.POST("/context", s.handleContext)
	api.POST("/adapt", s.handleAdapt)
	api.POST("/recommend", s.handleRecommend)
	api.GET("/metrics/adaptation", s.handleMetrics)
	api.POST("/reset", s.handleReset)

	stories := api.Group("/stories")
	{
		stories.GET("", s.handleListStories)
		stories.GET("/:id", s.handleGetStory)
		stories.POST("", s.handleCreateStory)
		stories.DELETE("/:id", s.handleDeleteStory)
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
