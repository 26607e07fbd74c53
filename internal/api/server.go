package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/researchlens/internal/config"
	"github.com/dgallion1/researchlens/internal/gateway"
	"github.com/dgallion1/researchlens/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analyzer is the analysis pipeline as seen by the HTTP layer.
type Analyzer interface {
	AnalyzeURL(ctx context.Context, url string, opts pipeline.Options) (*pipeline.AnalysisResponse, error)
	AnalyzePDF(ctx context.Context, data []byte, filename string, opts pipeline.Options) (*pipeline.AnalysisResponse, error)
	AnalyzeFile(ctx context.Context, data []byte, filename string, opts pipeline.Options) (*pipeline.AnalysisResponse, error)
	AnalyzeBatch(ctx context.Context, urls []string, opts pipeline.Options) ([]pipeline.BatchItem, error)
}

// Models reports model readiness and inference latency.
type Models interface {
	IsReady() bool
	Device() (gateway.Device, bool)
	Stats() map[string]gateway.StatsSnapshot
}

// Server is the HTTP API server for researchlens.
type Server struct {
	router   chi.Router
	analyzer Analyzer
	models   Models
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(an Analyzer, models Models, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		analyzer: an,
		models:   models,
		log:      log.With("component", "api"),
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey))
		}

		r.Post("/api/analyze/url", s.handleAnalyzeURL)
		r.Post("/api/analyze/pdf", s.handleAnalyzePDF)
		r.Post("/api/analyze/file", s.handleAnalyzeFile)
		r.Post("/api/analyze/batch", s.handleAnalyzeBatch)
		r.Get("/api/stats/inference", s.handleInferenceStats)
	})

	s.router = r
}
