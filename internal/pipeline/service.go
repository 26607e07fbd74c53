package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgallion1/researchlens/internal/analyzer"
	"github.com/dgallion1/researchlens/internal/apperr"
	"github.com/dgallion1/researchlens/internal/critic"
	"github.com/dgallion1/researchlens/internal/document"
	"github.com/dgallion1/researchlens/internal/metrics"
	"github.com/google/uuid"
)

type Extractor interface {
	FromURL(ctx context.Context, url string) (document.Document, error)
	FromPDF(data []byte, filename string) (document.Document, error)
	FromFile(data []byte, filename string) (document.Document, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, doc document.Document) (analyzer.AnalysisResult, error)
}

type Critic interface {
	Critique(doc document.Document, topics []string) critic.CriticalInsights
}

type Config struct {
	MaxBatchURLs     int
	BatchConcurrency int
}

func (c Config) withDefaults() Config {
	if c.MaxBatchURLs <= 0 {
		c.MaxBatchURLs = 10
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = 2
	}
	return c
}

// Service runs one analysis end to end: extract, analyze, critique, assemble.
// Stages run in sequence and the first error ends the request.
type Service struct {
	extractor Extractor
	analyzer  Analyzer
	critic    Critic
	cfg       Config
	log       *slog.Logger
}

func NewService(ex Extractor, an Analyzer, cr Critic, cfg Config, log *slog.Logger) *Service {
	return &Service{
		extractor: ex,
		analyzer:  an,
		critic:    cr,
		cfg:       cfg.withDefaults(),
		log:       log.With("component", "pipeline"),
	}
}

func (s *Service) AnalyzeURL(ctx context.Context, url string, opts Options) (*AnalysisResponse, error) {
	return s.run(ctx, document.SourceURL, func() (document.Document, error) {
		return s.extractor.FromURL(ctx, url)
	}, opts)
}

func (s *Service) AnalyzePDF(ctx context.Context, data []byte, filename string, opts Options) (*AnalysisResponse, error) {
	return s.run(ctx, document.SourcePDF, func() (document.Document, error) {
		return s.extractor.FromPDF(data, filename)
	}, opts)
}

// AnalyzeFile accepts any supported upload; PDFs are reported as pdf, the rest as upload.
func (s *Service) AnalyzeFile(ctx context.Context, data []byte, filename string, opts Options) (*AnalysisResponse, error) {
	return s.run(ctx, document.SourceUpload, func() (document.Document, error) {
		return s.extractor.FromFile(data, filename)
	}, opts)
}

func (s *Service) run(ctx context.Context, kind document.SourceKind, extract func() (document.Document, error), opts Options) (*AnalysisResponse, error) {
	start := time.Now()
	doc, err := timed("extract", extract)
	if err != nil {
		s.fail(kind, "extract", err)
		return nil, err
	}
	kind = doc.SourceKind
	log := s.log.With("source_kind", kind, "source", doc.SourceRef)
	log.Info("document extracted", "word_count", doc.WordCount, "truncated", doc.Truncated)

	res, err := timed("analyze", func() (analyzer.AnalysisResult, error) {
		return s.analyzer.Analyze(ctx, doc)
	})
	if err != nil {
		s.fail(kind, "analyze", err)
		return nil, err
	}
	log.Info("document analyzed", "topics", res.Topics, "sentiment", res.Sentiment,
		"difficulty", res.Difficulty)

	ins, _ := timed("critique", func() (critic.CriticalInsights, error) {
		return s.critic.Critique(doc, res.Topics), nil
	})

	resp := Assemble(doc, res, ins, opts)
	resp.AnalysisID = uuid.NewString()

	metrics.AnalysesTotal.WithLabelValues(string(kind), metrics.OutcomeSuccess).Inc()
	log.Info("analysis complete", "analysis_id", resp.AnalysisID,
		"claims", len(resp.UnsupportedClaims), "gaps", len(resp.LogicalGaps),
		"duration_ms", time.Since(start).Milliseconds())
	return &resp, nil
}

func (s *Service) fail(kind document.SourceKind, stage string, err error) {
	metrics.AnalysesTotal.WithLabelValues(string(kind), metrics.OutcomeFailure).Inc()
	s.log.Warn("analysis failed", "source_kind", kind, "stage", stage,
		"code", apperr.CodeOf(err), "error", err)
}

func timed[T any](stage string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return v, err
}
