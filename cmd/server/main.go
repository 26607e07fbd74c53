package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/researchlens/internal/analyzer"
	"github.com/dgallion1/researchlens/internal/api"
	"github.com/dgallion1/researchlens/internal/config"
	"github.com/dgallion1/researchlens/internal/critic"
	"github.com/dgallion1/researchlens/internal/gateway"
	"github.com/dgallion1/researchlens/internal/ingest"
	"github.com/dgallion1/researchlens/internal/logging"
	"github.com/dgallion1/researchlens/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the inference runtime and the shared model gateway.
	var runtime gateway.Runtime
	var closeRuntime func()
	switch cfg.Runtime {
	case "http":
		hr := gateway.NewHTTPRuntime(cfg.InferenceURL, cfg.InferenceToken, cfg.InferenceTimeout)
		runtime, closeRuntime = hr, hr.Close
	default:
		runtime, closeRuntime = gateway.NewLocalRuntime(), func() {}
	}
	gw := gateway.New(runtime, gateway.Config{
		SummarizerModel:         cfg.SummarizerModel,
		ClassifierModel:         cfg.ClassifierModel,
		SentimentModel:          cfg.SentimentModel,
		Device:                  gateway.Device(cfg.Device),
		SummarizerContextTokens: cfg.SummarizerContextTokens,
		ClassifierContextTokens: cfg.ClassifierContextTokens,
		SentimentContextTokens:  cfg.SentimentContextTokens,
		NeutralThreshold:        cfg.NeutralThreshold,
		StatsWindow:             cfg.StatsWindow,
	}, log)

	// Initialize pipeline stages.
	extractor := ingest.New(ingest.Config{
		MaxTextChars:    cfg.MaxTextChars,
		MinArticleWords: cfg.MinArticleWords,
		FetchTimeout:    cfg.FetchTimeout,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		UserAgent:       cfg.UserAgent,
		PDFFallback:     cfg.PDFFallbackPdftotext,
	}, nil, log)

	an := analyzer.New(gw, analyzer.Config{
		TopicLabels:     cfg.TopicLabels,
		SecondaryTopics: cfg.SecondaryTopics,
		Summary: analyzer.SummaryPolicy{
			MinRatio: cfg.SummaryMinRatio,
			MaxRatio: cfg.SummaryMaxRatio,
			Floor:    cfg.SummaryFloorTokens,
			Ceiling:  cfg.SummaryCeilTokens,
		},
		Difficulty: analyzer.DifficultyPolicy{
			SentenceWeight:  cfg.SentenceWeight,
			WordWeight:      cfg.WordWeight,
			DiversityWeight: cfg.DiversityWeight,
			EasyBelow:       cfg.DifficultyEasy,
			HardFrom:        cfg.DifficultyHard,
		},
	}, log)

	cr := critic.New(critic.Config{
		MaxClaims:         cfg.MaxClaims,
		MaxGaps:           cfg.MaxGaps,
		MaxGapsPerType:    cfg.MaxGapsPerType,
		MaxQuestions:      cfg.MaxQuestions,
		QuestionTemplates: cfg.QuestionTemplates,
		GenericQuestions:  cfg.GenericQuestions,
		RelatedTopics:     cfg.RelatedTopics,
		FallbackRelated:   cfg.DefaultRelated,
	})

	svc := pipeline.NewService(extractor, an, cr, pipeline.Config{
		MaxBatchURLs:     cfg.MaxBatchURLs,
		BatchConcurrency: cfg.BatchConcurrency,
	}, log)

	if cfg.WarmupOnStart {
		go warmup(ctx, gw, log)
	}

	// Initialize HTTP server.
	srv := api.NewServer(svc, gw, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.InferenceTimeout + cfg.FetchTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		closeRuntime()
	}()

	log.Info("starting researchlens", "port", cfg.Port, "runtime", cfg.Runtime, "device", cfg.Device)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// warmup loads all three models so the first request does not pay for it.
// Failures are logged; the models load lazily on first use instead.
func warmup(ctx context.Context, gw *gateway.Gateway, log *slog.Logger) {
	start := time.Now()
	if err := gw.Warmup(ctx); err != nil {
		log.Warn("model warmup failed", "error", err)
		return
	}
	device, _ := gw.Device()
	log.Info("models ready", "device", device, "duration_ms", time.Since(start).Milliseconds())
}
