package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/researchlens/internal/apperr"
	"github.com/dgallion1/researchlens/internal/metrics"
	"github.com/dgallion1/researchlens/internal/textstat"
)

// Device names the hardware a runtime executes models on.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// Sentiment is the three-way polarity reported to callers.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// LabelScore is one scored label from a classifier or sentiment model.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error)
}

// Classifier scores text against candidate labels. Results may come back in any order.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) ([]LabelScore, error)
}

// SentimentModel returns the raw polarity label and confidence from the underlying model.
type SentimentModel interface {
	Score(ctx context.Context, text string) (LabelScore, error)
}

// Runtime loads models. Loads may be slow; the gateway calls each at most
// once per role after a success.
type Runtime interface {
	SelectDevice(ctx context.Context) (Device, error)
	LoadSummarizer(ctx context.Context, model string, device Device) (Summarizer, error)
	LoadClassifier(ctx context.Context, model string, device Device) (Classifier, error)
	LoadSentiment(ctx context.Context, model string, device Device) (SentimentModel, error)
}

type Config struct {
	SummarizerModel string
	ClassifierModel string
	SentimentModel  string

	// Device is the preferred device; DeviceAuto asks the runtime.
	Device Device

	// Context windows in estimated tokens. Inputs are truncated to fit.
	SummarizerContextTokens int
	ClassifierContextTokens int
	SentimentContextTokens  int

	// NeutralThreshold maps any sentiment whose confidence is below it to neutral.
	NeutralThreshold float64

	StatsWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.SummarizerModel == "" {
		c.SummarizerModel = "facebook/bart-large-cnn"
	}
	if c.ClassifierModel == "" {
		c.ClassifierModel = "facebook/bart-large-mnli"
	}
	if c.SentimentModel == "" {
		c.SentimentModel = "distilbert-base-uncased-finetuned-sst-2-english"
	}
	if c.Device == "" {
		c.Device = DeviceAuto
	}
	if c.SummarizerContextTokens <= 0 {
		c.SummarizerContextTokens = 1024
	}
	if c.ClassifierContextTokens <= 0 {
		c.ClassifierContextTokens = 512
	}
	if c.SentimentContextTokens <= 0 {
		c.SentimentContextTokens = 512
	}
	if c.NeutralThreshold <= 0 {
		c.NeutralThreshold = 0.6
	}
	return c
}

var (
	errEmptyInput = errors.New("empty input text")
	errNoLabels   = errors.New("no candidate labels")
	errNoScores   = errors.New("classifier returned no scores")
)

// Gateway gives the analyzer summarize, classify and sentiment calls over
// models that are loaded on first use and then shared by every request.
type Gateway struct {
	runtime Runtime
	cfg     Config
	log     *slog.Logger

	deviceOnce sync.Once
	device     Device

	summarizer lazy[Summarizer]
	classifier lazy[Classifier]
	sentiment  lazy[SentimentModel]

	stats map[apperr.Stage]*LatencyStats
}

func New(runtime Runtime, cfg Config, log *slog.Logger) *Gateway {
	cfg = cfg.withDefaults()
	return &Gateway{
		runtime: runtime,
		cfg:     cfg,
		log:     log.With("component", "gateway"),
		stats: map[apperr.Stage]*LatencyStats{
			apperr.StageSummarize: NewLatencyStats(cfg.StatsWindow),
			apperr.StageClassify:  NewLatencyStats(cfg.StatsWindow),
			apperr.StageSentiment: NewLatencyStats(cfg.StatsWindow),
		},
	}
}

// Summarize returns an abstractive summary between minLen and maxLen tokens.
// Input longer than the summarizer's context window is truncated first.
func (g *Gateway) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", apperr.Inference(apperr.StageSummarize, errEmptyInput)
	}
	if minLen > maxLen {
		minLen = maxLen
	}
	model, err := g.summarizer.get(func() (Summarizer, error) {
		return loadModel(ctx, g, "summarizer", g.cfg.SummarizerModel, g.runtime.LoadSummarizer)
	})
	if err != nil {
		return "", apperr.Inference(apperr.StageSummarize, err)
	}

	input, truncated := textstat.TruncateTokens(text, g.cfg.SummarizerContextTokens)
	if truncated {
		g.log.Debug("summarizer input truncated", "context_tokens", g.cfg.SummarizerContextTokens)
	}

	var summary string
	err = g.observe(apperr.StageSummarize, func() error {
		var err error
		summary, err = model.Summarize(ctx, input, maxLen, minLen)
		return err
	})
	if err != nil {
		return "", apperr.Inference(apperr.StageSummarize, err)
	}
	return strings.TrimSpace(summary), nil
}

// ClassifyTopic returns the best-scoring label.
func (g *Gateway) ClassifyTopic(ctx context.Context, text string, labels []string) (LabelScore, error) {
	ranked, err := g.RankTopics(ctx, text, labels)
	if err != nil {
		return LabelScore{}, err
	}
	return ranked[0], nil
}

// RankTopics scores every candidate label and returns them by descending score.
// Ties keep the order of labels. The result is never empty on success.
func (g *Gateway) RankTopics(ctx context.Context, text string, labels []string) ([]LabelScore, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Inference(apperr.StageClassify, errEmptyInput)
	}
	if len(labels) == 0 {
		return nil, apperr.Inference(apperr.StageClassify, errNoLabels)
	}
	model, err := g.classifier.get(func() (Classifier, error) {
		return loadModel(ctx, g, "classifier", g.cfg.ClassifierModel, g.runtime.LoadClassifier)
	})
	if err != nil {
		return nil, apperr.Inference(apperr.StageClassify, err)
	}

	input, _ := textstat.TruncateTokens(text, g.cfg.ClassifierContextTokens)

	var scores []LabelScore
	err = g.observe(apperr.StageClassify, func() error {
		var err error
		scores, err = model.Classify(ctx, input, labels)
		return err
	})
	if err != nil {
		return nil, apperr.Inference(apperr.StageClassify, err)
	}
	if len(scores) == 0 {
		return nil, apperr.Inference(apperr.StageClassify, errNoScores)
	}
	return rank(scores, labels), nil
}

// Sentiment returns the three-way polarity and the model's confidence.
func (g *Gateway) Sentiment(ctx context.Context, text string) (Sentiment, float64, error) {
	if strings.TrimSpace(text) == "" {
		return "", 0, apperr.Inference(apperr.StageSentiment, errEmptyInput)
	}
	model, err := g.sentiment.get(func() (SentimentModel, error) {
		return loadModel(ctx, g, "sentiment", g.cfg.SentimentModel, g.runtime.LoadSentiment)
	})
	if err != nil {
		return "", 0, apperr.Inference(apperr.StageSentiment, err)
	}

	input, _ := textstat.TruncateTokens(text, g.cfg.SentimentContextTokens)

	var raw LabelScore
	err = g.observe(apperr.StageSentiment, func() error {
		var err error
		raw, err = model.Score(ctx, input)
		return err
	})
	if err != nil {
		return "", 0, apperr.Inference(apperr.StageSentiment, err)
	}
	return ApplyNeutralThreshold(raw, g.cfg.NeutralThreshold), raw.Score, nil
}

// ApplyNeutralThreshold maps a raw model label to the three-way enum.
// Scores below threshold are neutral whatever the raw label says, and
// labels the model vocabulary does not recognise are neutral too.
func ApplyNeutralThreshold(raw LabelScore, threshold float64) Sentiment {
	if raw.Score < threshold {
		return SentimentNeutral
	}
	switch strings.ToLower(strings.TrimSpace(raw.Label)) {
	case "positive", "pos", "label_1":
		return SentimentPositive
	case "negative", "neg", "label_0":
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// IsReady reports whether all three models have been loaded.
func (g *Gateway) IsReady() bool {
	return g.summarizer.ready() && g.classifier.ready() && g.sentiment.ready()
}

// Device reports the selected device, and false if no model has asked for one yet.
func (g *Gateway) Device() (Device, bool) {
	if g.summarizer.ready() || g.classifier.ready() || g.sentiment.ready() {
		return g.selectDevice(context.Background()), true
	}
	return "", false
}

// Warmup loads all three models, returning every load error.
func (g *Gateway) Warmup(ctx context.Context) error {
	_, errS := g.summarizer.get(func() (Summarizer, error) {
		return loadModel(ctx, g, "summarizer", g.cfg.SummarizerModel, g.runtime.LoadSummarizer)
	})
	_, errC := g.classifier.get(func() (Classifier, error) {
		return loadModel(ctx, g, "classifier", g.cfg.ClassifierModel, g.runtime.LoadClassifier)
	})
	_, errT := g.sentiment.get(func() (SentimentModel, error) {
		return loadModel(ctx, g, "sentiment", g.cfg.SentimentModel, g.runtime.LoadSentiment)
	})
	return errors.Join(
		apperr.Inference(apperr.StageSummarize, errS),
		apperr.Inference(apperr.StageClassify, errC),
		apperr.Inference(apperr.StageSentiment, errT),
	)
}

// Stats returns rolling latency snapshots keyed by stage.
func (g *Gateway) Stats() map[string]StatsSnapshot {
	out := make(map[string]StatsSnapshot, len(g.stats))
	for stage, s := range g.stats {
		out[string(stage)] = s.Snapshot()
	}
	return out
}

// deviceProbeTimeout bounds the one-time device probe.
const deviceProbeTimeout = 10 * time.Second

// selectDevice probes once for the whole process. The probe is detached from
// the caller's cancellation since its result outlives that request.
func (g *Gateway) selectDevice(ctx context.Context) Device {
	g.deviceOnce.Do(func() {
		if g.cfg.Device != DeviceAuto {
			g.device = g.cfg.Device
			g.log.Info("device configured", "device", g.device)
			return
		}
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deviceProbeTimeout)
		defer cancel()
		d, err := g.runtime.SelectDevice(probeCtx)
		if err != nil || d == "" {
			g.log.Warn("device probe failed, using cpu", "error", err)
			d = DeviceCPU
		}
		g.device = d
		g.log.Info("device selected", "device", d)
	})
	return g.device
}

func loadModel[T any](ctx context.Context, g *Gateway, role, model string,
	load func(context.Context, string, Device) (T, error)) (T, error) {
	device := g.selectDevice(ctx)
	start := time.Now()
	m, err := load(ctx, model, device)
	metrics.ModelLoads.WithLabelValues(role, metrics.Outcome(err)).Inc()
	if err != nil {
		g.log.Error("model load failed", "role", role, "model", model, "error", err)
		return m, fmt.Errorf("load %s %s: %w", role, model, err)
	}
	g.log.Info("model loaded", "role", role, "model", model, "device", device,
		"duration_ms", time.Since(start).Milliseconds())
	return m, nil
}

func (g *Gateway) observe(stage apperr.Stage, call func() error) error {
	start := time.Now()
	err := call()
	elapsed := time.Since(start)
	g.stats[stage].Record(elapsed.Milliseconds())
	metrics.InferenceDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	if err != nil {
		metrics.InferenceErrors.WithLabelValues(string(stage)).Inc()
	}
	return err
}

// rank sorts scores descending; equal scores follow the candidate label order.
func rank(scores []LabelScore, labels []string) []LabelScore {
	order := make(map[string]int, len(labels))
	for i, l := range labels {
		order[l] = i
	}
	out := append([]LabelScore(nil), scores...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return order[out[i].Label] < order[out[j].Label]
	})
	return out
}
