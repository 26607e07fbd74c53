// Package analyzer turns extracted document text into a summary, ranked
// topics, sentiment and a readability-based difficulty level.
package analyzer

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgallion1/researchlens/internal/document"
	"github.com/dgallion1/researchlens/internal/gateway"
	"github.com/dgallion1/researchlens/internal/textstat"
)

// DefaultTopicLabels is the closed label set used for zero-shot classification.
var DefaultTopicLabels = []string{
	"technology", "politics", "science", "health", "business",
	"economics", "environment", "education", "arts", "sports",
	"social issues", "history", "philosophy", "psychology",
}

// Gateway is the model surface the analyzer needs.
type Gateway interface {
	Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error)
	RankTopics(ctx context.Context, text string, labels []string) ([]gateway.LabelScore, error)
	Sentiment(ctx context.Context, text string) (gateway.Sentiment, float64, error)
}

type Config struct {
	TopicLabels []string
	// SecondaryTopics is how many labels after the primary are kept.
	// Zero means the default of 2; negative keeps the primary only.
	SecondaryTopics int
	// MinSecondaryScore drops secondary labels scoring below it.
	MinSecondaryScore float64

	Summary    SummaryPolicy
	Difficulty DifficultyPolicy
}

// AnalysisResult is built once per document and not modified afterwards.
type AnalysisResult struct {
	Summary        string
	Topics         []string
	TopicScores    []gateway.LabelScore
	Sentiment      gateway.Sentiment
	SentimentScore float64
	Difficulty     Difficulty
	Readability    Readability
	WordCount      int
}

type Analyzer struct {
	gw  Gateway
	cfg Config
	log *slog.Logger
}

func New(gw Gateway, cfg Config, log *slog.Logger) *Analyzer {
	if len(cfg.TopicLabels) == 0 {
		cfg.TopicLabels = DefaultTopicLabels
	}
	if cfg.SecondaryTopics < 0 {
		cfg.SecondaryTopics = 0
	} else if cfg.SecondaryTopics == 0 {
		cfg.SecondaryTopics = 2
	}
	cfg.Summary = cfg.Summary.withDefaults()
	cfg.Difficulty = cfg.Difficulty.withDefaults()
	return &Analyzer{gw: gw, cfg: cfg, log: log.With("component", "analyzer")}
}

// Labels returns the topic label set in use.
func (a *Analyzer) Labels() []string {
	return a.cfg.TopicLabels
}

// Analyze runs summarization, topic ranking and sentiment in that order, then
// scores difficulty. The first model failure aborts the analysis.
func (a *Analyzer) Analyze(ctx context.Context, doc document.Document) (AnalysisResult, error) {
	wordCount := doc.WordCount
	if wordCount == 0 {
		wordCount = textstat.WordCount(doc.Text)
	}

	maxLen, minLen := a.cfg.Summary.Bounds(textstat.WordCount(doc.Text))
	start := time.Now()
	summary, err := a.gw.Summarize(ctx, doc.Text, maxLen, minLen)
	if err != nil {
		return AnalysisResult{}, err
	}
	a.log.Debug("summarized", "max_len", maxLen, "min_len", minLen,
		"duration_ms", time.Since(start).Milliseconds())

	start = time.Now()
	ranked, err := a.gw.RankTopics(ctx, doc.Text, a.cfg.TopicLabels)
	if err != nil {
		return AnalysisResult{}, err
	}
	topics := a.selectTopics(ranked)
	a.log.Debug("classified", "topics", topics, "duration_ms", time.Since(start).Milliseconds())

	start = time.Now()
	sentiment, score, err := a.gw.Sentiment(ctx, doc.Text)
	if err != nil {
		return AnalysisResult{}, err
	}
	a.log.Debug("sentiment scored", "sentiment", sentiment, "score", score,
		"duration_ms", time.Since(start).Milliseconds())

	difficulty, readability := a.cfg.Difficulty.Classify(doc.Text)

	return AnalysisResult{
		Summary:        summary,
		Topics:         topics,
		TopicScores:    ranked[:len(topics)],
		Sentiment:      sentiment,
		SentimentScore: score,
		Difficulty:     difficulty,
		Readability:    readability,
		WordCount:      wordCount,
	}, nil
}

// selectTopics keeps the primary label and up to SecondaryTopics more,
// stopping at the first secondary below MinSecondaryScore.
func (a *Analyzer) selectTopics(ranked []gateway.LabelScore) []string {
	if len(ranked) == 0 {
		return nil
	}
	topics := []string{ranked[0].Label}
	for _, ls := range ranked[1:] {
		if len(topics) > a.cfg.SecondaryTopics || ls.Score < a.cfg.MinSecondaryScore {
			break
		}
		topics = append(topics, ls.Label)
	}
	return topics
}
