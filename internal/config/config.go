package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is loaded in layers: .env file, defaults, optional YAML file named by
// RESEARCHLENS_CONFIG, then environment variables.
type Config struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Auth. Empty disables bearer-token checks.
	APIKey string `yaml:"-"`

	// Inference runtime: "local" runs in-process, "http" calls a model server.
	Runtime          string        `yaml:"runtime"`
	InferenceURL     string        `yaml:"inference_url"`
	InferenceToken   string        `yaml:"-"`
	InferenceTimeout time.Duration `yaml:"inference_timeout"`
	Device           string        `yaml:"device"`
	WarmupOnStart    bool          `yaml:"warmup_on_start"`

	SummarizerModel         string        `yaml:"summarizer_model"`
	ClassifierModel         string        `yaml:"classifier_model"`
	SentimentModel          string        `yaml:"sentiment_model"`
	SummarizerContextTokens int           `yaml:"summarizer_context_tokens"`
	ClassifierContextTokens int           `yaml:"classifier_context_tokens"`
	SentimentContextTokens  int           `yaml:"sentiment_context_tokens"`
	StatsWindow             time.Duration `yaml:"stats_window"`

	// Extraction
	MaxTextChars         int           `yaml:"max_text_chars"`
	MinArticleWords      int           `yaml:"min_article_words"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout"`
	MaxUploadBytes       int64         `yaml:"max_upload_bytes"`
	UserAgent            string        `yaml:"user_agent"`
	PDFFallbackPdftotext bool          `yaml:"pdf_fallback_pdftotext"`

	// Analysis policy
	NeutralThreshold   float64 `yaml:"neutral_threshold"`
	DifficultyEasy     float64 `yaml:"difficulty_easy_below"`
	DifficultyHard     float64 `yaml:"difficulty_hard_from"`
	SentenceWeight     float64 `yaml:"difficulty_sentence_weight"`
	WordWeight         float64 `yaml:"difficulty_word_weight"`
	DiversityWeight    float64 `yaml:"difficulty_diversity_weight"`
	SecondaryTopics    int     `yaml:"secondary_topics"`
	SummaryMinRatio    float64 `yaml:"summary_min_ratio"`
	SummaryMaxRatio    float64 `yaml:"summary_max_ratio"`
	SummaryFloorTokens int     `yaml:"summary_floor_tokens"`
	SummaryCeilTokens  int     `yaml:"summary_ceiling_tokens"`

	// Critique caps
	MaxClaims      int `yaml:"max_claims"`
	MaxGaps        int `yaml:"max_gaps"`
	MaxGapsPerType int `yaml:"max_gaps_per_type"`
	MaxQuestions   int `yaml:"max_questions"`

	// Taxonomy. Empty values fall back to the built-in label set and mappings.
	TopicLabels       []string            `yaml:"topic_labels"`
	RelatedTopics     map[string][]string `yaml:"related_topics"`
	DefaultRelated    []string            `yaml:"default_related"`
	QuestionTemplates map[string][]string `yaml:"question_templates"`
	GenericQuestions  []string            `yaml:"generic_questions"`

	// Batch
	MaxBatchURLs     int `yaml:"max_batch_urls"`
	BatchConcurrency int `yaml:"batch_concurrency"`
}

func defaults() Config {
	return Config{
		Port:      "8000",
		LogLevel:  "info",
		LogFormat: "json",

		Runtime:          "local",
		InferenceTimeout: 120 * time.Second,
		Device:           "auto",

		SummarizerModel:         "facebook/bart-large-cnn",
		ClassifierModel:         "facebook/bart-large-mnli",
		SentimentModel:          "distilbert-base-uncased-finetuned-sst-2-english",
		SummarizerContextTokens: 1024,
		ClassifierContextTokens: 512,
		SentimentContextTokens:  512,
		StatsWindow:             time.Hour,

		MaxTextChars:         50000,
		MinArticleWords:      50,
		FetchTimeout:         20 * time.Second,
		MaxUploadBytes:       10 << 20,
		UserAgent:            "ResearchLens/1.0",
		PDFFallbackPdftotext: true,

		NeutralThreshold:   0.6,
		DifficultyEasy:     0.35,
		DifficultyHard:     0.65,
		SentenceWeight:     0.4,
		WordWeight:         0.4,
		DiversityWeight:    0.2,
		SecondaryTopics:    2,
		SummaryMinRatio:    0.15,
		SummaryMaxRatio:    0.25,
		SummaryFloorTokens: 30,
		SummaryCeilTokens:  150,

		MaxClaims:      5,
		MaxGaps:        5,
		MaxGapsPerType: 2,
		MaxQuestions:   5,

		MaxBatchURLs:     10,
		BatchConcurrency: 2,
	}
}

// Load builds the configuration. Only an unreadable or malformed config file is an error.
func Load() (Config, error) {
	envFile := envOr("RESEARCHLENS_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := defaults()
	if path := os.Getenv("RESEARCHLENS_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.clamp()
	return cfg, nil
}

// loadFile decodes YAML over the current values; keys absent from the file keep them.
func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("LOG_FORMAT", c.LogFormat)
	c.APIKey = envOr("API_KEY", c.APIKey)

	c.Runtime = strings.ToLower(envOr("INFERENCE_RUNTIME", c.Runtime))
	c.InferenceURL = envOr("INFERENCE_URL", c.InferenceURL)
	c.InferenceToken = envOr("INFERENCE_TOKEN", c.InferenceToken)
	c.InferenceTimeout = envDuration("INFERENCE_TIMEOUT", c.InferenceTimeout)
	c.Device = strings.ToLower(envOr("DEVICE", c.Device))
	c.WarmupOnStart = envBool("WARMUP_ON_START", c.WarmupOnStart)

	c.SummarizerModel = envOr("SUMMARIZER_MODEL", c.SummarizerModel)
	c.ClassifierModel = envOr("CLASSIFIER_MODEL", c.ClassifierModel)
	c.SentimentModel = envOr("SENTIMENT_MODEL", c.SentimentModel)
	c.SummarizerContextTokens = envInt("SUMMARIZER_CONTEXT_TOKENS", c.SummarizerContextTokens)
	c.ClassifierContextTokens = envInt("CLASSIFIER_CONTEXT_TOKENS", c.ClassifierContextTokens)
	c.SentimentContextTokens = envInt("SENTIMENT_CONTEXT_TOKENS", c.SentimentContextTokens)
	c.StatsWindow = envDuration("STATS_WINDOW", c.StatsWindow)

	c.MaxTextChars = envInt("MAX_TEXT_CHARS", c.MaxTextChars)
	c.MinArticleWords = envInt("MIN_ARTICLE_WORDS", c.MinArticleWords)
	c.FetchTimeout = envDuration("FETCH_TIMEOUT", c.FetchTimeout)
	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.UserAgent = envOr("USER_AGENT", c.UserAgent)
	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)

	c.NeutralThreshold = envFloat("SENTIMENT_NEUTRAL_THRESHOLD", c.NeutralThreshold)
	c.DifficultyEasy = envFloat("DIFFICULTY_EASY_BELOW", c.DifficultyEasy)
	c.DifficultyHard = envFloat("DIFFICULTY_HARD_FROM", c.DifficultyHard)
	c.SentenceWeight = envFloat("DIFFICULTY_SENTENCE_WEIGHT", c.SentenceWeight)
	c.WordWeight = envFloat("DIFFICULTY_WORD_WEIGHT", c.WordWeight)
	c.DiversityWeight = envFloat("DIFFICULTY_DIVERSITY_WEIGHT", c.DiversityWeight)
	c.SecondaryTopics = envInt("SECONDARY_TOPICS", c.SecondaryTopics)
	c.SummaryMinRatio = envFloat("SUMMARY_MIN_RATIO", c.SummaryMinRatio)
	c.SummaryMaxRatio = envFloat("SUMMARY_MAX_RATIO", c.SummaryMaxRatio)
	c.SummaryFloorTokens = envInt("SUMMARY_FLOOR_TOKENS", c.SummaryFloorTokens)
	c.SummaryCeilTokens = envInt("SUMMARY_CEILING_TOKENS", c.SummaryCeilTokens)

	c.MaxClaims = envInt("MAX_CLAIMS", c.MaxClaims)
	c.MaxGaps = envInt("MAX_GAPS", c.MaxGaps)
	c.MaxGapsPerType = envInt("MAX_GAPS_PER_TYPE", c.MaxGapsPerType)
	c.MaxQuestions = envInt("MAX_QUESTIONS", c.MaxQuestions)

	if v := os.Getenv("TOPIC_LABELS"); v != "" {
		c.TopicLabels = splitList(v)
	}

	c.MaxBatchURLs = envInt("MAX_BATCH_URLS", c.MaxBatchURLs)
	c.BatchConcurrency = envInt("BATCH_CONCURRENCY", c.BatchConcurrency)
}

// clamp resets non-positive limits to their defaults.
func (c *Config) clamp() {
	d := defaults()
	if c.MaxTextChars <= 0 {
		c.MaxTextChars = d.MaxTextChars
	}
	if c.MinArticleWords <= 0 {
		c.MinArticleWords = d.MinArticleWords
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.InferenceTimeout <= 0 {
		c.InferenceTimeout = d.InferenceTimeout
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.MaxClaims <= 0 {
		c.MaxClaims = d.MaxClaims
	}
	if c.MaxGaps <= 0 {
		c.MaxGaps = d.MaxGaps
	}
	if c.MaxGapsPerType <= 0 {
		c.MaxGapsPerType = d.MaxGapsPerType
	}
	if c.MaxQuestions <= 0 {
		c.MaxQuestions = d.MaxQuestions
	}
	if c.MaxBatchURLs <= 0 {
		c.MaxBatchURLs = d.MaxBatchURLs
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = d.BatchConcurrency
	}
}

func (c Config) Validate() error {
	switch c.Runtime {
	case "local":
	case "http":
		if c.InferenceURL == "" {
			return fmt.Errorf("INFERENCE_URL is required when INFERENCE_RUNTIME=http")
		}
	default:
		return fmt.Errorf("INFERENCE_RUNTIME must be local or http, got %q", c.Runtime)
	}
	switch c.Device {
	case "auto", "cpu", "cuda":
	default:
		return fmt.Errorf("DEVICE must be auto, cpu or cuda, got %q", c.Device)
	}
	if c.NeutralThreshold <= 0 || c.NeutralThreshold > 1 {
		return fmt.Errorf("sentiment neutral threshold must be in (0, 1], got %v", c.NeutralThreshold)
	}
	if c.DifficultyEasy <= 0 || c.DifficultyHard > 1 || c.DifficultyEasy > c.DifficultyHard {
		return fmt.Errorf("difficulty thresholds must satisfy 0 < easy <= hard <= 1, got %v and %v",
			c.DifficultyEasy, c.DifficultyHard)
	}
	if c.SentenceWeight < 0 || c.WordWeight < 0 || c.DiversityWeight < 0 {
		return fmt.Errorf("difficulty weights must not be negative, got %v/%v/%v",
			c.SentenceWeight, c.WordWeight, c.DiversityWeight)
	}
	if c.SentenceWeight+c.WordWeight+c.DiversityWeight <= 0 {
		return fmt.Errorf("difficulty weights must sum to more than zero")
	}
	if c.SummaryMinRatio > c.SummaryMaxRatio {
		return fmt.Errorf("summary min ratio %v exceeds max ratio %v", c.SummaryMinRatio, c.SummaryMaxRatio)
	}
	seen := make(map[string]bool, len(c.TopicLabels))
	for _, l := range c.TopicLabels {
		key := strings.ToLower(strings.TrimSpace(l))
		if key == "" {
			return fmt.Errorf("topic labels must not be blank")
		}
		if seen[key] {
			return fmt.Errorf("duplicate topic label %q", l)
		}
		seen[key] = true
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
