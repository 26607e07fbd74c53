package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RESEARCHLENS_ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("RESEARCHLENS_CONFIG", "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "local", cfg.Runtime)
	assert.Equal(t, "auto", cfg.Device)
	assert.Equal(t, 0.6, cfg.NeutralThreshold)
	assert.Equal(t, 50000, cfg.MaxTextChars)
	assert.Equal(t, 50, cfg.MinArticleWords)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.True(t, cfg.PDFFallbackPdftotext)
	assert.Equal(t, 5, cfg.MaxClaims)
	assert.Empty(t, cfg.TopicLabels)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9090")
	t.Setenv("INFERENCE_RUNTIME", "HTTP")
	t.Setenv("INFERENCE_URL", "http://models:8080")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "false")
	t.Setenv("SENTIMENT_NEUTRAL_THRESHOLD", "0.75")
	t.Setenv("TOPIC_LABELS", "law, medicine ,,finance")
	t.Setenv("MAX_CLAIMS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http", cfg.Runtime)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.False(t, cfg.PDFFallbackPdftotext)
	assert.Equal(t, 0.75, cfg.NeutralThreshold)
	assert.Equal(t, []string{"law", "medicine", "finance"}, cfg.TopicLabels)
	assert.Equal(t, 5, cfg.MaxClaims, "unparseable values keep the previous layer")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PolicyEnvKeys(t *testing.T) {
	isolate(t)
	t.Setenv("DIFFICULTY_SENTENCE_WEIGHT", "0.5")
	t.Setenv("DIFFICULTY_WORD_WEIGHT", "0.3")
	t.Setenv("DIFFICULTY_DIVERSITY_WEIGHT", "0.1")
	t.Setenv("SUMMARY_MIN_RATIO", "0.1")
	t.Setenv("SUMMARY_MAX_RATIO", "0.3")
	t.Setenv("SUMMARY_FLOOR_TOKENS", "20")
	t.Setenv("SUMMARY_CEILING_TOKENS", "200")
	t.Setenv("MAX_GAPS_PER_TYPE", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.SentenceWeight)
	assert.Equal(t, 0.3, cfg.WordWeight)
	assert.Equal(t, 0.1, cfg.DiversityWeight)
	assert.Equal(t, 0.1, cfg.SummaryMinRatio)
	assert.Equal(t, 0.3, cfg.SummaryMaxRatio)
	assert.Equal(t, 20, cfg.SummaryFloorTokens)
	assert.Equal(t, 200, cfg.SummaryCeilTokens)
	assert.Equal(t, 3, cfg.MaxGapsPerType)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ClampsNonPositive(t *testing.T) {
	isolate(t)
	t.Setenv("MAX_TEXT_CHARS", "0")
	t.Setenv("MAX_BATCH_URLS", "-3")
	t.Setenv("FETCH_TIMEOUT", "-1s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50000, cfg.MaxTextChars)
	assert.Equal(t, 10, cfg.MaxBatchURLs)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "researchlens.yaml")
	yml := `
port: "7000"
fetch_timeout: 45s
max_gaps: 3
topic_labels: [law, medicine]
related_topics:
  law: [politics, history]
question_templates:
  law:
    - "Which jurisdiction does {title} assume?"
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("RESEARCHLENS_CONFIG", path)
	t.Setenv("PORT", "7001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7001", cfg.Port, "env wins over file")
	assert.Equal(t, 45*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3, cfg.MaxGaps)
	assert.Equal(t, 5, cfg.MaxClaims, "absent keys keep defaults")
	assert.Equal(t, []string{"law", "medicine"}, cfg.TopicLabels)
	assert.Equal(t, []string{"politics", "history"}, cfg.RelatedTopics["law"])
	assert.Len(t, cfg.QuestionTemplates["law"], 1)
}

func TestLoad_FileErrors(t *testing.T) {
	dir := isolate(t)

	t.Setenv("RESEARCHLENS_CONFIG", filepath.Join(dir, "absent.yaml"))
	_, err := Load()
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("max_claimz: 3\n"), 0o600))
	t.Setenv("RESEARCHLENS_CONFIG", bad)
	_, err = Load()
	assert.ErrorContains(t, err, "max_claimz")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	t.Setenv("RESEARCHLENS_CONFIG", empty)
	_, err = Load()
	assert.NoError(t, err)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MIN_ARTICLE_WORDS=80\n"), 0o600))
	t.Setenv("RESEARCHLENS_ENV_FILE", envFile)
	// godotenv never overrides a variable that is already set, even to "".
	t.Setenv("MIN_ARTICLE_WORDS", "")
	require.NoError(t, os.Unsetenv("MIN_ARTICLE_WORDS"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.MinArticleWords)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown runtime", func(c *Config) { c.Runtime = "gpu-farm" }},
		{"http without url", func(c *Config) { c.Runtime = "http" }},
		{"bad device", func(c *Config) { c.Device = "tpu" }},
		{"zero neutral threshold", func(c *Config) { c.NeutralThreshold = 0 }},
		{"neutral threshold above one", func(c *Config) { c.NeutralThreshold = 1.2 }},
		{"easy above hard", func(c *Config) { c.DifficultyEasy, c.DifficultyHard = 0.7, 0.5 }},
		{"negative weight", func(c *Config) { c.SentenceWeight, c.WordWeight = 0.5, -0.5 }},
		{"zero weights", func(c *Config) { c.SentenceWeight, c.WordWeight, c.DiversityWeight = 0, 0, 0 }},
		{"summary ratios inverted", func(c *Config) { c.SummaryMinRatio, c.SummaryMaxRatio = 0.3, 0.2 }},
		{"blank label", func(c *Config) { c.TopicLabels = []string{"law", " "} }},
		{"duplicate label", func(c *Config) { c.TopicLabels = []string{"Law", "law"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
