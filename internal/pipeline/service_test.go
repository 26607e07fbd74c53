package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/researchlens/internal/analyzer"
	"github.com/dgallion1/researchlens/internal/apperr"
	"github.com/dgallion1/researchlens/internal/critic"
	"github.com/dgallion1/researchlens/internal/document"
	"github.com/dgallion1/researchlens/internal/gateway"
	"github.com/dgallion1/researchlens/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeExtractor struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func (f *fakeExtractor) FromURL(_ context.Context, url string) (document.Document, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(f.delay)

	switch {
	case strings.Contains(url, "short"):
		return document.Document{}, &apperr.ExtractionError{Source: url, Reason: "too short"}
	case strings.Contains(url, "down"):
		return document.Document{}, &apperr.FetchError{URL: url, Err: errors.New("connection refused")}
	}
	return document.New("Doc "+url, "Plain article text for "+url+".", document.SourceURL, url, 0), nil
}

func (f *fakeExtractor) FromPDF(data []byte, filename string) (document.Document, error) {
	doc := document.New(filename, string(data), document.SourcePDF, filename, 0)
	doc.PageCount = 1
	return doc, nil
}

func (f *fakeExtractor) FromFile(data []byte, filename string) (document.Document, error) {
	return document.New(filename, string(data), document.SourceUpload, filename, 0), nil
}

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, doc document.Document) (analyzer.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return analyzer.AnalysisResult{}, f.err
	}
	return analyzer.AnalysisResult{
		Summary:    "summary",
		Topics:     []string{"science", "health"},
		Sentiment:  gateway.SentimentPositive,
		Difficulty: analyzer.DifficultyEasy,
		WordCount:  doc.WordCount,
	}, nil
}

type fakeCritic struct {
	mu     sync.Mutex
	calls  int
	topics []string
}

func (f *fakeCritic) Critique(_ document.Document, topics []string) critic.CriticalInsights {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.topics = topics
	return critic.CriticalInsights{
		CriticalAnalysis:  "ok",
		FollowUpQuestions: []string{"q"},
		RelatedTopics:     []string{"technology"},
	}
}

func TestService_AnalyzeURL(t *testing.T) {
	ex, an, cr := &fakeExtractor{}, &fakeAnalyzer{}, &fakeCritic{}
	svc := NewService(ex, an, cr, Config{}, discard())

	resp, err := svc.AnalyzeURL(context.Background(), "https://example.com/a", Options{IncludeRelated: true})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AnalysisID)
	assert.Equal(t, "Doc https://example.com/a", resp.Title)
	assert.Equal(t, document.SourceURL, resp.SourceKind)
	assert.Equal(t, []string{"science", "health"}, cr.topics, "critic receives analyzer topics")
	assert.Equal(t, []string{"technology"}, resp.RelatedTopics)

	other, err := svc.AnalyzeURL(context.Background(), "https://example.com/a", Options{})
	require.NoError(t, err)
	assert.NotEqual(t, resp.AnalysisID, other.AnalysisID)
	assert.Nil(t, other.RelatedTopics)
}

func TestService_ExtractionFailureStopsPipeline(t *testing.T) {
	an, cr := &fakeAnalyzer{}, &fakeCritic{}
	svc := NewService(&fakeExtractor{}, an, cr, Config{}, discard())

	_, err := svc.AnalyzeURL(context.Background(), "https://example.com/short", Options{})
	assert.Equal(t, apperr.CodeExtraction, apperr.CodeOf(err))
	assert.Zero(t, an.calls)
	assert.Zero(t, cr.calls)
}

func TestService_InferenceFailureStopsPipeline(t *testing.T) {
	an := &fakeAnalyzer{err: apperr.Inference(apperr.StageSentiment, errors.New("oom"))}
	cr := &fakeCritic{}
	svc := NewService(&fakeExtractor{}, an, cr, Config{}, discard())

	resp, err := svc.AnalyzePDF(context.Background(), []byte("%PDF-1.4 text"), "a.pdf", Options{})
	assert.Nil(t, resp)
	var infErr *apperr.InferenceError
	require.ErrorAs(t, err, &infErr)
	assert.Equal(t, apperr.StageSentiment, infErr.Stage)
	assert.Zero(t, cr.calls)
}

func TestService_AnalyzeFile(t *testing.T) {
	svc := NewService(&fakeExtractor{}, &fakeAnalyzer{}, &fakeCritic{}, Config{}, discard())
	resp, err := svc.AnalyzeFile(context.Background(), []byte("Some notes here."), "notes.txt", Options{})
	require.NoError(t, err)
	assert.Equal(t, document.SourceUpload, resp.SourceKind)
	assert.Equal(t, 3, resp.WordCount)
}

func TestService_AnalyzeBatch(t *testing.T) {
	ex := &fakeExtractor{delay: 20 * time.Millisecond}
	svc := NewService(ex, &fakeAnalyzer{}, &fakeCritic{}, Config{BatchConcurrency: 2, MaxBatchURLs: 10}, discard())

	urls := []string{
		"https://example.com/1",
		"https://example.com/short",
		" https://example.com/3 ",
		"https://down.example.com/",
		"https://example.com/5",
	}
	items, err := svc.AnalyzeBatch(context.Background(), urls, Options{})
	require.NoError(t, err)
	require.Len(t, items, len(urls))

	assert.Equal(t, "https://example.com/1", items[0].URL)
	assert.NotNil(t, items[0].Result)
	assert.Nil(t, items[0].Error)

	require.NotNil(t, items[1].Error)
	assert.Equal(t, apperr.CodeExtraction, items[1].Error.Code)

	assert.Equal(t, "https://example.com/3", items[2].URL)
	assert.NotNil(t, items[2].Result)

	require.NotNil(t, items[3].Error)
	assert.Equal(t, apperr.CodeFetch, items[3].Error.Code)

	assert.NotNil(t, items[4].Result)
	assert.LessOrEqual(t, ex.maxInFlight.Load(), int32(2))
}

func TestService_AnalyzeBatchValidation(t *testing.T) {
	svc := NewService(&fakeExtractor{}, &fakeAnalyzer{}, &fakeCritic{}, Config{MaxBatchURLs: 2}, discard())

	_, err := svc.AnalyzeBatch(context.Background(), nil, Options{})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = svc.AnalyzeBatch(context.Background(), []string{"a", "b", "c"}, Options{})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestService_EndToEndWithLocalRuntime(t *testing.T) {
	var filler strings.Builder
	for i := range 8 {
		fmt.Fprintf(&filler, "The city council reviewed budget item number %d during the evening session. ", i+1)
	}
	page := `<html><head><title>Council Plan</title></head><body><article>
<p>Experts say this will always work and guarantees success for everyone.</p>
<p>The plan will inevitably lead to disaster.</p>
<p>` + filler.String() + `</p>
</article></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, page)
	}))
	defer srv.Close()

	log := discard()
	gw := gateway.New(gateway.NewLocalRuntime(), gateway.Config{}, log)
	svc := NewService(
		ingest.New(ingest.Config{}, srv.Client(), log),
		analyzer.New(gw, analyzer.Config{}, log),
		critic.New(critic.Config{}),
		Config{}, log,
	)

	resp, err := svc.AnalyzeURL(context.Background(), srv.URL+"/plan", Options{IncludeRelated: true})
	require.NoError(t, err)

	assert.Equal(t, "Council Plan", resp.Title)
	assert.True(t, gw.IsReady())
	assert.NotEmpty(t, resp.Summary)
	require.NotEmpty(t, resp.Topics)
	assert.Contains(t, []gateway.Sentiment{gateway.SentimentPositive, gateway.SentimentNegative, gateway.SentimentNeutral}, resp.Sentiment)
	assert.Contains(t, []analyzer.Difficulty{analyzer.DifficultyEasy, analyzer.DifficultyMedium, analyzer.DifficultyHard}, resp.DifficultyLevel)

	assert.Equal(t, []string{"Experts say this will always work and guarantees success for everyone."}, resp.UnsupportedClaims)
	require.Len(t, resp.LogicalGaps, 1)
	assert.Contains(t, resp.LogicalGaps[0], "slippery slope")
	assert.True(t, strings.HasPrefix(resp.CriticalAnalysis, "Found 1 unsupported claim and 1 potential logical gap."))
	assert.NotEmpty(t, resp.FollowUpQuestions)
	assert.NotEmpty(t, resp.RelatedTopics)
}
