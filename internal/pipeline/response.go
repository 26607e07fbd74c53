package pipeline

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/dgallion1/researchlens/internal/analyzer"
	"github.com/dgallion1/researchlens/internal/critic"
	"github.com/dgallion1/researchlens/internal/document"
	"github.com/dgallion1/researchlens/internal/gateway"
	"github.com/dgallion1/researchlens/internal/textstat"
)

const previewChars = 500

// Options are per-request switches.
type Options struct {
	IncludeRelated bool `json:"include_related"`
}

// AnalysisResponse is the externally visible result of one analysis.
type AnalysisResponse struct {
	AnalysisID  string              `json:"analysis_id"`
	Title       string              `json:"title"`
	Source      string              `json:"source"`
	SourceKind  document.SourceKind `json:"source_kind"`
	TextPreview string              `json:"text_preview"`
	WordCount   int                 `json:"word_count"`
	Truncated   bool                `json:"truncated"`
	PageCount   int                 `json:"page_count,omitempty"`
	ContentHash string              `json:"content_hash"`

	Summary         string               `json:"summary"`
	Topics          []string             `json:"topics"`
	Sentiment       gateway.Sentiment    `json:"sentiment"`
	SentimentScore  float64              `json:"sentiment_score"`
	DifficultyLevel analyzer.Difficulty  `json:"difficulty_level"`
	Readability     analyzer.Readability `json:"readability"`

	CriticalAnalysis  string   `json:"critical_analysis"`
	LogicalGaps       []string `json:"logical_gaps"`
	UnsupportedClaims []string `json:"unsupported_claims"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	RelatedTopics     []string `json:"related_topics,omitempty"`
}

// Assemble merges document metadata, analysis and insights. It only copies
// and fills defaults for missing fields; AnalysisID is left to the caller.
func Assemble(doc document.Document, res analyzer.AnalysisResult, ins critic.CriticalInsights, opts Options) AnalysisResponse {
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = doc.SourceRef
	}
	sentiment := res.Sentiment
	if sentiment == "" {
		sentiment = gateway.SentimentNeutral
	}
	difficulty := res.Difficulty
	if difficulty == "" {
		difficulty = analyzer.DifficultyMedium
	}
	wordCount := res.WordCount
	if wordCount == 0 {
		wordCount = doc.WordCount
	}

	resp := AnalysisResponse{
		Title:       title,
		Source:      doc.SourceRef,
		SourceKind:  doc.SourceKind,
		TextPreview: textstat.Preview(doc.Text, previewChars),
		WordCount:   wordCount,
		Truncated:   doc.Truncated,
		PageCount:   doc.PageCount,
		ContentHash: ContentHashHex([]byte(doc.Text)),

		Summary:         res.Summary,
		Topics:          nonNil(res.Topics),
		Sentiment:       sentiment,
		SentimentScore:  res.SentimentScore,
		DifficultyLevel: difficulty,
		Readability:     res.Readability,

		CriticalAnalysis:  ins.CriticalAnalysis,
		LogicalGaps:       nonNil(ins.LogicalGaps),
		UnsupportedClaims: nonNil(ins.UnsupportedClaims),
		FollowUpQuestions: nonNil(ins.FollowUpQuestions),
	}
	if opts.IncludeRelated {
		resp.RelatedTopics = nonNil(ins.RelatedTopics)
	}
	return resp
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
