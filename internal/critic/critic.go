// Package critic runs rule-based critical reading over document text:
// unsupported claims, possible fallacies, follow-up questions and related
// topics. It makes no model calls and holds no state between calls, so the
// same input always produces the same insights.
package critic

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/researchlens/internal/document"
	"github.com/dgallion1/researchlens/internal/textstat"
)

type Config struct {
	MaxClaims        int
	MaxGaps          int
	MaxGapsPerType   int
	MaxQuestions     int
	MinSentenceChars int

	QuestionTemplates map[string][]string
	GenericQuestions  []string
	RelatedTopics     map[string][]string
	FallbackRelated   []string
}

func (c Config) withDefaults() Config {
	if c.MaxClaims <= 0 {
		c.MaxClaims = 5
	}
	if c.MaxGaps <= 0 {
		c.MaxGaps = 5
	}
	if c.MaxGapsPerType <= 0 {
		c.MaxGapsPerType = 2
	}
	if c.MaxQuestions <= 0 {
		c.MaxQuestions = 5
	}
	if c.MinSentenceChars <= 0 {
		c.MinSentenceChars = textstat.DefaultMinSentenceChars
	}
	if len(c.QuestionTemplates) == 0 {
		c.QuestionTemplates = DefaultQuestionTemplates
	} else {
		c.QuestionTemplates = lowerKeys(c.QuestionTemplates)
	}
	if len(c.GenericQuestions) == 0 {
		c.GenericQuestions = DefaultGenericQuestions
	}
	if len(c.RelatedTopics) == 0 {
		c.RelatedTopics = DefaultRelatedTopics
	} else {
		c.RelatedTopics = lowerKeys(c.RelatedTopics)
	}
	if len(c.FallbackRelated) == 0 {
		c.FallbackRelated = DefaultFallbackRelated
	}
	return c
}

// CriticalInsights is built once per document. Slices are never nil.
type CriticalInsights struct {
	CriticalAnalysis  string
	LogicalGaps       []string
	UnsupportedClaims []string
	FollowUpQuestions []string
	RelatedTopics     []string
}

type Critic struct {
	cfg       Config
	claims    []Pattern
	fallacies []Pattern
}

func New(cfg Config) *Critic {
	return &Critic{
		cfg:       cfg.withDefaults(),
		claims:    ClaimPatterns,
		fallacies: FallacyPatterns,
	}
}

// Critique inspects the document text. topics is the analyzer's ranked topic
// list; the first entry drives related topics.
func (c *Critic) Critique(doc document.Document, topics []string) CriticalInsights {
	sentences := textstat.Sentences(doc.Text, c.cfg.MinSentenceChars)

	claims := c.unsupportedClaims(sentences)
	gaps := c.logicalGaps(sentences, doc.Text)

	return CriticalInsights{
		CriticalAnalysis:  c.summarize(doc.Text, len(claims), len(gaps)),
		LogicalGaps:       gaps,
		UnsupportedClaims: claims,
		FollowUpQuestions: c.followUpQuestions(doc.Title, topics, claims),
		RelatedTopics:     c.relatedTopics(topics),
	}
}

// unsupportedClaims returns the first MaxClaims distinct sentences that
// match any claim pattern, in document order.
func (c *Critic) unsupportedClaims(sentences []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, s := range sentences {
		if len(out) >= c.cfg.MaxClaims {
			break
		}
		if seen[s] {
			continue
		}
		for _, p := range c.claims {
			if p.Matches(s) {
				seen[s] = true
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// logicalGaps renders one entry per (sentence, fallacy) match in document
// order, at most MaxGapsPerType per fallacy, then the missing-citations gap.
// The total is capped at MaxGaps.
func (c *Critic) logicalGaps(sentences []string, text string) []string {
	out := []string{}
	perType := make(map[string]int)
	seen := make(map[string]bool)

scan:
	for _, s := range sentences {
		for _, p := range c.fallacies {
			if len(out) >= c.cfg.MaxGaps {
				break scan
			}
			if perType[p.Category] >= c.cfg.MaxGapsPerType || !p.Matches(s) {
				continue
			}
			gap := p.Render(shorten(s, 200))
			if seen[gap] {
				continue
			}
			seen[gap] = true
			perType[p.Category]++
			out = append(out, gap)
		}
	}

	if len(out) < c.cfg.MaxGaps && researchRe.MatchString(text) && !citationRe.MatchString(text) {
		out = append(out, missingCitationsGap)
	}
	return out
}

// summarize composes the critical-analysis paragraph from counts and two
// whole-text checks: counterarguments and citations.
func (c *Critic) summarize(text string, claims, gaps int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d unsupported %s and %d potential logical %s.",
		claims, plural(claims, "claim", "claims"), gaps, plural(gaps, "gap", "gaps"))

	if balanceRe.MatchString(text) {
		b.WriteString(" The text acknowledges alternative viewpoints.")
	} else {
		b.WriteString(" The text does not appear to address counterarguments or opposing views.")
	}

	if n := len(citationRe.FindAllStringIndex(text, -1)); n > 0 {
		fmt.Fprintf(&b, " Detected %d %s or source %s.", n,
			plural(n, "citation", "citations"), plural(n, "attribution", "attributions"))
	} else {
		b.WriteString(" No explicit citations or sources were detected.")
	}

	switch {
	case claims == 0 && gaps == 0:
		b.WriteString(" The argument shows no obvious warning signs, though claims should still be checked against sources.")
	case claims+gaps >= 4:
		b.WriteString(" Read with caution and verify key claims independently.")
	default:
		b.WriteString(" Consider verifying the flagged statements before relying on them.")
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// shorten cuts s to n runes on a word boundary and marks the cut.
func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut, _ := textstat.TruncateChars(s, n)
	return cut + "..."
}

func lowerKeys(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[topicKey(k)] = v
	}
	return out
}
