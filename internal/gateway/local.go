package gateway

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/dgallion1/researchlens/internal/textstat"
)

// LocalRuntime runs small deterministic models in-process: a lead-sentence
// extractive summarizer, a keyword zero-shot classifier and a lexicon
// polarity scorer. It needs no model server and always runs on the CPU.
type LocalRuntime struct{}

func NewLocalRuntime() *LocalRuntime { return &LocalRuntime{} }

func (LocalRuntime) SelectDevice(context.Context) (Device, error) { return DeviceCPU, nil }

func (LocalRuntime) LoadSummarizer(context.Context, string, Device) (Summarizer, error) {
	return leadSummarizer{}, nil
}

func (LocalRuntime) LoadClassifier(context.Context, string, Device) (Classifier, error) {
	return keywordClassifier{lexicon: topicKeywords}, nil
}

func (LocalRuntime) LoadSentiment(context.Context, string, Device) (SentimentModel, error) {
	return lexiconSentiment{}, nil
}

type leadSummarizer struct{}

// Summarize takes whole leading sentences until maxLen words are reached,
// cutting the last one short only when a single sentence overruns the limit.
func (leadSummarizer) Summarize(_ context.Context, text string, maxLen, minLen int) (string, error) {
	sentences := textstat.Sentences(text, textstat.DefaultMinSentenceChars)
	if len(sentences) == 0 {
		sentences = []string{strings.Join(strings.Fields(text), " ")}
	}

	var picked []string
	words := 0
	for _, s := range sentences {
		n := textstat.WordCount(s)
		if words >= minLen && words+n > maxLen {
			break
		}
		picked = append(picked, s)
		words += n
		if words >= maxLen {
			break
		}
	}

	fields := strings.Fields(strings.Join(picked, " "))
	if len(fields) > maxLen {
		fields = fields[:maxLen]
	}
	return strings.Join(fields, " "), nil
}

// topicKeywords covers the default label set. Labels outside it are matched on their own words.
var topicKeywords = map[string][]string{
	"technology":    {"software", "computer", "digital", "internet", "ai", "algorithm", "device", "app", "data", "tech", "robot", "chip"},
	"science":       {"research", "scientist", "experiment", "study", "physics", "chemistry", "biology", "theory", "laboratory", "discovery"},
	"health":        {"health", "medical", "disease", "doctor", "patient", "hospital", "treatment", "vaccine", "diet", "wellness"},
	"politics":      {"government", "election", "policy", "president", "congress", "parliament", "vote", "law", "minister", "senate"},
	"economics":     {"economy", "inflation", "market", "gdp", "trade", "unemployment", "interest", "fiscal", "monetary", "recession"},
	"environment":   {"climate", "carbon", "emissions", "pollution", "energy", "renewable", "species", "forest", "ocean", "warming"},
	"education":     {"school", "student", "teacher", "university", "learning", "curriculum", "classroom", "education", "college"},
	"business":      {"company", "business", "startup", "revenue", "profit", "ceo", "investor", "customer", "industry", "firm"},
	"arts":          {"art", "music", "film", "painting", "artist", "museum", "novel", "theater", "culture", "design"},
	"sports":        {"game", "team", "player", "season", "coach", "league", "match", "championship", "tournament", "score"},
	"social issues": {"inequality", "rights", "poverty", "discrimination", "community", "justice", "gender", "housing", "immigration"},
	"history":       {"history", "century", "war", "ancient", "empire", "historical", "revolution", "era", "dynasty"},
	"philosophy":    {"philosophy", "ethics", "moral", "meaning", "existence", "knowledge", "reason", "truth", "virtue"},
	"psychology":    {"psychology", "behavior", "mind", "emotion", "cognitive", "mental", "anxiety", "memory", "personality"},
}

type keywordClassifier struct {
	lexicon map[string][]string
}

// Classify counts keyword hits per label and normalises with add-one
// smoothing so scores sum to 1 and a text with no hits scores uniformly.
func (c keywordClassifier) Classify(_ context.Context, text string, labels []string) ([]LabelScore, error) {
	counts := make(map[string]int)
	for _, w := range tokenize(text) {
		counts[w]++
	}

	hits := make([]int, len(labels))
	total := 0
	for i, label := range labels {
		keywords, ok := c.lexicon[strings.ToLower(label)]
		if !ok {
			keywords = tokenize(label)
		}
		for _, k := range keywords {
			hits[i] += counts[k]
		}
		total += hits[i]
	}

	out := make([]LabelScore, len(labels))
	denom := float64(total + len(labels))
	for i, label := range labels {
		out[i] = LabelScore{Label: label, Score: float64(hits[i]+1) / denom}
	}
	return out, nil
}

var (
	positiveWords = wordSet("good", "great", "excellent", "positive", "benefit", "benefits", "success", "successful",
		"improve", "improved", "improvement", "effective", "happy", "love", "best", "better", "strong", "win",
		"growth", "innovative", "promising", "advantage", "hope", "progress", "gain")
	negativeWords = wordSet("bad", "poor", "terrible", "negative", "risk", "risks", "failure", "fail", "failed",
		"disaster", "crisis", "harm", "harmful", "worse", "worst", "weak", "loss", "decline", "threat",
		"danger", "dangerous", "problem", "problems", "concern", "fear")
)

type lexiconSentiment struct{}

// Score labels the majority polarity. Confidence runs from 0.5 (balanced or
// no polar words) to 1.0 (all polar words agree).
func (lexiconSentiment) Score(_ context.Context, text string) (LabelScore, error) {
	pos, neg := 0, 0
	for _, w := range tokenize(text) {
		if positiveWords[w] {
			pos++
		} else if negativeWords[w] {
			neg++
		}
	}
	if pos+neg == 0 {
		return LabelScore{Label: "POSITIVE", Score: 0.5}, nil
	}
	label := "POSITIVE"
	if neg > pos {
		label = "NEGATIVE"
	}
	score := 0.5 + 0.5*math.Abs(float64(pos-neg))/float64(pos+neg)
	return LabelScore{Label: label, Score: score}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
