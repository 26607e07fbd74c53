package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/researchlens/internal/textstat"
)

// SummaryPolicy scales summary length bounds with the input word count.
type SummaryPolicy struct {
	MinRatio float64
	MaxRatio float64
	Floor    int
	Ceiling  int
}

func (p SummaryPolicy) withDefaults() SummaryPolicy {
	if p.MinRatio <= 0 {
		p.MinRatio = 0.15
	}
	if p.MaxRatio <= 0 {
		p.MaxRatio = 0.25
	}
	if p.Floor <= 0 {
		p.Floor = 30
	}
	if p.Ceiling <= 0 {
		p.Ceiling = 150
	}
	if p.Ceiling < p.Floor {
		p.Ceiling = p.Floor
	}
	return p
}

// Bounds returns max and min summary lengths: MaxRatio and MinRatio of
// wordCount, each clamped to [Floor, Ceiling], with min never above max.
func (p SummaryPolicy) Bounds(wordCount int) (maxLen, minLen int) {
	p = p.withDefaults()
	maxLen = clampInt(int(float64(wordCount)*p.MaxRatio), p.Floor, p.Ceiling)
	minLen = clampInt(int(float64(wordCount)*p.MinRatio), p.Floor, p.Ceiling)
	return maxLen, min(minLen, maxLen)
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Readability holds the raw measurements behind a difficulty level.
type Readability struct {
	AvgSentenceWords float64 `json:"avg_sentence_words"`
	AvgWordChars     float64 `json:"avg_word_chars"`
	LexicalDiversity float64 `json:"lexical_diversity"`
	Score            float64 `json:"score"`
}

// DifficultyPolicy combines three normalised measurements into one score:
//
//	score = SentenceWeight*norm(avg sentence words, 10, 30)
//	      + WordWeight*norm(avg word chars, 4, 7)
//	      + DiversityWeight*norm(type/token ratio of the first 500 words, 0.3, 0.7)
//
// divided by the weight sum, where norm clamps linearly to [0, 1]. Scores below EasyBelow are easy, at or
// above HardFrom are hard, anything else is medium.
type DifficultyPolicy struct {
	SentenceWeight  float64
	WordWeight      float64
	DiversityWeight float64
	EasyBelow       float64
	HardFrom        float64
}

const diversityWindow = 500

func (p DifficultyPolicy) withDefaults() DifficultyPolicy {
	// Weights must be non-negative with a positive sum, else the score is not a weighted mean.
	if p.SentenceWeight < 0 || p.WordWeight < 0 || p.DiversityWeight < 0 ||
		p.SentenceWeight+p.WordWeight+p.DiversityWeight <= 0 {
		p.SentenceWeight, p.WordWeight, p.DiversityWeight = 0.4, 0.4, 0.2
	}
	if p.EasyBelow <= 0 {
		p.EasyBelow = 0.35
	}
	if p.HardFrom <= 0 {
		p.HardFrom = 0.65
	}
	if p.HardFrom < p.EasyBelow {
		p.HardFrom = p.EasyBelow
	}
	return p
}

// Classify scores text. Text without any words is medium.
func (p DifficultyPolicy) Classify(text string) (Difficulty, Readability) {
	p = p.withDefaults()
	r, ok := measure(text)
	if !ok {
		return DifficultyMedium, r
	}

	total := p.SentenceWeight + p.WordWeight + p.DiversityWeight
	r.Score = (p.SentenceWeight*norm(r.AvgSentenceWords, 10, 30) +
		p.WordWeight*norm(r.AvgWordChars, 4, 7) +
		p.DiversityWeight*norm(r.LexicalDiversity, 0.3, 0.7)) / total

	switch {
	case r.Score < p.EasyBelow:
		return DifficultyEasy, r
	case r.Score >= p.HardFrom:
		return DifficultyHard, r
	default:
		return DifficultyMedium, r
	}
}

func measure(text string) (Readability, bool) {
	toks := words(text)
	if len(toks) == 0 {
		return Readability{}, false
	}

	sentences := len(textstat.Sentences(text, textstat.DefaultMinSentenceChars))
	if sentences == 0 {
		sentences = 1
	}

	chars := 0
	for _, w := range toks {
		chars += utf8.RuneCountInString(w)
	}

	window := toks[:min(len(toks), diversityWindow)]
	unique := make(map[string]struct{}, len(window))
	for _, w := range window {
		unique[strings.ToLower(w)] = struct{}{}
	}

	return Readability{
		AvgSentenceWords: float64(len(toks)) / float64(sentences),
		AvgWordChars:     float64(chars) / float64(len(toks)),
		LexicalDiversity: float64(len(unique)) / float64(len(window)),
	}, true
}

// words returns whitespace tokens with surrounding punctuation trimmed.
func words(text string) []string {
	var out []string
	for _, f := range strings.Fields(text) {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func norm(x, lo, hi float64) float64 {
	v := (x - lo) / (hi - lo)
	return max(0, min(1, v))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
