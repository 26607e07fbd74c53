// Package textstat holds the text measurements shared by ingestion, inference and critique:
// word counts, token estimates, truncation and the sentence splitter.
package textstat

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokensPerWord approximates subword tokenizers on English prose.
const tokensPerWord = 1.33

// DefaultMinSentenceChars drops stray fragments such as list bullets and page numbers.
const DefaultMinSentenceChars = 20

// WordCount returns the number of whitespace-delimited tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// EstimateTokens gives a rough token count from the word count.
// Exact tokenization is not needed to stay inside a model's context window.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := int(float64(WordCount(text)) * tokensPerWord)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// TruncateTokens keeps the leading words of text that fit in maxTokens.
// The second return value reports whether anything was dropped.
func TruncateTokens(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return text, false
	}
	words := strings.Fields(text)
	maxWords := int(float64(maxTokens) / tokensPerWord)
	if maxWords < 1 {
		maxWords = 1
	}
	if len(words) <= maxWords {
		return text, false
	}
	return strings.Join(words[:maxWords], " "), true
}

// TruncateChars cuts text to at most maxChars runes, backing off to the last
// whitespace so no word is split. The second return value reports truncation.
func TruncateChars(text string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text, false
	}
	runes := []rune(text)
	cut := maxChars
	for i := cut; i > maxChars/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])), true
}

// Preview returns the first n runes of text.
func Preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}

// Sentences splits text into sentences. A boundary is a run of '.', '!' or '?'
// (plus closing quotes or brackets) followed by whitespace and then an uppercase
// letter, digit or opening quote, or by the end of the text. A blank line is also a
// boundary. Internal whitespace is collapsed and sentences shorter than minChars
// runes are dropped.
func Sentences(text string, minChars int) []string {
	runes := []rune(text)
	n := len(runes)

	var out []string
	emit := func(from, to int) {
		s := strings.Join(strings.Fields(string(runes[from:to])), " ")
		if s != "" && utf8.RuneCountInString(s) >= minChars {
			out = append(out, s)
		}
	}

	start := 0
	for i := 0; i < n; i++ {
		r := runes[i]

		if r == '\n' {
			j := i + 1
			for j < n && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\r') {
				j++
			}
			if j < n && runes[j] == '\n' {
				emit(start, i)
				start = j + 1
				i = j
			}
			continue
		}

		if !isTerminal(r) {
			continue
		}
		j := i + 1
		for j < n && (isTerminal(runes[j]) || isCloser(runes[j])) {
			j++
		}
		if j == n {
			emit(start, n)
			start = n
			break
		}
		if !unicode.IsSpace(runes[j]) {
			i = j - 1
			continue
		}
		k := j
		for k < n && unicode.IsSpace(runes[k]) {
			k++
		}
		if k == n || isSentenceStart(runes[k]) {
			emit(start, j)
			start = k
			i = k - 1
			continue
		}
		i = j - 1
	}
	if start < n {
		emit(start, n)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

func isSentenceStart(r rune) bool {
	if unicode.IsUpper(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '"', '\'', '(', '[', '“', '‘':
		return true
	}
	return false
}
